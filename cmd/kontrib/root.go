package main

import (
	"errors"
	"io"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// errItemsFailed signals that a batch ran but not every item succeeded.
var errItemsFailed = errors.New("one or more items were not updated")

type rootOptions struct {
	configPath string
	debug      bool
}

func newRootCmd(load sessionLoader, stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "kontrib",
		Short: "Bulk contributor assignment for Kontent.ai",
		Long: `kontrib replaces the contributor list of many content item variants at once.
Items that are published, scheduled or archived are moved to a draft step
first; items the workflow forbids editing are reported for manual follow-up.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to the base TOML config (default ./config.toml)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	open := func() (*session, error) {
		return load(opts.configPath, opts.debug, stderr)
	}

	root.AddCommand(
		newAssignCmd(open),
		newWorkflowsCmd(open),
		newUsersCmd(open),
	)
	return root
}
