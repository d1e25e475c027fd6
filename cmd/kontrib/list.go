package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/kontrib/pkg/pagination"
)

type listOptions struct {
	search string
	json   bool
}

func (o *listOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.search, "search", "", "case-insensitive filter")
	cmd.Flags().BoolVar(&o.json, "json", false, "print JSON")
}

// page requests everything in one page; the CLI does not paginate.
func (o *listOptions) page() pagination.PageRequest {
	p := pagination.PageRequest{Page: 1, PageSize: 1 << 20}
	if o.search != "" {
		p.Search = &o.search
	}
	return p
}

func newWorkflowsCmd(open func() (*session, error)) *cobra.Command {
	opts := &listOptions{}
	cmd := &cobra.Command{
		Use:   "workflows",
		Short: "List workflows and the draft step items are moved to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := open()
			if err != nil {
				return err
			}
			result, err := s.Directory.Workflows(cmd.Context(), opts.page())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(out, result.Data)
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CODENAME\tNAME\tDRAFT STEP\tDEFAULT")
			for _, wf := range result.Data {
				draft := "-"
				if wf.DraftStep != nil {
					draft = wf.DraftStep.Codename
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", wf.Codename, wf.Name, draft, wf.IsDefault)
			}
			return tw.Flush()
		},
	}
	opts.bind(cmd)
	return cmd
}

func newUsersCmd(open func() (*session, error)) *cobra.Command {
	opts := &listOptions{}
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List the subscription users contributors are resolved against",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := open()
			if err != nil {
				return err
			}
			result, err := s.Directory.Users(cmd.Context(), opts.page())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(out, result.Data)
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "EMAIL\tNAME\tID")
			for _, u := range result.Data {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", u.Email, u.FullName(), u.ID)
			}
			return tw.Flush()
		},
	}
	opts.bind(cmd)
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
