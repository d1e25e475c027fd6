package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/kontrib/internal/assignment"
)

type assignOptions struct {
	items        []string
	language     string
	contributors []string
	json         bool
}

func newAssignCmd(open func() (*session, error)) *cobra.Command {
	opts := &assignOptions{}

	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Replace the contributors of content item variants",
		Example: `  kontrib assign --item 8f3c...,1b2a... --language default --contributor ana@example.com
  kontrib assign --item 8f3c... --language en-US --contributor ana@example.com --contributor bo@example.com --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			command := opts.command()
			if err := command.Validate(); err != nil {
				return fmt.Errorf("invalid arguments: %w", err)
			}

			s, err := open()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var writeErr error
			report, err := s.Assignment.Run(cmd.Context(), command.Requests(), func(r assignment.Result) {
				if err := printResult(out, r, opts.json); err != nil && writeErr == nil {
					writeErr = err
				}
			})
			if err != nil {
				return err
			}
			if writeErr != nil {
				return fmt.Errorf("write result: %w", writeErr)
			}

			if err := printSummary(out, report.Summary, opts.json); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			if report.Summary.Succeeded != report.Summary.Total {
				return errItemsFailed
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&opts.items, "item", nil, "content item id (repeatable or comma separated)")
	cmd.Flags().StringVar(&opts.language, "language", "", "language codename or id")
	cmd.Flags().StringSliceVar(&opts.contributors, "contributor", nil, "contributor email (repeatable or comma separated)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print results as JSON lines")
	cmd.MarkFlagRequired("item")
	cmd.MarkFlagRequired("language")
	cmd.MarkFlagRequired("contributor")

	return cmd
}

func (o *assignOptions) command() assignment.Command {
	cmd := assignment.Command{Contributors: o.contributors}
	for _, id := range o.items {
		cmd.Items = append(cmd.Items, assignment.ItemSelection{
			ID:       id,
			Language: o.language,
		})
	}
	return cmd
}

func printResult(w io.Writer, r assignment.Result, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(r)
	}

	var err error
	switch r.Outcome {
	case assignment.OutcomeSuccess:
		_, err = fmt.Fprintf(w, "ok      %s  %s\n", itemLabel(r), r.Message)
	case assignment.OutcomeManual:
		_, err = fmt.Fprintf(w, "manual  %s  %s\n", itemLabel(r), r.Message)
		if err == nil && r.Instructions != "" {
			_, err = fmt.Fprintf(w, "        %s\n", r.Instructions)
		}
	default:
		_, err = fmt.Fprintf(w, "failed  %s  [%s] %s\n", itemLabel(r), r.Reason, r.Error)
	}
	return err
}

func printSummary(w io.Writer, s assignment.Summary, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(map[string]assignment.Summary{"summary": s})
	}
	_, err := fmt.Fprintf(w, "\n%d items: %d succeeded, %d failed, %d need manual intervention\n",
		s.Total, s.Succeeded, s.Failed, s.Manual)
	return err
}

func itemLabel(r assignment.Result) string {
	label := r.ContentItemID
	if r.ContentItemCodename != "" {
		label = r.ContentItemCodename
	}
	if r.Language != "" {
		label += " (" + r.Language + ")"
	}
	return label
}
