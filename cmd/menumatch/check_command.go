package main

import (
	"errors"

	"github.com/spf13/cobra"

	"menumatch/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories, catalog, and service availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			describerClient, taggerClient := ctx.clients(cfg)
			var svc preflight.Services
			if describerClient != nil {
				svc.Describer = describerClient
			}
			if taggerClient != nil {
				svc.Tagger = taggerClient
			}
			results := preflight.RunAll(cmd.Context(), cfg, svc)

			if jsonOutput {
				if err := writeJSON(cmd, checkResultsJSON(results)); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					rows = append(rows, []string{r.Name, checkStatus(r), r.Detail})
				}
				printf(cmd.OutOrStdout(), "%s\n", renderTable([]string{"Check", "Status", "Detail"}, rows, nil))
			}
			if !preflight.AllPassed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	return cmd
}

func checkStatus(r preflight.Result) string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Passed:
		return "ok"
	default:
		return "FAILED"
	}
}

type checkJSON struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func checkResultsJSON(results []preflight.Result) []checkJSON {
	out := make([]checkJSON, 0, len(results))
	for _, r := range results {
		out = append(out, checkJSON{Name: r.Name, Status: checkStatus(r), Detail: r.Detail})
	}
	return out
}
