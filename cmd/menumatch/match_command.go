package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"menumatch/internal/catalog"
	"menumatch/internal/matching"
)

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var catalogFile string
	var secondaryFile string
	var fileName string

	cmd := &cobra.Command{
		Use:   "match [description-file]",
		Short: "Match a description against the catalog without calling any service",
		Long: "Reads a free-text description from the given file (or stdin when omitted or \"-\"), " +
			"optionally fuses secondary signals from a JSON file, and prints the resulting record.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.loggerFor(cmd)
			if err != nil {
				return err
			}

			path := cfg.Paths.CatalogFile
			if v := strings.TrimSpace(catalogFile); v != "" {
				path = expandOrKeep(v)
			}
			entries, err := catalog.Load(path)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}

			source := "-"
			if len(args) == 1 {
				source = args[0]
			}
			description, err := readDescription(cmd.InOrStdin(), source)
			if err != nil {
				return err
			}

			input := matching.Input{FileName: fileName, Primary: description}
			if v := strings.TrimSpace(secondaryFile); v != "" {
				signals, err := readSecondary(expandOrKeep(v))
				if err != nil {
					return err
				}
				input.Secondary = &signals
			}

			outcome := matching.NewEngine(entries, logger).Evaluate(input)
			return writeJSON(cmd, outcome)
		},
	}

	cmd.Flags().StringVar(&catalogFile, "catalog", "", "Catalog file (overrides paths.catalog_file)")
	cmd.Flags().StringVar(&secondaryFile, "secondary", "", "JSON file with secondary signals to fuse")
	cmd.Flags().StringVar(&fileName, "file-name", "image.jpeg", "Original image name used for the match filename extension")
	return cmd
}

func readDescription(stdin io.Reader, source string) (string, error) {
	var data []byte
	var err error
	if source == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(expandOrKeep(source))
	}
	if err != nil {
		return "", fmt.Errorf("read description: %w", err)
	}
	return string(data), nil
}

func readSecondary(path string) (matching.SecondarySignals, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return matching.SecondarySignals{}, fmt.Errorf("read secondary signals: %w", err)
	}
	var signals matching.SecondarySignals
	if err := json.Unmarshal(data, &signals); err != nil {
		return matching.SecondarySignals{}, fmt.Errorf("parse secondary signals %s: %w", path, err)
	}
	return signals.Normalize(), nil
}
