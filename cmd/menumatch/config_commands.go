package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"menumatch/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

// starterCatalog seeds a catalog file so a first run has something to match.
const starterCatalog = `Turkey Club Sandwich
Grilled Chicken Caesar Wrap
Veggie Hummus Wrap
`

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool
	var withCatalog bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Long:        "Writes a commented sample configuration. With --catalog, also writes a starter catalog next to it.",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolveInitTarget(targetPath)
			if err != nil {
				return err
			}
			if err := refuseExisting(target, overwrite); err != nil {
				return err
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			printf(out, "Wrote sample configuration to %s\n", target)

			if withCatalog {
				catalogPath := filepath.Join(filepath.Dir(target), config.Default().Paths.CatalogFile)
				if err := refuseExisting(catalogPath, overwrite); err != nil {
					return err
				}
				if err := os.WriteFile(catalogPath, []byte(starterCatalog), 0o644); err != nil {
					return fmt.Errorf("write starter catalog: %w", err)
				}
				printf(out, "Wrote starter catalog to %s (point paths.catalog_file at it)\n", catalogPath)
			}
			printf(out, "Set the describer and tagger endpoints and keys (or export AZURE_OPENAI_* and AZURE_VISION_*) before running menumatch.\n")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing files if present")
	cmd.Flags().BoolVar(&withCatalog, "catalog", false, "Also write a starter catalog file")
	return cmd
}

func resolveInitTarget(flagValue string) (string, error) {
	var target string
	if v := strings.TrimSpace(flagValue); v != "" {
		expanded, err := config.ExpandPath(v)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		target = expanded
	} else {
		defaultPath, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		target = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	return target, nil
}

func refuseExisting(path string, overwrite bool) error {
	if overwrite {
		return nil
	}
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return fmt.Errorf("%s already exists (use --overwrite to replace it)", path)
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("check %s: %w", path, err)
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolved, exists, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			printf(out, "Config path: %s\n", resolved)
			if !exists {
				printf(out, "Config file did not exist; defaults were used\n")
			}
			printf(out, "Describer enabled: %s\n", yesNo(cfg.Describer.Enabled))
			printf(out, "Tagger enabled: %s\n", yesNo(cfg.Tagger.Enabled))
			printf(out, "Configuration valid\n")
			return nil
		},
	}
}
