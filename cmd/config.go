package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/srt-line-translator/internal/config"
	"github.com/MimeLyc/srt-line-translator/internal/service"
)

const defaultConfigFile = appName + ".toml"

func newConfigCommand(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(newConfigInitCommand(root))
	return cmd
}

func newConfigInitCommand(root *rootFlags) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the current settings",
		Long: `Writes the settings in effect (defaults, .env and environment) as TOML to
the --config path, or ` + defaultConfigFile + ` when none is given. The API key
is left empty so it can stay in the environment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := root.configPath
			if path == "" {
				path = defaultConfigFile
			}
			if config.Exists(path) && !overwrite {
				return service.NewError(service.ErrConfig, "configuration file already exists (use --overwrite to replace it)").
					WithContext("path", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return service.WrapError(err, service.ErrConfig, "failed to create config directory").
					WithContext("path", path)
			}

			// the target may not exist yet, so it is not read as a source
			withoutFile := *root
			withoutFile.configPath = ""
			cfg, err := loadConfig(cmd, &withoutFile)
			if err != nil {
				return service.WrapError(err, service.ErrConfig, "failed to load configuration")
			}
			cfg.Service.APIKey = ""

			if err := cfg.WriteFile(path); err != nil {
				return service.WrapError(err, service.ErrConfig, "failed to write configuration").
					WithContext("path", path)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote configuration to %s\n", path)
			fmt.Fprintln(out, "Set LLM_API_KEY in the environment or .env before translating.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing configuration file")
	return cmd
}
