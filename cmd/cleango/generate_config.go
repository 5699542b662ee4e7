// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/autobrr/cleango/internal/config"
)

func RunGenerateConfigCommand() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:   "generate-config",
		Short: "Write a default config.toml",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configDir == "" {
				configDir = config.GetDefaultConfigDir()
			}
			configPath := filepath.Join(configDir, config.ConfigFileName)

			if _, err := os.Stat(configPath); err == nil {
				cmd.Printf("Config file %s already exists. Skipping generation.\n", configPath)
				return nil
			} else if !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			if err := config.WriteDefaultConfig(configPath); err != nil {
				return err
			}

			cmd.Printf("Configuration file created at %s\n", configPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&configDir, "config-dir", "", "Directory to write config.toml into (default is the platform config directory)")
	return cmd
}
