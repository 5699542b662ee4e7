// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/autobrr/cleango/internal/domain"
	"github.com/autobrr/cleango/internal/models"
	"github.com/autobrr/cleango/internal/services/cleaner"
)

const historyDateLayout = "2006-01-02 15:04:05"

// RunCleanCommand runs a single manual pass and exits.
func RunCleanCommand() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Run one clean pass against qBittorrent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(configDir)
			if err != nil {
				return err
			}
			defer a.Close()

			svc := a.newCleanerService(cmd.Context())
			if !svc.Initialized() {
				return fmt.Errorf("cleaner %w, check the qBittorrent settings in %s", domain.ErrNotInitialized, a.cfg.ConfigPath())
			}

			res, err := svc.Clean(cmd.Context(), cleaner.TriggerManual)
			if res != nil {
				printRemoved(cmd, res)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&configDir, "config-dir", "", "Config directory or config.toml path (default is the platform config directory)")
	return cmd
}

func printRemoved(cmd *cobra.Command, res *cleaner.PassResult) {
	out := cmd.OutOrStdout()
	if len(res.Removed) == 0 {
		fmt.Fprintln(out, "No unwanted torrents found")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tTRACKER MESSAGE")
	for _, d := range res.Removed {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.Name, humanize.IBytes(uint64(max(d.Size, 0))), d.TrackerMessage)
	}
	_ = w.Flush()

	fmt.Fprintf(out, "Removed %d torrents, freed %s\n", len(res.Removed), humanize.IBytes(uint64(max(res.BytesFreed, 0))))
	if len(res.Failed) > 0 {
		fmt.Fprintf(out, "%d torrents could not be removed\n", len(res.Failed))
	}
}

// RunHistoryCommand prints one page of the audit log.
func RunHistoryCommand() *cobra.Command {
	var (
		configDir string
		page      int
		perPage   int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List removed torrents, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if page < 1 {
				return errors.New("--page must be at least 1")
			}

			a, err := openApp(configDir)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.store.ListPage(cmd.Context(), page, perPage)
			if err != nil {
				return err
			}
			stats, err := a.store.AggregateStats(cmd.Context())
			if err != nil {
				return err
			}

			printHistory(cmd, result, stats)
			return nil
		},
	}

	cmd.Flags().StringVar(&configDir, "config-dir", "", "Config directory or config.toml path (default is the platform config directory)")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&perPage, "per-page", models.DefaultPerPage, "Entries per page: 20 or 100")
	return cmd
}

func printHistory(cmd *cobra.Command, result *models.DeletedTorrentPage, stats *models.DeletedTorrentStats) {
	out := cmd.OutOrStdout()
	if len(result.Torrents) == 0 {
		fmt.Fprintln(out, "No deleted torrents")
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DELETED\tNAME\tSIZE\tTRACKER MESSAGE")
		for _, rec := range result.Torrents {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				rec.DeletionDate.Format(historyDateLayout),
				rec.Name,
				humanize.IBytes(uint64(max(rec.SizeBytes, 0))),
				rec.TrackerMessage,
			)
		}
		_ = w.Flush()
	}

	fmt.Fprintf(out, "Page %d of %d (%d per page)\n", result.Page, max(result.TotalPages, 1), result.PerPage)
	fmt.Fprintf(out, "Total: %s torrents, %s freed\n",
		humanize.Comma(stats.TotalDeleted),
		humanize.IBytes(uint64(max(stats.TotalSizeFreed, 0))),
	)
}
