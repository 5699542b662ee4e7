// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package collector

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/cleango/internal/services/cleaner"
)

// CleanerSource is the read side of cleaner.Service.
type CleanerSource interface {
	Initialized() bool
	Reachable() bool
	Running() bool
	Stats() cleaner.Stats
}

type CleanerCollector struct {
	source CleanerSource

	passesTotalDesc       *prometheus.Desc
	torrentsRemovedDesc   *prometheus.Desc
	bytesFreedDesc        *prometheus.Desc
	deleteFailuresDesc    *prometheus.Desc
	lastPassDesc          *prometheus.Desc
	lastDurationDesc      *prometheus.Desc
	passRunningDesc       *prometheus.Desc
	connectionStatusDesc  *prometheus.Desc
	initializedStatusDesc *prometheus.Desc
}

func NewCleanerCollector(source CleanerSource) *CleanerCollector {
	return &CleanerCollector{
		source: source,

		passesTotalDesc: prometheus.NewDesc(
			"cleango_clean_passes_total",
			"Number of clean passes by trigger and outcome",
			[]string{"trigger", "success"},
			nil,
		),
		torrentsRemovedDesc: prometheus.NewDesc(
			"cleango_torrents_removed_total",
			"Number of torrents removed from qBittorrent",
			nil,
			nil,
		),
		bytesFreedDesc: prometheus.NewDesc(
			"cleango_bytes_freed_total",
			"Total size in bytes of removed torrents",
			nil,
			nil,
		),
		deleteFailuresDesc: prometheus.NewDesc(
			"cleango_delete_failures_total",
			"Number of per-torrent delete calls that failed",
			nil,
			nil,
		),
		lastPassDesc: prometheus.NewDesc(
			"cleango_last_pass_timestamp_seconds",
			"Unix time of the last finished clean pass",
			nil,
			nil,
		),
		lastDurationDesc: prometheus.NewDesc(
			"cleango_last_pass_duration_seconds",
			"Duration of the last clean pass that reached qBittorrent",
			nil,
			nil,
		),
		passRunningDesc: prometheus.NewDesc(
			"cleango_clean_pass_running",
			"Whether a clean pass is in progress (1=running, 0=idle)",
			nil,
			nil,
		),
		connectionStatusDesc: prometheus.NewDesc(
			"cleango_qbittorrent_connection_status",
			"Connection status of qBittorrent (1=connected, 0=disconnected)",
			nil,
			nil,
		),
		initializedStatusDesc: prometheus.NewDesc(
			"cleango_cleaner_initialized",
			"Whether the cleaner was initialized with a qBittorrent client (1=yes, 0=no)",
			nil,
			nil,
		),
	}
}

func (c *CleanerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.passesTotalDesc
	ch <- c.torrentsRemovedDesc
	ch <- c.bytesFreedDesc
	ch <- c.deleteFailuresDesc
	ch <- c.lastPassDesc
	ch <- c.lastDurationDesc
	ch <- c.passRunningDesc
	ch <- c.connectionStatusDesc
	ch <- c.initializedStatusDesc
}

func (c *CleanerCollector) Collect(ch chan<- prometheus.Metric) {
	if c.source == nil {
		log.Debug().Msg("Cleaner is nil, skipping metrics collection")
		return
	}

	stats := c.source.Stats()

	for trigger, outcomes := range stats.Passes {
		for success, count := range outcomes {
			ch <- prometheus.MustNewConstMetric(
				c.passesTotalDesc,
				prometheus.CounterValue,
				float64(count),
				string(trigger),
				strconv.FormatBool(success),
			)
		}
	}

	ch <- prometheus.MustNewConstMetric(c.torrentsRemovedDesc, prometheus.CounterValue, float64(stats.TorrentsRemoved))
	ch <- prometheus.MustNewConstMetric(c.bytesFreedDesc, prometheus.CounterValue, float64(stats.BytesFreed))
	ch <- prometheus.MustNewConstMetric(c.deleteFailuresDesc, prometheus.CounterValue, float64(stats.DeleteFailures))

	if !stats.LastPass.IsZero() {
		ch <- prometheus.MustNewConstMetric(c.lastPassDesc, prometheus.GaugeValue, float64(stats.LastPass.Unix()))
		ch <- prometheus.MustNewConstMetric(c.lastDurationDesc, prometheus.GaugeValue, stats.LastDuration.Seconds())
	}

	ch <- prometheus.MustNewConstMetric(c.passRunningDesc, prometheus.GaugeValue, boolGauge(c.source.Running()))
	ch <- prometheus.MustNewConstMetric(c.connectionStatusDesc, prometheus.GaugeValue, boolGauge(c.source.Reachable()))
	ch <- prometheus.MustNewConstMetric(c.initializedStatusDesc, prometheus.GaugeValue, boolGauge(c.source.Initialized()))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
