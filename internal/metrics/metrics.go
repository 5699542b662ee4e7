// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/cleango/internal/database"
	"github.com/autobrr/cleango/internal/metrics/collector"
)

type MetricsManager struct {
	registry         *prometheus.Registry
	cleanerCollector *collector.CleanerCollector
}

// NewMetricsManager builds a registry with runtime collectors, the cleaner
// collector over source and the audit database collector over db.
func NewMetricsManager(source collector.CleanerSource, db *database.DB) *MetricsManager {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	cleanerCollector := collector.NewCleanerCollector(source)
	registry.MustRegister(cleanerCollector)
	registry.MustRegister(database.NewAuditCollector(db))

	log.Info().Msg("Metrics manager initialized with collectors")

	return &MetricsManager{
		registry:         registry,
		cleanerCollector: cleanerCollector,
	}
}

func (m *MetricsManager) GetRegistry() *prometheus.Registry {
	return m.registry
}
