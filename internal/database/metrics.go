// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package database

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AuditCollector exports health counters for the audit log database.
type AuditCollector struct {
	db *DB

	writeConnRecoveries *prometheus.Desc
	open                *prometheus.Desc
}

// NewAuditCollector reports on db. A nil db exports the database as closed.
func NewAuditCollector(db *DB) *AuditCollector {
	return &AuditCollector{
		db: db,
		writeConnRecoveries: prometheus.NewDesc(
			"cleango_audit_write_conn_recoveries_total",
			"Audit write transactions that rolled back a transaction left open on the write connection",
			nil, nil,
		),
		open: prometheus.NewDesc(
			"cleango_audit_db_open",
			"Whether the audit log database is open (1) or closed (0)",
			nil, nil,
		),
	}
}

func (c *AuditCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.writeConnRecoveries
	ch <- c.open
}

func (c *AuditCollector) Collect(ch chan<- prometheus.Metric) {
	var recoveries uint64
	open := 0.0
	if c.db != nil {
		recoveries = c.db.WriteConnRecoveries()
		if !c.db.closed.Load() {
			open = 1
		}
	}

	ch <- prometheus.MustNewConstMetric(c.writeConnRecoveries, prometheus.CounterValue, float64(recoveries))
	ch <- prometheus.MustNewConstMetric(c.open, prometheus.GaugeValue, open)
}
