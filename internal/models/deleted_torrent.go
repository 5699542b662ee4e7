// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/autobrr/cleango/internal/dbinterface"
)

const (
	DefaultPerPage = 20

	// rows per INSERT statement, 4 bound parameters each
	insertChunkSize = 200

	dbTimeLayout = "2006-01-02 15:04:05"
)

// AllowedPerPage lists the page sizes ListPage honours.
var AllowedPerPage = []int{20, 100}

var ErrInvalidDeletedTorrent = errors.New("invalid deleted torrent record")

// DeletedTorrentRecord is one row of the append-only deletion audit log.
type DeletedTorrentRecord struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	SizeBytes      int64     `json:"size_bytes"`
	TrackerMessage string    `json:"tracker_message"`
	DeletionDate   time.Time `json:"deletion_date"`
}

type DeletedTorrentPage struct {
	Torrents   []DeletedTorrentRecord `json:"torrents"`
	Total      int                    `json:"total"`
	Page       int                    `json:"page"`
	PerPage    int                    `json:"per_page"`
	TotalPages int                    `json:"total_pages"`
}

type DeletedTorrentStats struct {
	TotalDeleted   int64 `json:"total_deleted"`
	TotalSizeFreed int64 `json:"total_size_freed"`
}

type DeletedTorrentStore struct {
	db  dbinterface.TxBeginner
	loc *time.Location
	now func() time.Time
}

// NewDeletedTorrentStore returns a store presenting deletion dates in loc
// (local time when nil).
func NewDeletedTorrentStore(db dbinterface.TxBeginner, loc *time.Location) *DeletedTorrentStore {
	if loc == nil {
		loc = time.Local
	}
	return &DeletedTorrentStore{
		db:  db,
		loc: loc,
		now: time.Now,
	}
}

// NormalizePerPage maps any value outside AllowedPerPage to DefaultPerPage.
func NormalizePerPage(perPage int) int {
	for _, allowed := range AllowedPerPage {
		if perPage == allowed {
			return perPage
		}
	}
	return DefaultPerPage
}

// AppendBatch records every decision in one transaction. Either all rows are
// written or none are. All rows share the same deletion date.
func (s *DeletedTorrentStore) AppendBatch(ctx context.Context, decisions []DeletionDecision) ([]DeletedTorrentRecord, error) {
	if len(decisions) == 0 {
		return nil, nil
	}

	for _, d := range decisions {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}

	deletedAt := s.now().UTC().Truncate(time.Second)
	stamp := deletedAt.Format(dbTimeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin deleted torrents batch: %w", err)
	}
	defer tx.Rollback()

	records := make([]DeletedTorrentRecord, 0, len(decisions))
	for start := 0; start < len(decisions); start += insertChunkSize {
		chunk := decisions[start:min(start+insertChunkSize, len(decisions))]

		query := dbinterface.BuildQueryWithPlaceholders(
			"INSERT INTO deleted_torrents (name, size_bytes, tracker_message, deletion_date) VALUES %s", 4, len(chunk))

		args := make([]any, 0, len(chunk)*4)
		for _, d := range chunk {
			args = append(args, d.Name, d.Size, d.TrackerMessage, stamp)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("insert deleted torrents: %w", err)
		}

		// rowids of a multi-row insert inside one write transaction are consecutive
		lastID, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("read inserted ids: %w", err)
		}
		firstID := lastID - int64(len(chunk)) + 1

		for i, d := range chunk {
			records = append(records, DeletedTorrentRecord{
				ID:             firstID + int64(i),
				Name:           d.Name,
				SizeBytes:      d.Size,
				TrackerMessage: d.TrackerMessage,
				DeletionDate:   deletedAt.In(s.loc),
			})
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit deleted torrents batch: %w", err)
	}

	return records, nil
}

// ListPage returns one page of records, newest first. page < 1 is treated as
// the first page; TotalPages is at least 1.
func (s *DeletedTorrentStore) ListPage(ctx context.Context, page, perPage int) (*DeletedTorrentPage, error) {
	if page < 1 {
		page = 1
	}
	perPage = NormalizePerPage(perPage)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deleted_torrents`).Scan(&total); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, size_bytes, tracker_message, deletion_date
		FROM deleted_torrents
		ORDER BY deletion_date DESC, id DESC
		LIMIT ? OFFSET ?
	`, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	torrents := make([]DeletedTorrentRecord, 0, perPage)
	for rows.Next() {
		var (
			r  DeletedTorrentRecord
			ts dbTime
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.SizeBytes, &r.TrackerMessage, &ts); err != nil {
			return nil, err
		}
		r.DeletionDate = ts.Time.In(s.loc)
		torrents = append(torrents, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &DeletedTorrentPage{
		Torrents:   torrents,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: max(1, (total+perPage-1)/perPage),
	}, nil
}

// AggregateStats returns the record count and the sum of sizes, both zero on
// an empty log.
func (s *DeletedTorrentStore) AggregateStats(ctx context.Context) (*DeletedTorrentStats, error) {
	var stats DeletedTorrentStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(size_bytes), 0)
		FROM deleted_torrents
	`).Scan(&stats.TotalDeleted, &stats.TotalSizeFreed)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

// dbTime scans deletion_date whether the driver hands back time.Time or the
// stored text.
type dbTime struct {
	Time time.Time
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("unsupported deletion_date type %T", src)
	}
}

func (t *dbTime) parse(s string) error {
	for _, layout := range []string{dbTimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00"} {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unparseable deletion_date %q", s)
}
