package db

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"medical-summary/internal/helper"
	"medical-summary/internal/models"
)

// SummaryReport is one row of the report history.
type SummaryReport struct {
	bun.BaseModel `bun:"table:summary_reports,alias:sr"`
	ID            string    `bun:"id,pk,type:uuid"`
	ReportID      string    `bun:"report_id,notnull"`
	FileName      string    `bun:"file_name,notnull"`
	URL           string    `bun:"url,notnull"`
	SourceURLs    []string  `bun:"source_urls,array"`
	Pages         int       `bun:"pages"`
	Degraded      bool      `bun:"degraded"`
	GeneratedAt   time.Time `bun:"generated_at,notnull"`
}

func toRow(e models.ReportEntry) *SummaryReport {
	return &SummaryReport{
		ID:          e.ID,
		ReportID:    e.ReportID,
		FileName:    e.FileName,
		URL:         e.URL,
		SourceURLs:  e.SourceURLs,
		Pages:       e.Pages,
		Degraded:    e.Degraded,
		GeneratedAt: e.GeneratedAt,
	}
}

func (r SummaryReport) Entry() models.ReportEntry {
	return models.ReportEntry{
		ID:          r.ID,
		ReportID:    r.ReportID,
		FileName:    r.FileName,
		URL:         r.URL,
		SourceURLs:  r.SourceURLs,
		Pages:       r.Pages,
		Degraded:    r.Degraded,
		GeneratedAt: r.GeneratedAt,
	}
}

// ReportStore records generated reports.
type ReportStore struct {
	db *bun.DB
}

func NewReportStore(db *bun.DB) *ReportStore {
	return &ReportStore{db: db}
}

// Save inserts entry, assigning an id when it has none.
func (s *ReportStore) Save(ctx context.Context, entry models.ReportEntry) error {
	if entry.ID == "" {
		id, err := helper.GenerateUUID()
		if err != nil {
			return err
		}
		entry.ID = id
	}
	if _, err := s.db.NewInsert().Model(toRow(entry)).Exec(ctx); err != nil {
		return fmt.Errorf("failed to save report %s: %w", entry.ReportID, err)
	}
	return nil
}

// List returns the most recent reports first.
func (s *ReportStore) List(ctx context.Context, limit int) ([]models.ReportEntry, error) {
	var rows []SummaryReport
	if err := listReports(s.db, &rows, limit).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	entries := make([]models.ReportEntry, len(rows))
	for i, r := range rows {
		entries[i] = r.Entry()
	}
	return entries, nil
}

func listReports(db bun.IDB, rows *[]SummaryReport, limit int) *bun.SelectQuery {
	return db.NewSelect().
		Model(rows).
		OrderExpr("generated_at DESC").
		Limit(limit)
}
