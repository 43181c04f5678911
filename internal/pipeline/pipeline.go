// Package pipeline runs one summary request end to end: extract, summarize,
// render and store. A failure at any stage aborts the request and no partial
// report is stored.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"medical-summary/internal/extractor"
	"medical-summary/internal/helper"
	"medical-summary/internal/models"
	"medical-summary/internal/storage"
)

var (
	ErrNoDocuments     = extractor.ErrNoDocuments
	ErrGenerateSummary = errors.New("failed to generate summary")
)

type TextExtractor interface {
	ExtractAll(ctx context.Context, locations []string) (string, error)
}

type RecordSummarizer interface {
	Summarize(ctx context.Context, text string) (models.ClinicalRecord, error)
}

type ReportRenderer interface {
	Render(record models.ClinicalRecord) (*models.Rendered, error)
}

// History records generated reports. Failures are logged, never returned to
// the caller.
type History interface {
	Save(ctx context.Context, entry models.ReportEntry) error
}

type Pipeline struct {
	extractor  TextExtractor
	summarizer RecordSummarizer
	renderer   ReportRenderer
	store      storage.BlobStore
	history    History
}

type Option func(*Pipeline)

func WithHistory(h History) Option {
	return func(p *Pipeline) { p.history = h }
}

func New(ext TextExtractor, sum RecordSummarizer, ren ReportRenderer, store storage.BlobStore, opts ...Option) *Pipeline {
	p := &Pipeline{extractor: ext, summarizer: sum, renderer: ren, store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run produces and stores the report for locations and returns where it is
// served from. Every failure other than an empty input wraps ErrGenerateSummary.
func (p *Pipeline) Run(ctx context.Context, locations []string) (*models.SummaryResult, error) {
	start := time.Now()

	record, err := p.Summarize(ctx, locations)
	if err != nil {
		return nil, err
	}

	rendered, err := p.renderer.Render(record)
	if err != nil {
		return nil, p.fail("render", err)
	}

	name, url, err := storage.StoreUnique(ctx, p.store, rendered.Content, models.PDFContentType,
		helper.BlobName(models.SummaryKind, rendered.GeneratedAt, -1))
	if err != nil {
		return nil, p.fail("store", fmt.Errorf("failed to store summary: %w", err))
	}

	result := &models.SummaryResult{
		URL:         url,
		FileName:    name,
		ReportID:    rendered.ReportID,
		GeneratedAt: rendered.GeneratedAt,
	}
	p.record(ctx, result, locations, rendered.Pages, record.PatientProfile == models.ParseErrorMarker)

	log.Info().
		Str("report_id", result.ReportID).
		Str("file", name).
		Dur("took", time.Since(start)).
		Msg("Summary stored")
	return result, nil
}

// Summarize runs extraction and summarization only.
func (p *Pipeline) Summarize(ctx context.Context, locations []string) (models.ClinicalRecord, error) {
	if len(locations) == 0 {
		return models.ClinicalRecord{}, ErrNoDocuments
	}

	text, err := p.extractor.ExtractAll(ctx, locations)
	if err != nil {
		return models.ClinicalRecord{}, p.fail("extract", err)
	}

	record, err := p.summarizer.Summarize(ctx, text)
	if err != nil {
		return models.ClinicalRecord{}, p.fail("summarize", err)
	}
	return record, nil
}

func (p *Pipeline) fail(stage string, err error) error {
	log.Error().Err(err).Str("stage", stage).Msg("Error generating summary")
	return fmt.Errorf("%w: %s: %w", ErrGenerateSummary, stage, err)
}

func (p *Pipeline) record(ctx context.Context, result *models.SummaryResult, sources []string, pages int, degraded bool) {
	if p.history == nil {
		return
	}
	entry := models.ReportEntry{
		ReportID:    result.ReportID,
		FileName:    result.FileName,
		URL:         result.URL,
		SourceURLs:  sources,
		Pages:       pages,
		Degraded:    degraded,
		GeneratedAt: result.GeneratedAt,
	}
	if err := p.history.Save(ctx, entry); err != nil {
		log.Warn().Err(err).Str("report_id", result.ReportID).Msg("Error recording report history")
	}
}
