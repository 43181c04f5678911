// Package summarizer turns extracted clinical text into one ClinicalRecord.
//
// The text is split into overlapping chunks and each chunk is sent to the
// model independently. The chunk replies are then merged by a single
// synthesis call whose JSON reply is parsed into the canonical record.
//
// Failure isolation differs from the extractor: a failed chunk call fails the
// whole summary (the first error cancels the remaining calls), while a
// synthesis reply that is not valid JSON degrades to a placeholder record.
package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"medical-summary/internal/config"
	"medical-summary/internal/llmservice"
	"medical-summary/internal/models"
	"medical-summary/internal/parser"
)

const (
	defaultChunkSize    = 10000
	defaultChunkOverlap = 1000
)

type Summarizer struct {
	model          llms.Model
	callOpts       []llms.CallOption
	split          parser.Splitter
	chunkSize      int
	chunkOverlap   int
	maxConcurrency int
	limiter        *rate.Limiter
}

type Option func(*Summarizer)

// WithChunking overrides the chunk window.
func WithChunking(size, overlap int) Option {
	return func(s *Summarizer) {
		s.chunkSize = size
		s.chunkOverlap = overlap
	}
}

func WithSplitter(split parser.Splitter) Option {
	return func(s *Summarizer) { s.split = split }
}

// WithRateLimit caps model calls per second; rps <= 0 disables the limit.
func WithRateLimit(rps float64) Option {
	return func(s *Summarizer) {
		if rps <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithMaxConcurrency bounds in-flight chunk calls; n <= 0 means unbounded.
func WithMaxConcurrency(n int) Option {
	return func(s *Summarizer) { s.maxConcurrency = n }
}

func WithCallOptions(opts ...llms.CallOption) Option {
	return func(s *Summarizer) { s.callOpts = opts }
}

func New(model llms.Model, opts ...Option) *Summarizer {
	s := &Summarizer{
		model:        model,
		split:        parser.WindowChunks,
		chunkSize:    defaultChunkSize,
		chunkOverlap: defaultChunkOverlap,
		limiter:      rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromConfig wires the summarizer from the llm and summary config sections.
func NewFromConfig(model llms.Model, cfg *config.Config) *Summarizer {
	return New(model,
		WithChunking(cfg.Summary.ChunkSize, cfg.Summary.Overlap()),
		WithSplitter(parser.SplitterFor(cfg.Summary.Splitter)),
		WithRateLimit(cfg.LLM.RequestsPerSecond),
		WithMaxConcurrency(cfg.LLM.MaxConcurrency),
		WithCallOptions(llmservice.CallOptions(&cfg.LLM)...),
	)
}

// Summarize chunks text, summarizes every chunk and synthesizes the record.
func (s *Summarizer) Summarize(ctx context.Context, text string) (models.ClinicalRecord, error) {
	log.Info().Int("chars", len(text)).Msg("Generating summary")

	chunks, err := s.split(text, s.chunkSize, s.chunkOverlap)
	if err != nil {
		return models.ClinicalRecord{}, err
	}
	log.Info().Int("chunks", len(chunks)).Msg("Split text into chunks")

	summaries, err := s.SummarizeChunks(ctx, chunks)
	if err != nil {
		return models.ClinicalRecord{}, err
	}
	return s.Synthesize(ctx, summaries)
}

// SummarizeChunks issues one extraction call per chunk concurrently and
// returns the replies in chunk order. Any failed call fails the batch.
func (s *Summarizer) SummarizeChunks(ctx context.Context, chunks []string) ([]string, error) {
	summaries := make([]string, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	if s.maxConcurrency > 0 {
		g.SetLimit(s.maxConcurrency)
	}
	for i, chunk := range chunks {
		g.Go(func() error {
			log.Debug().Int("chunk", i+1).Int("of", len(chunks)).Msg("Processing chunk")
			reply, err := s.generate(gctx, models.ChunkSystemPrompt, fmt.Sprintf(models.ChunkUserPromptTemplate, chunk))
			if err != nil {
				return fmt.Errorf("failed to summarize chunk %d: %w", i+1, err)
			}
			summaries[i] = reply
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// Synthesize merges the chunk summaries with one model call. A reply that
// cannot be parsed yields a degraded record, not an error.
func (s *Summarizer) Synthesize(ctx context.Context, summaries []string) (models.ClinicalRecord, error) {
	combined := strings.Join(summaries, models.ChunkSeparator)

	reply, err := s.generate(ctx, models.SynthesisSystemPrompt, fmt.Sprintf(models.SynthesisUserPromptTemplate, combined))
	if err != nil {
		return models.ClinicalRecord{}, fmt.Errorf("failed to synthesize summary: %w", err)
	}

	record, err := ParseRecord(reply)
	if err != nil {
		log.Warn().Err(err).Msg("Error parsing summary JSON, using degraded record")
		return DegradedRecord(reply), nil
	}
	log.Info().Msg("Summary generated successfully")
	return record, nil
}

func (s *Summarizer) generate(ctx context.Context, system, user string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return llmservice.Generate(ctx, s.model, system, user, s.callOpts...)
}
