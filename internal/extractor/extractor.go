// Package extractor turns a list of document locations into one text stream.
//
// Documents are fetched and parsed concurrently. A document that cannot be
// fetched or parsed does not fail the batch: its slot in the output holds a
// bracketed error placeholder naming the location and the cause.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"medical-summary/internal/models"
	"medical-summary/internal/parser"
)

var (
	ErrNoDocuments       = errors.New("no document locations provided")
	ErrUnsupportedScheme = errors.New("only http and https locations are accepted")
)

// Fetcher retrieves the raw bytes behind a document location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// HTTPFetcher reads http(s) locations over the network. Plain paths and
// file:// URLs are read from the local filesystem only when AllowLocal is set,
// which the server never does.
type HTTPFetcher struct {
	Client     *http.Client
	AllowLocal bool
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	u, err := url.Parse(location)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return f.fetchHTTP(ctx, location)
	}
	if !f.AllowLocal {
		return nil, ErrUnsupportedScheme
	}
	return os.ReadFile(strings.TrimPrefix(location, "file://"))
}

func (f *HTTPFetcher) fetchHTTP(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch document from %s: %s", location, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Extractor fetches documents and extracts their text.
type Extractor struct {
	fetcher Fetcher
}

func NewExtractor(fetcher Fetcher) *Extractor {
	return &Extractor{fetcher: fetcher}
}

// ExtractAll returns the text of every location, in input order, joined by
// models.DocumentSeparator. It only fails when locations is empty.
func (e *Extractor) ExtractAll(ctx context.Context, locations []string) (string, error) {
	if len(locations) == 0 {
		return "", ErrNoDocuments
	}
	log.Info().Int("documents", len(locations)).Msg("Extracting text")

	texts := make([]string, len(locations))
	var wg sync.WaitGroup
	for i, location := range locations {
		wg.Add(1)
		go func() {
			defer wg.Done()
			texts[i] = e.extractOne(ctx, location)
		}()
	}
	wg.Wait()

	return strings.Join(texts, models.DocumentSeparator), nil
}

// extractOne never fails; errors and parser panics become the placeholder.
func (e *Extractor) extractOne(ctx context.Context, location string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("location", location).Interface("panic", r).Msg("Document parser panicked")
			text = placeholder(location, fmt.Errorf("%v", r))
		}
	}()

	content, err := e.fetcher.Fetch(ctx, location)
	if err != nil {
		log.Warn().Err(err).Str("location", location).Msg("Error fetching document")
		return placeholder(location, err)
	}

	text, err = parser.ExtractText(content, documentExt(location))
	if err != nil {
		log.Warn().Err(err).Str("location", location).Msg("Error extracting text")
		return placeholder(location, err)
	}

	log.Debug().Str("location", location).Int("chars", len(text)).Msg("Extracted text")
	return text
}

func placeholder(location string, err error) string {
	return fmt.Sprintf(models.ExtractionErrorFormat, location, err.Error())
}

// documentExt takes the extension from the URL path, ignoring any query.
func documentExt(location string) string {
	if u, err := url.Parse(location); err == nil && u.Path != "" {
		return strings.ToLower(path.Ext(u.Path))
	}
	return strings.ToLower(filepath.Ext(location))
}
