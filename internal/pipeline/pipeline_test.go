package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medical-summary/internal/models"
	"medical-summary/internal/storage"
)

type fakeExtractor struct {
	text  string
	err   error
	calls int
}

func (f *fakeExtractor) ExtractAll(ctx context.Context, locations []string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeSummarizer struct {
	record models.ClinicalRecord
	err    error
	input  string
}

func (f *fakeSummarizer) Summarize(ctx context.Context, text string) (models.ClinicalRecord, error) {
	f.input = text
	return f.record, f.err
}

type fakeRenderer struct {
	err   error
	calls int
}

var renderedAt = time.UnixMilli(1700000000000).UTC()

func (f *fakeRenderer) Render(record models.ClinicalRecord) (*models.Rendered, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.Rendered{Content: []byte("%PDF-fake"), ReportID: "MR-0042", GeneratedAt: renderedAt, Pages: 2}, nil
}

type memStore struct {
	blobs map[string][]byte
	err   error
}

func (m *memStore) Store(ctx context.Context, data []byte, contentType, name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.blobs == nil {
		m.blobs = map[string][]byte{}
	}
	if _, ok := m.blobs[name]; ok {
		return "", storage.ErrExists
	}
	m.blobs[name] = data
	return "http://blobs/" + name, nil
}

func (m *memStore) Retrieve(ctx context.Context, name string) (*storage.Blob, error) {
	data, ok := m.blobs[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Blob{Name: name, Data: data}, nil
}

type fakeHistory struct {
	entries []models.ReportEntry
	err     error
}

func (f *fakeHistory) Save(ctx context.Context, entry models.ReportEntry) error {
	f.entries = append(f.entries, entry)
	return f.err
}

func TestRun(t *testing.T) {
	ext := &fakeExtractor{text: "clinical text"}
	sum := &fakeSummarizer{record: models.ClinicalRecord{Diagnoses: "Asthma"}}
	store := &memStore{}
	history := &fakeHistory{}
	p := New(ext, sum, &fakeRenderer{}, store, WithHistory(history))

	result, err := p.Run(context.Background(), []string{"http://a/1.pdf", "http://a/2.pdf"})
	require.NoError(t, err)

	assert.Equal(t, "medical-summary-1700000000000.pdf", result.FileName)
	assert.Equal(t, "http://blobs/medical-summary-1700000000000.pdf", result.URL)
	assert.Equal(t, "MR-0042", result.ReportID)
	assert.Equal(t, "clinical text", sum.input)
	assert.Equal(t, []byte("%PDF-fake"), store.blobs[result.FileName])

	require.Len(t, history.entries, 1)
	assert.Equal(t, []string{"http://a/1.pdf", "http://a/2.pdf"}, history.entries[0].SourceURLs)
	assert.Equal(t, 2, history.entries[0].Pages)
	assert.False(t, history.entries[0].Degraded)
}

func TestRunSameMillisecondKeepsBothReports(t *testing.T) {
	store := &memStore{}
	p := New(&fakeExtractor{text: "x"}, &fakeSummarizer{}, &fakeRenderer{}, store)

	first, err := p.Run(context.Background(), []string{"http://a/patient-a.pdf"})
	require.NoError(t, err)
	second, err := p.Run(context.Background(), []string{"http://a/patient-b.pdf"})
	require.NoError(t, err)

	assert.Equal(t, "medical-summary-1700000000000.pdf", first.FileName)
	assert.Equal(t, "medical-summary-1700000000000-1.pdf", second.FileName)
	assert.NotEqual(t, first.URL, second.URL)
	assert.Len(t, store.blobs, 2)
}

func TestRunNoDocuments(t *testing.T) {
	ext := &fakeExtractor{}
	p := New(ext, &fakeSummarizer{}, &fakeRenderer{}, &memStore{})

	_, err := p.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoDocuments)
	assert.NotErrorIs(t, err, ErrGenerateSummary)
	assert.Equal(t, 0, ext.calls)
}

func TestRunFailures(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name     string
		sum      *fakeSummarizer
		renderer *fakeRenderer
		store    *memStore
	}{
		{"summarize", &fakeSummarizer{err: boom}, &fakeRenderer{}, &memStore{}},
		{"render", &fakeSummarizer{}, &fakeRenderer{err: boom}, &memStore{}},
		{"store", &fakeSummarizer{}, &fakeRenderer{}, &memStore{err: boom}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history := &fakeHistory{}
			p := New(&fakeExtractor{text: "x"}, tt.sum, tt.renderer, tt.store, WithHistory(history))

			result, err := p.Run(context.Background(), []string{"http://a/1.pdf"})
			assert.Nil(t, result)
			assert.ErrorIs(t, err, ErrGenerateSummary)
			assert.ErrorIs(t, err, boom)
			assert.Contains(t, err.Error(), tt.name)
			assert.Empty(t, history.entries)
			assert.Empty(t, tt.store.blobs)
		})
	}
}

func TestRunSkipsRenderAfterSummaryFailure(t *testing.T) {
	renderer := &fakeRenderer{}
	p := New(&fakeExtractor{text: "x"}, &fakeSummarizer{err: errors.New("chunk 2 failed")}, renderer, &memStore{})

	_, err := p.Run(context.Background(), []string{"a.pdf"})
	require.Error(t, err)
	assert.Equal(t, 0, renderer.calls)
}

func TestRunHistoryFailureIsNotFatal(t *testing.T) {
	history := &fakeHistory{err: errors.New("db down")}
	sum := &fakeSummarizer{record: models.ClinicalRecord{PatientProfile: models.ParseErrorMarker}}
	p := New(&fakeExtractor{text: "x"}, sum, &fakeRenderer{}, &memStore{}, WithHistory(history))

	result, err := p.Run(context.Background(), []string{"a.pdf"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.URL)
	require.Len(t, history.entries, 1)
	assert.True(t, history.entries[0].Degraded)
}

func TestSummarizeOnly(t *testing.T) {
	renderer := &fakeRenderer{}
	store := &memStore{}
	p := New(&fakeExtractor{text: "x"}, &fakeSummarizer{record: models.ClinicalRecord{Allergies: "None"}}, renderer, store)

	record, err := p.Summarize(context.Background(), []string{"a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "None", record.Allergies)
	assert.Equal(t, 0, renderer.calls)
	assert.Empty(t, store.blobs)
}
