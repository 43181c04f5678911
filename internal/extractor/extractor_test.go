package extractor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medical-summary/internal/models"
)

func newDocServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/alpha.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Name: Jane Doe")
	})
	mux.HandleFunc("/beta.txt", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond) // finish after the others
		fmt.Fprint(w, "Glucose: 95 mg/dL (70-99)")
	})
	mux.HandleFunc("/broken.pdf", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "this is not a pdf")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestExtractAll_OrderAndSeparators(t *testing.T) {
	srv := newDocServer(t)
	ex := NewExtractor(NewHTTPFetcher(5 * time.Second))

	urls := []string{srv.URL + "/beta.txt", srv.URL + "/alpha.txt"}
	text, err := ex.ExtractAll(context.Background(), urls)
	require.NoError(t, err)

	assert.Equal(t, "Glucose: 95 mg/dL (70-99)"+models.DocumentSeparator+"Name: Jane Doe", text)
}

func TestExtractAll_FailuresBecomePlaceholders(t *testing.T) {
	srv := newDocServer(t)
	ex := NewExtractor(NewHTTPFetcher(5 * time.Second))

	urls := []string{
		srv.URL + "/alpha.txt",
		srv.URL + "/missing.pdf",
		srv.URL + "/broken.pdf",
		srv.URL + "/beta.txt",
	}
	text, err := ex.ExtractAll(context.Background(), urls)
	require.NoError(t, err)

	parts := strings.Split(text, models.DocumentSeparator)
	require.Len(t, parts, len(urls))
	assert.Equal(t, len(urls)-1, strings.Count(text, models.DocumentSeparator))

	assert.Equal(t, "Name: Jane Doe", parts[0])
	assert.True(t, strings.HasPrefix(parts[1], "[Error extracting text from "+urls[1]+": "), parts[1])
	assert.Contains(t, parts[1], "404")
	assert.True(t, strings.HasPrefix(parts[2], "[Error extracting text from "+urls[2]+": "), parts[2])
	assert.True(t, strings.HasSuffix(parts[2], "]"))
	assert.Equal(t, "Glucose: 95 mg/dL (70-99)", parts[3])
}

func TestExtractAll_SeparatorCountMatchesDocuments(t *testing.T) {
	srv := newDocServer(t)
	ex := NewExtractor(NewHTTPFetcher(5 * time.Second))

	for n := 1; n <= 5; n++ {
		var urls []string
		for i := 0; i < n; i++ {
			if i%2 == 0 {
				urls = append(urls, srv.URL+"/alpha.txt")
			} else {
				urls = append(urls, srv.URL+"/missing.pdf")
			}
		}
		text, err := ex.ExtractAll(context.Background(), urls)
		require.NoError(t, err)
		assert.Equal(t, n-1, strings.Count(text, models.DocumentSeparator), "documents=%d", n)
	}
}

func TestExtractAll_Empty(t *testing.T) {
	ex := NewExtractor(NewHTTPFetcher(time.Second))
	_, err := ex.ExtractAll(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoDocuments)
}

type panicFetcher struct{}

func (panicFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if strings.Contains(location, "bad") {
		panic("malformed xref table")
	}
	return []byte("ok"), nil
}

func TestExtractAll_RecoversPanics(t *testing.T) {
	ex := NewExtractor(panicFetcher{})
	text, err := ex.ExtractAll(context.Background(), []string{"good.txt", "bad.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "ok"+models.DocumentSeparator+"[Error extracting text from bad.pdf: malformed xref table]", text)
}

func TestHTTPFetcher_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Allergies: penicillin"), 0o600))

	f := &HTTPFetcher{AllowLocal: true}
	for _, loc := range []string{path, "file://" + path} {
		data, err := f.Fetch(context.Background(), loc)
		require.NoError(t, err)
		assert.Equal(t, "Allergies: penicillin", string(data))
	}
}

func TestHTTPFetcher_RefusesLocalFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(path, []byte("DB_PASSWORD=hunter2"), 0o600))

	locations := []string{path, "file://" + path, "/etc/passwd", "ftp://example.com/a.pdf"}
	for _, loc := range locations {
		_, err := NewHTTPFetcher(time.Second).Fetch(context.Background(), loc)
		assert.ErrorIs(t, err, ErrUnsupportedScheme, loc)
	}

	text, err := NewExtractor(NewHTTPFetcher(time.Second)).ExtractAll(context.Background(), locations)
	require.NoError(t, err)
	assert.NotContains(t, text, "hunter2")
	assert.NotContains(t, text, "no such file")
	for i, part := range strings.Split(text, models.DocumentSeparator) {
		assert.Equal(t, "[Error extracting text from "+locations[i]+": "+ErrUnsupportedScheme.Error()+"]", part)
	}
}

func TestDocumentExt(t *testing.T) {
	assert.Equal(t, ".pdf", documentExt("https://cdn.example.com/a/medical-record-1-0.PDF?token=x"))
	assert.Equal(t, ".docx", documentExt("/tmp/letter.docx"))
	assert.Equal(t, "", documentExt("https://example.com/download"))
}
