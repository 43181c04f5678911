package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"medical-summary/internal/config"
	"medical-summary/internal/models"
)

// fakeModel answers chunk prompts through onChunk and the synthesis prompt
// with synthesisReply, recording every user payload.
type fakeModel struct {
	mu             sync.Mutex
	chunkCalls     []string
	synthesisCalls []string
	onChunk        func(user string) (string, error)
	synthesisReply string
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	system := messages[0].Parts[0].(llms.TextContent).Text
	user := messages[1].Parts[0].(llms.TextContent).Text

	var reply string
	var err error
	if system == models.ChunkSystemPrompt {
		m.mu.Lock()
		m.chunkCalls = append(m.chunkCalls, user)
		m.mu.Unlock()
		if m.onChunk != nil {
			reply, err = m.onChunk(user)
		} else {
			reply = "fragment"
		}
	} else {
		m.mu.Lock()
		m.synthesisCalls = append(m.synthesisCalls, user)
		m.mu.Unlock()
		reply = m.synthesisReply
	}
	if err != nil {
		return nil, err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestSummarize_ShortTextSingleChunkCall(t *testing.T) {
	m := &fakeModel{synthesisReply: recordJSON}
	s := New(m)

	text := "Name: Jane Doe\nGlucose: 150 mg/dL (70-99)"
	rec, err := s.Summarize(context.Background(), text)
	require.NoError(t, err)

	require.Len(t, m.chunkCalls, 1)
	assert.Equal(t, fmt.Sprintf(models.ChunkUserPromptTemplate, text), m.chunkCalls[0])
	require.Len(t, m.synthesisCalls, 1)
	assert.Equal(t, fmt.Sprintf(models.SynthesisUserPromptTemplate, "fragment"), m.synthesisCalls[0])
	assert.Equal(t, "Name: Jane Doe, Age: 54, Gender: Female", rec.PatientProfile)
}

func TestSummarize_ChunkOrderPreserved(t *testing.T) {
	m := &fakeModel{
		synthesisReply: recordJSON,
		onChunk: func(user string) (string, error) {
			chunk := strings.TrimPrefix(user, fmt.Sprintf(models.ChunkUserPromptTemplate, ""))
			// earlier chunks answer last
			delay := 30 * time.Millisecond
			if strings.HasPrefix(chunk, "C") {
				delay = 0
			}
			time.Sleep(delay)
			return "summary-" + chunk[:1], nil
		},
	}
	s := New(m, WithChunking(10, 0))

	_, err := s.Summarize(context.Background(), "AAAAAAAAAABBBBBBBBBBCCCCCCCCCC")
	require.NoError(t, err)

	require.Len(t, m.chunkCalls, 3)
	require.Len(t, m.synthesisCalls, 1)
	want := fmt.Sprintf(models.SynthesisUserPromptTemplate, "summary-A\n\nsummary-B\n\nsummary-C")
	assert.Equal(t, want, m.synthesisCalls[0])
}

func TestSummarize_ChunkFailureFailsRequest(t *testing.T) {
	m := &fakeModel{
		synthesisReply: recordJSON,
		onChunk: func(user string) (string, error) {
			if strings.Contains(user, "BBBB") {
				return "", errors.New("context length exceeded")
			}
			return "ok", nil
		},
	}
	s := New(m, WithChunking(10, 0))

	_, err := s.Summarize(context.Background(), "AAAAAAAAAABBBBBBBBBBCCCCCCCCCC")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context length exceeded")
	assert.Empty(t, m.synthesisCalls)
}

func TestSummarize_MalformedSynthesisDegrades(t *testing.T) {
	reply := strings.Repeat("The patient appears to have diabetes. ", 60)
	m := &fakeModel{synthesisReply: reply}
	s := New(m)

	rec, err := s.Summarize(context.Background(), "short record")
	require.NoError(t, err)
	assert.Equal(t, models.ParseErrorMarker, rec.PatientProfile)
	assert.NotEmpty(t, rec.MedicalHistory)
	assert.LessOrEqual(t, len([]rune(rec.MedicalHistory)), 1000)
	assert.Empty(t, rec.Medications)
}

func TestSummarizeChunks_MaxConcurrency(t *testing.T) {
	var mu sync.Mutex
	inFlight, peak := 0, 0
	m := &fakeModel{
		onChunk: func(user string) (string, error) {
			mu.Lock()
			inFlight++
			peak = max(peak, inFlight)
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			inFlight--
			mu.Unlock()
			return "ok", nil
		},
	}
	s := New(m, WithMaxConcurrency(2))

	out, err := s.SummarizeChunks(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	assert.Len(t, out, 5)
	assert.LessOrEqual(t, peak, 2)
}

func TestSummarizeChunks_RateLimitHonoursContext(t *testing.T) {
	m := &fakeModel{}
	s := New(m, WithRateLimit(0.001))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// the first call uses the burst, the second cannot be scheduled in time
	_, err := s.SummarizeChunks(ctx, []string{"a", "b"})
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	overlap := 5
	cfg := &config.Config{
		LLM:     config.LLMConfig{RequestsPerSecond: 0, MaxConcurrency: 3, Temperature: 0.1},
		Summary: config.SummaryConfig{ChunkSize: 50, ChunkOverlap: &overlap, Splitter: "window"},
	}
	s := NewFromConfig(&fakeModel{synthesisReply: recordJSON}, cfg)
	assert.Equal(t, 50, s.chunkSize)
	assert.Equal(t, 5, s.chunkOverlap)
	assert.Equal(t, 3, s.maxConcurrency)
	assert.Len(t, s.callOpts, 1)
}
