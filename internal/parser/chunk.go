package parser

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	SplitterWindow    = "window"
	SplitterRecursive = "recursive"
)

// Splitter turns one text into ordered chunks of at most maxChars characters.
type Splitter func(content string, maxChars, overlapChars int) ([]string, error)

// SplitterFor returns the named splitter; unknown names fall back to the window splitter.
func SplitterFor(name string) Splitter {
	if name == SplitterRecursive {
		return RecursiveChunks
	}
	return WindowChunks
}

// WindowChunks adapts ChunkContent to the Splitter signature.
func WindowChunks(content string, maxChars, overlapChars int) ([]string, error) {
	chunks := ChunkContent(content, maxChars, overlapChars)
	if chunks == nil {
		return nil, fmt.Errorf("invalid chunk size %d", maxChars)
	}
	return chunks, nil
}

// ChunkContent cuts content into windows of maxChars runes. Each window starts
// maxChars-overlapChars runes after the previous one, so neighbours share
// overlapChars runes. Content no longer than maxChars is a single chunk.
func ChunkContent(content string, maxChars, overlapChars int) []string {
	if maxChars <= 0 {
		return nil
	}
	if overlapChars < 0 {
		overlapChars = 0
	}
	if overlapChars >= maxChars {
		overlapChars = maxChars / 2
	}

	runes := []rune(content)
	if len(runes) <= maxChars {
		return []string{content}
	}

	step := maxChars - overlapChars
	var chunks []string
	for start := 0; ; start += step {
		end := min(start+maxChars, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// CompleteContent reverses ChunkContent: every chunk but the last loses its
// trailing overlapChars runes before the chunks are concatenated.
func CompleteContent(chunks []string, overlapChars int) string {
	var runes []rune
	for i, chunk := range chunks {
		r := []rune(chunk)
		if i < len(chunks)-1 && len(r) > overlapChars {
			r = r[:len(r)-overlapChars]
		}
		runes = append(runes, r...)
	}
	return string(runes)
}

// RecursiveChunks splits on paragraph, line and word boundaries first. Chunks
// do not reassemble exactly, so it is only used when configured.
func RecursiveChunks(content string, maxChars, overlapChars int) ([]string, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(maxChars),
		textsplitter.WithChunkOverlap(overlapChars),
	)
	chunks, err := splitter.SplitText(content)
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}
	if len(chunks) == 0 {
		return []string{content}, nil
	}
	return chunks, nil
}
