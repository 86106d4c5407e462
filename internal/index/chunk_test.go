package index

import (
	"strings"
	"testing"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "w"
	}
	return strings.Join(parts, " ")
}

func TestChunkWordsEmpty(t *testing.T) {
	if chunks := ChunkWords("", 350, 50); chunks != nil {
		t.Errorf("expected no chunks for empty text, got %d", len(chunks))
	}
	if chunks := ChunkWords("   \n\t  ", 350, 50); chunks != nil {
		t.Errorf("expected no chunks for whitespace text, got %d", len(chunks))
	}
}

func TestChunkWordsShortText(t *testing.T) {
	chunks := ChunkWords("a short headline only", 350, 50)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "a short headline only" {
		t.Errorf("unexpected chunk %q", chunks[0])
	}
}

func TestChunkWordsOverlap(t *testing.T) {
	chunks := ChunkWords(words(500), 350, 50)
	// 500 words, window 350, step 300: [0,350) and [300,500).
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if n := len(strings.Fields(chunks[0])); n != 350 {
		t.Errorf("expected first chunk of 350 words, got %d", n)
	}
	if n := len(strings.Fields(chunks[1])); n != 200 {
		t.Errorf("expected last chunk of 200 words, got %d", n)
	}
}

func TestChunkWordsExactWindow(t *testing.T) {
	chunks := ChunkWords(words(350), 350, 50)
	if len(chunks) != 1 {
		t.Errorf("expected 1 chunk for exact window, got %d", len(chunks))
	}
}

func TestChunkWordsBadOverlap(t *testing.T) {
	// Overlap >= size would never advance; it is ignored instead.
	chunks := ChunkWords(words(20), 10, 10)
	if len(chunks) != 2 {
		t.Errorf("expected 2 non-overlapping chunks, got %d", len(chunks))
	}
}
