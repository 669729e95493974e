package delivery

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkText_ShortTextSingleChunk(t *testing.T) {
	chunks := ChunkText("hello inspector", 100)
	if len(chunks) != 1 || chunks[0] != "hello inspector" {
		t.Fatalf("unexpected chunks: %v", chunks)
	}
}

func TestChunkText_EmptyReturnsNil(t *testing.T) {
	if chunks := ChunkText("   \n ", 100); chunks != nil {
		t.Fatalf("expected nil for blank text, got %v", chunks)
	}
}

func TestChunkText_RespectsLimit(t *testing.T) {
	text := strings.Repeat("word ", 200)
	chunks := ChunkText(text, 50)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks")
	}
	for _, c := range chunks {
		if utf8.RuneCountInString(c) > 50 {
			t.Fatalf("chunk exceeds limit: %d runes", utf8.RuneCountInString(c))
		}
	}
	// nothing lost
	joined := strings.Join(chunks, " ")
	if strings.Count(joined, "word") != 200 {
		t.Fatalf("expected all words preserved, got %d", strings.Count(joined, "word"))
	}
}

func TestChunkText_PrefersNewlineBoundaries(t *testing.T) {
	text := "line one\nline two\nline three"
	chunks := ChunkText(text, 20)
	if len(chunks) < 2 {
		t.Fatalf("expected split, got %v", chunks)
	}
	if chunks[0] != "line one\nline two" && chunks[0] != "line one" {
		t.Fatalf("expected newline-aligned first chunk, got %q", chunks[0])
	}
}

func TestChunkText_NeverSplitsMidCharacter(t *testing.T) {
	// multi-byte runes with no break opportunities
	text := strings.Repeat("厨房检查", 30)
	chunks := ChunkText(text, 25)
	for _, c := range chunks {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk is not valid UTF-8: %q", c)
		}
		if utf8.RuneCountInString(c) > 25 {
			t.Fatalf("chunk exceeds rune limit")
		}
	}
	if strings.Join(chunks, "") != text {
		t.Fatalf("hard-cut chunks must re-join to the original text")
	}
}
