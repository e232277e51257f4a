package ingest_test

import (
	"strings"
	"testing"

	"docochat/src/core/ingest"
)

func TestChunkerDeterministic(t *testing.T) {
	c := ingest.NewChunker(100, 20)
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 20)

	first, err := c.Split(text)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	second, err := c.Split(text)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestChunkerBoundsChunkSize(t *testing.T) {
	c := ingest.NewChunker(100, 20)
	text := strings.Repeat("lorem ipsum dolor sit amet consectetur adipiscing elit. ", 10)

	chunks, err := c.Split(text)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for %d chars, got %d", len(text), len(chunks))
	}
	for i, chunk := range chunks {
		if chunk == "" {
			t.Errorf("chunk %d is empty", i)
		}
		if len(chunk) > 100 {
			t.Errorf("chunk %d is %d chars, want <= 100", i, len(chunk))
		}
	}
}

func TestChunkerShortText(t *testing.T) {
	c := ingest.NewChunker(100, 20)

	chunks, err := c.Split("a short note")
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "a short note" {
		t.Errorf("Split() = %v, want the whole text as one chunk", chunks)
	}
}

func TestChunkerEmptyInput(t *testing.T) {
	c := ingest.NewChunker(100, 20)

	for _, text := range []string{"", "   ", "\n\t\n"} {
		chunks, err := c.Split(text)
		if err != nil {
			t.Fatalf("Split(%q) error = %v", text, err)
		}
		if len(chunks) != 0 {
			t.Errorf("Split(%q) = %v, want no chunks", text, chunks)
		}
	}
}
