package ingest

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// Chunking defaults. Small relative to typical prose: most chunks are
// sentence or paragraph fragments, trading context breadth for
// retrieval precision.
const (
	DefaultChunkSize    = 100
	DefaultChunkOverlap = 20
)

// Chunker splits extracted text into overlapping chunks using a
// recursive character splitter. Splitting is deterministic: the same
// text and parameters always yield the same chunk sequence.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
}

func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}

	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
		),
	}
}

// Split chunks the given text. Empty and whitespace-only input yields
// no chunks.
func (c *Chunker) Split(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return c.splitter.SplitText(text)
}
