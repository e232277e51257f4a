package chat

import (
	"strings"
	"testing"
)

func TestBuildContext(t *testing.T) {
	tests := []struct {
		name   string
		chunks []ScoredChunk
		want   string
	}{
		{
			name:   "no chunks",
			chunks: nil,
			want:   "",
		},
		{
			name:   "single chunk",
			chunks: []ScoredChunk{{Content: "only one"}},
			want:   "only one",
		},
		{
			name: "chunks joined with separator",
			chunks: []ScoredChunk{
				{Content: "alpha", Similarity: 0.9},
				{Content: "beta", Similarity: 0.6},
			},
			want: "alpha" + chunkSeparator + "beta",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildContext(tt.chunks); got != tt.want {
				t.Errorf("buildContext() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSystemInstruction(t *testing.T) {
	t.Run("empty context gives generic instruction", func(t *testing.T) {
		got := systemInstruction("")
		if got != genericInstruction {
			t.Errorf("systemInstruction(\"\") = %q, want the generic instruction", got)
		}
		if strings.Contains(got, "EXCERPTS") {
			t.Error("generic instruction must not reference document excerpts")
		}
	})

	t.Run("grounded instruction embeds the context", func(t *testing.T) {
		got := systemInstruction("the treaty was signed in 1648")
		if !strings.Contains(got, "the treaty was signed in 1648") {
			t.Errorf("grounded instruction missing context: %q", got)
		}
		if !strings.Contains(got, "ONLY") {
			t.Error("grounded instruction missing the only-from-context constraint")
		}
		if !strings.Contains(got, "refuse") {
			t.Error("grounded instruction missing the injection-resistance clause")
		}
	})
}
