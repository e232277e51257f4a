package http

import "testing"

func TestDeclaredMIME(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		fileName    string
		want        string
	}{
		{"declared type wins", "application/pdf", "report.pdf", "application/pdf"},
		{"charset parameter stripped", "text/plain; charset=utf-8", "notes.txt", "text/plain"},
		{"octet-stream falls back to extension", "application/octet-stream", "notes.md", "text/markdown"},
		{"empty type falls back to extension", "", "doc.rtf", "application/rtf"},
		{"uppercase extension", "", "README.TXT", "text/plain"},
		{"unknown extension keeps declared type", "application/octet-stream", "data.bin", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := declaredMIME(tt.contentType, tt.fileName); got != tt.want {
				t.Errorf("declaredMIME(%q, %q) = %q, want %q", tt.contentType, tt.fileName, got, tt.want)
			}
		})
	}
}
