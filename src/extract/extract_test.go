package extract_test

import (
	"errors"
	"testing"

	"docochat/src/extract"
)

func TestTypeForMIME(t *testing.T) {
	tests := []struct {
		name    string
		mime    string
		wantExt string
		wantOK  bool
	}{
		{
			name:    "plain text",
			mime:    "text/plain",
			wantExt: "txt",
			wantOK:  true,
		},
		{
			name:    "markdown",
			mime:    "text/markdown",
			wantExt: "md",
			wantOK:  true,
		},
		{
			name:    "rtf application mime",
			mime:    "application/rtf",
			wantExt: "rtf",
			wantOK:  true,
		},
		{
			name:    "rtf text mime",
			mime:    "text/rtf",
			wantExt: "rtf",
			wantOK:  true,
		},
		{
			name:    "pdf",
			mime:    "application/pdf",
			wantExt: "pdf",
			wantOK:  true,
		},
		{
			name:   "docx is not supported",
			mime:   "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			wantOK: false,
		},
		{
			name:   "empty mime",
			mime:   "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft, ok := extract.TypeForMIME(tt.mime)
			if ok != tt.wantOK {
				t.Fatalf("TypeForMIME(%q) ok = %v, want %v", tt.mime, ok, tt.wantOK)
			}
			if ok && ft.Ext != tt.wantExt {
				t.Errorf("TypeForMIME(%q) ext = %q, want %q", tt.mime, ft.Ext, tt.wantExt)
			}
		})
	}
}

func TestTextRejectsUnsupportedType(t *testing.T) {
	_, err := extract.Text([]byte("hello"), "text/csv")
	if !errors.Is(err, extract.ErrUnsupportedType) {
		t.Fatalf("Text() error = %v, want ErrUnsupportedType", err)
	}
}

func TestPlain(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{
			name: "trims whitespace",
			data: []byte("  hello world\n\n"),
			want: "hello world",
		},
		{
			name: "strips utf-8 bom",
			data: []byte{0xEF, 0xBB, 0xBF, 'h', 'i'},
			want: "hi",
		},
		{
			name: "empty file",
			data: []byte(""),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extract.Plain(tt.data); got != tt.want {
				t.Errorf("Plain() = %q, want %q", got, tt.want)
			}
		})
	}
}
