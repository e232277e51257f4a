package extract

import (
	"errors"
	"fmt"
)

// ErrUnsupportedType is returned when no extractor exists for the
// declared MIME type. Uploads are rejected with this before any
// extraction work happens.
var ErrUnsupportedType = errors.New("unsupported file type")

// FileType pairs a canonical extension with a MIME type it is
// declared as. RTF appears twice because browsers disagree on its
// MIME type.
type FileType struct {
	Ext  string
	MIME string
}

// SupportedTypes lists every file type the ingestion pipeline accepts.
var SupportedTypes = []FileType{
	{Ext: "pdf", MIME: "application/pdf"},
	{Ext: "txt", MIME: "text/plain"},
	{Ext: "md", MIME: "text/markdown"},
	{Ext: "rtf", MIME: "application/rtf"},
	{Ext: "rtf", MIME: "text/rtf"},
}

// TypeForMIME resolves a declared MIME type to a supported file type.
func TypeForMIME(mime string) (FileType, bool) {
	for _, ft := range SupportedTypes {
		if ft.MIME == mime {
			return ft, true
		}
	}
	return FileType{}, false
}

// MIMEForExt resolves a bare file extension to the canonical MIME type
// of a supported file type. Used when an upload arrives without a
// usable Content-Type.
func MIMEForExt(ext string) (string, bool) {
	for _, ft := range SupportedTypes {
		if ft.Ext == ext {
			return ft.MIME, true
		}
	}
	return "", false
}

// Text converts an uploaded file into plain text based on its declared
// MIME type. Unsupported types fail fast with ErrUnsupportedType.
func Text(data []byte, mime string) (string, error) {
	ft, ok := TypeForMIME(mime)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
	}

	switch ft.Ext {
	case "txt", "md":
		return Plain(data), nil
	case "rtf":
		return RTF(data)
	case "pdf":
		return PDF(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
	}
}
