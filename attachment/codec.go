// Package attachment converts uploaded binary documents to a text-safe
// encoded form for embedding in message records, and back.
//
// Only PDF documents are accepted, and only up to MaxSize bytes. The encoded
// form uses standard base64, so Decode(Encode(b)) reproduces the original
// bytes exactly. Encoding is single-buffer; there is no streaming variant.
package attachment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// MaxSize is the attachment size ceiling in bytes (5 MiB).
const MaxSize = 5 << 20

// ContentTypePDF is the only accepted declared MIME type.
const ContentTypePDF = "application/pdf"

// Sentinel errors.
var (
	// ErrInvalidType is returned when the declared MIME type is not PDF.
	ErrInvalidType = errors.New("attachment: invalid content type")

	// ErrTooLarge is returned when the payload exceeds MaxSize.
	ErrTooLarge = errors.New("attachment: payload too large")

	// ErrEmpty is returned when the payload is empty.
	ErrEmpty = errors.New("attachment: empty payload")

	// ErrDecode is returned when the encoded form cannot be decoded.
	ErrDecode = errors.New("attachment: decode failed")
)

// Encoded is the transport-safe form of an uploaded document.
type Encoded struct {
	// Filename is the stored original filename.
	Filename string
	// Data is the base64-encoded document bytes.
	Data string
	// Size is the original payload size in bytes.
	Size int64
}

// Encode validates the declared type and size, then produces the text-safe
// encoded representation.
func Encode(data []byte, filename, contentType string) (*Encoded, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if normalizeContentType(contentType) != ContentTypePDF {
		return nil, fmt.Errorf("%w: %q (only %s is accepted)", ErrInvalidType, contentType, ContentTypePDF)
	}
	if int64(len(data)) > MaxSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrTooLarge, len(data), MaxSize)
	}

	return &Encoded{
		Filename: filename,
		Data:     base64.StdEncoding.EncodeToString(data),
		Size:     int64(len(data)),
	}, nil
}

// Decode is the exact inverse of Encode.
func Decode(enc *Encoded) ([]byte, error) {
	if enc == nil {
		return nil, ErrDecode
	}
	data, err := base64.StdEncoding.DecodeString(enc.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return data, nil
}

// normalizeContentType extracts the base MIME type without parameters.
// e.g. "application/pdf; charset=binary" -> "application/pdf"
func normalizeContentType(contentType string) string {
	ct := strings.TrimSpace(contentType)
	if ct == "" {
		return ""
	}
	parts := strings.SplitN(ct, ";", 2)
	return strings.ToLower(strings.TrimSpace(parts[0]))
}
