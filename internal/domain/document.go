package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// DefaultMIMEType is used when the type of an upload cannot be determined
const DefaultMIMEType = "application/octet-stream"

const (
	dataURIScheme = "data:"
	base64Marker  = ";base64,"
)

// Document is an uploaded file in the two forms the system works with: the
// self-describing data URI handed to the answering capability and the naive
// text extraction handed to the suggestion capability.
type Document struct {
	RawBytes      []byte    `json:"-"`
	MIMEType      string    `json:"mime_type"`
	DataURI       string    `json:"-"`
	ExtractedText string    `json:"-"`
	Filename      string    `json:"filename,omitempty"`
	Size          int64     `json:"size"`
	PageCount     int       `json:"page_count,omitempty"`
	LoadedAt      time.Time `json:"loaded_at"`
}

// EncodeDataURI returns data:<mimeType>;base64,<payload>.
func EncodeDataURI(mimeType string, data []byte) string {
	var sb strings.Builder
	sb.Grow(len(dataURIScheme) + len(mimeType) + len(base64Marker) + base64.StdEncoding.EncodedLen(len(data)))
	sb.WriteString(dataURIScheme)
	sb.WriteString(mimeType)
	sb.WriteString(base64Marker)
	sb.WriteString(base64.StdEncoding.EncodeToString(data))
	return sb.String()
}

// ParseDataURI splits a base64 data URI into its mime type and decoded bytes.
// Both the mime type and the base64 marker are required.
func ParseDataURI(uri string) (string, []byte, error) {
	if !strings.HasPrefix(uri, dataURIScheme) {
		return "", nil, fmt.Errorf("data URI must start with %q", dataURIScheme)
	}
	rest := uri[len(dataURIScheme):]

	idx := strings.Index(rest, base64Marker)
	if idx < 0 {
		return "", nil, fmt.Errorf("data URI must use base64 encoding")
	}
	mimeType := rest[:idx]
	if mimeType == "" || !strings.Contains(mimeType, "/") {
		return "", nil, fmt.Errorf("data URI must include a mime type")
	}

	data, err := base64.StdEncoding.DecodeString(rest[idx+len(base64Marker):])
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return mimeType, data, nil
}

// ExtractText performs the naive extraction: every byte becomes the code point
// of the same value. No structural parse is attempted.
func ExtractText(data []byte) string {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

// SuggestionRequest is sent to the suggestion capability
type SuggestionRequest struct {
	DocumentText string `json:"documentText"`
}

// SuggestionResponse is returned by the suggestion capability
type SuggestionResponse struct {
	Suggestions []string `json:"suggestions"`
}

// AnswerRequest is sent to the answering capability
type AnswerRequest struct {
	DocumentDataURI string `json:"documentDataUri"`
	Question        string `json:"question"`
}

// AnswerResponse is returned by the answering capability
type AnswerResponse struct {
	Answer string `json:"answer"`
}

// SummaryRequest is sent to the summarization capability
type SummaryRequest struct {
	DocumentDataURI string `json:"documentDataUri"`
}

// SummaryResponse is returned by the summarization capability
type SummaryResponse struct {
	Summary string `json:"summary"`
}
