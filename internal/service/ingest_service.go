package service

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/liliang-cn/docuchat/internal/domain"
)

// IngestService turns uploaded bytes into a document the conversation can use
type IngestService struct {
	logger *zap.Logger
}

// NewIngestService creates a new ingest service
func NewIngestService(logger *zap.Logger) *IngestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestService{logger: logger}
}

// Common mime types
const (
	MIMETypePDF      = "application/pdf"
	MIMETypeText     = "text/plain"
	MIMETypeMarkdown = "text/markdown"
	MIMETypeHTML     = "text/html"
)

// extensionTypes resolves generic sniffing results for common text formats
var extensionTypes = map[string]string{
	".pdf":      MIMETypePDF,
	".md":       MIMETypeMarkdown,
	".markdown": MIMETypeMarkdown,
	".txt":      MIMETypeText,
	".html":     MIMETypeHTML,
	".htm":      MIMETypeHTML,
	".adoc":     "text/asciidoc",
	".asciidoc": "text/asciidoc",
}

// DetectMIMEType sniffs the content type of data. Generic results are
// refined from the filename extension when one is known.
func DetectMIMEType(filename string, data []byte) string {
	detected := NormalizeMIMEType(mimetype.Detect(data).String())

	if detected == domain.DefaultMIMEType || detected == MIMETypeText {
		if byExt, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]; ok {
			return byExt
		}
	}
	if detected == "" {
		return domain.DefaultMIMEType
	}
	return detected
}

// NormalizeMIMEType drops parameters such as charset and lowercases the type.
func NormalizeMIMEType(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// Load builds a document from file bytes. The data URI is an exact encoding
// of fileBytes; the extracted text maps each byte to one character.
func (s *IngestService) Load(fileBytes []byte, mimeType string) (*domain.Document, error) {
	return s.load("", fileBytes, mimeType)
}

// LoadFile is Load with a filename recorded on the document.
func (s *IngestService) LoadFile(filename string, fileBytes []byte, mimeType string) (*domain.Document, error) {
	return s.load(filename, fileBytes, mimeType)
}

// LoadReader reads r to the end and loads the result.
func (s *IngestService) LoadReader(r io.Reader, filename, mimeType string) (*domain.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		s.logger.Warn("failed to read upload", zap.String("filename", filename), zap.Error(err))
		return nil, &domain.LoadError{Kind: domain.ErrReadFailure, Err: err}
	}
	return s.load(filename, data, mimeType)
}

func (s *IngestService) load(filename string, fileBytes []byte, mimeType string) (*domain.Document, error) {
	mimeType = NormalizeMIMEType(mimeType)
	if mimeType == "" {
		mimeType = DetectMIMEType(filename, fileBytes)
	}

	text := domain.ExtractText(fileBytes)
	if text == "" {
		return nil, &domain.LoadError{Kind: domain.ErrEmptyExtraction}
	}

	// Copy so later mutation of the caller's buffer cannot reach the document.
	raw := make([]byte, len(fileBytes))
	copy(raw, fileBytes)

	doc := &domain.Document{
		RawBytes:      raw,
		MIMEType:      mimeType,
		DataURI:       domain.EncodeDataURI(mimeType, raw),
		ExtractedText: text,
		Filename:      filename,
		Size:          int64(len(raw)),
		LoadedAt:      time.Now(),
	}

	if mimeType == MIMETypePDF {
		doc.PageCount = s.pageCount(raw)
	}

	s.logger.Info("document loaded",
		zap.String("filename", filename),
		zap.String("mime_type", mimeType),
		zap.Int64("size", doc.Size),
		zap.Int("pages", doc.PageCount),
	)
	return doc, nil
}

// pageCount is best effort; a malformed PDF still loads with zero pages.
func (s *IngestService) pageCount(data []byte) int {
	n, err := countPDFPages(data)
	if err != nil {
		s.logger.Debug("failed to count pdf pages", zap.Error(err))
		return 0
	}
	return n
}

func countPDFPages(data []byte) (n int, err error) {
	// pdfcpu can panic on sufficiently broken input.
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(bytes.NewReader(data), conf)
}
