package invoice

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// ErrNoText is returned when a document yields no extractable text
var ErrNoText = errors.New("document contains no extractable text")

// TextReader converts raw document bytes into text.
// PDF documents are rendered page by page with MuPDF; plain-text payloads
// (".txt") pass through unchanged.
type TextReader struct {
	maxPages int
	logger   *zap.Logger
}

// NewTextReader creates a new text reader. maxPages <= 0 reads every page.
func NewTextReader(maxPages int, logger *zap.Logger) *TextReader {
	return &TextReader{
		maxPages: maxPages,
		logger:   logger,
	}
}

// ReadText implements port.TextExtractor
func (r *TextReader) ReadText(ctx context.Context, filename string, content []byte) (string, error) {
	if len(content) == 0 {
		return "", ErrNoText
	}

	if strings.EqualFold(filepath.Ext(filename), ".txt") {
		if !utf8.Valid(content) {
			return "", fmt.Errorf("text payload is not valid UTF-8")
		}
		return string(content), nil
	}

	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		r.logger.Error("Failed to open PDF", zap.String("filename", filename), zap.Error(err))
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if r.maxPages > 0 && pages > r.maxPages {
		pages = r.maxPages
	}

	var b strings.Builder
	for i := 0; i < pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("failed to read text of page %d: %w", i+1, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	if strings.TrimSpace(b.String()) == "" {
		return "", ErrNoText
	}

	r.logger.Debug("PDF text extracted",
		zap.String("filename", filename),
		zap.Int("pages", pages),
		zap.Int("chars", b.Len()))

	return b.String(), nil
}
