package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// ErrInvalidPDF is returned when content labelled as PDF cannot be parsed.
var ErrInvalidPDF = errors.New("invalid pdf document")

var pdfMagic = []byte("%PDF-")

// InspectPDF parses the document structure and returns its page count.
func InspectPDF(r io.ReaderAt, size int64) (pages int, err error) {
	header := make([]byte, len(pdfMagic))
	if _, err := r.ReadAt(header, 0); err != nil || !bytes.Equal(header, pdfMagic) {
		return 0, fmt.Errorf("%w: missing header", ErrInvalidPDF)
	}

	// the parser panics on some malformed cross-reference tables
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = 0, fmt.Errorf("%w: %v", ErrInvalidPDF, rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	pages = reader.NumPage()
	if pages == 0 {
		return 0, fmt.Errorf("%w: no pages", ErrInvalidPDF)
	}
	return pages, nil
}
