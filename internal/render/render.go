package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"strings"

	"github.com/gen2brain/go-fitz"
)

const (
	// DefaultWidth is the pixel width pages are rendered at.
	DefaultWidth = 1920
	// DefaultQuality is the JPEG quality of rendered pages.
	DefaultQuality = 85
)

// ErrNoPages is returned for documents without pages.
var ErrNoPages = errors.New("document has no pages")

// Document is an opened, renderable document.
type Document interface {
	NumPage() int
	Title() string
	// RenderPage returns page n (0-based) scaled to width pixels wide.
	RenderPage(n, width int) (image.Image, error)
	Close() error
}

// Renderer opens documents from raw bytes.
type Renderer interface {
	Open(data []byte) (Document, error)
}

// FitzRenderer renders PDFs with MuPDF.
type FitzRenderer struct{}

// NewFitzRenderer creates a MuPDF-backed renderer.
func NewFitzRenderer() *FitzRenderer {
	return &FitzRenderer{}
}

// Open parses a PDF held in memory.
func (FitzRenderer) Open(data []byte) (Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	if doc.NumPage() == 0 {
		doc.Close()
		return nil, ErrNoPages
	}
	return &fitzDocument{doc: doc}, nil
}

type fitzDocument struct {
	doc *fitz.Document
}

func (d *fitzDocument) NumPage() int {
	return d.doc.NumPage()
}

func (d *fitzDocument) Title() string {
	return strings.TrimSpace(d.doc.Metadata()["title"])
}

func (d *fitzDocument) RenderPage(n, width int) (image.Image, error) {
	bounds, err := d.doc.Bound(n)
	if err != nil {
		return nil, fmt.Errorf("page %d bounds: %w", n+1, err)
	}
	if bounds.Dx() <= 0 {
		return nil, fmt.Errorf("page %d has zero width", n+1)
	}
	// Bounds are in points at 72 dpi.
	dpi := 72 * float64(width) / float64(bounds.Dx())
	img, err := d.doc.ImageDPI(n, dpi)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", n+1, err)
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}

// EncodeJPEG encodes img at the given quality.
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
}

// Page is one rendered, encoded page.
type Page struct {
	Number int // 1-based
	JPEG   []byte
	Width  int
	Height int
}

// RenderAll renders every page of doc, calling fn in page order. It stops at
// the first error or when ctx is done.
func RenderAll(ctx context.Context, doc Document, width int, fn func(Page) error) error {
	if width <= 0 {
		width = DefaultWidth
	}
	for n := 0; n < doc.NumPage(); n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		img, err := doc.RenderPage(n, width)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := EncodeJPEG(&buf, img, DefaultQuality); err != nil {
			return fmt.Errorf("encode page %d: %w", n+1, err)
		}
		b := img.Bounds()
		if err := fn(Page{Number: n + 1, JPEG: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}); err != nil {
			return err
		}
	}
	return nil
}
