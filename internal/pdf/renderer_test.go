package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"
)

// blankPDF builds a minimal document with the given number of Letter pages
func blankPDF(t *testing.T, pages int) []byte {
	t.Helper()

	var buf bytes.Buffer
	offsets := []int{}
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")

	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", i+3)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages))
	for i := 0; i < pages; i++ {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	return buf.Bytes()
}

func signaturePNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.Black)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestPageSizes(t *testing.T) {
	r := NewRenderer()
	dims, err := r.PageSizes(blankPDF(t, 2))
	if err != nil {
		t.Fatalf("PageSizes failed: %v", err)
	}
	if len(dims) != 2 {
		t.Fatalf("Expected 2 pages, got %d", len(dims))
	}
	if dims[0].Width != 612 || dims[0].Height != 792 {
		t.Errorf("Expected 612x792, got %vx%v", dims[0].Width, dims[0].Height)
	}
}

func TestStamp(t *testing.T) {
	r := NewRenderer()
	doc := blankPDF(t, 2)
	sig := signaturePNG(t, 200, 50)

	placements := []PercentField{
		{Page: 1, X: 10, Y: 80, Width: 30, Height: 8},
		{Page: 2, X: 55, Y: 70, Width: 30, Height: 8},
	}

	out, err := r.Stamp(context.Background(), doc, sig, placements, time.Date(2025, 3, 4, 14, 5, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Stamp failed: %v", err)
	}
	if bytes.Equal(out, doc) {
		t.Fatal("Expected stamped document to differ from the source")
	}

	dims, err := r.PageSizes(out)
	if err != nil {
		t.Fatalf("Stamped document is not readable: %v", err)
	}
	if len(dims) != 2 {
		t.Errorf("Expected page count to be preserved, got %d", len(dims))
	}
}

func TestStampRejectsBadInput(t *testing.T) {
	r := NewRenderer()
	doc := blankPDF(t, 1)
	sig := signaturePNG(t, 20, 10)
	ctx := context.Background()
	now := time.Now()

	if _, err := r.Stamp(ctx, doc, sig, nil, now); !errors.Is(err, ErrInvalidPlacement) {
		t.Errorf("Expected ErrInvalidPlacement for no placements, got %v", err)
	}

	_, err := r.Stamp(ctx, doc, sig, []PercentField{{Page: 3, X: 1, Y: 1, Width: 10, Height: 10}}, now)
	if !errors.Is(err, ErrInvalidPlacement) {
		t.Errorf("Expected ErrInvalidPlacement for missing page, got %v", err)
	}

	_, err = r.Stamp(ctx, doc, []byte("not an image"), []PercentField{{Page: 1, Width: 10, Height: 10}}, now)
	if !errors.Is(err, ErrInvalidImage) {
		t.Error("Expected error for undecodable signature image")
	}
}
