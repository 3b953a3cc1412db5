package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// CaptionGap is the distance between a signature field and its caption
const CaptionGap = 15.0

// CaptionLayout formats the "Signed:" caption timestamp
const CaptionLayout = "01/02/2006, 03:04 PM MST"

// ErrInvalidPlacement reports a placement that does not fit the document
var ErrInvalidPlacement = errors.New("invalid field placement")

// ErrInvalidImage reports a signature image that is not a readable PNG
var ErrInvalidImage = errors.New("invalid signature image")

// Renderer stamps signature images onto PDF documents
type Renderer struct {
	conf *model.Configuration
}

// NewRenderer creates a renderer that never touches the pdfcpu config directory
func NewRenderer() *Renderer {
	model.ConfigPath = "disable"
	return &Renderer{conf: model.NewDefaultConfiguration()}
}

// PageSizes returns the width and height in points of every page
func (r *Renderer) PageSizes(document []byte) ([]types.Dim, error) {
	dims, err := api.PageDims(bytes.NewReader(document), r.conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}
	return dims, nil
}

// Stamp draws signaturePNG into every placement and writes a "Signed: <time>"
// caption below each one. Placements are in percentage space.
func (r *Renderer) Stamp(ctx context.Context, document, signaturePNG []byte, placements []PercentField, signedAt time.Time) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(placements) == 0 {
		return nil, fmt.Errorf("%w: no placements", ErrInvalidPlacement)
	}

	img, format, err := image.DecodeConfig(bytes.NewReader(signaturePNG))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if format != "png" {
		return nil, fmt.Errorf("%w: must be png, got %s", ErrInvalidImage, format)
	}

	dims, err := r.PageSizes(document)
	if err != nil {
		return nil, err
	}

	caption := "Signed: " + signedAt.Format(CaptionLayout)
	byPage := make(map[int][]*model.Watermark)

	for i, placement := range placements {
		page := max(placement.Page, 1)
		if page > len(dims) {
			return nil, fmt.Errorf("%w: placement %d targets page %d of %d", ErrInvalidPlacement, i+1, page, len(dims))
		}
		if placement.Width <= 0 || placement.Height <= 0 {
			return nil, fmt.Errorf("%w: placement %d has no area", ErrInvalidPlacement, i+1)
		}

		field := ToPoints(placement, dims[page-1].Width, dims[page-1].Height)
		box := FitImage(float64(img.Width), float64(img.Height), field)

		stamp, err := api.ImageWatermarkForReader(
			bytes.NewReader(signaturePNG),
			fmt.Sprintf("position:bl, offset:%.2f %.2f, scalefactor:%.6f abs, rotation:0, opacity:1",
				box.X, box.Y, box.Width/float64(img.Width)),
			true, false, types.POINTS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to build signature stamp: %w", err)
		}

		text, err := api.TextWatermark(
			caption,
			fmt.Sprintf("fontname:Helvetica, points:8, position:bl, offset:%.2f %.2f, scalefactor:1 abs, rotation:0, fillcolor:#4D4D4D, opacity:1",
				field.X, max(field.Y-CaptionGap, 0)),
			true, false, types.POINTS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to build signature caption: %w", err)
		}

		byPage[page] = append(byPage[page], stamp, text)
	}

	var out bytes.Buffer
	if err := api.AddWatermarksSliceMap(bytes.NewReader(document), &out, byPage, r.conf); err != nil {
		return nil, fmt.Errorf("failed to stamp document: %w", err)
	}

	return out.Bytes(), nil
}
