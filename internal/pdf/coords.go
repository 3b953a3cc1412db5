// Package pdf converts field placements between the editor's percentage space
// and PDF point space, and stamps signature images onto documents.
package pdf

// PercentField is a placement in percent of the page, origin at the top-left
type PercentField struct {
	Page   int     `json:"page"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PointField is a placement in PDF points, origin at the bottom-left
type PointField struct {
	Page   int
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Rect is an axis-aligned box in points
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// ToPoints maps a percentage placement onto a page of pageW x pageH points
func ToPoints(f PercentField, pageW, pageH float64) PointField {
	return PointField{
		Page:   f.Page,
		X:      f.X / 100 * pageW,
		Y:      pageH - (f.Y+f.Height)/100*pageH,
		Width:  f.Width / 100 * pageW,
		Height: f.Height / 100 * pageH,
	}
}

// ToPercent is the inverse of ToPoints
func ToPercent(p PointField, pageW, pageH float64) PercentField {
	height := p.Height / pageH * 100
	return PercentField{
		Page:   p.Page,
		X:      p.X / pageW * 100,
		Y:      (pageH-p.Y)/pageH*100 - height,
		Width:  p.Width / pageW * 100,
		Height: height,
	}
}

// FitImage scales an imgW x imgH image to fit inside field without distortion
// and centers it on both axes.
func FitImage(imgW, imgH float64, field PointField) Rect {
	if imgW <= 0 || imgH <= 0 {
		return Rect{X: field.X, Y: field.Y}
	}

	scale := min(field.Width/imgW, field.Height/imgH)
	w := imgW * scale
	h := imgH * scale

	return Rect{
		X:      field.X + (field.Width-w)/2,
		Y:      field.Y + (field.Height-h)/2,
		Width:  w,
		Height: h,
	}
}
