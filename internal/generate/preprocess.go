package generate

import (
	"image"

	"golang.org/x/image/draw"
)

// Resize scales img so its longer edge is at most maxEdge, keeping the
// aspect ratio. The short edge is floor(short*maxEdge/long). Images that
// already fit are returned unchanged.
func Resize(img image.Image, maxEdge int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxEdge <= 0 || (w <= maxEdge && h <= maxEdge) {
		return img
	}
	var nw, nh int
	if w >= h {
		nw, nh = maxEdge, h*maxEdge/w
	} else {
		nw, nh = w*maxEdge/h, maxEdge
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// PlaceholderMask is the fixed inpainting region: 255 inside rows
// [0.2h, 0.7h) and columns [0.25w, 0.75w), 0 elsewhere. Bounds are truncated
// toward zero.
func PlaceholderMask(w, h int) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, w, h))
	top, bottom := int(float64(h)*0.2), int(float64(h)*0.7)
	left, right := int(float64(w)*0.25), int(float64(w)*0.75)
	for y := top; y < bottom; y++ {
		row := m.Pix[y*m.Stride : y*m.Stride+w]
		for x := left; x < right; x++ {
			row[x] = 255
		}
	}
	return m
}
