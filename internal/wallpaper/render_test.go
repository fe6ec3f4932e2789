package wallpaper

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestRenderPassthroughAtExactSize(t *testing.T) {
	src := solid(4, 4, color.RGBA{R: 255, A: 255})
	pix := Render(src, 4, 4)
	assert.Equal(t, src.Pix, pix)
}

func TestRenderCoversTarget(t *testing.T) {
	// A wide source onto a tall target must still fill every pixel.
	src := solid(100, 50, color.RGBA{G: 255, A: 255})
	pix := Render(src, 40, 80)
	assert.Len(t, pix, 40*80*4)

	// Solid input stays solid through scale and crop.
	for i := 0; i < len(pix); i += 4 {
		if pix[i+1] != 255 || pix[i+3] != 255 {
			t.Fatalf("pixel %d not solid green: %v", i/4, pix[i:i+4])
		}
	}
}

func TestRenderUpscales(t *testing.T) {
	src := solid(2, 2, color.RGBA{B: 255, A: 255})
	pix := Render(src, 8, 8)
	assert.Len(t, pix, 8*8*4)
}
