package wallpaper

import (
	"image"

	"github.com/disintegration/gift"
)

// Render scales src to cover width x height without distortion,
// center-cropping the excess, and returns the RGBA pixel bytes in row
// order. The byte layout matches the ABGR8888 wire format on
// little-endian hosts, so the result attaches to an shm buffer as-is.
func Render(src *image.RGBA, width, height int32) []byte {
	if int32(src.Bounds().Dx()) == width && int32(src.Bounds().Dy()) == height {
		return src.Pix
	}
	g := gift.New(gift.ResizeToFill(int(width), int(height), gift.LanczosResampling, gift.CenterAnchor))
	dst := image.NewRGBA(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return dst.Pix
}
