package wallpaper

import (
	"fmt"
	"image"
	"image/draw"
	"os"
	"time"

	// Register the decoders image.Decode can dispatch to.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Buffer is one decoded image: RGBA pixels plus the source file's
// modification time at decode, used for cache staleness checks.
type Buffer struct {
	Path    string
	Image   *image.RGBA
	ModTime time.Time
}

// Bytes returns the pixel payload size, used for cache accounting.
func (b *Buffer) Bytes() int64 {
	return int64(len(b.Image.Pix))
}

// Decoder turns an image file into a pixel buffer.
type Decoder interface {
	Decode(path string) (*Buffer, error)
}

// FileDecoder decodes image files from disk with the registered
// stdlib and x/image codecs.
type FileDecoder struct{}

func (FileDecoder) Decode(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("decode: %w", err)}
	}

	rgba, ok := img.(*image.RGBA)
	if !ok {
		bounds := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	return &Buffer{Path: path, Image: rgba, ModTime: info.ModTime()}, nil
}
