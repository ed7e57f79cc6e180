package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/disintegration/imaging"

	// Extra input formats beyond the stdlib png/jpeg/gif decoders.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels is the largest width*height DecodeRGB accepts when
// DecodeOptions.MaxPixels is unset.
const DefaultMaxPixels = 2 * 89478485

// DecodeOptions tune how uploaded images are turned into rasters.
type DecodeOptions struct {
	// AutoOrient applies the EXIF orientation tag of JPEG inputs.
	AutoOrient bool
	// MaxPixels bounds the dimensions declared in the image header.
	// Zero means DefaultMaxPixels.
	MaxPixels int64
}

func (o DecodeOptions) maxPixels() int64 {
	if o.MaxPixels <= 0 {
		return DefaultMaxPixels
	}
	return o.MaxPixels
}

// DecodeRGB decodes any registered image format and returns an opaque RGB
// raster. Alpha is dropped, not composited: the stored color values are kept
// and every pixel becomes fully opaque. The header is checked against
// opts.MaxPixels before any pixel data is allocated.
func DecodeRGB(r io.Reader, opts DecodeOptions) (*image.NRGBA, error) {
	var head bytes.Buffer
	cfg, format, err := image.DecodeConfig(io.TeeReader(r, &head))
	if err != nil {
		return nil, err
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > opts.maxPixels() {
		return nil, fmt.Errorf("%s image size (%d pixels) exceeds limit of %d pixels", format, px, opts.maxPixels())
	}
	img, err := imaging.Decode(io.MultiReader(&head, r), imaging.AutoOrientation(opts.AutoOrient))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy())
	}
	out := imaging.Clone(img)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}
	return out, nil
}

// DecodeRGBBytes is DecodeRGB over an in-memory payload.
func DecodeRGBBytes(b []byte, opts DecodeOptions) (*image.NRGBA, error) {
	return DecodeRGB(bytes.NewReader(b), opts)
}

// EncodePNG writes img losslessly as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	return enc.Encode(w, img)
}

// PNGBytes encodes img as PNG into memory.
func PNGBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
