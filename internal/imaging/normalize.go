// Package imaging prepares document images for the vision oracle.
//
// Every image goes through the same steps in the same order:
//
//  1. EXIF orientation is applied on decode.
//  2. Transparent pixels are flattened onto white.
//  3. Images whose longest side exceeds MaxDimension are downscaled to fit,
//     keeping the aspect ratio. Smaller images keep their size.
//  4. Grayscale.
//  5. Contrast boost.
//  6. Mild sharpen.
//  7. JPEG encode.
//
// Steps 2 and 3 run before the color passes and leave opaque images within
// the size bound untouched. The output for a given input is byte-identical
// across calls.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ErrImageDecode is returned when the input cannot be decoded or the result
// cannot be encoded.
var ErrImageDecode = errors.New("image decode failed")

const (
	// DefaultContrast is a multiplicative contrast factor; 1.0 leaves the
	// image unchanged.
	DefaultContrast = 1.5

	// DefaultSharpenSigma is the gaussian sigma of the sharpen pass.
	DefaultSharpenSigma = 1.0

	// DefaultJPEGQuality is the quality of the encoded output.
	DefaultJPEGQuality = 85

	// DefaultMaxDimension bounds the longest side of the output. Smaller
	// images are never enlarged.
	DefaultMaxDimension = 2048
)

// MIMEType is the content type of Normalize output.
const MIMEType = "image/jpeg"

// Normalizer converts raw bitmaps into the canonical oracle encoding. The
// zero value is not usable; use New.
type Normalizer struct {
	Contrast     float64
	SharpenSigma float64
	JPEGQuality  int
	MaxDimension int // 0 disables downscaling
}

// New returns a Normalizer using the default constants.
func New() *Normalizer {
	return &Normalizer{
		Contrast:     DefaultContrast,
		SharpenSigma: DefaultSharpenSigma,
		JPEGQuality:  DefaultJPEGQuality,
		MaxDimension: DefaultMaxDimension,
	}
}

// Normalize decodes raw (JPEG, PNG, GIF, BMP or TIFF), applies the
// normalization steps and returns the JPEG encoding.
func (n *Normalizer) Normalize(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrImageDecode)
	}
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	return n.NormalizeImage(img)
}

// NormalizeImage is Normalize for an already-decoded image.
func (n *Normalizer) NormalizeImage(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrImageDecode)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty bounds %v", ErrImageDecode, b)
	}

	// Transparent regions would otherwise encode as black.
	flat := imaging.New(b.Dx(), b.Dy(), color.White)
	flat = imaging.Overlay(flat, img, image.Pt(0, 0), 1.0)

	out := flat
	if n.MaxDimension > 0 && (b.Dx() > n.MaxDimension || b.Dy() > n.MaxDimension) {
		out = imaging.Fit(out, n.MaxDimension, n.MaxDimension, imaging.Lanczos)
	}
	out = imaging.Grayscale(out)
	if pct := contrastPercent(n.Contrast); pct != 0 {
		out = imaging.AdjustContrast(out, pct)
	}
	if n.SharpenSigma > 0 {
		out = imaging.Sharpen(out, n.SharpenSigma)
	}

	quality := n.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrImageDecode, err)
	}
	return buf.Bytes(), nil
}

// contrastPercent maps a multiplicative factor onto imaging's -100..100
// percentage scale.
func contrastPercent(factor float64) float64 {
	pct := (factor - 1) * 100
	switch {
	case pct > 100:
		return 100
	case pct < -100:
		return -100
	}
	return pct
}
