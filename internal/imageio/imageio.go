// Package imageio loads images for the face engine and writes annotated results.
package imageio

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/andresmejia3/facemark/internal/types"
)

// engineJPEGQuality is the quality used for the JPEG handed to dlib, which only reads JPEG.
const engineJPEGQuality = 95

// Image is a decoded input image. It is read-only once loaded.
type Image struct {
	Path   string
	Format string
	Pixels image.Image

	channels int
	jpegData []byte
}

// Load reads path, applies its EXIF orientation and decodes it.
func Load(path string) (*Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrFile, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory, expected an image file", types.ErrFile, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrFile, path, err)
	}

	img, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrDecode, path, err)
	}
	img.Path = path
	return img, nil
}

// Decode decodes an image from r. WebP files the x/image decoder rejects are retried with libwebp.
func Decode(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		webpCfg, webpErr := webp.DecodeConfig(bytes.NewReader(data))
		if webpErr != nil {
			return nil, fmt.Errorf("unknown or unsupported format: %w", err)
		}
		cfg, format = webpCfg, "webp"
	}

	pixels, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil && format == "webp" {
		pixels, err = webp.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, err
	}

	return &Image{
		Format:   format,
		Pixels:   pixels,
		channels: channelsOf(cfg.ColorModel),
	}, nil
}

// FromImage wraps an in-memory image, e.g. a resized copy.
func FromImage(pixels image.Image, format string) *Image {
	return &Image{Format: format, Pixels: pixels, channels: channelsOf(pixels.ColorModel())}
}

func (img *Image) Width() int  { return img.Pixels.Bounds().Dx() }
func (img *Image) Height() int { return img.Pixels.Bounds().Dy() }

// Channels is the channel count declared by the file header.
func (img *Image) Channels() int { return img.channels }

// Bounds returns the pixel bounds of the image.
func (img *Image) Bounds() image.Rectangle { return img.Pixels.Bounds() }

// JPEG returns the image encoded as JPEG. The encoding is computed once.
func (img *Image) JPEG() ([]byte, error) {
	if img.jpegData != nil {
		return img.jpegData, nil
	}
	data, err := EncodeJPEG(img.Pixels)
	if err != nil {
		return nil, err
	}
	img.jpegData = data
	return data, nil
}

// Upscale returns a copy of img enlarged by factor using Lanczos resampling.
func (img *Image) Upscale(factor int) *Image {
	if factor <= 1 {
		return img
	}
	scaled := imaging.Resize(img.Pixels, img.Width()*factor, img.Height()*factor, imaging.Lanczos)
	up := FromImage(scaled, img.Format)
	up.Path = img.Path
	up.channels = img.channels
	return up
}

// EncodeJPEG encodes any image into JPEG bytes.
func EncodeJPEG(pixels image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, pixels, imaging.JPEG, imaging.JPEGQuality(engineJPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func channelsOf(m color.Model) int {
	if _, ok := m.(color.Palette); ok {
		return 3
	}
	switch m {
	case color.GrayModel, color.Gray16Model:
		return 1
	case color.NRGBAModel, color.NRGBA64Model, color.CMYKModel, color.NYCbCrAModel, color.AlphaModel, color.Alpha16Model:
		return 4
	}
	return 3
}

// SaveOptions controls the encoders used by Save.
type SaveOptions struct {
	JPEGQuality  int
	WebPQuality  float32
	WebPLossless bool
}

// DefaultSaveOptions returns the encoder settings used when no config is supplied.
func DefaultSaveOptions() SaveOptions {
	return SaveOptions{JPEGQuality: 90, WebPQuality: 90}
}

// CheckOutputPath rejects output paths whose extension has no encoder. An empty path is allowed.
func CheckOutputPath(path string) error {
	if path == "" {
		return nil
	}
	if isWebP(path) {
		return nil
	}
	if _, err := imaging.FormatFromFilename(path); err != nil {
		return fmt.Errorf("%w: unsupported output format %q (use jpg, png, gif, bmp, tiff or webp)", types.ErrArgument, filepath.Ext(path))
	}
	return nil
}

// Save writes img to path, picking the encoder from the file extension.
// An existing file is overwritten.
func Save(img image.Image, path string, opts SaveOptions) error {
	if err := CheckOutputPath(path); err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("%w: empty output path", types.ErrArgument)
	}

	if isWebP(path) {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", types.ErrFile, path, err)
		}
		defer f.Close()
		if err := webp.Encode(f, img, &webp.Options{Lossless: opts.WebPLossless, Quality: opts.WebPQuality}); err != nil {
			return fmt.Errorf("%w: %s: %w", types.ErrFile, path, err)
		}
		return f.Close()
	}

	quality := opts.JPEGQuality
	if quality <= 0 {
		quality = DefaultSaveOptions().JPEGQuality
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("%w: %s: %w", types.ErrFile, path, err)
	}
	return nil
}

func isWebP(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".webp")
}
