package texture

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"github.com/h2non/filetype"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Faultbox/assetpipe/internal/vfs"
)

// ErrConversion is returned when a texture cannot be converted.
var ErrConversion = errors.New("texture: conversion failed")

// Converter turns one source image into an engine texture inside dstDir.
// workDir is private scratch space for the call.
type Converter interface {
	Convert(src, workDir, dstDir string) error
}

// Options control ImageConverter output.
type Options struct {
	// MaxSize caps the longest side in pixels; 0 keeps the source size.
	MaxSize     int
	JPEGQuality int
}

// DefaultOptions returns the converter defaults.
func DefaultOptions() Options {
	return Options{MaxSize: 2048, JPEGQuality: 90}
}

// ImageConverter decodes PNG, JPEG, BMP, TIFF, WebP and TGA sources and
// writes PNG or JPEG textures, downscaling oversized images.
type ImageConverter struct {
	fs   vfs.FS
	opts Options
	log  *zap.Logger
}

// NewImageConverter creates a converter. log may be nil.
func NewImageConverter(fs vfs.FS, opts Options, log *zap.Logger) *ImageConverter {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = DefaultOptions().JPEGQuality
	}
	return &ImageConverter{fs: fs, opts: opts, log: log}
}

// Convert writes <dstDir>/<src base name>.(jpg|png). JPEG sources stay
// JPEG; everything else becomes PNG.
func (c *ImageConverter) Convert(src, workDir, dstDir string) error {
	data, err := vfs.ReadAll(c.fs, src)
	if err != nil {
		return errors.Wrapf(ErrConversion, "%s: %v", src, err)
	}

	format := detectFormat(src, data)
	outExt := "png"
	if format == "jpg" {
		outExt = "jpg"
	}
	base := strings.TrimSuffix(path.Base(src), path.Ext(src))
	scratch := workDir + "/" + base + "_out." + outExt
	dst := dstDir + "/" + base + "." + outExt

	out, err := c.encode(data, format)
	if err != nil {
		return errors.Wrapf(ErrConversion, "%s: %v", src, err)
	}
	if err := vfs.WriteAll(c.fs, scratch, out); err != nil {
		return errors.Wrapf(ErrConversion, "%s: %v", src, err)
	}
	if err := c.relocate(scratch, dst); err != nil {
		return errors.Wrapf(ErrConversion, "%s: %v", src, err)
	}

	c.log.Debug("texture converted",
		zap.String("src", src),
		zap.String("dst", dst),
		zap.String("format", format))
	return nil
}

// encode returns the output bytes for a source image. Sources that are
// already PNG or JPEG and within MaxSize pass through untouched.
func (c *ImageConverter) encode(data []byte, format string) ([]byte, error) {
	img, err := decode(data, format)
	if err != nil {
		return nil, err
	}

	resized := c.fit(img)
	if resized == img && (format == "png" || format == "jpg") {
		return data, nil
	}

	enc := imgio.PNGEncoder()
	if format == "jpg" {
		enc = imgio.JPEGEncoder(c.opts.JPEGQuality)
	}
	var buf bytes.Buffer
	if err := enc(&buf, resized); err != nil {
		return nil, errors.Wrap(err, "encoding")
	}
	return buf.Bytes(), nil
}

// fit downscales img so its longest side is at most MaxSize.
func (c *ImageConverter) fit(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := max(w, h)
	if c.opts.MaxSize <= 0 || longest <= c.opts.MaxSize {
		return img
	}
	scale := float64(c.opts.MaxSize) / float64(longest)
	nw := max(1, int(float64(w)*scale+0.5))
	nh := max(1, int(float64(h)*scale+0.5))
	return transform.Resize(img, nw, nh, transform.Lanczos)
}

func (c *ImageConverter) relocate(from, to string) error {
	data, err := vfs.ReadAll(c.fs, from)
	if err != nil {
		return err
	}
	return vfs.WriteAll(c.fs, to, data)
}

// detectFormat names the source encoding from its content, falling back to
// the file extension for formats without a signature such as TGA.
func detectFormat(name string, data []byte) string {
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.Extension
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
	if ext == "jpeg" {
		return "jpg"
	}
	return ext
}

func decode(data []byte, format string) (image.Image, error) {
	if format == "tga" {
		return DecodeTGA(data)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", format)
	}
	return img, nil
}
