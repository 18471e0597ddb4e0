// Package texture extracts embedded images from scene documents and
// converts them into engine textures.
package texture

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/assetpipe/internal/scenedoc"
	"github.com/Faultbox/assetpipe/internal/vfs"
)

// WorkspaceRoot is where per-image scratch directories are created.
const WorkspaceRoot = vfs.Temp + ":textureconverter"

// Extractor materialises embedded images and runs them through a Converter.
type Extractor struct {
	fs   vfs.FS
	conv Converter
	log  *zap.Logger
}

// NewExtractor creates an Extractor. log may be nil.
func NewExtractor(fs vfs.FS, conv Converter, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{fs: fs, conv: conv, log: log}
}

// Extract replaces textureDir with the converted embedded images of doc and
// returns how many were converted. A document without embedded images only
// clears textureDir.
func (e *Extractor) Extract(doc *scenedoc.Document, textureDir string) (int, error) {
	if e.fs.DirectoryExists(textureDir) {
		if err := e.fs.DeleteDirectory(textureDir); err != nil {
			e.log.Warn("cannot purge texture directory", zap.String("dir", textureDir), zap.Error(err))
		}
	}

	if doc.EmbeddedImageCount() == 0 {
		return 0, nil
	}

	if err := e.fs.CreateDirectory(textureDir); err != nil {
		e.log.Warn("cannot create texture directory", zap.String("dir", textureDir), zap.Error(err))
	}

	converted := 0
	for i := range doc.Images {
		img := &doc.Images[i]
		if !img.Embedded() {
			e.log.Debug("skipping external image", zap.Int("image", i), zap.String("uri", img.URI))
			continue
		}
		if err := e.extractOne(doc, i, textureDir); err != nil {
			return converted, err
		}
		converted++
	}
	return converted, nil
}

func (e *Extractor) extractOne(doc *scenedoc.Document, i int, textureDir string) error {
	data, err := doc.ImageData(i)
	if err != nil {
		return errors.Wrapf(ErrConversion, "image %d: %v", i, err)
	}

	workDir := WorkspaceRoot + "/" + uuid.NewString()
	defer func() {
		if err := e.fs.DeleteDirectory(workDir); err != nil {
			e.log.Warn("cannot delete texture workspace", zap.String("dir", workDir), zap.Error(err))
		}
	}()

	if err := e.fs.CreateDirectory(workDir); err != nil {
		return errors.Wrapf(vfs.ErrStreamOpen, "workspace %s: %v", workDir, err)
	}
	tmpFile := fmt.Sprintf("%s/%d.%s", workDir, i, doc.Images[i].Type.Ext())
	if err := vfs.WriteAll(e.fs, tmpFile, data); err != nil {
		return err
	}

	if err := e.conv.Convert(tmpFile, workDir, textureDir); err != nil {
		if errors.Is(err, ErrConversion) {
			return err
		}
		return errors.Wrapf(ErrConversion, "image %d: %v", i, err)
	}
	e.log.Debug("image extracted", zap.Int("image", i), zap.String("dir", textureDir))
	return nil
}
