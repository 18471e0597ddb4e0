package export

import (
	"github.com/pkg/errors"

	"github.com/Faultbox/assetpipe/internal/attributes"
	"github.com/Faultbox/assetpipe/internal/meshfile"
	"github.com/Faultbox/assetpipe/internal/modelgen"
	"github.com/Faultbox/assetpipe/internal/scene"
	"github.com/Faultbox/assetpipe/internal/scenedoc"
	"github.com/Faultbox/assetpipe/internal/surface"
	"github.com/Faultbox/assetpipe/internal/texture"
	"github.com/Faultbox/assetpipe/internal/vfs"
)

// Errors.
var (
	ErrInvalidState = errors.New("export: invalid session state")
	ErrParse        = errors.New("export: cannot parse source document")
	ErrUpToDate     = errors.New("export: asset is up to date")
)

// Kind classifies the outcome of a failed or skipped export.
type Kind int

const (
	KindNone Kind = iota
	// KindSkipped means nothing was stale. It is not a failure.
	KindSkipped
	KindParse
	KindConversion
	KindUnresolvedReference
	KindStreamOpen
	KindIO
	KindInternal
)

var kindNames = [...]string{
	KindNone:                "none",
	KindSkipped:             "skipped",
	KindParse:               "parse",
	KindConversion:          "conversion",
	KindUnresolvedReference: "unresolved_reference",
	KindStreamOpen:          "stream_open",
	KindIO:                  "io",
	KindInternal:            "internal",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Classify maps err onto the export error taxonomy.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUpToDate):
		return KindSkipped
	case errors.Is(err, ErrInvalidState),
		errors.Is(err, scene.ErrNotSetUp),
		errors.Is(err, scene.ErrAlreadyFlattened),
		errors.Is(err, modelgen.ErrNoMesh),
		errors.Is(err, modelgen.ErrBasePath),
		errors.Is(err, meshfile.ErrUnknownPlatform),
		errors.Is(err, vfs.ErrUnknownAssign):
		return KindInternal
	case errors.Is(err, ErrParse),
		errors.Is(err, scenedoc.ErrParse),
		errors.Is(err, attributes.ErrInvalid),
		errors.Is(err, scene.ErrInvalidScale),
		errors.Is(err, modelgen.ErrInvalidPhysics),
		errors.Is(err, surface.ErrDuplicateMaterial):
		return KindParse
	case errors.Is(err, texture.ErrConversion):
		return KindConversion
	case errors.Is(err, surface.ErrUnresolvedReference),
		errors.Is(err, scenedoc.ErrExternalImage):
		return KindUnresolvedReference
	case errors.Is(err, vfs.ErrStreamOpen):
		return KindStreamOpen
	}
	return KindIO
}
