// Package scene converts a parsed document into the engine scene and
// flattens it into a single merged mesh.
package scene

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/Faultbox/assetpipe/internal/scenedoc"
	"github.com/Faultbox/assetpipe/pkg/math"
)

// Flags alter how vertex data is copied.
type Flags uint32

const (
	// FlipUVs maps v to 1-v.
	FlipUVs Flags = 1 << iota
	// CalcNormals derives normals for primitives that have none.
	CalcNormals
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlipUVs, "flip_uvs"},
	{CalcNormals, "calc_normals"},
}

// Has reports whether every bit of f2 is set in f.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// Names returns the names of the set flags.
func (f Flags) Names() []string {
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return names
}

// ParseFlags builds Flags from names such as "flip_uvs".
func ParseFlags(names []string) (Flags, error) {
	var f Flags
	for _, n := range names {
		found := false
		for _, fn := range flagNames {
			if strings.EqualFold(n, fn.name) {
				f |= fn.flag
				found = true
				break
			}
		}
		if !found {
			return 0, errors.Errorf("scene: unknown export flag %q", n)
		}
	}
	return f, nil
}

// Mode selects static or skinned export.
type Mode int

const (
	Static Mode = iota
	Character
)

func (m Mode) String() string {
	if m == Character {
		return "character"
	}
	return "static"
}

// ParseMode parses "static" or "character".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "static", "":
		return Static, nil
	case "character":
		return Character, nil
	}
	return Static, errors.Errorf("scene: unknown export mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Vertex is one merged vertex. Joints and Weights are only filled for
// Character exports.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
	Joints   [4]uint16
	Weights  [4]float32
}

// Group is the index range contributed by one source primitive.
type Group struct {
	Name       string
	Material   scenedoc.Ref
	FirstIndex int
	IndexCount int
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// Mesh is the flattened geometry of a scene.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	Groups   []Group
	Bounds   Bounds
	Skinned  bool
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Node is one entry of the scene hierarchy.
type Node struct {
	Name     string
	Parent   scenedoc.Ref
	Children []int
	World    math.Mat4
	Mesh     scenedoc.Ref
	Skin     scenedoc.Ref
}

// Joint is one bone of a Character skeleton.
type Joint struct {
	Name   string
	Node   int
	Parent scenedoc.Ref // into the skeleton
}

func updateBounds(b *Bounds, p [3]float32) {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}
