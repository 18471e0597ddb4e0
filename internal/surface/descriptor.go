// Package surface builds engine surface descriptors from scene materials.
package surface

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Templates.
const (
	StaticTemplate  = "GLTF Static"
	SkinnedTemplate = "GLTF Skinned"
)

// System textures bound when a material leaves a slot empty.
const (
	DefaultTexture = "tex:system/white"
	NoBumpTexture  = "tex:system/nobump"
)

// Parameter names.
const (
	ParamBaseColorTexture         = "baseColorTexture"
	ParamMetallicRoughnessTexture = "metallicRoughnessTexture"
	ParamNormalTexture            = "normalTexture"
	ParamBaseColorFactor          = "baseColorFactor"
	ParamMetallicFactor           = "metallicFactor"
	ParamRoughnessFactor          = "roughnessFactor"
)

// Kind is the value type of a binding.
type Kind int

const (
	KindTexture Kind = iota
	KindVec4
	KindScalar
)

func (k Kind) String() string {
	switch k {
	case KindTexture:
		return "texture"
	case KindVec4:
		return "vec4"
	case KindScalar:
		return "scalar"
	}
	return "unknown"
}

// Binding assigns one value to a template parameter. Only the field
// selected by Kind is meaningful.
type Binding struct {
	Name    string
	Kind    Kind
	Texture string
	Vec4    [4]float32
	Scalar  float32
}

// TextureBinding binds a texture path.
func TextureBinding(name, path string) Binding {
	return Binding{Name: name, Kind: KindTexture, Texture: path}
}

// Vec4Binding binds a four component vector.
func Vec4Binding(name string, v [4]float32) Binding {
	return Binding{Name: name, Kind: KindVec4, Vec4: v}
}

// ScalarBinding binds a scalar.
func ScalarBinding(name string, v float32) Binding {
	return Binding{Name: name, Kind: KindScalar, Scalar: v}
}

type yamlBinding struct {
	Name    string      `yaml:"name"`
	Texture *string     `yaml:"texture,omitempty"`
	Vec4    *[4]float32 `yaml:"vec4,omitempty,flow"`
	Scalar  *float32    `yaml:"scalar,omitempty"`
}

// MarshalYAML writes the binding with exactly one value key.
func (b Binding) MarshalYAML() (any, error) {
	out := yamlBinding{Name: b.Name}
	switch b.Kind {
	case KindTexture:
		out.Texture = &b.Texture
	case KindVec4:
		out.Vec4 = &b.Vec4
	case KindScalar:
		out.Scalar = &b.Scalar
	default:
		return nil, errors.Errorf("surface: binding %q has unknown kind %d", b.Name, b.Kind)
	}
	return out, nil
}

// UnmarshalYAML reads a binding, requiring exactly one value key.
func (b *Binding) UnmarshalYAML(node *yaml.Node) error {
	var in yamlBinding
	if err := node.Decode(&in); err != nil {
		return err
	}
	set := 0
	*b = Binding{Name: in.Name}
	if in.Texture != nil {
		b.Kind, b.Texture = KindTexture, *in.Texture
		set++
	}
	if in.Vec4 != nil {
		b.Kind, b.Vec4 = KindVec4, *in.Vec4
		set++
	}
	if in.Scalar != nil {
		b.Kind, b.Scalar = KindScalar, *in.Scalar
		set++
	}
	if set != 1 {
		return errors.Errorf("surface: binding %q needs exactly one value, has %d", in.Name, set)
	}
	return nil
}

// Descriptor is one surface file.
type Descriptor struct {
	Name     string    `yaml:"name"`
	Template string    `yaml:"template"`
	Bindings []Binding `yaml:"params"`
}

// Lookup returns the binding named name.
func (d *Descriptor) Lookup(name string) (Binding, bool) {
	for _, b := range d.Bindings {
		if b.Name == name {
			return b, true
		}
	}
	return Binding{}, false
}
