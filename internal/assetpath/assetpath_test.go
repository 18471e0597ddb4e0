package assetpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromPath(t *testing.T) {
	tests := []struct {
		in   string
		want Identity
	}{
		{"src:props/chair.gltf", Identity{"props", "chair", "gltf"}},
		{"/proj/assets/props/chair.glb", Identity{"props", "chair", "glb"}},
		{"props\\chair.gltf", Identity{"props", "chair", "gltf"}},
		{"chair.gltf", Identity{"", "chair", "gltf"}},
		{"src:vehicles/car.v2.gltf", Identity{"vehicles", "car.v2", "gltf"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FromPath(tt.in))
		})
	}
}

func TestDerivedURIs(t *testing.T) {
	id := FromPath("src:props/chair.gltf")

	assert.Equal(t, "src:props/chair.gltf", id.Source())
	assert.Equal(t, "mdl:props/chair.model", id.Model())
	assert.Equal(t, "phys:props/chair.physmodel", id.PhysicsModel())
	assert.Equal(t, "msh:props/chair.mesh", id.Mesh())
	assert.Equal(t, "msh:props/chair_ph.mesh", id.PhysicsMesh())
	assert.Equal(t, "ani:props/chair.anim", id.Animation())
	assert.Equal(t, "src:props/chair.constants", id.Constants())
	assert.Equal(t, "src:props/chair.attributes", id.Attributes())
	assert.Equal(t, "src:props/chair.physics", id.Physics())
	assert.Equal(t, "tex:props/chair_gltf", id.TextureDir())
	assert.Equal(t, "tex:props/chair_gltf/2", id.TextureRef(2))
	assert.Equal(t, "sur:props/chair_gltf", id.SurfaceDir())
	assert.Equal(t, "sur:props/chair_gltf/wood.sur", id.SurfacePath("wood"))
	assert.Equal(t, "sur:props/chair_gltf/wood", id.SurfaceRef("wood"))
	assert.Equal(t, "src:props/", id.BasePath())
	assert.Equal(t, "props/chair", id.String())
}
