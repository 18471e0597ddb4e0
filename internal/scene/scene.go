package scene

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/assetpipe/internal/scenedoc"
	"github.com/Faultbox/assetpipe/pkg/math"
)

// Errors.
var (
	ErrNotSetUp         = errors.New("scene: not set up")
	ErrAlreadyFlattened = errors.New("scene: already flattened")
	ErrInvalidScale     = errors.New("scene: scale must be positive")
)

// Scene is the engine-side representation of one asset.
type Scene struct {
	Name     string
	Category string
	Nodes    []Node
	Roots    []int
	Skeleton []Joint
	Flags    Flags
	Mode     Mode
	Scale    float32

	doc       *scenedoc.Document
	mesh      *Mesh
	flattened bool
	log       *zap.Logger
}

// New creates an empty scene. log may be nil.
func New(log *zap.Logger) *Scene {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scene{log: log}
}

// Setup builds the node hierarchy of doc with world transforms scaled by
// scale. Name and Category are kept; any other previous content is dropped.
func (s *Scene) Setup(doc *scenedoc.Document, flags Flags, mode Mode, scale float32) error {
	if scale <= 0 {
		return errors.Wrapf(ErrInvalidScale, "got %v", scale)
	}
	log := s.log
	*s = Scene{
		Name:     s.Name,
		Category: s.Category,
		Flags:    flags,
		Mode:     mode,
		Scale:    scale,
		doc:      doc,
		log:      log,
		Roots:    doc.Roots(),
		Nodes:    make([]Node, len(doc.Nodes)),
	}

	for i, n := range doc.Nodes {
		s.Nodes[i] = Node{
			Name:     n.Name,
			Children: n.Children,
			Mesh:     n.Mesh,
			Skin:     n.Skin,
		}
	}
	// Link parents once every node exists; a later entry would otherwise
	// overwrite its own link.
	for i, n := range doc.Nodes {
		for _, c := range n.Children {
			s.Nodes[c].Parent = scenedoc.Index(i)
		}
	}

	root := math.Scale(scale, scale, scale)
	for _, r := range s.Roots {
		s.place(r, root)
	}

	if mode == Character {
		s.buildSkeleton()
	}
	return nil
}

func (s *Scene) place(i int, parent math.Mat4) {
	world := parent.Mul(s.doc.Nodes[i].Local())
	s.Nodes[i].World = world
	for _, c := range s.Nodes[i].Children {
		s.place(c, world)
	}
}

// buildSkeleton collects the joints of every skin, in skin order.
func (s *Scene) buildSkeleton() {
	for _, skin := range s.doc.Skins {
		base := len(s.Skeleton)
		local := make(map[int]int, len(skin.Joints))
		for j, node := range skin.Joints {
			local[node] = base + j
		}
		for _, node := range skin.Joints {
			joint := Joint{Name: s.doc.Nodes[node].Name, Node: node}
			if p, ok := s.Nodes[node].Parent.Get(); ok {
				if pj, ok := local[p]; ok {
					joint.Parent = scenedoc.Index(pj)
				}
			}
			s.Skeleton = append(s.Skeleton, joint)
		}
	}
}

// skinBase returns the first skeleton index of each skin.
func (s *Scene) skinBase() []int {
	bases := make([]int, len(s.doc.Skins))
	n := 0
	for i, skin := range s.doc.Skins {
		bases[i] = n
		n += len(skin.Joints)
	}
	return bases
}

// Mesh returns the merged mesh, or nil before Flatten.
func (s *Scene) Mesh() *Mesh {
	return s.mesh
}

// Flatten merges every triangle primitive reachable from the roots, in
// depth-first document order, into one mesh. It can run once per Setup.
func (s *Scene) Flatten() (*Mesh, error) {
	if s.doc == nil {
		return nil, ErrNotSetUp
	}
	if s.flattened {
		return nil, ErrAlreadyFlattened
	}
	s.flattened = true

	m := &Mesh{
		Bounds: Bounds{
			Min: [3]float32{1e10, 1e10, 1e10},
			Max: [3]float32{-1e10, -1e10, -1e10},
		},
		Skinned: s.Mode == Character,
	}
	bases := s.skinBase()

	var visit func(i int)
	visit = func(i int) {
		node := &s.Nodes[i]
		if mi, ok := node.Mesh.Get(); ok {
			s.appendMesh(m, node, mi, bases)
		}
		for _, c := range node.Children {
			visit(c)
		}
	}
	for _, r := range s.Roots {
		visit(r)
	}

	if len(m.Vertices) == 0 {
		m.Bounds = Bounds{}
	}
	s.mesh = m
	return m, nil
}

func (s *Scene) appendMesh(m *Mesh, node *Node, mi int, bases []int) {
	src := &s.doc.Meshes[mi]
	normalMatrix := node.World.NormalMatrix()
	mirrored := node.World.Det3() < 0

	jointBase := -1
	if sk, ok := node.Skin.Get(); ok && m.Skinned {
		jointBase = bases[sk]
	}

	for pi := range src.Primitives {
		p := &src.Primitives[pi]
		if !p.Triangles {
			s.log.Debug("skipping non-triangle primitive",
				zap.String("mesh", src.Name), zap.Int("primitive", pi))
			continue
		}
		if len(p.Positions) == 0 {
			s.log.Debug("skipping primitive without positions",
				zap.String("mesh", src.Name), zap.Int("primitive", pi))
			continue
		}

		indices := p.Indices
		if indices == nil {
			indices = make([]uint32, len(p.Positions))
			for k := range indices {
				indices[k] = uint32(k)
			}
		}
		indices = indices[:len(indices)/3*3]

		normals := p.Normals
		if len(normals) != len(p.Positions) {
			normals = nil
			if s.Flags.Has(CalcNormals) {
				normals = faceNormals(p.Positions, indices)
			}
		}

		base := uint32(len(m.Vertices))
		for k, pos := range p.Positions {
			v := Vertex{Position: node.World.TransformPoint(pos)}
			if normals != nil {
				v.Normal = math.V3(normalMatrix.TransformDirection(normals[k])).Normalize().Array()
			}
			if k < len(p.TexCoords) {
				v.TexCoord = p.TexCoords[k]
				if s.Flags.Has(FlipUVs) {
					v.TexCoord[1] = 1 - v.TexCoord[1]
				}
			}
			if jointBase >= 0 && k < len(p.Joints) && k < len(p.Weights) {
				for j := 0; j < 4; j++ {
					v.Joints[j] = uint16(jointBase) + p.Joints[k][j]
				}
				v.Weights = p.Weights[k]
			}
			updateBounds(&m.Bounds, v.Position)
			m.Vertices = append(m.Vertices, v)
		}

		group := Group{
			Name:       src.Name,
			Material:   p.Material,
			FirstIndex: len(m.Indices),
			IndexCount: len(indices),
		}
		for t := 0; t < len(indices); t += 3 {
			a, b, c := indices[t], indices[t+1], indices[t+2]
			if mirrored {
				b, c = c, b
			}
			m.Indices = append(m.Indices, base+a, base+b, base+c)
		}
		m.Groups = append(m.Groups, group)
	}
}

// faceNormals derives per-vertex normals by summing the normals of the
// faces sharing each vertex.
func faceNormals(positions [][3]float32, indices []uint32) [][3]float32 {
	sums := make([]math.Vec3, len(positions))
	for t := 0; t+2 < len(indices); t += 3 {
		a, b, c := indices[t], indices[t+1], indices[t+2]
		p0 := math.V3(positions[a])
		n := math.V3(positions[b]).Sub(p0).Cross(math.V3(positions[c]).Sub(p0))
		for _, i := range []uint32{a, b, c} {
			sums[i] = math.Vec3{X: sums[i].X + n.X, Y: sums[i].Y + n.Y, Z: sums[i].Z + n.Z}
		}
	}
	out := make([][3]float32, len(positions))
	for i, n := range sums {
		out[i] = n.Normalize().Array()
	}
	return out
}

// Document returns the document the scene was set up from.
func (s *Scene) Document() *scenedoc.Document {
	return s.doc
}

// Reset releases the document and all derived state.
func (s *Scene) Reset() {
	log := s.log
	*s = Scene{log: log}
}
