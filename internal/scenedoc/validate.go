package scenedoc

import "github.com/pkg/errors"

// Validate checks that every present reference points at an existing entry
// and that the node graph has no cycles.
func (d *Document) Validate() error {
	for i, t := range d.Textures {
		if !t.Source.validFor(len(d.Images)) {
			return errors.Wrapf(ErrInvalidReference, "texture %d: source %s", i, t.Source)
		}
	}

	for i, m := range d.Materials {
		slots := []struct {
			name string
			ref  Ref
		}{
			{"baseColorTexture", m.BaseColorTexture},
			{"metallicRoughnessTexture", m.MetallicRoughnessTexture},
			{"normalTexture", m.NormalTexture},
		}
		for _, s := range slots {
			if !s.ref.validFor(len(d.Textures)) {
				return errors.Wrapf(ErrInvalidReference, "material %d (%s): %s %s", i, m.Name, s.name, s.ref)
			}
		}
	}

	for i, img := range d.Images {
		if bv, ok := img.BufferView.Get(); ok {
			if _, err := d.bufferViewData(bv); err != nil {
				return errors.Wrapf(err, "image %d", i)
			}
		}
	}

	for i, m := range d.Meshes {
		for j, p := range m.Primitives {
			if !p.Material.validFor(len(d.Materials)) {
				return errors.Wrapf(ErrInvalidReference, "mesh %d primitive %d: material %s", i, j, p.Material)
			}
			for _, idx := range p.Indices {
				if int(idx) >= len(p.Positions) {
					return errors.Wrapf(ErrInvalidReference, "mesh %d primitive %d: vertex index %d of %d",
						i, j, idx, len(p.Positions))
				}
			}
		}
	}

	for i, n := range d.Nodes {
		if !n.Mesh.validFor(len(d.Meshes)) {
			return errors.Wrapf(ErrInvalidReference, "node %d: mesh %s", i, n.Mesh)
		}
		if !n.Skin.validFor(len(d.Skins)) {
			return errors.Wrapf(ErrInvalidReference, "node %d: skin %s", i, n.Skin)
		}
		for _, c := range n.Children {
			if c < 0 || c >= len(d.Nodes) {
				return errors.Wrapf(ErrInvalidReference, "node %d: child %d", i, c)
			}
		}
	}

	for i, s := range d.Skins {
		for _, j := range s.Joints {
			if j < 0 || j >= len(d.Nodes) {
				return errors.Wrapf(ErrInvalidReference, "skin %d: joint %d", i, j)
			}
		}
	}

	if !d.DefaultScene.validFor(len(d.Scenes)) {
		return errors.Wrapf(ErrInvalidReference, "default scene %s", d.DefaultScene)
	}
	for i, s := range d.Scenes {
		for _, n := range s.Nodes {
			if n < 0 || n >= len(d.Nodes) {
				return errors.Wrapf(ErrInvalidReference, "scene %d: node %d", i, n)
			}
		}
	}

	return d.checkCycles()
}

// checkCycles rejects node graphs where a node is its own ancestor.
func (d *Document) checkCycles() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(d.Nodes))

	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case visiting:
			return errors.Wrapf(ErrInvalidReference, "node %d: cycle in hierarchy", i)
		case done:
			return nil
		}
		state[i] = visiting
		for _, c := range d.Nodes[i].Children {
			if err := visit(c); err != nil {
				return err
			}
		}
		state[i] = done
		return nil
	}

	for i := range d.Nodes {
		if err := visit(i); err != nil {
			return err
		}
	}
	return nil
}
