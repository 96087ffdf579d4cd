package ops

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/gekko3d/tilesmith/core"
	"github.com/gekko3d/tilesmith/editor"
)

// MergeVertices welds selected vertices lying within Tolerance of each other.
// Clusters are grown greedily in selection order; the first vertex of a
// cluster survives at the cluster's average position and every face using
// another member is rewired to it. Faces left with fewer than three distinct
// corners or with zero area are removed.
type MergeVertices struct {
	recorder
	Vertices  []editor.Ref
	Tolerance float32
	// Tolerance must lie in [MinTolerance, MaxTolerance]; a zero
	// MaxTolerance leaves the upper bound open.
	MinTolerance float32
	MaxTolerance float32

	// Removed is the number of vertices welded away by the first Apply.
	Removed int
}

func (m *MergeVertices) Name() string { return "merge vertices" }

func (m *MergeVertices) Apply(s *core.Scene) error {
	return m.record(s, func() error {
		if err := m.merge(s); err != nil {
			return fmt.Errorf("ops: merge vertices: %w", err)
		}
		return nil
	})
}

func (m *MergeVertices) checkTolerance() error {
	if m.Tolerance < 0 || m.Tolerance < m.MinTolerance || (m.MaxTolerance > 0 && m.Tolerance > m.MaxTolerance) {
		return fmt.Errorf("%g outside [%g, %g]: %w", m.Tolerance, m.MinTolerance, m.MaxTolerance, core.ErrToleranceMismatch)
	}
	return nil
}

func (m *MergeVertices) merge(s *core.Scene) error {
	if err := m.checkTolerance(); err != nil {
		return err
	}
	verts, err := vertexTargets(s, m.Vertices)
	if err != nil {
		return err
	}
	if len(verts) < 2 {
		return fmt.Errorf("need at least two vertices: %w", core.ErrInvalidSelection)
	}

	rank := make(map[core.VertexID]int, len(verts))
	byObj := make(map[core.ObjectID][]core.VertexID)
	var objects []core.ObjectID
	for i, v := range verts {
		rank[v] = i
		vert, _ := s.Vertex(v)
		if _, ok := byObj[vert.Object]; !ok {
			objects = append(objects, vert.Object)
		}
		byObj[vert.Object] = append(byObj[vert.Object], v)
	}

	removed := 0
	for _, oid := range objects {
		members := byObj[oid]
		grid := newSpatialHash(m.Tolerance)
		for _, v := range members {
			vert, _ := s.Vertex(v)
			grid.Insert(v, vert.Position)
		}

		taken := make(map[core.VertexID]struct{})
		for _, v := range members {
			if _, ok := taken[v]; ok {
				continue
			}
			taken[v] = struct{}{}
			origin, _ := s.Vertex(v)

			cands := grid.QueryRadius(origin.Position, m.Tolerance)
			slices.SortFunc(cands, func(a, b core.VertexID) int { return cmp.Compare(rank[a], rank[b]) })
			cluster := []core.VertexID{v}
			sum := origin.Position
			for _, c := range cands {
				if _, ok := taken[c]; ok {
					continue
				}
				cv, _ := s.Vertex(c)
				if cv.Position.Sub(origin.Position).Len() > m.Tolerance {
					continue
				}
				taken[c] = struct{}{}
				cluster = append(cluster, c)
				sum = sum.Add(cv.Position)
			}
			if len(cluster) < 2 {
				continue
			}

			if err := s.SetVertexPosition(v, sum.Mul(1/float32(len(cluster)))); err != nil {
				return err
			}
			for _, other := range cluster[1:] {
				if err := s.ReplaceVertex(other, v); err != nil {
					return err
				}
				removed++
			}
		}
		if _, err := removeDegenerate(s, oid); err != nil {
			return err
		}
	}
	if removed == 0 {
		return fmt.Errorf("no vertices within %g of each other: %w", m.Tolerance, core.ErrInvalidSelection)
	}
	m.Removed = removed
	return nil
}
