package core

import (
	"errors"
	"fmt"
	"slices"
)

var ErrTxOpen = errors.New("transaction already open")

// Tx records the state every touched element had when the transaction
// began. Commit turns the record into a Delta; Rollback restores it.
type Tx struct {
	scene *Scene
	done  bool

	vertices map[VertexID]*Vertex
	faces    map[FaceID]*Face
	objects  map[ObjectID]*Object
	layers   map[LayerID]*Layer

	order        []LayerID
	orderTouched bool
}

// Begin opens a transaction. Only one may be open at a time.
func (s *Scene) Begin() (*Tx, error) {
	if s.tx != nil {
		return nil, ErrTxOpen
	}
	s.tx = &Tx{
		scene:    s,
		vertices: make(map[VertexID]*Vertex),
		faces:    make(map[FaceID]*Face),
		objects:  make(map[ObjectID]*Object),
		layers:   make(map[LayerID]*Layer),
	}
	return s.tx, nil
}

func (s *Scene) InTx() bool { return s.tx != nil }

func (s *Scene) touchVertex(id VertexID) {
	if s.tx == nil {
		return
	}
	if _, ok := s.tx.vertices[id]; !ok {
		s.tx.vertices[id] = cloneVertex(s.vertices[id])
	}
}

func (s *Scene) touchFace(id FaceID) {
	if s.tx == nil {
		return
	}
	if _, ok := s.tx.faces[id]; !ok {
		s.tx.faces[id] = cloneFace(s.faces[id])
	}
}

func (s *Scene) touchObject(id ObjectID) {
	if s.tx == nil {
		return
	}
	if _, ok := s.tx.objects[id]; !ok {
		s.tx.objects[id] = cloneObject(s.objects[id])
	}
}

func (s *Scene) touchLayer(id LayerID) {
	if s.tx == nil {
		return
	}
	if _, ok := s.tx.layers[id]; !ok {
		s.tx.layers[id] = cloneLayer(s.layers[id])
	}
}

func (s *Scene) touchOrder() {
	if s.tx == nil || s.tx.orderTouched {
		return
	}
	s.tx.order = slices.Clone(s.layerOrder)
	s.tx.orderTouched = true
}

type VertexChange struct {
	ID            VertexID
	Before, After *Vertex
}

type FaceChange struct {
	ID            FaceID
	Before, After *Face
}

type ObjectChange struct {
	ID            ObjectID
	Before, After *Object
}

type LayerChange struct {
	ID            LayerID
	Before, After *Layer
}

type OrderChange struct {
	Before, After []LayerID
}

// Delta is the exact before/after state of every element a committed
// transaction changed. A nil side means the element did not exist.
type Delta struct {
	Vertices []VertexChange
	Faces    []FaceChange
	Objects  []ObjectChange
	Layers   []LayerChange
	Order    *OrderChange
}

func (d *Delta) Empty() bool {
	return d == nil || (len(d.Vertices) == 0 && len(d.Faces) == 0 &&
		len(d.Objects) == 0 && len(d.Layers) == 0 && d.Order == nil)
}

// TouchedObjects lists every object the delta changes, or whose geometry it
// changes, ascending.
func (d *Delta) TouchedObjects() []ObjectID {
	set := make(map[ObjectID]struct{})
	for _, c := range d.Vertices {
		for _, v := range []*Vertex{c.Before, c.After} {
			if v != nil {
				set[v.Object] = struct{}{}
			}
		}
	}
	for _, c := range d.Faces {
		for _, f := range []*Face{c.Before, c.After} {
			if f != nil {
				set[f.Object] = struct{}{}
			}
		}
	}
	for _, c := range d.Objects {
		set[c.ID] = struct{}{}
	}
	out := make([]ObjectID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func sortedKeys[K ~uint32, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Commit closes the transaction and returns what changed. Elements that were
// touched but ended up equal to their starting state are left out.
func (tx *Tx) Commit() *Delta {
	if tx.done {
		return &Delta{}
	}
	tx.done = true
	s := tx.scene
	s.tx = nil

	d := &Delta{}
	for _, id := range sortedKeys(tx.vertices) {
		before, after := tx.vertices[id], cloneVertex(s.vertices[id])
		if !vertexEqual(before, after) {
			d.Vertices = append(d.Vertices, VertexChange{ID: id, Before: before, After: after})
		}
	}
	for _, id := range sortedKeys(tx.faces) {
		before, after := tx.faces[id], cloneFace(s.faces[id])
		if !faceEqual(before, after) {
			d.Faces = append(d.Faces, FaceChange{ID: id, Before: before, After: after})
		}
	}
	for _, id := range sortedKeys(tx.objects) {
		before, after := tx.objects[id], cloneObject(s.objects[id])
		if !objectEqual(before, after) {
			d.Objects = append(d.Objects, ObjectChange{ID: id, Before: before, After: after})
		}
	}
	for _, id := range sortedKeys(tx.layers) {
		before, after := tx.layers[id], cloneLayer(s.layers[id])
		if !layerEqual(before, after) {
			d.Layers = append(d.Layers, LayerChange{ID: id, Before: before, After: after})
		}
	}
	if tx.orderTouched && !slices.Equal(tx.order, s.layerOrder) {
		d.Order = &OrderChange{Before: tx.order, After: slices.Clone(s.layerOrder)}
	}
	return d
}

// Rollback restores every touched element. It is a no-op after Commit, so it
// can be deferred unconditionally.
func (tx *Tx) Rollback() {
	if tx.done {
		return
	}
	tx.done = true
	s := tx.scene
	s.tx = nil
	for id, v := range tx.vertices {
		s.putVertex(id, v)
	}
	for id, f := range tx.faces {
		s.putFace(id, f)
	}
	for id, o := range tx.objects {
		s.putObject(id, o)
	}
	for id, l := range tx.layers {
		s.putLayer(id, l)
	}
	if tx.orderTouched {
		s.layerOrder = slices.Clone(tx.order)
	}
	s.afterRestore()
}

// Redo applies d forward. The scene must match d's before side exactly;
// otherwise ErrDanglingReference is returned and nothing changes.
func (s *Scene) Redo(d *Delta) error { return s.replay(d, true) }

// Undo reverts d. The scene must match d's after side exactly.
func (s *Scene) Undo(d *Delta) error { return s.replay(d, false) }

func (s *Scene) replay(d *Delta, forward bool) error {
	if d == nil {
		return nil
	}
	if s.tx != nil {
		return fmt.Errorf("replay with open transaction: %w", ErrTxOpen)
	}
	if err := s.validate(d, forward); err != nil {
		return err
	}
	for _, c := range d.Vertices {
		s.putVertex(c.ID, side(c.Before, c.After, forward))
	}
	for _, c := range d.Faces {
		s.putFace(c.ID, side(c.Before, c.After, forward))
	}
	for _, c := range d.Objects {
		s.putObject(c.ID, side(c.Before, c.After, forward))
	}
	for _, c := range d.Layers {
		s.putLayer(c.ID, side(c.Before, c.After, forward))
	}
	if d.Order != nil {
		s.layerOrder = slices.Clone(side(d.Order.Before, d.Order.After, forward))
	}
	s.afterRestore()
	return nil
}

// side returns the state to install: after when going forward.
func side[T any](before, after T, forward bool) T {
	if forward {
		return after
	}
	return before
}

func (s *Scene) validate(d *Delta, forward bool) error {
	for _, c := range d.Vertices {
		if want := side(c.After, c.Before, forward); !vertexEqual(s.vertices[c.ID], want) {
			return fmt.Errorf("vertex %d does not match history: %w", c.ID, ErrDanglingReference)
		}
	}
	for _, c := range d.Faces {
		if want := side(c.After, c.Before, forward); !faceEqual(s.faces[c.ID], want) {
			return fmt.Errorf("face %d does not match history: %w", c.ID, ErrDanglingReference)
		}
	}
	for _, c := range d.Objects {
		if want := side(c.After, c.Before, forward); !objectEqual(s.objects[c.ID], want) {
			return fmt.Errorf("object %d does not match history: %w", c.ID, ErrDanglingReference)
		}
	}
	for _, c := range d.Layers {
		if want := side(c.After, c.Before, forward); !layerEqual(s.layers[c.ID], want) {
			return fmt.Errorf("layer %d does not match history: %w", c.ID, ErrDanglingReference)
		}
	}
	if d.Order != nil {
		if want := side(d.Order.After, d.Order.Before, forward); !slices.Equal(s.layerOrder, want) {
			return fmt.Errorf("layer order does not match history: %w", ErrDanglingReference)
		}
	}
	return nil
}

func (s *Scene) putVertex(id VertexID, v *Vertex) {
	if old, ok := s.vertices[id]; ok {
		s.markDirty(old.Object)
	}
	if v == nil {
		delete(s.vertices, id)
		return
	}
	s.vertices[id] = cloneVertex(v)
	s.markDirty(v.Object)
	s.nextVertex = max(s.nextVertex, id+1)
}

func (s *Scene) putFace(id FaceID, f *Face) {
	if old, ok := s.faces[id]; ok {
		s.markDirty(old.Object)
	}
	if f == nil {
		delete(s.faces, id)
		return
	}
	s.faces[id] = cloneFace(f)
	s.markDirty(f.Object)
	s.nextFace = max(s.nextFace, id+1)
}

func (s *Scene) putObject(id ObjectID, o *Object) {
	s.markDirty(id)
	if o == nil {
		delete(s.objects, id)
		return
	}
	s.objects[id] = cloneObject(o)
	s.nextObject = max(s.nextObject, id+1)
}

func (s *Scene) putLayer(id LayerID, l *Layer) {
	if l == nil {
		delete(s.layers, id)
		return
	}
	s.layers[id] = cloneLayer(l)
	for _, oid := range l.Objects {
		s.markDirty(oid)
	}
	s.nextLayer = max(s.nextLayer, id+1)
}

func (s *Scene) afterRestore() {
	clear(s.normals)
	s.fixActiveLayer()
}
