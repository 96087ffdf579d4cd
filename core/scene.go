package core

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// DefaultGridPresets are the selectable grid sizes; DefaultGridIndex picks 1.0.
var DefaultGridPresets = []float32{0.125, 0.25, 0.5, 1, 2, 4}

const DefaultGridIndex = 3

// Scene is the editable model: layers of objects made of quads. Faces and
// vertices live in id-keyed tables, adjacency is computed on demand from the
// owning object's face list.
//
// Every mutation marks the owning object (and its instances) dirty and, while
// a transaction is open, records the touched element's previous state.
type Scene struct {
	Crosshair   mgl32.Vec3
	GridPresets []float32
	GridIndex   int
	ActiveLayer LayerID

	layerOrder []LayerID
	layers     map[LayerID]*Layer
	objects    map[ObjectID]*Object
	faces      map[FaceID]*Face
	vertices   map[VertexID]*Vertex

	normals map[FaceID]mgl32.Vec3
	dirty   map[ObjectID]struct{}

	nextLayer  LayerID
	nextObject ObjectID
	nextFace   FaceID
	nextVertex VertexID

	tx *Tx
}

// NewScene returns an empty scene with a single visible layer.
func NewScene() *Scene {
	s := &Scene{
		GridPresets: slices.Clone(DefaultGridPresets),
		GridIndex:   DefaultGridIndex,
		layers:      make(map[LayerID]*Layer),
		objects:     make(map[ObjectID]*Object),
		faces:       make(map[FaceID]*Face),
		vertices:    make(map[VertexID]*Vertex),
		normals:     make(map[FaceID]mgl32.Vec3),
		dirty:       make(map[ObjectID]struct{}),
		nextLayer:   1,
		nextObject:  1,
		nextFace:    1,
		nextVertex:  1,
	}
	s.ActiveLayer = s.AddLayer("Layer 1")
	return s
}

// GridSize is the active grid preset. Out of range indices clamp.
func (s *Scene) GridSize() float32 {
	if len(s.GridPresets) == 0 {
		return 1
	}
	i := max(0, min(s.GridIndex, len(s.GridPresets)-1))
	return s.GridPresets[i]
}

// ---- lookups ----

func (s *Scene) Layers() []LayerID { return slices.Clone(s.layerOrder) }

func (s *Scene) Layer(id LayerID) (Layer, bool) {
	l, ok := s.layers[id]
	if !ok {
		return Layer{}, false
	}
	return *cloneLayer(l), true
}

// Objects lists every object in scene order: layer order, then object order
// within the layer.
func (s *Scene) Objects() []ObjectID {
	var out []ObjectID
	for _, lid := range s.layerOrder {
		out = append(out, s.layers[lid].Objects...)
	}
	return out
}

func (s *Scene) Object(id ObjectID) (Object, bool) {
	o, ok := s.objects[id]
	if !ok {
		return Object{}, false
	}
	return *cloneObject(o), true
}

func (s *Scene) Face(id FaceID) (Face, bool) {
	f, ok := s.faces[id]
	if !ok {
		return Face{}, false
	}
	return *f, true
}

func (s *Scene) Vertex(id VertexID) (Vertex, bool) {
	v, ok := s.vertices[id]
	if !ok {
		return Vertex{}, false
	}
	return *v, true
}

func (s *Scene) ObjectCount() int { return len(s.objects) }
func (s *Scene) FaceCount() int   { return len(s.faces) }
func (s *Scene) VertexCount() int { return len(s.vertices) }

// ObjectFaces returns the face list of an object. Instances return their
// source's faces.
func (s *Scene) ObjectFaces(id ObjectID) []FaceID {
	owner, err := s.GeometryOwner(id)
	if err != nil {
		return nil
	}
	return slices.Clone(s.objects[owner].Faces)
}

// ObjectVertices returns the distinct vertices referenced by an object's
// faces in first-use order.
func (s *Scene) ObjectVertices(id ObjectID) []VertexID {
	seen := make(map[VertexID]struct{})
	var out []VertexID
	for _, fid := range s.ObjectFaces(id) {
		for _, v := range s.faces[fid].Vertices {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
	}
	return out
}

// ObjectEditable reports whether the object's layer is visible and unlocked.
func (s *Scene) ObjectEditable(id ObjectID) bool {
	o, ok := s.objects[id]
	if !ok {
		return false
	}
	l, ok := s.layers[o.Layer]
	return ok && l.Editable()
}

// GeometryOwner resolves the object whose tables hold id's geometry: the
// object itself for sources, the source for instances.
func (s *Scene) GeometryOwner(id ObjectID) (ObjectID, error) {
	o, ok := s.objects[id]
	if !ok {
		return 0, fmt.Errorf("object %d: %w", id, ErrNotFound)
	}
	if o.Source == 0 {
		return id, nil
	}
	if _, ok := s.objects[o.Source]; !ok {
		return 0, fmt.Errorf("instance %d source %d: %w", id, o.Source, ErrDanglingReference)
	}
	return o.Source, nil
}

// Instances lists the instances bound to src in scene order.
func (s *Scene) Instances(src ObjectID) []ObjectID {
	var out []ObjectID
	for _, id := range s.Objects() {
		if s.objects[id].Source == src {
			out = append(out, id)
		}
	}
	return out
}

// VertexFaces lists the faces that reference v, in the owner's face order.
func (s *Scene) VertexFaces(v VertexID) []FaceID {
	vert, ok := s.vertices[v]
	if !ok {
		return nil
	}
	o, ok := s.objects[vert.Object]
	if !ok {
		return nil
	}
	var out []FaceID
	for _, fid := range o.Faces {
		if s.faces[fid].Slot(v) >= 0 {
			out = append(out, fid)
		}
	}
	return out
}

// FacesAdjacentToEdge lists the faces whose boundary joins a and b. Coincident
// but distinct vertices do not count.
func (s *Scene) FacesAdjacentToEdge(a, b VertexID) []FaceID {
	var out []FaceID
	for _, fid := range s.VertexFaces(a) {
		if _, ok := s.faces[fid].EdgeSlot(a, b); ok {
			out = append(out, fid)
		}
	}
	return out
}

func (s *Scene) EdgeExists(a, b VertexID) bool {
	return len(s.FacesAdjacentToEdge(a, b)) > 0
}

// FacePositions returns the corner positions in object space.
func (s *Scene) FacePositions(id FaceID) ([4]mgl32.Vec3, error) {
	var out [4]mgl32.Vec3
	f, ok := s.faces[id]
	if !ok {
		return out, fmt.Errorf("face %d: %w", id, ErrNotFound)
	}
	for i, vid := range f.Vertices {
		v, ok := s.vertices[vid]
		if !ok {
			return out, fmt.Errorf("face %d vertex %d: %w", id, vid, ErrDanglingReference)
		}
		out[i] = v.Position
	}
	return out, nil
}

// WorldPositions returns the corners of face as rendered through obj, which
// may be an instance of the face's owner.
func (s *Scene) WorldPositions(obj ObjectID, face FaceID) ([4]mgl32.Vec3, error) {
	o, ok := s.objects[obj]
	if !ok {
		return [4]mgl32.Vec3{}, fmt.Errorf("object %d: %w", obj, ErrNotFound)
	}
	p, err := s.FacePositions(face)
	if err != nil {
		return p, err
	}
	for i := range p {
		p[i] = o.Transform.ToWorld(p[i])
	}
	return p, nil
}

// ComputeNormal returns the object-space unit normal from the cross product
// of the quad's diagonals, or the zero vector for a degenerate quad. Results
// are cached until a vertex of the face changes.
func (s *Scene) ComputeNormal(id FaceID) (mgl32.Vec3, error) {
	if n, ok := s.normals[id]; ok {
		return n, nil
	}
	p, err := s.FacePositions(id)
	if err != nil {
		return mgl32.Vec3{}, err
	}
	n := QuadNormal(p)
	s.normals[id] = n
	return n, nil
}

// VertexNormal is the normalized sum of the normals of the faces using v.
func (s *Scene) VertexNormal(v VertexID) mgl32.Vec3 {
	var sum mgl32.Vec3
	for _, fid := range s.VertexFaces(v) {
		n, err := s.ComputeNormal(fid)
		if err == nil {
			sum = sum.Add(n)
		}
	}
	if sum.LenSqr() < 1e-12 {
		return mgl32.Vec3{}
	}
	return sum.Normalize()
}

// QuadNormal is (p2-p0)x(p3-p1), normalized.
func QuadNormal(p [4]mgl32.Vec3) mgl32.Vec3 {
	n := p[2].Sub(p[0]).Cross(p[3].Sub(p[1]))
	if n.LenSqr() < 1e-12 {
		return mgl32.Vec3{}
	}
	return n.Normalize()
}

// QuadCenter is the average of the four corners.
func QuadCenter(p [4]mgl32.Vec3) mgl32.Vec3 {
	return p[0].Add(p[1]).Add(p[2]).Add(p[3]).Mul(0.25)
}

// TangentBasis returns (right, up) spanning the plane perpendicular to n with
// right x up = n. Near-vertical normals use Z as reference, others Y.
func TangentBasis(n mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	if n.LenSqr() < 1e-12 {
		return mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}
	}
	n = n.Normalize()
	ref := mgl32.Vec3{0, 1, 0}
	if mgl32.Abs(n.Y()) > 0.9 {
		ref = mgl32.Vec3{0, 0, 1}
	}
	right := ref.Cross(n).Normalize()
	up := n.Cross(right).Normalize()
	return right, up
}

// QuadCorners lays out a rectangle around center in the tangent plane of
// normal, counter-clockwise seen from the normal side.
func QuadCorners(center, normal mgl32.Vec3, halfW, halfH float32) [4]mgl32.Vec3 {
	right, up := TangentBasis(normal)
	r := right.Mul(halfW)
	u := up.Mul(halfH)
	return [4]mgl32.Vec3{
		center.Sub(r).Sub(u),
		center.Add(r).Sub(u),
		center.Add(r).Add(u),
		center.Sub(r).Add(u),
	}
}

// ---- dirty tracking ----

func (s *Scene) markDirty(id ObjectID) {
	if id == 0 {
		return
	}
	s.dirty[id] = struct{}{}
	for oid, o := range s.objects {
		if o.Source == id {
			s.dirty[oid] = struct{}{}
		}
	}
}

// DirtyObjects returns the ids whose render buffers are stale, ascending.
// Ids of deleted objects are included so consumers can drop their buffers.
func (s *Scene) DirtyObjects() []ObjectID {
	out := make([]ObjectID, 0, len(s.dirty))
	for id := range s.dirty {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (s *Scene) IsDirty(id ObjectID) bool {
	_, ok := s.dirty[id]
	return ok
}

func (s *Scene) ClearDirty(ids ...ObjectID) {
	if len(ids) == 0 {
		clear(s.dirty)
		return
	}
	for _, id := range ids {
		delete(s.dirty, id)
	}
}

func (s *Scene) invalidateVertex(v VertexID) {
	for _, fid := range s.VertexFaces(v) {
		delete(s.normals, fid)
	}
}

// ---- layers ----

func (s *Scene) AddLayer(name string) LayerID {
	id := s.nextLayer
	s.nextLayer++
	s.touchLayer(id)
	s.touchOrder()
	s.layers[id] = &Layer{ID: id, Name: name, Visible: true}
	s.layerOrder = append(s.layerOrder, id)
	return id
}

// RemoveLayer deletes a layer with all of its objects. The last layer cannot
// be removed.
func (s *Scene) RemoveLayer(id LayerID) error {
	l, ok := s.layers[id]
	if !ok {
		return fmt.Errorf("layer %d: %w", id, ErrNotFound)
	}
	if len(s.layerOrder) == 1 {
		return fmt.Errorf("last layer: %w", ErrInvalidSelection)
	}
	for _, oid := range slices.Clone(l.Objects) {
		if _, ok := s.objects[oid]; ok {
			if err := s.RemoveObject(oid); err != nil {
				return err
			}
		}
	}
	s.touchLayer(id)
	s.touchOrder()
	delete(s.layers, id)
	s.layerOrder = slices.DeleteFunc(s.layerOrder, func(x LayerID) bool { return x == id })
	s.fixActiveLayer()
	return nil
}

func (s *Scene) fixActiveLayer() {
	if _, ok := s.layers[s.ActiveLayer]; !ok && len(s.layerOrder) > 0 {
		s.ActiveLayer = s.layerOrder[0]
	}
}

func (s *Scene) updateLayer(id LayerID, fn func(*Layer)) error {
	l, ok := s.layers[id]
	if !ok {
		return fmt.Errorf("layer %d: %w", id, ErrNotFound)
	}
	s.touchLayer(id)
	fn(l)
	for _, oid := range l.Objects {
		s.markDirty(oid)
	}
	return nil
}

func (s *Scene) SetLayerVisible(id LayerID, visible bool) error {
	return s.updateLayer(id, func(l *Layer) { l.Visible = visible })
}

func (s *Scene) SetLayerLocked(id LayerID, locked bool) error {
	return s.updateLayer(id, func(l *Layer) { l.Locked = locked })
}

func (s *Scene) RenameLayer(id LayerID, name string) error {
	return s.updateLayer(id, func(l *Layer) { l.Name = name })
}

// ---- objects ----

func (s *Scene) AddObject(layer LayerID, name string, tilesetID uint32) (ObjectID, error) {
	l, ok := s.layers[layer]
	if !ok {
		return 0, fmt.Errorf("layer %d: %w", layer, ErrNotFound)
	}
	id := s.nextObject
	s.nextObject++
	s.touchObject(id)
	s.touchLayer(layer)
	s.objects[id] = &Object{
		ID:        id,
		UUID:      uuid.New(),
		Name:      name,
		Layer:     layer,
		Transform: NewTransform(),
		TilesetID: tilesetID,
	}
	l.Objects = append(l.Objects, id)
	s.markDirty(id)
	return id, nil
}

// AddInstance creates an object rendering source's faces through its own
// transform. Instancing an instance binds to the original source.
func (s *Scene) AddInstance(source ObjectID, layer LayerID, name string, t Transform) (ObjectID, error) {
	root, err := s.GeometryOwner(source)
	if err != nil {
		return 0, err
	}
	id, err := s.AddObject(layer, name, s.objects[root].TilesetID)
	if err != nil {
		return 0, err
	}
	o := s.objects[id]
	o.Source = root
	o.Transform = t
	return id, nil
}

// RemoveObject deletes an object, its geometry and every instance of it.
func (s *Scene) RemoveObject(id ObjectID) error {
	o, ok := s.objects[id]
	if !ok {
		return fmt.Errorf("object %d: %w", id, ErrNotFound)
	}
	for _, inst := range s.Instances(id) {
		if err := s.RemoveObject(inst); err != nil {
			return err
		}
	}
	s.markDirty(id)
	for _, fid := range o.Faces {
		s.touchFace(fid)
		delete(s.faces, fid)
		delete(s.normals, fid)
	}
	for vid, v := range s.vertices {
		if v.Object == id {
			s.touchVertex(vid)
			delete(s.vertices, vid)
		}
	}
	if l, ok := s.layers[o.Layer]; ok {
		s.touchLayer(l.ID)
		l.Objects = slices.DeleteFunc(l.Objects, func(x ObjectID) bool { return x == id })
	}
	s.touchObject(id)
	delete(s.objects, id)
	return nil
}

func (s *Scene) updateObject(id ObjectID, fn func(*Object)) error {
	o, ok := s.objects[id]
	if !ok {
		return fmt.Errorf("object %d: %w", id, ErrNotFound)
	}
	s.touchObject(id)
	fn(o)
	s.markDirty(id)
	return nil
}

func (s *Scene) SetObjectTransform(id ObjectID, t Transform) error {
	return s.updateObject(id, func(o *Object) { o.Transform = t })
}

func (s *Scene) SetObjectName(id ObjectID, name string) error {
	return s.updateObject(id, func(o *Object) { o.Name = name })
}

// SetObjectSource rebinds an object. Zero detaches an instance; a non-zero
// source must be a source object and id must own no geometry.
func (s *Scene) SetObjectSource(id, source ObjectID) error {
	o, ok := s.objects[id]
	if !ok {
		return fmt.Errorf("object %d: %w", id, ErrNotFound)
	}
	if source != 0 {
		src, ok := s.objects[source]
		if !ok {
			return fmt.Errorf("source %d: %w", source, ErrNotFound)
		}
		if src.Source != 0 || source == id || len(o.Faces) > 0 || len(s.Instances(id)) > 0 {
			return fmt.Errorf("bind %d to %d: %w", id, source, ErrInvalidSelection)
		}
	}
	return s.updateObject(id, func(o *Object) { o.Source = source })
}

// ---- vertices ----

func (s *Scene) geometryObject(id ObjectID) (*Object, error) {
	o, ok := s.objects[id]
	if !ok {
		return nil, fmt.Errorf("object %d: %w", id, ErrNotFound)
	}
	if o.Source != 0 {
		return nil, fmt.Errorf("object %d: %w", id, ErrInstanceGeometry)
	}
	return o, nil
}

func (s *Scene) AddVertex(obj ObjectID, v Vertex) (VertexID, error) {
	if _, err := s.geometryObject(obj); err != nil {
		return 0, err
	}
	id := s.nextVertex
	s.nextVertex++
	s.touchVertex(id)
	v.Object = obj
	s.vertices[id] = &v
	s.markDirty(obj)
	return id, nil
}

func (s *Scene) updateVertex(id VertexID, fn func(*Vertex)) error {
	v, ok := s.vertices[id]
	if !ok {
		return fmt.Errorf("vertex %d: %w", id, ErrNotFound)
	}
	s.touchVertex(id)
	fn(v)
	s.invalidateVertex(id)
	s.markDirty(v.Object)
	return nil
}

func (s *Scene) SetVertexPosition(id VertexID, p mgl32.Vec3) error {
	return s.updateVertex(id, func(v *Vertex) { v.Position = p })
}

func (s *Scene) SetVertexUV(id VertexID, uv mgl32.Vec2) error {
	return s.updateVertex(id, func(v *Vertex) { v.UV = uv })
}

func (s *Scene) SetVertexColor(id VertexID, c mgl32.Vec4) error {
	return s.updateVertex(id, func(v *Vertex) { v.Color = c })
}

// RemoveVertex deletes an unreferenced vertex.
func (s *Scene) RemoveVertex(id VertexID) error {
	v, ok := s.vertices[id]
	if !ok {
		return fmt.Errorf("vertex %d: %w", id, ErrNotFound)
	}
	if len(s.VertexFaces(id)) > 0 {
		return fmt.Errorf("vertex %d still referenced: %w", id, ErrDanglingReference)
	}
	s.touchVertex(id)
	delete(s.vertices, id)
	s.markDirty(v.Object)
	return nil
}

// RemoveOrphanVertices deletes vertices of obj that no face references.
func (s *Scene) RemoveOrphanVertices(obj ObjectID) {
	used := make(map[VertexID]struct{})
	if o, ok := s.objects[obj]; ok {
		for _, fid := range o.Faces {
			for _, v := range s.faces[fid].Vertices {
				used[v] = struct{}{}
			}
		}
	}
	var orphans []VertexID
	for vid, v := range s.vertices {
		if _, ok := used[vid]; !ok && v.Object == obj {
			orphans = append(orphans, vid)
		}
	}
	if len(orphans) == 0 {
		return
	}
	slices.Sort(orphans)
	for _, vid := range orphans {
		s.touchVertex(vid)
		delete(s.vertices, vid)
	}
	s.markDirty(obj)
}

// ---- faces ----

// AddFace creates four fresh vertices and a face over them.
func (s *Scene) AddFace(obj ObjectID, verts [4]Vertex, tile TileRef, orient Orientation) (FaceID, error) {
	if _, err := s.geometryObject(obj); err != nil {
		return 0, err
	}
	var ids [4]VertexID
	for i, v := range verts {
		id, err := s.AddVertex(obj, v)
		if err != nil {
			return 0, err
		}
		ids[i] = id
	}
	return s.AddFaceFromVertices(obj, ids, tile, orient)
}

// AddFaceFromVertices appends a face over existing vertices of obj.
func (s *Scene) AddFaceFromVertices(obj ObjectID, ids [4]VertexID, tile TileRef, orient Orientation) (FaceID, error) {
	o, err := s.geometryObject(obj)
	if err != nil {
		return 0, err
	}
	if err := s.checkFaceVertices(obj, ids); err != nil {
		return 0, err
	}
	id := s.nextFace
	s.nextFace++
	s.touchFace(id)
	s.touchObject(obj)
	s.faces[id] = &Face{Vertices: ids, Tile: tile, Orientation: orient, Object: obj}
	o.Faces = append(o.Faces, id)
	s.markDirty(obj)
	return id, nil
}

func (s *Scene) checkFaceVertices(obj ObjectID, ids [4]VertexID) error {
	for _, vid := range ids {
		v, ok := s.vertices[vid]
		if !ok || v.Object != obj {
			return fmt.Errorf("vertex %d not in object %d: %w", vid, obj, ErrDanglingReference)
		}
	}
	return nil
}

// RemoveFace deletes a face and any vertex left unreferenced. The owning
// object is kept even when it becomes empty.
func (s *Scene) RemoveFace(id FaceID) error {
	f, ok := s.faces[id]
	if !ok {
		return fmt.Errorf("face %d: %w", id, ErrNotFound)
	}
	o, err := s.geometryObject(f.Object)
	if err != nil {
		return err
	}
	s.touchFace(id)
	s.touchObject(o.ID)
	delete(s.faces, id)
	delete(s.normals, id)
	o.Faces = slices.DeleteFunc(o.Faces, func(x FaceID) bool { return x == id })
	for _, vid := range f.Vertices {
		if _, ok := s.vertices[vid]; ok && len(s.VertexFaces(vid)) == 0 {
			s.touchVertex(vid)
			delete(s.vertices, vid)
		}
	}
	s.markDirty(o.ID)
	return nil
}

func (s *Scene) updateFace(id FaceID, fn func(*Face)) error {
	f, ok := s.faces[id]
	if !ok {
		return fmt.Errorf("face %d: %w", id, ErrNotFound)
	}
	s.touchFace(id)
	fn(f)
	delete(s.normals, id)
	s.markDirty(f.Object)
	return nil
}

// SetFaceVertices rewires the face's slots. Vertices dropped from the face
// are not removed; see RemoveOrphanVertices.
func (s *Scene) SetFaceVertices(id FaceID, ids [4]VertexID) error {
	f, ok := s.faces[id]
	if !ok {
		return fmt.Errorf("face %d: %w", id, ErrNotFound)
	}
	if err := s.checkFaceVertices(f.Object, ids); err != nil {
		return err
	}
	return s.updateFace(id, func(f *Face) { f.Vertices = ids })
}

func (s *Scene) SetFaceTile(id FaceID, tile TileRef, orient Orientation) error {
	return s.updateFace(id, func(f *Face) {
		f.Tile = tile
		f.Orientation = orient
	})
}

func (s *Scene) SetFaceHidden(id FaceID, hidden bool) error {
	return s.updateFace(id, func(f *Face) { f.Hidden = hidden })
}

// ReplaceVertex points every face slot of from's object that uses from at to.
// from is removed once unreferenced.
func (s *Scene) ReplaceVertex(from, to VertexID) error {
	vf, ok := s.vertices[from]
	if !ok {
		return fmt.Errorf("vertex %d: %w", from, ErrNotFound)
	}
	vt, ok := s.vertices[to]
	if !ok {
		return fmt.Errorf("vertex %d: %w", to, ErrNotFound)
	}
	if vf.Object != vt.Object {
		return fmt.Errorf("replace %d with %d across objects: %w", from, to, ErrInvalidSelection)
	}
	if from == to {
		return nil
	}
	for _, fid := range s.VertexFaces(from) {
		ids := s.faces[fid].Vertices
		for i := range ids {
			if ids[i] == from {
				ids[i] = to
			}
		}
		if err := s.SetFaceVertices(fid, ids); err != nil {
			return err
		}
	}
	return s.RemoveVertex(from)
}
