package models

import (
	"cmp"
	"math"
	"slices"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/voxedit/voxel"
)

const (
	ErrTypeInvalidCell = "invalid_cell"
	ErrTypeStoreFull   = "store_full"
)

// VoxelStore is a sparse octree of colored cells. Stored cells never overlap:
// setting a cell replaces everything it covers and erasing part of a stored
// cell splits it into its remaining children.
type VoxelStore struct {
	// The maximum number of stored cells. Zero means no limit.
	MaxCells int

	mutex sync.RWMutex
	cells map[voxel.Cell]voxel.RGB
}

func NewVoxelStore(maxCells int) *VoxelStore {
	return &VoxelStore{
		MaxCells: maxCells,
		cells:    make(map[voxel.Cell]voxel.RGB),
	}
}

// Get returns the color of the stored cell equal to c.
func (s *VoxelStore) Get(c voxel.Cell) (voxel.RGB, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	color, ok := s.cells[c]
	return color, ok
}

// ColorAt returns the stored cell that contains the given cell.
func (s *VoxelStore) ColorAt(c voxel.Cell) (voxel.Voxel, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.containing(c)
}

func (s *VoxelStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.cells)
}

// Voxels returns the stored cells, larger first then by position.
func (s *VoxelStore) Voxels() []voxel.Voxel {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	voxels := make([]voxel.Voxel, 0, len(s.cells))
	for c, color := range s.cells {
		voxels = append(voxels, voxel.Voxel{Cell: c, Color: color})
	}
	sortVoxels(voxels)
	return voxels
}

// Region returns the content of the given cell: the stored cells inside it,
// or the cell itself when a larger stored cell covers it.
func (s *VoxelStore) Region(region voxel.Cell) []voxel.Voxel {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if v, ok := s.containing(region); ok {
		return []voxel.Voxel{{Cell: region, Color: v.Color}}
	}

	var voxels []voxel.Voxel
	for c, color := range s.cells {
		if region.Contains(c) {
			voxels = append(voxels, voxel.Voxel{Cell: c, Color: color})
		}
	}
	sortVoxels(voxels)
	return voxels
}

// Erase removes the given cell from the store.
func (s *VoxelStore) Erase(c voxel.Cell) (voxel.Mutation, error) {
	m := voxel.Mutation{Kind: voxel.EraseMutation, Cell: c}
	if err := s.apply(m); err != nil {
		return voxel.Mutation{}, err
	}
	return m, nil
}

// Set stores the given cell, replacing what it covers.
func (s *VoxelStore) Set(c voxel.Cell, color voxel.RGB) (voxel.Mutation, error) {
	m := voxel.Mutation{Kind: voxel.SetMutation, Cell: c, Color: color}
	if err := s.apply(m); err != nil {
		return voxel.Mutation{}, err
	}
	return m, nil
}

// EraseThenSet erases then sets the given cell without letting other
// mutations in between. The store is left untouched when it fails.
func (s *VoxelStore) EraseThenSet(c voxel.Cell, color voxel.RGB) ([]voxel.Mutation, error) {
	mutations := []voxel.Mutation{
		{Kind: voxel.EraseMutation, Cell: c},
		{Kind: voxel.SetMutation, Cell: c, Color: color},
	}
	if !c.Valid() {
		return nil, invalidCellError(c)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	// Erasing then setting a cell stores as many cells as setting it.
	if !s.fits(c, true) {
		return nil, storeFullError(s.MaxCells)
	}

	for _, m := range mutations {
		s.mutate(m)
	}
	return mutations, nil
}

// Apply applies the given mutations in order, under a single lock. Each
// mutation is applied entirely or not at all. The mutations applied before a
// failure are returned with the error.
func (s *VoxelStore) Apply(mutations ...voxel.Mutation) ([]voxel.Mutation, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i, m := range mutations {
		if err := s.check(m); err != nil {
			return mutations[:i], err
		}
		s.mutate(m)
	}
	return mutations, nil
}

func (s *VoxelStore) apply(m voxel.Mutation) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.check(m); err != nil {
		return err
	}
	s.mutate(m)
	return nil
}

// check returns an error when the mutation cannot be applied to the store
// as it is.
func (s *VoxelStore) check(m voxel.Mutation) error {
	if !m.Cell.Valid() {
		return invalidCellError(m.Cell)
	}

	var set bool
	switch m.Kind {
	case voxel.EraseMutation:
	case voxel.SetMutation:
		set = true
	default:
		return errors.New("unknown mutation kind").
			WithTag("kind", m.Kind)
	}

	if !s.fits(m.Cell, set) {
		return storeFullError(s.MaxCells)
	}
	return nil
}

// fits reports whether the store stays within its capacity after erasing c,
// then storing it when set is true.
func (s *VoxelStore) fits(c voxel.Cell, set bool) bool {
	if s.MaxCells <= 0 {
		return true
	}

	n := len(s.cells)
	if ancestor, ok := s.containing(c); ok && ancestor.Cell != c {
		levels := int(math.Round(math.Log2(ancestor.Cell.Size / c.Size)))
		n += 7*levels - 1
	} else {
		for stored := range s.cells {
			if c.Contains(stored) {
				n--
			}
		}
	}

	if set {
		n++
	}
	return n <= s.MaxCells
}

// mutate applies a mutation that passed check.
func (s *VoxelStore) mutate(m voxel.Mutation) {
	s.erase(m.Cell)
	if m.Kind == voxel.SetMutation {
		if s.cells == nil {
			s.cells = make(map[voxel.Cell]voxel.RGB)
		}
		s.cells[m.Cell] = m.Color
	}
	instrumentMutation(m.Kind)
}

// FindRayIntersection returns the intersection of the ray with the closest
// stored cell it enters.
func (s *VoxelStore) FindRayIntersection(r voxel.Ray) voxel.Intersection {
	if !r.Valid() {
		return voxel.Intersection{}
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	best := math.Inf(1)
	var hit voxel.Intersection

	for c, color := range s.cells {
		t, _, ok := voxel.IntersectCell(r, c)
		if !ok || t >= best {
			continue
		}

		best = t
		hit = voxel.Intersect(r, c, color)
	}
	return hit
}

func (s *VoxelStore) erase(c voxel.Cell) {
	if ancestor, ok := s.containing(c); ok && ancestor.Cell != c {
		delete(s.cells, ancestor.Cell)
		s.split(ancestor.Cell, c, ancestor.Color)
		return
	}

	for stored := range s.cells {
		if c.Contains(stored) {
			delete(s.cells, stored)
		}
	}
}

// split stores the children of parent down to the size of hole, except the
// ones containing hole.
func (s *VoxelStore) split(parent, hole voxel.Cell, color voxel.RGB) {
	for parent.Size > hole.Size {
		var next voxel.Cell
		for _, child := range parent.Children() {
			if child.Contains(hole) {
				next = child
				continue
			}
			s.cells[child] = color
		}
		parent = next
	}
}

func (s *VoxelStore) containing(c voxel.Cell) (voxel.Voxel, bool) {
	for stored, color := range s.cells {
		if stored.Contains(c) {
			return voxel.Voxel{Cell: stored, Color: color}, true
		}
	}
	return voxel.Voxel{}, false
}

func sortVoxels(voxels []voxel.Voxel) {
	slices.SortFunc(voxels, func(a, b voxel.Voxel) int {
		if n := cmp.Compare(b.Cell.Size, a.Cell.Size); n != 0 {
			return n
		}
		for i := 0; i < 3; i++ {
			if n := cmp.Compare(a.Cell.Origin[i], b.Cell.Origin[i]); n != 0 {
				return n
			}
		}
		return 0
	})
}

func invalidCellError(c voxel.Cell) error {
	return errors.New("invalid cell").
		WithType(ErrTypeInvalidCell).
		WithTag("origin", c.Origin).
		WithTag("size", c.Size)
}

func storeFullError(max int) error {
	return errors.New("voxel store is full").
		WithType(ErrTypeStoreFull).
		WithTag("max_cells", max)
}
