package voxel

// MutationKind is the kind of change applied to a voxel store.
type MutationKind string

const (
	EraseMutation MutationKind = "erase"
	SetMutation   MutationKind = "set"
)

// Mutation is a change applied to a voxel store. Replaying the mutations of a
// store in order on an empty store rebuilds it.
type Mutation struct {
	Kind  MutationKind `json:"kind"`
	Cell  Cell         `json:"cell"`
	Color RGB          `json:"color"`
}

// Voxel is a colored cell.
type Voxel struct {
	Cell  Cell `json:"cell"`
	Color RGB  `json:"color"`
}
