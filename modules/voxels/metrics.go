package voxels

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/voxedit/editor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	modeLabel    = "mode"
	errTypeLabel = "error_type"
)

var (
	voxelEditCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxel_edit_count",
		Help: "The number of voxel edits by editing mode.",
	}, []string{
		modeLabel,
	})

	voxelResolveErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxel_resolve_errors",
		Help: "The number of voxel targets that could not be resolved.",
	}, []string{
		errTypeLabel,
	})

	voxelStoreCells = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voxel_store_cells",
		Help:    "The number of cells in a session voxel store after an edit.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})
)

func instrumentEdit(mode editor.Mode, storeCells int) {
	voxelEditCount.With(prometheus.Labels{
		modeLabel: mode.String(),
	}).Inc()

	voxelStoreCells.Observe(float64(storeCells))
}

func instrumentResolveError(err error) {
	voxelResolveErrors.With(prometheus.Labels{
		errTypeLabel: errors.Type(err),
	}).Inc()
}
