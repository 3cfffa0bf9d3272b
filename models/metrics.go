package models

import (
	"github.com/aukilabs/voxedit/voxel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	appKeyLabel   = "app_key"
	mutationLabel = "kind"
)

var (
	sessionCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "session_count",
		Help: "The number of sessions.",
	}, []string{appKeyLabel})

	sessionCountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_count_total",
		Help: "The total number of sessions.",
	}, []string{appKeyLabel})

	voxelMutationCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxel_mutation_count",
		Help: "The number of mutations applied to voxel stores.",
	}, []string{mutationLabel})

	voxelBroadcastMutationCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxel_broadcast_mutation_count",
		Help: "The number of mutations broadcasted to session participants.",
	})
)

func instrumentIncreaseSessionGauge(appKey string) {
	sessionCount.
		With(prometheus.Labels{appKeyLabel: appKey}).
		Inc()
}

func instrumentDecreaseSessionGauge(appKey string) {
	sessionCount.
		With(prometheus.Labels{appKeyLabel: appKey}).
		Dec()
}

func instrumentCountSession(appKey string) {
	sessionCountTotal.
		With(prometheus.Labels{appKeyLabel: appKey}).
		Inc()
}

func instrumentMutation(kind voxel.MutationKind) {
	voxelMutationCount.
		With(prometheus.Labels{mutationLabel: string(kind)}).
		Inc()
}

func instrumentBroadcastMutations(count int) {
	voxelBroadcastMutationCount.Add(float64(count))
}
