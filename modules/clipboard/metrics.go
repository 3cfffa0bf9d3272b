package clipboard

import (
	"github.com/aukilabs/voxedit/messages"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const actionLabel = "action"

var clipboardActionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "clipboard_action_count",
	Help: "The number of clipboard actions by action.",
}, []string{
	actionLabel,
})

func instrumentAction(a messages.ClipboardAction) {
	clipboardActionCount.With(prometheus.Labels{
		actionLabel: a.String(),
	}).Inc()
}
