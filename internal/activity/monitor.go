package activity

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/silexa/hostctl/internal/hostd"
	"github.com/silexa/hostctl/internal/ids"
)

// IdleSeconds is a per-host gauge, labeled by host id, exposing the same
// value Host.GetIdleSeconds computes. +Inf (no activity yet) is reported
// as the largest representable float64 since Prometheus gauges don't
// special-case infinity well in graphing.
var IdleSeconds = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "hostctl",
	Name:      "host_idle_seconds",
	Help:      "Seconds since the last recorded activity on a host.",
}, []string{"host_id"})

func init() {
	prometheus.MustRegister(IdleSeconds)
}

// HostLister is the narrow surface Monitor needs to enumerate live hosts
// without depending on the full provider registry.
type HostLister interface {
	Hosts() map[ids.HostID]*hostd.Host
}

// Monitor periodically recomputes GetIdleSeconds for every host known to a
// HostLister and republishes it as a Prometheus gauge.
type Monitor struct {
	Lister HostLister
	Log    *slog.Logger
}

// Run polls every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		m.pollOnce()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) pollOnce() {
	for id, h := range m.Lister.Hosts() {
		idle, err := h.GetIdleSeconds()
		if err != nil {
			if m.Log != nil {
				m.Log.Warn("failed to compute idle seconds", "host", id, "error", err)
			}
			continue
		}
		if math.IsInf(idle, 1) {
			idle = math.MaxFloat64
		}
		IdleSeconds.WithLabelValues(string(id)).Set(idle)
	}
}
