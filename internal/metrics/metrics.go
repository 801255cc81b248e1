// Package metrics exports hydration progress as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cemhyd/internal/core"
	"cemhyd/internal/hydration"
	"cemhyd/internal/phase"
)

const namespace = "cemhyd"

// Recorder holds the run metrics on its own registry.
type Recorder struct {
	reg *prometheus.Registry

	cycle       prometheus.Gauge
	hours       prometheus.Gauge
	temperature prometheus.Gauge
	alpha       *prometheus.GaugeVec
	heat        prometheus.Gauge
	pH          prometheus.Gauge
	set         prometheus.Gauge
	desiccating prometheus.Gauge
	voxels      *prometheus.GaugeVec
	connected   *prometheus.GaugeVec
	dissolved   *prometheus.CounterVec
	reacted     *prometheus.CounterVec
	placements  *prometheus.CounterVec
	substeps    prometheus.Histogram
}

// New returns a recorder with every metric registered. Go runtime and
// process collectors are included.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		cycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "cycle",
			Help: "Last completed hydration cycle.",
		}),
		hours: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "maturity_hours",
			Help: "Elapsed maturity time in hours.",
		}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "temperature_celsius",
			Help: "Paste temperature.",
		}),
		alpha: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "degree_of_hydration",
			Help: "Degree of hydration of the clinker on a volume or mass basis.",
		}, []string{"basis"}),
		heat: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "heat_released_kj_per_kg",
			Help: "Cumulative heat released per kg of cement.",
		}),
		pH: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "pore_solution_ph",
			Help: "Estimated pore solution pH.",
		}),
		set: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "paste_set",
			Help: "1 once the solid skeleton percolates along every axis.",
		}),
		desiccating: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "self_desiccating",
			Help: "1 while the paste self-desiccates.",
		}),
		voxels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "phase_voxels",
			Help: "Voxel count per phase.",
		}, []string{"phase"}),
		connected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "pore_connected",
			Help: "1 while capillary porosity spans the axis.",
		}, []string{"axis"}),
		dissolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "dissolved_voxels_total",
			Help: "Solid voxels dissolved, per phase.",
		}, []string{"phase"}),
		reacted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "reacted_species_total",
			Help: "Diffusing species that reacted, per species.",
		}, []string{"species"}),
		placements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "expansion_placements_total",
			Help: "Expansion voxels by outcome.",
		}, []string{"outcome"}),
		substeps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "diffusion_substeps",
			Help:    "Diffusion substeps run per cycle.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
	r.reg.MustRegister(
		r.cycle, r.hours, r.temperature, r.alpha, r.heat, r.pH, r.set, r.desiccating,
		r.voxels, r.connected, r.dissolved, r.reacted, r.placements, r.substeps,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry exposes the registry the metrics live on.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Handler serves the metrics in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// ObserveCycle implements hydration.Observer.
func (r *Recorder) ObserveCycle(_ context.Context, rep hydration.CycleReport) error {
	st := rep.State
	r.cycle.Set(float64(st.Cycle))
	r.hours.Set(st.Time)
	r.temperature.Set(st.Temperature)
	r.alpha.WithLabelValues("volume").Set(st.Alpha)
	r.alpha.WithLabelValues("mass").Set(st.AlphaMass)
	r.heat.Set(st.Heat)
	r.pH.Set(st.PH)
	r.set.Set(flag(st.Set))
	r.desiccating.Set(flag(st.Curing == hydration.SelfDesiccating))
	for k, c := range st.PoreConnected {
		r.connected.WithLabelValues(core.Axes[k].String()).Set(flag(c))
	}
	for _, p := range phase.All {
		r.voxels.WithLabelValues(p.String()).Set(float64(rep.Counts[p]))
	}
	if rep.Final {
		return nil
	}
	for _, p := range phase.All {
		if n := rep.Dissolution.Dissolved[p]; n > 0 {
			r.dissolved.WithLabelValues(p.String()).Add(float64(n))
		}
		if n := rep.Reaction.Reacted[p]; n > 0 {
			r.reacted.WithLabelValues(p.String()).Add(float64(n))
		}
	}
	r.placements.WithLabelValues("placed").Add(float64(rep.Reaction.Placed))
	r.placements.WithLabelValues("skipped").Add(float64(rep.Reaction.Skipped))
	r.placements.WithLabelValues("forced").Add(float64(rep.Reaction.Forced))
	r.placements.WithLabelValues("random").Add(float64(rep.Reaction.Fallbacks))
	r.placements.WithLabelValues("scan").Add(float64(rep.Reaction.Scans))
	r.substeps.Observe(float64(rep.Reaction.Substeps))
	return nil
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
