package world

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics - Prometheus метрики генерации регионов и выборки чанков
type Metrics struct {
	regionBuild   prometheus.Histogram
	regionsCached prometheus.Gauge
	riversBuilt   prometheus.Counter
	nodesBuilt    prometheus.Counter
	chunksSampled prometheus.Counter
	samplesTotal  prometheus.Counter
	chunkDuration prometheus.Histogram
	buildFailures prometheus.Counter
}

// NewMetrics создает метрики и регистрирует их в reg. Если reg == nil, метрики не регистрируются.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		regionBuild: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rivergen",
			Name:      "region_build_seconds",
			Help:      "Длительность построения речной сети региона.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		regionsCached: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rivergen",
			Name:      "regions_cached",
			Help:      "Количество построенных регионов в памяти.",
		}),
		riversBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rivergen",
			Name:      "rivers_built_total",
			Help:      "Общее число рек, прошедших отбор.",
		}),
		nodesBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rivergen",
			Name:      "nodes_built_total",
			Help:      "Общее число узлов живых рек, включая озера.",
		}),
		chunksSampled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rivergen",
			Name:      "chunks_sampled_total",
			Help:      "Общее число обработанных чанков.",
		}),
		samplesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rivergen",
			Name:      "samples_total",
			Help:      "Общее число выборок по колонкам.",
		}),
		chunkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rivergen",
			Name:      "chunk_sample_seconds",
			Help:      "Длительность выборки одного чанка.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		buildFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rivergen",
			Name:      "region_build_failures_total",
			Help:      "Количество неудачных построений регионов.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.regionBuild, m.regionsCached, m.riversBuilt, m.nodesBuilt,
			m.chunksSampled, m.samplesTotal, m.chunkDuration, m.buildFailures,
		)
	}
	return m
}
