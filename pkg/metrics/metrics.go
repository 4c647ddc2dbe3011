// Package metrics holds the process wide prometheus collectors.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "insightchat"

type Metrics struct {
	Questions      prometheus.Counter
	QuestionFails  prometheus.Counter
	AnalyzeSeconds prometheus.Histogram
	Restored       prometheus.Counter
	Resets         prometheus.Counter
	HistoryLoads   prometheus.Counter
	HistoryFails   prometheus.Counter
	Sessions       prometheus.Gauge
}

var (
	once   sync.Once
	global *Metrics
)

func Global() *Metrics {
	once.Do(func() {
		global = &Metrics{
			Questions: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "questions_total",
				Help:      "Total questions sent to the analysis backend",
			}),
			QuestionFails: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "question_failures_total",
				Help:      "Total questions answered with an error turn",
			}),
			AnalyzeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analyze_duration_seconds",
				Help:      "Wall time of analyze calls",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			}),
			Restored: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversations_restored_total",
				Help:      "Total conversations restored from a snapshot on page load",
			}),
			Resets: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversations_reset_total",
				Help:      "Total new conversations started",
			}),
			HistoryLoads: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_loads_total",
				Help:      "Total history page refreshes",
			}),
			HistoryFails: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_failures_total",
				Help:      "Total history refreshes that failed",
			}),
			Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions",
				Help:      "Browser sessions held in memory",
			}),
		}
		prometheus.MustRegister(global.Questions, global.QuestionFails, global.AnalyzeSeconds,
			global.Restored, global.Resets, global.HistoryLoads, global.HistoryFails, global.Sessions)
	})
	return global
}
