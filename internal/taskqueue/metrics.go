package taskqueue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskqueue_tasks_total",
			Help: "Total number of executed tasks by task name and result",
		},
		[]string{"task", "result"},
	)

	tasksPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskqueue_pending",
			Help: "Number of dispatched tasks not yet finished",
		},
	)
)
