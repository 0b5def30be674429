package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	foodsUpsertedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_foods_upserted_total",
			Help: "Total number of food summaries upserted by the bulk sync",
		},
		[]string{"data_type"},
	)

	detailFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_detail_fetches_total",
			Help: "Total number of detail fetch attempts by result",
		},
		[]string{"result"},
	)

	detailDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_detail_dispatched_total",
			Help: "Total number of detail jobs dispatched by source job",
		},
		[]string{"job"},
	)
)
