package importer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsImported = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orghierarchy",
		Subsystem: "importer",
		Name:      "records_total",
		Help:      "Imported organization records by outcome.",
	}, []string{"result"})

	pagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "orghierarchy",
		Subsystem: "importer",
		Name:      "pages_total",
		Help:      "Source API pages fetched.",
	})

	linkFetches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "orghierarchy",
		Subsystem: "importer",
		Name:      "link_fetches_total",
		Help:      "Extra HTTP requests made to resolve link-typed fields.",
	})

	recordDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "orghierarchy",
		Subsystem: "importer",
		Name:      "record_seconds",
		Help:      "Wall time spent importing one top-level record.",
		Buckets:   prometheus.DefBuckets,
	})
)
