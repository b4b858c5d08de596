package merge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeCreated = "created"
	outcomeUpdated = "updated"
	outcomeSkipped = "skipped"
)

var (
	usersMerged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unifeed_merge_users_total",
		Help: "user entity merges by outcome",
	}, []string{"outcome"})

	statusesMerged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unifeed_merge_statuses_total",
		Help: "status entity merges by outcome",
	}, []string{"outcome"})

	relationshipsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unifeed_merge_relationships_total",
		Help: "relationship query results applied",
	})
)
