package action

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	kindFollow = "follow"
	kindBlock  = "block"
	kindMute   = "mute"
	kindLike   = "like"
	kindRepost = "repost"

	outcomeConfirmed  = "confirmed"
	outcomeRolledBack = "rolled_back"
	outcomeRejected   = "rejected"
)

var actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "unifeed_actions_total",
	Help: "social actions by kind and outcome",
}, []string{"kind", "outcome"})
