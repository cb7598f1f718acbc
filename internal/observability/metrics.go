package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SocialGraphOps counts follow graph mutations by operation and outcome.
	SocialGraphOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_social_graph_operations_total",
		Help: "Follow and unfollow operations by outcome",
	}, []string{"operation", "outcome"})

	// AuthEvents counts authentication events (register, login, logout, reset) by outcome.
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_auth_events_total",
		Help: "Authentication events by type and outcome",
	}, []string{"event", "outcome"})

	// LikeEvents counts like attempts by outcome.
	LikeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_like_events_total",
		Help: "Like attempts by outcome",
	}, []string{"outcome"})

	// CacheLookups counts cache-aside lookups by key prefix and result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_cache_lookups_total",
		Help: "Cache-aside lookups by prefix and result",
	}, []string{"prefix", "result"})
)
