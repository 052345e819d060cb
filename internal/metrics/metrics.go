package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// 竞价相关 Prometheus 指标
var (
	BidsPlacedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freightbid_bids_placed_total",
			Help: "Bids accepted into the ledger, by auction type",
		},
		[]string{"auction_type"},
	)

	BidsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freightbid_bids_rejected_total",
			Help: "Bid submissions refused, by reason",
		},
		[]string{"reason"},
	)

	AuctionExtensionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "freightbid_auction_extensions_total",
			Help: "Anti-sniping extensions applied",
		},
	)

	AwardsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freightbid_awards_total",
			Help: "Award attempts, by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	AuctionsExpiredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freightbid_auctions_expired_total",
			Help: "Auctions closed without award, by reason",
		},
		[]string{"reason"},
	)

	AwardDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "freightbid_award_duration_seconds",
			Help:    "Duration of the award transaction",
			Buckets: prometheus.DefBuckets,
		},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freightbid_http_requests_total",
			Help: "HTTP requests, by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "freightbid_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RealtimeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "freightbid_realtime_connections",
			Help: "Open websocket subscriptions",
		},
	)
)

var registerOnce sync.Once

// Register 注册全部指标，重复调用无副作用
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			BidsPlacedTotal,
			BidsRejectedTotal,
			AuctionExtensionsTotal,
			AwardsTotal,
			AuctionsExpiredTotal,
			AwardDuration,
			HTTPRequestsTotal,
			HTTPRequestDuration,
			RealtimeConnections,
		)
	})
}
