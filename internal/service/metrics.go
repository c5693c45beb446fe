package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	GoldSold = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gold_sold_total",
			Help: "Gold debited by accepted sell requests",
		},
	)
	Payouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payouts_total",
			Help: "Sell payouts by outcome",
		},
		[]string{"status"},
	)
	Purchases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchases_total",
			Help: "Completed purchases by item and payment method",
		},
		[]string{"item", "method"},
	)
	CheatFlags = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anticheat_flags_total",
			Help: "Requests flagged by the anti-cheat checks",
		},
		[]string{"reason"},
	)
	PendingPayoutPlayers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pending_payout_players",
			Help: "Players with payouts still owed after the last reconciliation",
		},
	)
)

func init() {
	prometheus.MustRegister(GoldSold)
	prometheus.MustRegister(Payouts)
	prometheus.MustRegister(Purchases)
	prometheus.MustRegister(CheatFlags)
	prometheus.MustRegister(PendingPayoutPlayers)
}
