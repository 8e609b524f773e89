package utils

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the reward counters exposed on /metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	xpGranted          prometheus.Counter
	coinsMoved         *prometheus.CounterVec
	achievementUnlocks *prometheus.CounterVec
	dailyClaims        prometheus.Counter
	recurringGenerated *prometheus.CounterVec
	shopPurchases      *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		xpGranted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nova",
			Name:      "xp_granted_total",
			Help:      "Experience points granted.",
		}),
		coinsMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nova",
			Name:      "coins_moved_total",
			Help:      "Absolute Nova Coins moved through the ledger.",
		}, []string{"direction"}),
		achievementUnlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nova",
			Name:      "achievements_unlocked_total",
			Help:      "First-time achievement unlocks.",
		}, []string{"achievement"}),
		dailyClaims: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nova",
			Name:      "daily_reward_claims_total",
			Help:      "Successful daily reward claims.",
		}),
		recurringGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nova",
			Name:      "recurring_instances_generated_total",
			Help:      "Task instances generated from recurring templates.",
		}, []string{"period"}),
		shopPurchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nova",
			Name:      "shop_purchases_total",
			Help:      "Shop items bought.",
		}, []string{"item"}),
	}
	reg.MustRegister(m.xpGranted, m.coinsMoved, m.achievementUnlocks, m.dailyClaims, m.recurringGenerated, m.shopPurchases)
	return m
}

func (m *Metrics) XPGranted(amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.xpGranted.Add(float64(amount))
}

func (m *Metrics) CoinsMoved(amount int64) {
	if m == nil || amount == 0 {
		return
	}
	if amount > 0 {
		m.coinsMoved.WithLabelValues("credit").Add(float64(amount))
		return
	}
	m.coinsMoved.WithLabelValues("debit").Add(float64(-amount))
}

func (m *Metrics) AchievementUnlocked(id string) {
	if m == nil {
		return
	}
	m.achievementUnlocks.WithLabelValues(id).Inc()
}

func (m *Metrics) DailyClaimed() {
	if m == nil {
		return
	}
	m.dailyClaims.Inc()
}

func (m *Metrics) RecurringGenerated(period string) {
	if m == nil {
		return
	}
	m.recurringGenerated.WithLabelValues(period).Inc()
}

func (m *Metrics) ShopPurchase(itemID string) {
	if m == nil {
		return
	}
	m.shopPurchases.WithLabelValues(itemID).Inc()
}
