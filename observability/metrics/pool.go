package metrics

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PoolMetrics instruments the staking reward pool's state transitions.
type PoolMetrics struct {
	stakes        prometheus.Counter
	unstakes      prometheus.Counter
	claims        prometheus.Counter
	claimedWei    prometheus.Counter
	totalStaked   prometheus.Gauge
	rewardPerUnit prometheus.Gauge
}

var (
	poolOnce     sync.Once
	poolRegistry *PoolMetrics
)

// Pool returns the process-wide pool metrics, registering the collectors on
// first use.
func Pool() *PoolMetrics {
	poolOnce.Do(func() {
		poolRegistry = &PoolMetrics{
			stakes: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "pool_stakes_total",
				Help: "Count of committed stake operations.",
			}),
			unstakes: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "pool_unstakes_total",
				Help: "Count of committed unstake operations.",
			}),
			claims: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "pool_claims_total",
				Help: "Count of committed reward claims.",
			}),
			claimedWei: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "pool_claimed_reward_wei_total",
				Help: "Cumulative reward units paid out by claims.",
			}),
			totalStaked: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "pool_total_staked",
				Help: "Current pool-wide bonded stake.",
			}),
			rewardPerUnit: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "pool_reward_per_unit",
				Help: "Current scaled reward-per-unit accumulator value.",
			}),
		}
		prometheus.MustRegister(
			poolRegistry.stakes,
			poolRegistry.unstakes,
			poolRegistry.claims,
			poolRegistry.claimedWei,
			poolRegistry.totalStaked,
			poolRegistry.rewardPerUnit,
		)
	})
	return poolRegistry
}

// ObserveStake records a committed stake and the resulting total.
func (m *PoolMetrics) ObserveStake(total *big.Int) {
	if m == nil {
		return
	}
	m.stakes.Inc()
	m.totalStaked.Set(bigFloat(total))
}

// ObserveUnstake records a committed unstake and the resulting total.
func (m *PoolMetrics) ObserveUnstake(total *big.Int) {
	if m == nil {
		return
	}
	m.unstakes.Inc()
	m.totalStaked.Set(bigFloat(total))
}

// ObserveClaim records a committed claim payout.
func (m *PoolMetrics) ObserveClaim(amount *big.Int) {
	if m == nil {
		return
	}
	m.claims.Inc()
	m.claimedWei.Add(bigFloat(amount))
}

// ObserveAccumulator records the accumulator value after an advance.
func (m *PoolMetrics) ObserveAccumulator(rewardPerUnit *big.Int) {
	if m == nil {
		return
	}
	m.rewardPerUnit.Set(bigFloat(rewardPerUnit))
}

func bigFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
