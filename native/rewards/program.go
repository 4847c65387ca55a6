package rewards

import (
	"fmt"
	"math/big"
	"strings"
)

// Program holds the immutable emission parameters for a reward pool: the
// staked and reward asset identifiers, the accrual interval and the constant
// per-second emission rate derived at construction.
type Program struct {
	StakeAsset    string
	RewardAsset   string
	Start         uint64
	End           uint64
	TotalRewards  *big.Int
	RatePerSecond *big.Int
}

// NewProgram validates the supplied parameters and derives the per-second
// emission rate. The rate is truncated, so RatePerSecond*(End-Start) never
// exceeds TotalRewards; a rate that truncates to zero is rejected as a
// misconfiguration because it would emit nothing.
func NewProgram(stakeAsset, rewardAsset string, start, end uint64, totalRewards *big.Int) (*Program, error) {
	stakeAsset = strings.TrimSpace(stakeAsset)
	rewardAsset = strings.TrimSpace(rewardAsset)
	if stakeAsset == "" || rewardAsset == "" {
		return nil, fmt.Errorf("%w: asset identifiers required", ErrInvalidConfig)
	}
	if end <= start {
		return nil, fmt.Errorf("%w: end %d must be after start %d", ErrInvalidConfig, end, start)
	}
	if totalRewards == nil || totalRewards.Sign() <= 0 {
		return nil, fmt.Errorf("%w: total rewards must be positive", ErrInvalidConfig)
	}
	duration := new(big.Int).SetUint64(end - start)
	rate := new(big.Int).Quo(totalRewards, duration)
	if rate.Sign() == 0 {
		return nil, fmt.Errorf("%w: emission rate truncates to zero", ErrInvalidConfig)
	}
	return &Program{
		StakeAsset:    stakeAsset,
		RewardAsset:   rewardAsset,
		Start:         start,
		End:           end,
		TotalRewards:  copyBigInt(totalRewards),
		RatePerSecond: rate,
	}, nil
}

// Duration returns the interval length in seconds.
func (p *Program) Duration() uint64 {
	if p == nil || p.End <= p.Start {
		return 0
	}
	return p.End - p.Start
}

// RewardableElapsed returns the number of seconds between the supplied
// checkpoint and now that count toward reward accrual. Time before Start and
// after End is clamped away, so a call made at or past End only credits up to
// End and a call before Start credits nothing.
func (p *Program) RewardableElapsed(now, last uint64) uint64 {
	if p == nil || now < p.Start {
		return 0
	}
	to := minUint64(now, p.End)
	from := maxUint64(last, p.Start)
	if to <= from {
		return 0
	}
	return to - from
}

// Clone returns a deep copy of the program.
func (p *Program) Clone() *Program {
	if p == nil {
		return nil
	}
	return &Program{
		StakeAsset:    p.StakeAsset,
		RewardAsset:   p.RewardAsset,
		Start:         p.Start,
		End:           p.End,
		TotalRewards:  copyBigInt(p.TotalRewards),
		RatePerSecond: copyBigInt(p.RatePerSecond),
	}
}
