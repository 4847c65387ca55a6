package rewards

import "math/big"

// Accumulator tracks the pool-wide reward accrued per staked unit, scaled by
// the fixed precision factor. RewardPerUnit never decreases; LastUpdated never
// exceeds min(now, program end).
type Accumulator struct {
	RewardPerUnit *big.Int
	LastUpdated   uint64
}

// NewAccumulator returns a zeroed accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{RewardPerUnit: big.NewInt(0)}
}

// Clone returns a deep copy of the accumulator.
func (a *Accumulator) Clone() *Accumulator {
	if a == nil {
		return NewAccumulator()
	}
	return &Accumulator{
		RewardPerUnit: copyBigInt(a.RewardPerUnit),
		LastUpdated:   a.LastUpdated,
	}
}

// Advance lazily folds the emission since LastUpdated into RewardPerUnit and
// reports whether the value moved. Calls before the program start, repeated
// calls within the same instant and calls after the interval is exhausted are
// no-ops.
//
// When totalStaked is zero the checkpoint deliberately does not move: the
// emission for a zero-stake stretch stays pending and is credited to whoever
// stakes first once stake becomes nonzero. The one exception is the stretch
// before the pool's very first stake, whose window the stake operation anchors
// at the stake instant, forfeiting that emission for good.
func (a *Accumulator) Advance(program *Program, now uint64, totalStaked *big.Int) bool {
	if a == nil || program == nil {
		return false
	}
	elapsed := program.RewardableElapsed(now, a.LastUpdated)
	if elapsed == 0 {
		return false
	}
	if totalStaked == nil || totalStaked.Sign() == 0 {
		return false
	}
	if a.RewardPerUnit == nil {
		a.RewardPerUnit = big.NewInt(0)
	}
	accrued := new(big.Int).Mul(scale, new(big.Int).SetUint64(elapsed))
	accrued = mulDivFloor(accrued, program.RatePerSecond, totalStaked)
	changed := accrued.Sign() > 0
	a.RewardPerUnit.Add(a.RewardPerUnit, accrued)
	a.LastUpdated = minUint64(now, program.End)
	return changed
}
