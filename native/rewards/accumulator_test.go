package rewards

import (
	"math/big"
	"testing"
)

func TestAdvanceAccruesScaledEmission(t *testing.T) {
	total := new(big.Int).Mul(big.NewInt(10), scale)
	program := mustProgram(t, 1000, 1_001_000, total) // rate 1e13/sec
	acc := NewAccumulator()
	staked := new(big.Int).Set(scale) // 1e18 staked

	if !acc.Advance(program, 101_000, staked) {
		t.Fatalf("expected accumulator to move")
	}
	// 1e18 * 100000 * 1e13 / 1e18 = 1e18
	want := new(big.Int).Set(scale)
	if acc.RewardPerUnit.Cmp(want) != 0 {
		t.Fatalf("rewardPerUnit = %s, want %s", acc.RewardPerUnit, want)
	}
	if acc.LastUpdated != 101_000 {
		t.Fatalf("lastUpdated = %d, want 101000", acc.LastUpdated)
	}
}

func TestAdvanceIdempotentWithinSameInstant(t *testing.T) {
	program := mustProgram(t, 1000, 2000, big.NewInt(1_000_000))
	acc := NewAccumulator()
	staked := big.NewInt(500)

	acc.Advance(program, 1500, staked)
	before := new(big.Int).Set(acc.RewardPerUnit)
	if acc.Advance(program, 1500, staked) {
		t.Fatalf("second advance at the same instant must be a no-op")
	}
	if acc.RewardPerUnit.Cmp(before) != 0 {
		t.Fatalf("rewardPerUnit moved: %s -> %s", before, acc.RewardPerUnit)
	}
}

func TestAdvanceNoOpBeforeStart(t *testing.T) {
	program := mustProgram(t, 1000, 2000, big.NewInt(1_000_000))
	acc := NewAccumulator()
	if acc.Advance(program, 999, big.NewInt(100)) {
		t.Fatalf("advance before start must be a no-op")
	}
	if acc.LastUpdated != 0 {
		t.Fatalf("lastUpdated moved to %d before start", acc.LastUpdated)
	}
}

func TestAdvanceFreezesCheckpointWithZeroStake(t *testing.T) {
	program := mustProgram(t, 1000, 2000, big.NewInt(1_000_000))
	acc := NewAccumulator()
	acc.Advance(program, 1200, big.NewInt(100))
	frozen := acc.LastUpdated

	if acc.Advance(program, 1500, big.NewInt(0)) {
		t.Fatalf("advance with zero stake must not move the value")
	}
	if acc.LastUpdated != frozen {
		t.Fatalf("lastUpdated advanced during zero-stake stretch: %d -> %d", frozen, acc.LastUpdated)
	}

	// The frozen stretch is credited in full once stake returns.
	acc.Advance(program, 1500, big.NewInt(100))
	if acc.LastUpdated != 1500 {
		t.Fatalf("lastUpdated = %d, want 1500", acc.LastUpdated)
	}
}

func TestAdvanceClampsAtEnd(t *testing.T) {
	program := mustProgram(t, 1000, 2000, big.NewInt(1_000_000))
	acc := NewAccumulator()
	staked := big.NewInt(1000)

	acc.Advance(program, 5000, staked)
	if acc.LastUpdated != 2000 {
		t.Fatalf("lastUpdated = %d, want clamp at end", acc.LastUpdated)
	}
	after := new(big.Int).Set(acc.RewardPerUnit)
	if acc.Advance(program, 9000, staked) {
		t.Fatalf("advance past end must be a no-op")
	}
	if acc.RewardPerUnit.Cmp(after) != 0 {
		t.Fatalf("rewardPerUnit moved after end")
	}
}

func TestAdvanceMonotonic(t *testing.T) {
	program := mustProgram(t, 1000, 1_001_000, new(big.Int).Mul(big.NewInt(10), scale))
	acc := NewAccumulator()
	staked := new(big.Int).Mul(big.NewInt(3), scale)

	prev := new(big.Int)
	for _, now := range []uint64{900, 1000, 1001, 5000, 5000, 400_000, 1_000_999, 1_001_000, 2_000_000} {
		acc.Advance(program, now, staked)
		if acc.RewardPerUnit.Cmp(prev) < 0 {
			t.Fatalf("rewardPerUnit decreased at now=%d: %s -> %s", now, prev, acc.RewardPerUnit)
		}
		prev.Set(acc.RewardPerUnit)
	}
}
