package events

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"stakepool/core/types"
)

const (
	// TypePoolStaked captures a stake deposit credited to a participant.
	TypePoolStaked = "pool.staked"
	// TypePoolUnstaked captures a stake withdrawal released to a participant.
	TypePoolUnstaked = "pool.unstaked"
	// TypePoolRewardClaimed is emitted when settled rewards leave custody.
	TypePoolRewardClaimed = "pool.rewardClaimed"
	// TypePoolAccumulatorAdvanced signals that the reward-per-unit accumulator moved.
	TypePoolAccumulatorAdvanced = "pool.accumulatorAdvanced"
	// TypePoolParticipantSettled captures newly accrued reward credited at settlement.
	TypePoolParticipantSettled = "pool.participantSettled"
)

// PoolStaked captures the post-state of a stake deposit.
type PoolStaked struct {
	Address     [20]byte
	Amount      *big.Int
	NewStaked   *big.Int
	TotalStaked *big.Int
}

// EventType satisfies the Event interface.
func (PoolStaked) EventType() string { return TypePoolStaked }

// Event converts the structured payload into a broadcastable event.
func (e PoolStaked) Event() *types.Event {
	return &types.Event{Type: TypePoolStaked, Attributes: map[string]string{
		"addr":        formatAddress(e.Address),
		"amount":      formatAmount(e.Amount),
		"newStaked":   formatAmount(e.NewStaked),
		"totalStaked": formatAmount(e.TotalStaked),
	}}
}

// PoolUnstaked captures the post-state of a stake withdrawal.
type PoolUnstaked struct {
	Address     [20]byte
	Amount      *big.Int
	NewStaked   *big.Int
	TotalStaked *big.Int
}

// EventType satisfies the Event interface.
func (PoolUnstaked) EventType() string { return TypePoolUnstaked }

// Event converts the structured payload into a broadcastable event.
func (e PoolUnstaked) Event() *types.Event {
	return &types.Event{Type: TypePoolUnstaked, Attributes: map[string]string{
		"addr":        formatAddress(e.Address),
		"amount":      formatAmount(e.Amount),
		"newStaked":   formatAmount(e.NewStaked),
		"totalStaked": formatAmount(e.TotalStaked),
	}}
}

// PoolRewardClaimed captures a reward payout for a participant.
type PoolRewardClaimed struct {
	Address   [20]byte
	Amount    *big.Int
	Remaining *big.Int
}

// EventType satisfies the Event interface.
func (PoolRewardClaimed) EventType() string { return TypePoolRewardClaimed }

// Event converts the structured payload into a broadcastable event.
func (e PoolRewardClaimed) Event() *types.Event {
	return &types.Event{Type: TypePoolRewardClaimed, Attributes: map[string]string{
		"addr":      formatAddress(e.Address),
		"amount":    formatAmount(e.Amount),
		"remaining": formatAmount(e.Remaining),
	}}
}

// PoolAccumulatorAdvanced carries the accumulator post-state after an advance.
type PoolAccumulatorAdvanced struct {
	RewardPerUnit *big.Int
	LastUpdated   uint64
	TotalStaked   *big.Int
}

// EventType satisfies the Event interface.
func (PoolAccumulatorAdvanced) EventType() string { return TypePoolAccumulatorAdvanced }

// Event converts the structured payload into a broadcastable event.
func (e PoolAccumulatorAdvanced) Event() *types.Event {
	return &types.Event{Type: TypePoolAccumulatorAdvanced, Attributes: map[string]string{
		"rewardPerUnit": formatAmount(e.RewardPerUnit),
		"lastUpdated":   strconv.FormatUint(e.LastUpdated, 10),
		"totalStaked":   formatAmount(e.TotalStaked),
	}}
}

// PoolParticipantSettled captures the reward accrued for a participant at the
// moment their checkpoint advanced.
type PoolParticipantSettled struct {
	Address    [20]byte
	Accrued    *big.Int
	Settled    *big.Int
	Checkpoint *big.Int
}

// EventType satisfies the Event interface.
func (PoolParticipantSettled) EventType() string { return TypePoolParticipantSettled }

// Event converts the structured payload into a broadcastable event.
func (e PoolParticipantSettled) Event() *types.Event {
	return &types.Event{Type: TypePoolParticipantSettled, Attributes: map[string]string{
		"addr":       formatAddress(e.Address),
		"accrued":    formatAmount(e.Accrued),
		"settled":    formatAmount(e.Settled),
		"checkpoint": formatAmount(e.Checkpoint),
	}}
}

func formatAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
