package rewards

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
)

// Amounts are serialised as base-10 strings so that values above 2^53 survive
// JSON round trips unchanged.

type accumulatorJSON struct {
	RewardPerUnit string `json:"rewardPerUnit"`
	LastUpdated   string `json:"lastUpdated"`
}

// MarshalJSON implements json.Marshaler.
func (a *Accumulator) MarshalJSON() ([]byte, error) {
	payload := accumulatorJSON{
		RewardPerUnit: copyBigInt(a.RewardPerUnit).String(),
		LastUpdated:   strconv.FormatUint(a.LastUpdated, 10),
	}
	return json.Marshal(payload)
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Accumulator) UnmarshalJSON(data []byte) error {
	var payload accumulatorJSON
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	perUnit, err := parseAmount(payload.RewardPerUnit)
	if err != nil {
		return fmt.Errorf("accumulator rewardPerUnit: %w", err)
	}
	last, err := parseTimestamp(payload.LastUpdated)
	if err != nil {
		return fmt.Errorf("accumulator lastUpdated: %w", err)
	}
	a.RewardPerUnit = perUnit
	a.LastUpdated = last
	return nil
}

type participantJSON struct {
	StakedAmount  string `json:"stakedAmount"`
	SettledReward string `json:"settledReward"`
	Checkpoint    string `json:"checkpoint"`
}

// MarshalJSON implements json.Marshaler.
func (p *Participant) MarshalJSON() ([]byte, error) {
	payload := participantJSON{
		StakedAmount:  copyBigInt(p.StakedAmount).String(),
		SettledReward: copyBigInt(p.SettledReward).String(),
		Checkpoint:    copyBigInt(p.Checkpoint).String(),
	}
	return json.Marshal(payload)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Participant) UnmarshalJSON(data []byte) error {
	var payload participantJSON
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	staked, err := parseAmount(payload.StakedAmount)
	if err != nil {
		return fmt.Errorf("participant stakedAmount: %w", err)
	}
	settled, err := parseAmount(payload.SettledReward)
	if err != nil {
		return fmt.Errorf("participant settledReward: %w", err)
	}
	checkpoint, err := parseAmount(payload.Checkpoint)
	if err != nil {
		return fmt.Errorf("participant checkpoint: %w", err)
	}
	p.StakedAmount = staked
	p.SettledReward = settled
	p.Checkpoint = checkpoint
	return nil
}

func parseAmount(raw string) (*big.Int, error) {
	if raw == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return value, nil
}

func parseTimestamp(raw string) (uint64, error) {
	if raw == "" {
		return 0, nil
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q", raw)
	}
	ts, ok := checkedUint64(value)
	if !ok {
		return 0, fmt.Errorf("timestamp %q out of range", raw)
	}
	return ts, nil
}
