package rewards

import "math/big"

// Participant holds a staker's bonded balance, the reward settled but not yet
// claimed, and the accumulator checkpoint observed at the last settlement. A
// participant that has never interacted is represented by the zero record.
type Participant struct {
	StakedAmount  *big.Int
	SettledReward *big.Int
	Checkpoint    *big.Int
}

// NewParticipant returns the zero-valued record used for first interactions.
func NewParticipant() *Participant {
	return &Participant{
		StakedAmount:  big.NewInt(0),
		SettledReward: big.NewInt(0),
		Checkpoint:    big.NewInt(0),
	}
}

// Clone returns a deep copy of the participant record.
func (p *Participant) Clone() *Participant {
	if p == nil {
		return NewParticipant()
	}
	return &Participant{
		StakedAmount:  copyBigInt(p.StakedAmount),
		SettledReward: copyBigInt(p.SettledReward),
		Checkpoint:    copyBigInt(p.Checkpoint),
	}
}

func (p *Participant) normalize() {
	if p.StakedAmount == nil {
		p.StakedAmount = big.NewInt(0)
	}
	if p.SettledReward == nil {
		p.SettledReward = big.NewInt(0)
	}
	if p.Checkpoint == nil {
		p.Checkpoint = big.NewInt(0)
	}
}

// settle folds the reward accrued since the participant's checkpoint into
// SettledReward and stamps the checkpoint. It must run before the staked
// amount changes, using the balance that was in effect over the elapsed
// period, and returns the newly accrued amount.
func (p *Participant) settle(rewardPerUnit *big.Int) *big.Int {
	p.normalize()
	if rewardPerUnit == nil {
		return big.NewInt(0)
	}
	delta := new(big.Int).Sub(rewardPerUnit, p.Checkpoint)
	accrued := big.NewInt(0)
	if delta.Sign() > 0 && p.StakedAmount.Sign() > 0 {
		accrued = mulDivFloor(p.StakedAmount, delta, scale)
		p.SettledReward.Add(p.SettledReward, accrued)
	}
	p.Checkpoint.Set(rewardPerUnit)
	return accrued
}
