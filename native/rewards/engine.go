package rewards

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"stakepool/core/events"
	"stakepool/observability/metrics"
)

// EngineState describes the minimal persistence surface the rewards engine
// needs from the surrounding state implementation. Getters return nil for
// records that have never been written; returned values are owned by the
// caller, so implementations must hand out decoded copies, never shared
// references.
type EngineState interface {
	PoolAccumulator() (*Accumulator, error)
	PutPoolAccumulator(acc *Accumulator) error
	PoolTotalStaked() (*big.Int, error)
	PutPoolTotalStaked(total *big.Int) error
	Participant(addr [20]byte) (*Participant, error)
	PutParticipant(addr [20]byte, participant *Participant) error
}

// Vault is the value-transfer capability the engine consumes. Pull moves an
// amount of an asset from an external account into pool custody; Push moves
// it back out. Both are assumed atomic and non-reentrant, and both fail when
// the source balance is insufficient.
type Vault interface {
	Pull(from [20]byte, asset string, amount *big.Int) error
	Push(to [20]byte, asset string, amount *big.Int) error
}

// Engine orchestrates the staking reward state transitions. Every mutating
// operation executes advance -> settle(caller) -> mutate in that fixed order;
// settlement must see the stake amount that was in effect during the elapsed
// period, so the sequence is guarded by a single mutex and must never
// interleave.
type Engine struct {
	mu        sync.Mutex
	program   *Program
	state     EngineState
	vault     Vault
	emitter   events.Emitter
	telemetry *metrics.PoolMetrics
	nowFn     func() int64
}

// NewEngine constructs a rewards engine for the supplied program. The state
// backend and vault are wired separately via SetState and SetVault.
func NewEngine(program *Program) (*Engine, error) {
	if program == nil {
		return nil, fmt.Errorf("%w: program required", ErrInvalidConfig)
	}
	return &Engine{
		program:   program.Clone(),
		emitter:   events.NoopEmitter{},
		telemetry: metrics.Pool(),
		nowFn:     func() int64 { return time.Now().Unix() },
	}, nil
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state EngineState) { e.state = state }

// SetVault wires the engine to the value-transfer collaborator.
func (e *Engine) SetVault(vault Vault) { e.vault = vault }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source. Primarily intended for tests to
// provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Program returns a copy of the immutable emission parameters.
func (e *Engine) Program() *Program {
	if e == nil {
		return nil
	}
	return e.program.Clone()
}

func (e *Engine) now() uint64 {
	ts := e.nowFn()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func (e *Engine) emit(evt events.Event) {
	if e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

// loadPool fetches the accumulator and total stake, substituting zero values
// for records the backend has never seen.
func (e *Engine) loadPool() (*Accumulator, *big.Int, error) {
	acc, err := e.state.PoolAccumulator()
	if err != nil {
		return nil, nil, err
	}
	if acc == nil {
		acc = NewAccumulator()
	}
	total, err := e.state.PoolTotalStaked()
	if err != nil {
		return nil, nil, err
	}
	if total == nil {
		total = big.NewInt(0)
	}
	return acc, total, nil
}

// loadParticipant performs the get-or-create zero record lookup.
func (e *Engine) loadParticipant(addr [20]byte) (*Participant, error) {
	participant, err := e.state.Participant(addr)
	if err != nil {
		return nil, err
	}
	if participant == nil {
		participant = NewParticipant()
	}
	participant.normalize()
	return participant, nil
}

// advanceAndSettle runs the first two legs of the fixed operation order on
// in-memory copies. Nothing is persisted; callers commit after the operation
// specific mutation (and its transfer) succeeded.
func (e *Engine) advanceAndSettle(addr [20]byte, now uint64) (*Accumulator, *big.Int, *Participant, bool, *big.Int, error) {
	acc, total, err := e.loadPool()
	if err != nil {
		return nil, nil, nil, false, nil, err
	}
	participant, err := e.loadParticipant(addr)
	if err != nil {
		return nil, nil, nil, false, nil, err
	}
	accChanged := acc.Advance(e.program, now, total)
	accrued := participant.settle(acc.RewardPerUnit)
	return acc, total, participant, accChanged, accrued, nil
}

func (e *Engine) commit(addr [20]byte, acc *Accumulator, total *big.Int, participant *Participant) error {
	if err := e.state.PutPoolAccumulator(acc); err != nil {
		return err
	}
	if err := e.state.PutPoolTotalStaked(total); err != nil {
		return err
	}
	return e.state.PutParticipant(addr, participant)
}

func (e *Engine) emitAccounting(addr [20]byte, acc *Accumulator, total *big.Int, participant *Participant, accChanged bool, accrued *big.Int) {
	if accChanged {
		e.emit(events.PoolAccumulatorAdvanced{
			RewardPerUnit: copyBigInt(acc.RewardPerUnit),
			LastUpdated:   acc.LastUpdated,
			TotalStaked:   copyBigInt(total),
		})
		e.telemetry.ObserveAccumulator(acc.RewardPerUnit)
	}
	if accrued != nil && accrued.Sign() > 0 {
		e.emit(events.PoolParticipantSettled{
			Address:    addr,
			Accrued:    copyBigInt(accrued),
			Settled:    copyBigInt(participant.SettledReward),
			Checkpoint: copyBigInt(participant.Checkpoint),
		})
	}
}

// Stake pulls amount of the stake asset from the participant into custody and
// credits their bonded balance. The pull runs before any state is written, so
// a transfer failure leaves the pool untouched.
func (e *Engine) Stake(addr [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.vault == nil {
		return errNilVault
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	acc, total, participant, accChanged, accrued, err := e.advanceAndSettle(addr, now)
	if err != nil {
		return err
	}
	if err := e.vault.Pull(addr, e.program.StakeAsset, amount); err != nil {
		return fmt.Errorf("%w: pull %s: %v", ErrTransferFailed, e.program.StakeAsset, err)
	}
	if total.Sign() == 0 && acc.LastUpdated == 0 && now > e.program.Start {
		// Very first stake of the program: emission before this instant was
		// never backed by stake and is forfeited, so the accrual window opens
		// here. Later zero-stake stretches keep their frozen checkpoint and
		// are deferred to the next staker instead.
		acc.LastUpdated = minUint64(now, e.program.End)
	}
	total.Add(total, amount)
	participant.StakedAmount.Add(participant.StakedAmount, amount)
	if err := e.commit(addr, acc, total, participant); err != nil {
		return err
	}

	e.emitAccounting(addr, acc, total, participant, accChanged, accrued)
	e.emit(events.PoolStaked{
		Address:     addr,
		Amount:      copyBigInt(amount),
		NewStaked:   copyBigInt(participant.StakedAmount),
		TotalStaked: copyBigInt(total),
	})
	e.telemetry.ObserveStake(total)
	return nil
}

// Unstake releases amount of the stake asset from custody back to the
// participant. It fails when amount exceeds the bonded balance.
func (e *Engine) Unstake(addr [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.vault == nil {
		return errNilVault
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	acc, total, participant, accChanged, accrued, err := e.advanceAndSettle(addr, e.now())
	if err != nil {
		return err
	}
	if participant.StakedAmount.Cmp(amount) < 0 {
		return ErrInsufficientStake
	}
	if err := e.vault.Push(addr, e.program.StakeAsset, amount); err != nil {
		return fmt.Errorf("%w: push %s: %v", ErrTransferFailed, e.program.StakeAsset, err)
	}
	total.Sub(total, amount)
	participant.StakedAmount.Sub(participant.StakedAmount, amount)
	if err := e.commit(addr, acc, total, participant); err != nil {
		return err
	}

	e.emitAccounting(addr, acc, total, participant, accChanged, accrued)
	e.emit(events.PoolUnstaked{
		Address:     addr,
		Amount:      copyBigInt(amount),
		NewStaked:   copyBigInt(participant.StakedAmount),
		TotalStaked: copyBigInt(total),
	})
	e.telemetry.ObserveUnstake(total)
	return nil
}

// Claim settles the participant and pays out amount of the reward asset.
// Claiming exactly the full settled amount succeeds; anything beyond it is
// rejected with ErrInsufficientClaimable.
func (e *Engine) Claim(addr [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.claimLocked(addr, amount)
}

// ClaimAll settles the participant and drains their entire settled reward,
// returning the amount paid. A participant with nothing settled receives a
// zero payout and no transfer occurs.
func (e *Engine) ClaimAll(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	acc, total, participant, accChanged, accrued, err := e.advanceAndSettle(addr, e.now())
	if err != nil {
		return nil, err
	}
	amount := copyBigInt(participant.SettledReward)
	if amount.Sign() == 0 {
		if err := e.commit(addr, acc, total, participant); err != nil {
			return nil, err
		}
		e.emitAccounting(addr, acc, total, participant, accChanged, accrued)
		return big.NewInt(0), nil
	}
	if err := e.payClaim(addr, acc, total, participant, accChanged, accrued, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

func (e *Engine) claimLocked(addr [20]byte, amount *big.Int) error {
	acc, total, participant, accChanged, accrued, err := e.advanceAndSettle(addr, e.now())
	if err != nil {
		return err
	}
	if participant.SettledReward.Cmp(amount) < 0 {
		return ErrInsufficientClaimable
	}
	return e.payClaim(addr, acc, total, participant, accChanged, accrued, amount)
}

func (e *Engine) payClaim(addr [20]byte, acc *Accumulator, total *big.Int, participant *Participant, accChanged bool, accrued, amount *big.Int) error {
	if e.vault == nil {
		return errNilVault
	}
	if err := e.vault.Push(addr, e.program.RewardAsset, amount); err != nil {
		return fmt.Errorf("%w: push %s: %v", ErrTransferFailed, e.program.RewardAsset, err)
	}
	participant.SettledReward.Sub(participant.SettledReward, amount)
	if err := e.commit(addr, acc, total, participant); err != nil {
		return err
	}

	e.emitAccounting(addr, acc, total, participant, accChanged, accrued)
	e.emit(events.PoolRewardClaimed{
		Address:   addr,
		Amount:    copyBigInt(amount),
		Remaining: copyBigInt(participant.SettledReward),
	})
	e.telemetry.ObserveClaim(amount)
	return nil
}

// Settle advances the accumulator, folds the participant's newly accrued
// reward into their settled balance and returns the total claimable amount.
func (e *Engine) Settle(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	acc, total, participant, accChanged, accrued, err := e.advanceAndSettle(addr, e.now())
	if err != nil {
		return nil, err
	}
	if err := e.commit(addr, acc, total, participant); err != nil {
		return nil, err
	}
	e.emitAccounting(addr, acc, total, participant, accChanged, accrued)
	return copyBigInt(participant.SettledReward), nil
}

// TotalStaked returns the pool-wide bonded balance.
func (e *Engine) TotalStaked() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, total, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	return copyBigInt(total), nil
}

// StakedAmount returns the bonded balance for a participant.
func (e *Engine) StakedAmount(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	participant, err := e.loadParticipant(addr)
	if err != nil {
		return nil, err
	}
	return copyBigInt(participant.StakedAmount), nil
}

// ClaimableReward computes the reward the participant could claim right now.
// The computation runs on copies and never mutates state.
func (e *Engine) ClaimableReward(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	acc, total, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	participant, err := e.loadParticipant(addr)
	if err != nil {
		return nil, err
	}
	projected := acc.Clone()
	projected.Advance(e.program, e.now(), total)
	shadow := participant.Clone()
	shadow.settle(projected.RewardPerUnit)
	return copyBigInt(shadow.SettledReward), nil
}
