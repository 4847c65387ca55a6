package rewards

import "errors"

var (
	// ErrInvalidConfig rejects program parameters that cannot emit rewards.
	ErrInvalidConfig = errors.New("rewards engine: invalid program configuration")
	// ErrInsufficientStake rejects an unstake exceeding the bonded balance.
	ErrInsufficientStake = errors.New("rewards engine: insufficient staked balance")
	// ErrInsufficientClaimable rejects a claim exceeding the settled reward.
	ErrInsufficientClaimable = errors.New("rewards engine: insufficient claimable reward")
	// ErrTransferFailed wraps failures reported by the value-transfer vault.
	ErrTransferFailed = errors.New("rewards engine: asset transfer failed")

	errNilState      = errors.New("rewards engine: state not configured")
	errNilVault      = errors.New("rewards engine: vault not configured")
	errInvalidAmount = errors.New("rewards engine: amount must be positive")
)
