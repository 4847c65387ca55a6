package bank

import (
	"errors"
	"math/big"
	"strings"
	"sync"
)

var (
	// ErrInsufficientBalance rejects a pull exceeding the account balance.
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	// ErrInsufficientCustody rejects a push exceeding the pooled custody.
	ErrInsufficientCustody = errors.New("bank: insufficient custody balance")

	errInvalidAsset  = errors.New("bank: asset identifier required")
	errInvalidAmount = errors.New("bank: amount must be positive")
)

// Ledger tracks external account balances per asset together with the pool's
// custody balance. It is the simple atomic transfer collaborator the rewards
// engine assumes: each Pull or Push either applies fully or not at all.
type Ledger struct {
	mu       sync.RWMutex
	balances map[string]map[[20]byte]*big.Int
	custody  map[string]*big.Int
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[string]map[[20]byte]*big.Int),
		custody:  make(map[string]*big.Int),
	}
}

func normalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}

// Credit mints amount of asset onto an external account. Used to seed genesis
// allocations and to fund the reward custody in tests and deployments.
func (l *Ledger) Credit(addr [20]byte, asset string, amount *big.Int) error {
	asset = normalizeAsset(asset)
	if asset == "" {
		return errInvalidAsset
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accountBalance(asset, addr).Add(l.accountBalance(asset, addr), amount)
	return nil
}

// CreditCustody mints amount of asset directly into pool custody. The reward
// pool is funded this way at program creation.
func (l *Ledger) CreditCustody(asset string, amount *big.Int) error {
	asset = normalizeAsset(asset)
	if asset == "" {
		return errInvalidAsset
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.custodyBalance(asset).Add(l.custodyBalance(asset), amount)
	return nil
}

// Pull moves amount of asset from an external account into pool custody.
func (l *Ledger) Pull(from [20]byte, asset string, amount *big.Int) error {
	asset = normalizeAsset(asset)
	if asset == "" {
		return errInvalidAsset
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.accountBalance(asset, from)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	balance.Sub(balance, amount)
	l.custodyBalance(asset).Add(l.custodyBalance(asset), amount)
	return nil
}

// Push moves amount of asset out of pool custody to an external account.
func (l *Ledger) Push(to [20]byte, asset string, amount *big.Int) error {
	asset = normalizeAsset(asset)
	if asset == "" {
		return errInvalidAsset
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	custody := l.custodyBalance(asset)
	if custody.Cmp(amount) < 0 {
		return ErrInsufficientCustody
	}
	custody.Sub(custody, amount)
	l.accountBalance(asset, to).Add(l.accountBalance(asset, to), amount)
	return nil
}

// Balance returns the external account balance for asset.
func (l *Ledger) Balance(addr [20]byte, asset string) *big.Int {
	asset = normalizeAsset(asset)
	l.mu.RLock()
	defer l.mu.RUnlock()
	if accounts, ok := l.balances[asset]; ok {
		if balance, ok := accounts[addr]; ok {
			return new(big.Int).Set(balance)
		}
	}
	return big.NewInt(0)
}

// CustodyBalance returns the pooled custody balance for asset.
func (l *Ledger) CustodyBalance(asset string) *big.Int {
	asset = normalizeAsset(asset)
	l.mu.RLock()
	defer l.mu.RUnlock()
	if balance, ok := l.custody[asset]; ok {
		return new(big.Int).Set(balance)
	}
	return big.NewInt(0)
}

func (l *Ledger) accountBalance(asset string, addr [20]byte) *big.Int {
	accounts, ok := l.balances[asset]
	if !ok {
		accounts = make(map[[20]byte]*big.Int)
		l.balances[asset] = accounts
	}
	balance, ok := accounts[addr]
	if !ok {
		balance = big.NewInt(0)
		accounts[addr] = balance
	}
	return balance
}

func (l *Ledger) custodyBalance(asset string) *big.Int {
	balance, ok := l.custody[asset]
	if !ok {
		balance = big.NewInt(0)
		l.custody[asset] = balance
	}
	return balance
}
