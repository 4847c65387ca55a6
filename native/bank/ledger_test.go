package bank

import (
	"errors"
	"math/big"
	"testing"
)

func testAddr(suffix byte) [20]byte {
	var addr [20]byte
	addr[19] = suffix
	return addr
}

func TestLedgerPullPushRoundTrip(t *testing.T) {
	ledger := NewLedger()
	alice := testAddr(1)

	if err := ledger.Credit(alice, "stk", big.NewInt(500)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := ledger.Pull(alice, "STK", big.NewInt(200)); err != nil {
		t.Fatalf("pull: %v", err)
	}
	if got := ledger.Balance(alice, "STK"); got.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("balance = %s, want 300", got)
	}
	if got := ledger.CustodyBalance("stk"); got.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("custody = %s, want 200", got)
	}

	if err := ledger.Push(alice, "STK", big.NewInt(200)); err != nil {
		t.Fatalf("push: %v", err)
	}
	if got := ledger.Balance(alice, "STK"); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("balance after push = %s, want 500", got)
	}
	if got := ledger.CustodyBalance("STK"); got.Sign() != 0 {
		t.Fatalf("custody after push = %s, want 0", got)
	}
}

func TestLedgerPullInsufficientBalance(t *testing.T) {
	ledger := NewLedger()
	alice := testAddr(1)
	if err := ledger.Credit(alice, "STK", big.NewInt(100)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := ledger.Pull(alice, "STK", big.NewInt(101)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	// A rejected pull must leave both sides untouched.
	if got := ledger.Balance(alice, "STK"); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("balance = %s after rejected pull", got)
	}
	if got := ledger.CustodyBalance("STK"); got.Sign() != 0 {
		t.Fatalf("custody = %s after rejected pull", got)
	}
}

func TestLedgerPushInsufficientCustody(t *testing.T) {
	ledger := NewLedger()
	alice := testAddr(1)
	if err := ledger.CreditCustody("RWD", big.NewInt(50)); err != nil {
		t.Fatalf("credit custody: %v", err)
	}
	if err := ledger.Push(alice, "RWD", big.NewInt(51)); !errors.Is(err, ErrInsufficientCustody) {
		t.Fatalf("err = %v, want ErrInsufficientCustody", err)
	}
	if got := ledger.CustodyBalance("RWD"); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("custody = %s after rejected push", got)
	}
	if got := ledger.Balance(alice, "RWD"); got.Sign() != 0 {
		t.Fatalf("balance = %s after rejected push", got)
	}
}

func TestLedgerRejectsInvalidInput(t *testing.T) {
	ledger := NewLedger()
	alice := testAddr(1)
	if err := ledger.Credit(alice, "  ", big.NewInt(10)); err == nil {
		t.Fatalf("expected blank asset rejection")
	}
	if err := ledger.Credit(alice, "STK", big.NewInt(0)); err == nil {
		t.Fatalf("expected zero amount rejection")
	}
	if err := ledger.Pull(alice, "STK", nil); err == nil {
		t.Fatalf("expected nil amount rejection")
	}
	if err := ledger.Push(alice, "STK", big.NewInt(-3)); err == nil {
		t.Fatalf("expected negative amount rejection")
	}
}

func TestLedgerAssetsAreIsolated(t *testing.T) {
	ledger := NewLedger()
	alice := testAddr(1)
	bob := testAddr(2)
	if err := ledger.Credit(alice, "STK", big.NewInt(100)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := ledger.Credit(bob, "RWD", big.NewInt(40)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if got := ledger.Balance(alice, "RWD"); got.Sign() != 0 {
		t.Fatalf("cross-asset balance = %s, want 0", got)
	}
	if got := ledger.Balance(bob, "STK"); got.Sign() != 0 {
		t.Fatalf("cross-account balance = %s, want 0", got)
	}
}
