package deposit

import (
	"errors"
	"math/big"
	"testing"

	"assembly/crypto"
)

var errInsufficient = errors.New("deposit: insufficient funds for test")

type fakeCurrency struct {
	reserved map[string]*big.Int
	failNext bool
}

func newFakeCurrency() *fakeCurrency {
	return &fakeCurrency{reserved: make(map[string]*big.Int)}
}

func (f *fakeCurrency) Reserve(who crypto.Address, amount *big.Int) error {
	if f.failNext {
		return errInsufficient
	}
	key := who.String()
	cur, ok := f.reserved[key]
	if !ok {
		cur = big.NewInt(0)
	}
	f.reserved[key] = new(big.Int).Add(cur, amount)
	return nil
}

func (f *fakeCurrency) Unreserve(who crypto.Address, amount *big.Int) error {
	key := who.String()
	cur := f.reserved[key]
	f.reserved[key] = new(big.Int).Sub(cur, amount)
	return nil
}

func (f *fakeCurrency) SlashReserved(who crypto.Address, amount *big.Int) error {
	key := who.String()
	cur := f.reserved[key]
	f.reserved[key] = new(big.Int).Sub(cur, amount)
	return nil
}

func testAddress(b byte) crypto.Address {
	raw := make([]byte, 20)
	raw[0] = b
	return crypto.MustNewAddress(crypto.AccountPrefix, raw)
}

func TestTakeReservesAndReturnsHandle(t *testing.T) {
	c := newFakeCurrency()
	who := testAddress(1)
	d, err := Take(c, who, big.NewInt(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Amount.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("unexpected amount: %v", d.Amount)
	}
	if c.reserved[who.String()].Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("currency did not record reserve")
	}
}

func TestTakePropagatesReserveFailure(t *testing.T) {
	c := newFakeCurrency()
	c.failNext = true
	_, err := Take(c, testAddress(1), big.NewInt(10))
	if err == nil {
		t.Fatalf("expected error from failing reserve")
	}
}

func TestRefundUnreserves(t *testing.T) {
	c := newFakeCurrency()
	who := testAddress(2)
	d, err := Take(c, who, big.NewInt(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Refund(c, &d); err != nil {
		t.Fatalf("unexpected refund error: %v", err)
	}
	if c.reserved[who.String()].Sign() != 0 {
		t.Fatalf("expected balance to return to zero, got %v", c.reserved[who.String()])
	}
}

func TestRefundNilIsNoDeposit(t *testing.T) {
	c := newFakeCurrency()
	if err := Refund(c, nil); err == nil {
		t.Fatalf("expected ErrNoDeposit for nil deposit")
	}
}

func TestSlashNilIsNoDeposit(t *testing.T) {
	c := newFakeCurrency()
	if err := Slash(c, nil); err == nil {
		t.Fatalf("expected ErrNoDeposit for nil deposit")
	}
}

func TestSlashWithdraws(t *testing.T) {
	c := newFakeCurrency()
	who := testAddress(3)
	d, err := Take(c, who, big.NewInt(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Slash(c, &d); err != nil {
		t.Fatalf("unexpected slash error: %v", err)
	}
	if c.reserved[who.String()].Sign() != 0 {
		t.Fatalf("expected balance to return to zero after slash")
	}
}
