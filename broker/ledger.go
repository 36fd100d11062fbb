package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
)

// DefaultBalance is written to a fresh ledger.
var DefaultBalance = decimal.NewFromInt(50000)

// DefaultLedgerFile is the balance file used when none is configured.
const DefaultLedgerFile = "simulated_balance.json"

// Ledger persists the simulated cash balance between runs. Load reports
// ok=false when nothing has been stored yet.
type Ledger interface {
	Load(ctx context.Context) (balance decimal.Decimal, ok bool, err error)
	Store(ctx context.Context, balance decimal.Decimal) error
}

// OpenBalance reads the starting balance from l. An empty ledger is
// initialised with def and def is returned.
func OpenBalance(ctx context.Context, l Ledger, def decimal.Decimal) (decimal.Decimal, error) {
	if l == nil {
		return def, nil
	}
	bal, ok, err := l.Load(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("open balance: %w", err)
	}
	if ok {
		return bal, nil
	}
	if err := l.Store(ctx, def); err != nil {
		return decimal.Zero, fmt.Errorf("open balance: init: %w", err)
	}
	return def, nil
}

// NopLedger stores nothing.
type NopLedger struct{}

func (NopLedger) Load(context.Context) (decimal.Decimal, bool, error) {
	return decimal.Zero, false, nil
}

func (NopLedger) Store(context.Context, decimal.Decimal) error { return nil }

type ledgerFile struct {
	Balance decimal.Decimal `json:"balance"`
}

// FileLedger keeps {"balance": n} in a JSON file.
type FileLedger struct {
	Path string
}

func NewFileLedger(path string) *FileLedger {
	if path == "" {
		path = DefaultLedgerFile
	}
	return &FileLedger{Path: path}
}

func (l *FileLedger) Load(_ context.Context) (decimal.Decimal, bool, error) {
	data, err := os.ReadFile(l.Path)
	if errors.Is(err, os.ErrNotExist) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("read ledger %s: %w", l.Path, err)
	}
	var f ledgerFile
	if err := json.Unmarshal(data, &f); err != nil {
		return decimal.Zero, false, fmt.Errorf("parse ledger %s: %w", l.Path, err)
	}
	if f.Balance.IsNegative() {
		return decimal.Zero, false, fmt.Errorf("parse ledger %s: negative balance %s", l.Path, f.Balance)
	}
	return f.Balance, true, nil
}

func (l *FileLedger) Store(_ context.Context, balance decimal.Decimal) error {
	// The balance is written as a bare JSON number.
	data := []byte(fmt.Sprintf("{\n  \"balance\": %s\n}\n", balance.String()))
	if dir := filepath.Dir(l.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("write ledger: %w", err)
		}
	}
	tmp := l.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := os.Rename(tmp, l.Path); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}
