package portfolio

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
)

// state is the on-disk form of a portfolio used by the live step command.
type state struct {
	Balance   decimal.Decimal `json:"balance"`
	Positions []Position      `json:"positions"`
	Trades    []TradeRecord   `json:"trades"`
}

// Load reads a portfolio saved with Save. A missing file yields an empty
// portfolio with the given balance and ok=false.
func Load(path string, balance decimal.Decimal) (p *Portfolio, ok bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(balance), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read portfolio: %w", err)
	}

	var s state
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, false, fmt.Errorf("parse portfolio %s: %w", path, err)
	}
	if s.Balance.IsNegative() {
		return nil, false, fmt.Errorf("parse portfolio %s: negative balance %s", path, s.Balance)
	}

	p = New(s.Balance)
	for _, pos := range s.Positions {
		if pos.Quantity <= 0 || !pos.BuyPrice.IsPositive() {
			return nil, false, fmt.Errorf("parse portfolio %s: bad position %+v", path, pos)
		}
		if p.HasPosition(pos.Ticker) {
			return nil, false, fmt.Errorf("parse portfolio %s: duplicate position %s", path, pos.Ticker)
		}
		p.positions[pos.Ticker] = pos
	}
	p.trades = append(p.trades, s.Trades...)
	return p, true, nil
}

// Save writes p to path as JSON, replacing the file atomically.
func Save(path string, p *Portfolio) error {
	s := state{
		Balance:   p.balance,
		Positions: p.Positions(),
		Trades:    p.trades,
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal portfolio: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create portfolio dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write portfolio: %w", err)
	}
	return os.Rename(tmp, path)
}
