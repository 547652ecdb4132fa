package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a monetary amount with two decimal places
type Money struct {
	decimal.Decimal
}

// Column limits of the money columns: prices are NUMERIC(10,2), order
// totals NUMERIC(12,2).
var (
	MaxPrice = MustMoney("99999999.99")
	MaxTotal = MustMoney("9999999999.99")
)

// NewMoney builds a Money from a decimal, rounding to cents
func NewMoney(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(2)}
}

// MustMoney parses a decimal string and panics on malformed input. Meant for
// constants and tests.
func MustMoney(s string) Money {
	return NewMoney(decimal.RequireFromString(s))
}

// ZeroMoney is the zero amount
func ZeroMoney() Money {
	return Money{Decimal: decimal.Zero}
}

// Add returns m + o
func (m Money) Add(o Money) Money {
	return NewMoney(m.Decimal.Add(o.Decimal))
}

// Times returns m multiplied by an integer quantity
func (m Money) Times(qty int) Money {
	return NewMoney(m.Decimal.Mul(decimal.NewFromInt(int64(qty))))
}

// Equal compares two amounts by value
func (m Money) Equal(o Money) bool {
	return m.Decimal.Equal(o.Decimal)
}

// String renders the amount with exactly two decimals
func (m Money) String() string {
	return m.Decimal.StringFixed(2)
}

// MarshalJSON renders the amount as a string with two decimals
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Decimal.Round(2).StringFixed(2))
}

// UnmarshalJSON accepts either a JSON string or a JSON number
func (m *Money) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		m.Decimal = decimal.Zero
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", s, err)
		}
		m.Decimal = d.Round(2)
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return fmt.Errorf("invalid amount %s: %w", string(b), err)
	}
	m.Decimal = d.Round(2)
	return nil
}

// Value implements driver.Valuer
func (m Money) Value() (driver.Value, error) {
	return m.Decimal.Round(2).String(), nil
}

// Scan implements sql.Scanner
func (m *Money) Scan(value interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return fmt.Errorf("failed to scan money: %w", err)
	}
	m.Decimal = d.Round(2)
	return nil
}

// Exceeds reports whether m is greater than limit
func (m Money) Exceeds(limit Money) bool {
	return m.Decimal.GreaterThan(limit.Decimal)
}
