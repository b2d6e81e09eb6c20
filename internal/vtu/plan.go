package vtu

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/vtubot/internal/money"
)

// Plan is a data bundle offered by the provider. Price is in kobo; Validity is
// the provider's day count as text.
type Plan struct {
	ID       string
	Label    string
	Price    money.Amount
	Validity string
}

type rawPlan struct {
	Plan     flexString      `json:"plan"`
	Label    string          `json:"label"`
	Price    decimal.Decimal `json:"price"`
	Validity flexString      `json:"validity"`
}

// UnmarshalJSON accepts numeric fields encoded either as numbers or strings.
func (p *Plan) UnmarshalJSON(b []byte) error {
	var raw rawPlan
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	price, err := money.FromDecimal(raw.Price)
	if err != nil {
		return fmt.Errorf("vtu: plan %s price %s: %w", string(raw.Plan), raw.Price, err)
	}
	*p = Plan{ID: string(raw.Plan), Label: raw.Label, Price: price, Validity: string(raw.Validity)}
	return nil
}

type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}
