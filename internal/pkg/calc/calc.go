package calc

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// Input is one calculation request. IndividualTips is only honored in
// advanced mode and must then carry exactly one percentage per person.
type Input struct {
	BillAmount     float64   `json:"bill_amount" validate:"gte=0"`
	TipPercent     float64   `json:"tip_percent" validate:"gte=0,lte=300"`
	TaxPercent     float64   `json:"tax_percent" validate:"gte=0,lte=100"`
	TaxIncluded    bool      `json:"tax_included"`
	People         int       `json:"people" validate:"gte=1,lte=100"`
	AdvancedMode   bool      `json:"advanced_mode"`
	IndividualTips []float64 `json:"individual_tips,omitempty" validate:"omitempty,dive,gte=0,lte=300"`
}

// Result carries the computed split. All money values are rounded to cents.
type Result struct {
	BaseAmount float64   `json:"base_amount"`
	TaxAmount  float64   `json:"tax_amount"`
	TipAmount  float64   `json:"tip_amount"`
	Total      float64   `json:"total"`
	PerPerson  []float64 `json:"per_person"`
}

var (
	ErrTipCountMismatch = errors.New("individual tips must match the number of people")

	validate = validator.New()
)

// Compute performs the tip/tax/split arithmetic.
//
// The tax amount is always derived from the full bill. With tax-included
// billing the base is the bill minus that tax, otherwise the bill itself;
// tips are computed on the base, never on tax.
func Compute(in Input) (*Result, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid calculation input: %w", err)
	}

	taxAmount := in.BillAmount * (in.TaxPercent / 100)
	baseAmount := in.BillAmount
	if in.TaxIncluded {
		baseAmount = in.BillAmount - taxAmount
	}

	perPerson := make([]float64, in.People)
	var tipAmount float64

	if in.AdvancedMode {
		if len(in.IndividualTips) != in.People {
			return nil, ErrTipCountMismatch
		}
		for i, tipPct := range in.IndividualTips {
			personTip := baseAmount * (tipPct / 100)
			tipAmount += personTip
			perPerson[i] = roundCents((baseAmount + taxAmount + personTip) / float64(in.People))
		}
	} else {
		tipAmount = baseAmount * (in.TipPercent / 100)
		share := roundCents((baseAmount + taxAmount + tipAmount) / float64(in.People))
		for i := range perPerson {
			perPerson[i] = share
		}
	}

	return &Result{
		BaseAmount: roundCents(baseAmount),
		TaxAmount:  roundCents(taxAmount),
		TipAmount:  roundCents(tipAmount),
		Total:      roundCents(baseAmount + taxAmount + tipAmount),
		PerPerson:  perPerson,
	}, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
