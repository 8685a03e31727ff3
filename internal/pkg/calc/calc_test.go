package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeSimpleSplit(t *testing.T) {
	res, err := Compute(Input{
		BillAmount: 100,
		TipPercent: 18,
		TaxPercent: 8,
		People:     4,
	})
	assert.NoError(t, err)
	assert.Equal(t, 100.0, res.BaseAmount)
	assert.Equal(t, 8.0, res.TaxAmount)
	assert.Equal(t, 18.0, res.TipAmount)
	assert.Equal(t, 126.0, res.Total)
	assert.Len(t, res.PerPerson, 4)
	for _, share := range res.PerPerson {
		assert.Equal(t, 31.5, share)
	}
}

func TestComputeTaxIncluded(t *testing.T) {
	res, err := Compute(Input{
		BillAmount:  108,
		TipPercent:  10,
		TaxPercent:  8,
		TaxIncluded: true,
		People:      1,
	})
	assert.NoError(t, err)
	// tax is derived from the full bill, base is the remainder
	assert.Equal(t, 8.64, res.TaxAmount)
	assert.Equal(t, 99.36, res.BaseAmount)
	assert.Equal(t, 9.94, res.TipAmount)
	assert.Equal(t, 117.94, res.Total)
}

func TestComputeAdvancedPerPersonTips(t *testing.T) {
	res, err := Compute(Input{
		BillAmount:     60,
		TaxPercent:     0,
		People:         3,
		AdvancedMode:   true,
		IndividualTips: []float64{10, 20, 30},
	})
	assert.NoError(t, err)
	assert.Equal(t, 36.0, res.TipAmount)
	assert.Equal(t, 96.0, res.Total)
	// each share carries that person's own tip on top of an even base split
	assert.Equal(t, 22.0, res.PerPerson[0])
	assert.Equal(t, 24.0, res.PerPerson[1])
	assert.Equal(t, 26.0, res.PerPerson[2])
}

func TestComputeAdvancedTipCountMismatch(t *testing.T) {
	_, err := Compute(Input{
		BillAmount:     50,
		People:         3,
		AdvancedMode:   true,
		IndividualTips: []float64{10, 20},
	})
	assert.ErrorIs(t, err, ErrTipCountMismatch)
}

func TestComputeRejectsInvalidInput(t *testing.T) {
	cases := []Input{
		{BillAmount: -1, People: 1},
		{BillAmount: 10, People: 0},
		{BillAmount: 10, People: 1, TipPercent: 500},
		{BillAmount: 10, People: 1, TaxPercent: 150},
	}
	for _, in := range cases {
		_, err := Compute(in)
		assert.Error(t, err, "input %+v should be rejected", in)
	}
}

func TestComputeZeroBill(t *testing.T) {
	res, err := Compute(Input{BillAmount: 0, TipPercent: 20, TaxPercent: 10, People: 2})
	assert.NoError(t, err)
	assert.Equal(t, 0.0, res.Total)
	assert.Equal(t, []float64{0, 0}, res.PerPerson)
}
