package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCurrency(t *testing.T) {
	testCases := []struct {
		amount float64
		want   string
	}{
		{amount: 0, want: "$ 0,00"},
		{amount: 1000, want: "$ 1.000,00"},
		{amount: 850.5, want: "$ 850,50"},
		{amount: 1234567.891, want: "$ 1.234.567,89"},
		{amount: 999.999, want: "$ 1.000,00"},
		{amount: -50.5, want: "$ -50,50"},
	}

	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatCurrency(tc.amount))
		})
	}
}
