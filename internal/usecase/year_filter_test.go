package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCompatible(t *testing.T) {
	testCases := []struct {
		name        string
		description string
		year        int
		want        bool
	}{
		{name: "inside bounded range", description: "16-21 modelo", year: 2019, want: true},
		{name: "after bounded range", description: "16-21 modelo", year: 2022, want: false},
		{name: "before bounded range", description: "16-21 modelo", year: 2015, want: false},
		{name: "range bounds are inclusive", description: "Defensa Nissan 16-21", year: 2021, want: true},
		{name: "open range", description: "22-> modelo", year: 2025, want: true},
		{name: "before open range", description: "22-> modelo", year: 2021, want: false},
		{name: "open range without dash", description: "Estribo Hilux 22>", year: 2022, want: true},
		{name: "four digit bounded range", description: "Jaula 2016-2021", year: 2018, want: true},
		{name: "four digit open range", description: "Cobertor 2023->", year: 2022, want: false},
		{name: "reversed range", description: "Lona 21-16", year: 2019, want: true},
		{name: "no notation", description: "sin año", year: 2019, want: true},
		{name: "no target year", description: "16-21 modelo", year: 0, want: true},
		{name: "empty description", description: "", year: 2019, want: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsCompatible(tc.description, tc.year))
		})
	}
}

func TestParseYearRange(t *testing.T) {
	t.Run("bounded", func(t *testing.T) {
		r, ok := ParseYearRange("Defensa 98-05 cromada")
		assert.True(t, ok)
		assert.Equal(t, YearRange{Min: 1998, Max: 2005}, r)
	})

	t.Run("open", func(t *testing.T) {
		r, ok := ParseYearRange("Barra 22-> negra")
		assert.True(t, ok)
		assert.Equal(t, YearRange{Min: 2022, Open: true}, r)
	})

	t.Run("leftmost notation wins", func(t *testing.T) {
		r, ok := ParseYearRange("Kit 19-> reemplaza 12-18")
		assert.True(t, ok)
		assert.True(t, r.Open)
		assert.Equal(t, 2019, r.Min)
	})

	t.Run("no notation", func(t *testing.T) {
		_, ok := ParseYearRange("Cobertor lona maritima")
		assert.False(t, ok)
		assert.False(t, HasYearNotation("Cobertor lona maritima"))
	})
}
