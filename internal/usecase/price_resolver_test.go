package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
)

func priceRow(code, list string, net any) domain.Row {
	row := domain.Row{domain.FieldCode: code, domain.FieldCategory: list}
	if net != nil {
		row[domain.FieldNetPrice] = net
	}
	return row
}

func TestResolvePrice(t *testing.T) {
	rows := []domain.Row{
		priceRow("ASE011", "LISTA 1", 1000.0),
		priceRow("ASE011", "LISTA 2", 900.0),
		priceRow("DBN114", "LISTA 1", 300.0),
	}

	testCases := []struct {
		name      string
		code      string
		list      string
		wantFound bool
		wantPrice float64
		wantList  string
	}{
		{name: "preferred list wins over cheaper list", code: "ASE011", list: "lista 1", wantFound: true, wantPrice: 1000, wantList: "LISTA 1"},
		{name: "falls back to any list", code: "ASE011", list: "LISTA 9", wantFound: true, wantPrice: 900, wantList: "LISTA 2"},
		{name: "no list takes cheapest", code: "ASE011", list: "", wantFound: true, wantPrice: 900, wantList: "LISTA 2"},
		{name: "code is trimmed and case insensitive", code: " dbn114 ", list: "LISTA 1", wantFound: true, wantPrice: 300, wantList: "LISTA 1"},
		{name: "unknown code", code: "ZZZ999", list: "LISTA 1", wantFound: false},
		{name: "blank code", code: "  ", list: "LISTA 1", wantFound: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ResolvePrice(tc.code, rows, tc.list)
			require.Equal(t, tc.wantFound, ok)
			if !ok {
				return
			}
			assert.Equal(t, tc.wantPrice, got.Price)
			assert.Equal(t, tc.wantList, got.List)
		})
	}
}

func TestResolvePrice_TieBreaks(t *testing.T) {
	t.Run("gross price used when net is missing", func(t *testing.T) {
		rows := []domain.Row{
			{domain.FieldCode: "A", domain.FieldCategory: "LISTA 1", domain.FieldNetPrice: 750.0},
			{domain.FieldCode: "A", domain.FieldCategory: "LISTA 1", domain.FieldGrossPrice: 700.0},
		}
		got, ok := ResolvePrice("A", rows, "LISTA 1")
		require.True(t, ok)
		assert.Equal(t, 700.0, got.Price)
	})

	t.Run("first row wins on equal prices", func(t *testing.T) {
		rows := []domain.Row{
			{domain.FieldCode: "A", domain.FieldCategory: "LISTA 1", domain.FieldNetPrice: 500.0, domain.FieldDescription: "primera"},
			{domain.FieldCode: "A", domain.FieldCategory: "LISTA 1", domain.FieldNetPrice: 500.0, domain.FieldDescription: "segunda"},
		}
		got, ok := ResolvePrice("A", rows, "LISTA 1")
		require.True(t, ok)
		assert.Equal(t, "primera", got.Row.Str(domain.FieldDescription))
	})

	t.Run("rows without any price are skipped", func(t *testing.T) {
		rows := []domain.Row{
			priceRow("A", "LISTA 1", nil),
			priceRow("A", "LISTA 2", "850,5"),
		}
		got, ok := ResolvePrice("A", rows, "LISTA 1")
		require.True(t, ok)
		assert.Equal(t, 850.5, got.Price)
		assert.Equal(t, "LISTA 2", got.List)
	})

	t.Run("only unpriced rows resolve to nothing", func(t *testing.T) {
		_, ok := ResolvePrice("A", []domain.Row{priceRow("A", "LISTA 1", nil)}, "LISTA 1")
		assert.False(t, ok)
	})

	t.Run("list read from LISTA when CATEGORIA is absent", func(t *testing.T) {
		rows := []domain.Row{
			{domain.FieldCode: "A", domain.FieldList: "LISTA 3", domain.FieldNetPrice: 10},
			{domain.FieldCode: "A", domain.FieldList: "LISTA 1", domain.FieldNetPrice: 5},
		}
		got, ok := ResolvePrice("A", rows, "LISTA 3")
		require.True(t, ok)
		assert.Equal(t, 10.0, got.Price)
	})
}

func TestPriceIndex(t *testing.T) {
	rows := []domain.Row{
		priceRow("ase011", "LISTA 1", 1000.0),
		priceRow("ASE011", "LISTA 2", 900.0),
		priceRow("", "LISTA 1", 1.0),
		priceRow("DBN114", "LISTA 1", 300.0),
	}
	idx := NewPriceIndex(rows)

	assert.Equal(t, 2, idx.Len())

	for _, list := range []string{"LISTA 1", "LISTA 2", "LISTA 7", ""} {
		want, wantOK := ResolvePrice("ASE011", rows, list)
		got, gotOK := idx.Resolve("ASE011", list)
		assert.Equal(t, wantOK, gotOK, list)
		assert.Equal(t, want.Price, got.Price, list)
	}

	_, ok := idx.Resolve("missing", "LISTA 1")
	assert.False(t, ok)
}
