package usecase

import (
	"strings"

	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
)

// PricedRow is a price row together with its effective price
type PricedRow struct {
	Row   domain.Row
	Price float64
	List  string
}

// ResolvePrice selects the price row for code. Rows on preferredList win;
// when the code has no row on that list every row for the code is
// considered. The cheapest row is chosen (net price, gross when net is
// missing) and file order breaks ties. Rows with neither price are skipped.
func ResolvePrice(code string, rows []domain.Row, preferredList string) (PricedRow, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return PricedRow{}, false
	}

	var candidates []domain.Row
	for _, row := range rows {
		if codeEquals(row.Str(domain.FieldCode), code) {
			candidates = append(candidates, row)
		}
	}
	return pickPrice(candidates, preferredList)
}

// PriceIndex groups price rows by upper-cased product code so many products
// can be priced against one snapshot without rescanning it.
type PriceIndex struct {
	byCode map[string][]domain.Row
}

// NewPriceIndex indexes rows by product code, keeping file order per code
func NewPriceIndex(rows []domain.Row) *PriceIndex {
	idx := &PriceIndex{byCode: make(map[string][]domain.Row)}
	for _, row := range rows {
		key := priceKey(row.Str(domain.FieldCode))
		if key == "" {
			continue
		}
		idx.byCode[key] = append(idx.byCode[key], row)
	}
	return idx
}

// Resolve behaves like ResolvePrice over the indexed rows
func (idx *PriceIndex) Resolve(code, preferredList string) (PricedRow, bool) {
	return pickPrice(idx.byCode[priceKey(code)], preferredList)
}

// Len returns the number of distinct product codes
func (idx *PriceIndex) Len() int {
	return len(idx.byCode)
}

func pickPrice(candidates []domain.Row, preferredList string) (PricedRow, bool) {
	if len(candidates) == 0 {
		return PricedRow{}, false
	}

	if preferredList = strings.TrimSpace(preferredList); preferredList != "" {
		var onList []domain.Row
		for _, row := range candidates {
			if strings.EqualFold(rowList(row), preferredList) {
				onList = append(onList, row)
			}
		}
		if len(onList) > 0 {
			candidates = onList
		}
	}

	var best PricedRow
	found := false
	for _, row := range candidates {
		price, ok := effectivePrice(row)
		if !ok {
			continue
		}
		if !found || price < best.Price {
			best = PricedRow{Row: row, Price: price, List: rowList(row)}
			found = true
		}
	}
	return best, found
}

// effectivePrice is the net price, or the gross price when net is missing
func effectivePrice(row domain.Row) (float64, bool) {
	if net, ok := row.Float(domain.FieldNetPrice); ok {
		return net, true
	}
	return row.Float(domain.FieldGrossPrice)
}

// rowList reads the price-list label of a price row
func rowList(row domain.Row) string {
	return row.Str(domain.FieldCategory, domain.FieldList)
}

func priceKey(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
