// Package export renders stored data as downloadable files: the product
// catalog as a spreadsheet and the raw datasets as a zip archive.
package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
)

const (
	CatalogSheet = "Catalogo"
	PricesSheet  = "Precios"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	catalogHeaders = []string{"Código", "Detalle", "Marca", "Modelo", "Rubro", "Listas", "Precio mínimo", "Precio máximo"}
	priceHeaders   = []string{"Código", "Lista", "Precio neto", "Precio bruto"}
)

// WriteCatalog writes entries as a workbook with one catalog sheet (one row
// per product) and one prices sheet (one row per product and list)
func WriteCatalog(w io.Writer, entries []domain.CatalogEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), CatalogSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(PricesSheet); err != nil {
		return err
	}

	if err := writeRow(f, CatalogSheet, 1, toValues(catalogHeaders)); err != nil {
		return err
	}
	if err := writeRow(f, PricesSheet, 1, toValues(priceHeaders)); err != nil {
		return err
	}

	priceRow := 2
	for i, entry := range entries {
		values := []any{
			entry.Code,
			entry.Description,
			entry.Brand,
			entry.Model,
			entry.Category,
			len(entry.Prices),
			optional(entry.MinPrice),
			optional(entry.MaxPrice),
		}
		if err := writeRow(f, CatalogSheet, i+2, values); err != nil {
			return err
		}

		for _, price := range entry.Prices {
			values := []any{entry.Code, price.List, optional(price.NetPrice), optional(price.GrossPrice)}
			if err := writeRow(f, PricesSheet, priceRow, values); err != nil {
				return err
			}
			priceRow++
		}
	}

	for _, sheet := range []string{CatalogSheet, PricesSheet} {
		if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// CatalogXLSX returns the workbook bytes for entries
func CatalogXLSX(entries []domain.CatalogEntry) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCatalog(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func toValues(headers []string) []any {
	out := make([]any, len(headers))
	for i, h := range headers {
		out[i] = h
	}
	return out
}

// optional leaves the cell blank for a missing price
func optional(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
