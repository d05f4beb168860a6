package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
)

// KnownDatasets lists every dataset the service exposes, in display order
var KnownDatasets = []string{
	domain.DatasetProducts,
	domain.DatasetPrices,
	domain.DatasetClients,
	domain.DatasetClientsIA,
}

// BrowseOptions narrows and projects a dataset listing
type BrowseOptions struct {
	Query  string   // case- and accent-insensitive substring filter
	Fields []string // fields to search and return; all when empty
	Limit  int      // zero returns every row
}

// DatasetService serves read-only views over the stored datasets
type DatasetService struct {
	store domain.DatasetStore
	now   func() time.Time
}

// NewDatasetService creates a dataset service backed by store
func NewDatasetService(store domain.DatasetStore) *DatasetService {
	return &DatasetService{store: store, now: time.Now}
}

// Summaries returns the row count and fetch time of every known dataset
func (s *DatasetService) Summaries(ctx context.Context) []domain.DatasetSummary {
	summaries := make([]domain.DatasetSummary, 0, len(KnownDatasets))
	for _, key := range KnownDatasets {
		ds := s.store.GetDataset(ctx, key)
		summaries = append(summaries, domain.DatasetSummary{
			Key:       key,
			Count:     len(ds.Rows),
			FetchedAt: ds.Meta.FetchedAt,
		})
	}
	return summaries
}

// All returns every known dataset as stored, in KnownDatasets order
func (s *DatasetService) All(ctx context.Context) []domain.Dataset {
	out := make([]domain.Dataset, 0, len(KnownDatasets))
	for _, key := range KnownDatasets {
		ds := s.store.GetDataset(ctx, key)
		ds.Meta.Dataset = key
		ds.Meta.Count = len(ds.Rows)
		if ds.Rows == nil {
			ds.Rows = []domain.Row{}
		}
		out = append(out, ds)
	}
	return out
}

// Now returns the service clock reading used for export timestamps
func (s *DatasetService) Now() time.Time {
	return s.now()
}

// Browse returns the rows of one dataset matching opts
func (s *DatasetService) Browse(ctx context.Context, key string, opts BrowseOptions) (domain.Dataset, error) {
	if !isKnownDataset(key) {
		return domain.Dataset{}, fmt.Errorf("%w: %s", domain.ErrUnknownDataset, key)
	}

	ds := s.store.GetDataset(ctx, key)
	needle := Normalize(strings.TrimSpace(opts.Query))

	rows := make([]domain.Row, 0)
	for _, row := range ds.Rows {
		if needle != "" && !rowContains(row, needle, opts.Fields) {
			continue
		}
		rows = append(rows, project(row, opts.Fields))
		if opts.Limit > 0 && len(rows) >= opts.Limit {
			break
		}
	}

	meta := ds.Meta
	meta.Dataset = key
	meta.Count = len(rows)
	return domain.Dataset{Meta: meta, Rows: rows}, nil
}

// Search looks for query across every dataset, or only in datasets when
// any are given
func (s *DatasetService) Search(ctx context.Context, query string, datasets, fields []string, limit int) ([]domain.SearchHit, error) {
	needle := Normalize(strings.TrimSpace(query))
	if needle == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}

	keys := KnownDatasets
	if len(datasets) > 0 {
		for _, key := range datasets {
			if !isKnownDataset(key) {
				return nil, fmt.Errorf("%w: %s", domain.ErrUnknownDataset, key)
			}
		}
		keys = datasets
	}

	hits := make([]domain.SearchHit, 0)
	for _, key := range keys {
		for _, row := range s.store.GetDataset(ctx, key).Rows {
			if !rowContains(row, needle, fields) {
				continue
			}
			hits = append(hits, domain.SearchHit{Dataset: key, Row: project(row, fields)})
			if limit > 0 && len(hits) >= limit {
				return hits, nil
			}
		}
	}
	return hits, nil
}

// Catalog joins every product with all price rows carrying its code
func (s *DatasetService) Catalog(ctx context.Context) []domain.CatalogEntry {
	products := s.store.GetDataset(ctx, domain.DatasetProducts).Rows
	prices := NewPriceIndex(s.store.GetDataset(ctx, domain.DatasetPrices).Rows)

	entries := make([]domain.CatalogEntry, 0, len(products))
	for _, product := range products {
		code := product.Str(domain.FieldCode)
		entry := domain.CatalogEntry{
			Code:        priceKey(code),
			Description: product.Str(domain.FieldDescription1, domain.FieldDescription),
			Brand:       product.Str(domain.FieldBrand),
			Model:       product.Str(domain.FieldModel),
			Category:    product.Str(domain.FieldRubro, domain.FieldSubrubro),
			Prices:      []domain.CatalogPrice{},
		}

		for _, row := range prices.byCode[priceKey(code)] {
			cp := domain.CatalogPrice{List: rowList(row)}
			if net, ok := row.Float(domain.FieldNetPrice); ok {
				cp.NetPrice = &net
			}
			if gross, ok := row.Float(domain.FieldGrossPrice); ok {
				cp.GrossPrice = &gross
			}
			entry.Prices = append(entry.Prices, cp)

			if price, ok := effectivePrice(row); ok {
				if entry.MinPrice == nil || price < *entry.MinPrice {
					p := price
					entry.MinPrice = &p
				}
				if entry.MaxPrice == nil || price > *entry.MaxPrice {
					p := price
					entry.MaxPrice = &p
				}
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// Join pairs every row of left with every row of right whose key values
// match, ignoring case and surrounding spaces. Blank keys are inferred from
// the first row of each side. A positive limit caps the joined rows.
func (s *DatasetService) Join(ctx context.Context, left, right, leftKey, rightKey string, limit int) (domain.JoinResult, error) {
	if left == "" || right == "" {
		return domain.JoinResult{}, fmt.Errorf("%w: left and right datasets are required", domain.ErrInvalidRequest)
	}
	for _, key := range []string{left, right} {
		if !isKnownDataset(key) {
			return domain.JoinResult{}, fmt.Errorf("%w: %s", domain.ErrUnknownDataset, key)
		}
	}

	leftRows := s.store.GetDataset(ctx, left).Rows
	rightRows := s.store.GetDataset(ctx, right).Rows
	leftKey = joinKey(leftRows, leftKey)
	rightKey = joinKey(rightRows, rightKey)

	index := make(map[string][]domain.Row)
	for _, row := range rightRows {
		if k := priceKey(row.Str(rightKey)); k != "" {
			index[k] = append(index[k], row)
		}
	}

	joined := make([]domain.JoinedRow, 0)
outer:
	for _, row := range leftRows {
		k := priceKey(row.Str(leftKey))
		if k == "" {
			continue
		}
		for _, match := range index[k] {
			joined = append(joined, domain.JoinedRow{Key: k, Left: row, Right: match})
			if limit > 0 && len(joined) >= limit {
				break outer
			}
		}
	}

	return domain.JoinResult{
		Left:     left,
		Right:    right,
		LeftKey:  leftKey,
		RightKey: rightKey,
		Count:    len(joined),
		Rows:     joined,
	}, nil
}

// joinKey returns key, or the code field present in the first row,
// defaulting to COD_ALFABA
func joinKey(rows []domain.Row, key string) string {
	if key = strings.TrimSpace(key); key != "" {
		return key
	}
	if len(rows) > 0 {
		for _, field := range []string{domain.FieldCode, domain.FieldAltCode} {
			if _, ok := rows[0][field]; ok {
				return field
			}
		}
	}
	return domain.FieldCode
}

// CatalogExport wraps Catalog with product and price counts
func (s *DatasetService) CatalogExport(ctx context.Context) domain.Catalog {
	entries := s.Catalog(ctx)
	meta := domain.CatalogMeta{
		ExportedAt: s.now().UTC(),
		Products:   len(entries),
		PriceRows:  len(s.store.GetDataset(ctx, domain.DatasetPrices).Rows),
	}
	for _, e := range entries {
		if len(e.Prices) > 0 {
			meta.Priced++
		} else {
			meta.Unpriced++
		}
	}
	return domain.Catalog{Meta: meta, Entries: entries}
}

func isKnownDataset(key string) bool {
	for _, k := range KnownDatasets {
		if k == key {
			return true
		}
	}
	return false
}

// rowContains reports whether any scalar field (or any of fields) contains
// the normalized needle
func rowContains(row domain.Row, needle string, fields []string) bool {
	if len(fields) == 0 {
		for field := range row {
			if strings.Contains(Normalize(row.Str(field)), needle) {
				return true
			}
		}
		return false
	}
	for _, field := range fields {
		if strings.Contains(Normalize(row.Str(field)), needle) {
			return true
		}
	}
	return false
}

// project keeps only fields of row; the row itself is returned when fields
// is empty
func project(row domain.Row, fields []string) domain.Row {
	if len(fields) == 0 {
		return row
	}
	out := make(domain.Row, len(fields))
	for _, f := range fields {
		if v, ok := row[f]; ok {
			out[f] = v
		}
	}
	return out
}

// ParseFields splits a comma-separated field list, dropping blanks and
// duplicates
func ParseFields(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	seen := make(map[string]bool)
	var fields []string
	for _, f := range strings.Split(raw, ",") {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		fields = append(fields, f)
	}
	return fields
}
