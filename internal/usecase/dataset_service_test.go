package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
)

func datasetFixture() *MockDatasetStore {
	return NewMockDatasetStore().
		with(domain.DatasetProducts,
			domain.Row{domain.FieldCode: "ASE011", domain.FieldDescription1: "Defensa Toyota Hilux", domain.FieldBrand: "STEEL TIGER", domain.FieldRubro: "DEFENSAS"},
			domain.Row{domain.FieldCode: "BOC050", domain.FieldDescription1: "Bocha 50mm", domain.FieldRubro: "ENGANCHES"},
			domain.Row{domain.FieldCode: "ECO200", domain.FieldDescription1: "Enganche Ecosport"},
		).
		with(domain.DatasetPrices,
			priceRow("ASE011", "LISTA 1", 1000.0),
			priceRow("ase011", "LISTA 2", 900.0),
			priceRow("BOC050", "LISTA 1", nil),
		).
		with(domain.DatasetClients,
			domain.Row{domain.FieldName: "Camión Sur", domain.FieldPhone: "11 4444-0000"},
		)
}

func TestDatasetService_Summaries(t *testing.T) {
	store := datasetFixture()
	fetched := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	ds := store.datasets[domain.DatasetProducts]
	ds.Meta.FetchedAt = fetched
	store.datasets[domain.DatasetProducts] = ds

	summaries := NewDatasetService(store).Summaries(context.Background())

	require.Len(t, summaries, len(KnownDatasets))
	assert.Equal(t, domain.DatasetSummary{Key: domain.DatasetProducts, Count: 3, FetchedAt: fetched}, summaries[0])
	assert.Equal(t, 3, summaries[1].Count)
	assert.Equal(t, 1, summaries[2].Count)
	assert.Equal(t, domain.DatasetClientsIA, summaries[3].Key)
	assert.Zero(t, summaries[3].Count)
}

func TestDatasetService_Browse(t *testing.T) {
	svc := NewDatasetService(datasetFixture())
	ctx := context.Background()

	tests := []struct {
		name      string
		opts      BrowseOptions
		wantCodes []string
	}{
		{name: "all rows", opts: BrowseOptions{}, wantCodes: []string{"ASE011", "BOC050", "ECO200"}},
		{name: "accent and case insensitive filter", opts: BrowseOptions{Query: "ENGANCHE"}, wantCodes: []string{"BOC050", "ECO200"}},
		{name: "filter limited to fields", opts: BrowseOptions{Query: "enganche", Fields: []string{domain.FieldCode, domain.FieldDescription1}}, wantCodes: []string{"ECO200"}},
		{name: "limit", opts: BrowseOptions{Limit: 2}, wantCodes: []string{"ASE011", "BOC050"}},
		{name: "no match", opts: BrowseOptions{Query: "parrilla"}, wantCodes: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := svc.Browse(ctx, domain.DatasetProducts, tt.opts)
			require.NoError(t, err)

			codes := make([]string, 0, len(ds.Rows))
			for _, row := range ds.Rows {
				codes = append(codes, row.Str(domain.FieldCode))
			}
			assert.Equal(t, tt.wantCodes, codes)
			assert.Equal(t, len(tt.wantCodes), ds.Meta.Count)
			assert.Equal(t, domain.DatasetProducts, ds.Meta.Dataset)
		})
	}

	t.Run("projects fields", func(t *testing.T) {
		ds, err := svc.Browse(ctx, domain.DatasetProducts, BrowseOptions{Query: "hilux", Fields: []string{domain.FieldCode, domain.FieldDescription1, "NO_EXISTE"}})
		require.NoError(t, err)
		require.Len(t, ds.Rows, 1)
		assert.Equal(t, domain.Row{domain.FieldCode: "ASE011", domain.FieldDescription1: "Defensa Toyota Hilux"}, ds.Rows[0])
	})

	t.Run("unknown dataset", func(t *testing.T) {
		_, err := svc.Browse(ctx, "pedidos", BrowseOptions{})
		assert.ErrorIs(t, err, domain.ErrUnknownDataset)
	})

	t.Run("matches accented values", func(t *testing.T) {
		ds, err := svc.Browse(ctx, domain.DatasetClients, BrowseOptions{Query: "camion"})
		require.NoError(t, err)
		assert.Len(t, ds.Rows, 1)
	})
}

func TestDatasetService_Search(t *testing.T) {
	svc := NewDatasetService(datasetFixture())
	ctx := context.Background()

	tests := []struct {
		name     string
		query    string
		datasets []string
		fields   []string
		limit    int
		want     []string // dataset of each hit
		wantErr  error
	}{
		{name: "every dataset", query: "ase011", want: []string{domain.DatasetProducts, domain.DatasetPrices, domain.DatasetPrices}},
		{name: "one dataset with limit", query: "ase011", datasets: []string{domain.DatasetPrices}, fields: []string{domain.FieldCode}, limit: 1, want: []string{domain.DatasetPrices}},
		{name: "dataset list keeps its order", query: "sur", datasets: []string{domain.DatasetClients, domain.DatasetProducts}, want: []string{domain.DatasetClients}},
		{name: "several datasets", query: "lista 1", datasets: []string{domain.DatasetProducts, domain.DatasetPrices}, want: []string{domain.DatasetPrices, domain.DatasetPrices}},
		{name: "blank query", query: "  ", wantErr: domain.ErrInvalidRequest},
		{name: "unknown dataset", query: "x", datasets: []string{domain.DatasetPrices, "pedidos"}, wantErr: domain.ErrUnknownDataset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := svc.Search(ctx, tt.query, tt.datasets, tt.fields, tt.limit)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			got := make([]string, len(hits))
			for i, h := range hits {
				got[i] = h.Dataset
			}
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("projects hit rows", func(t *testing.T) {
		hits, err := svc.Search(ctx, "ase011", []string{domain.DatasetPrices}, []string{domain.FieldCode}, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, domain.Row{domain.FieldCode: "ASE011"}, hits[0].Row)
	})
}

func TestDatasetService_Catalog(t *testing.T) {
	entries := NewDatasetService(datasetFixture()).Catalog(context.Background())
	require.Len(t, entries, 3)

	hilux := entries[0]
	assert.Equal(t, "ASE011", hilux.Code)
	assert.Equal(t, "Defensa Toyota Hilux", hilux.Description)
	assert.Equal(t, "DEFENSAS", hilux.Category)
	require.Len(t, hilux.Prices, 2)
	assert.Equal(t, "LISTA 1", hilux.Prices[0].List)
	require.NotNil(t, hilux.MinPrice)
	require.NotNil(t, hilux.MaxPrice)
	assert.Equal(t, 900.0, *hilux.MinPrice)
	assert.Equal(t, 1000.0, *hilux.MaxPrice)

	bocha := entries[1]
	require.Len(t, bocha.Prices, 1)
	assert.Nil(t, bocha.Prices[0].NetPrice)
	assert.Nil(t, bocha.MinPrice)

	assert.Empty(t, entries[2].Prices)
	assert.NotNil(t, entries[2].Prices)
}

func TestDatasetService_Join(t *testing.T) {
	svc := NewDatasetService(datasetFixture())
	ctx := context.Background()

	tests := []struct {
		name         string
		left, right  string
		leftKey      string
		rightKey     string
		limit        int
		wantKeys     []string
		wantLeftKey  string
		wantRightKey string
		wantErr      error
	}{
		{
			name: "infers the code field", left: domain.DatasetProducts, right: domain.DatasetPrices,
			wantKeys: []string{"ASE011", "ASE011", "BOC050"}, wantLeftKey: domain.FieldCode, wantRightKey: domain.FieldCode,
		},
		{
			name: "limit", left: domain.DatasetProducts, right: domain.DatasetPrices, limit: 1,
			wantKeys: []string{"ASE011"}, wantLeftKey: domain.FieldCode, wantRightKey: domain.FieldCode,
		},
		{
			name: "explicit keys", left: domain.DatasetPrices, right: domain.DatasetProducts, leftKey: domain.FieldCategory, rightKey: domain.FieldRubro,
			wantKeys: []string{}, wantLeftKey: domain.FieldCategory, wantRightKey: domain.FieldRubro,
		},
		{
			name: "empty side defaults to the code field", left: domain.DatasetClientsIA, right: domain.DatasetPrices,
			wantKeys: []string{}, wantLeftKey: domain.FieldCode, wantRightKey: domain.FieldCode,
		},
		{name: "missing right", left: domain.DatasetProducts, wantErr: domain.ErrInvalidRequest},
		{name: "unknown dataset", left: domain.DatasetProducts, right: "pedidos", wantErr: domain.ErrUnknownDataset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Join(ctx, tt.left, tt.right, tt.leftKey, tt.rightKey, tt.limit)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			keys := make([]string, len(res.Rows))
			for i, r := range res.Rows {
				keys[i] = r.Key
			}
			assert.Equal(t, tt.wantKeys, keys)
			assert.Equal(t, len(tt.wantKeys), res.Count)
			assert.Equal(t, tt.wantLeftKey, res.LeftKey)
			assert.Equal(t, tt.wantRightKey, res.RightKey)
			assert.Equal(t, tt.left, res.Left)
		})
	}

	t.Run("pairs whole rows", func(t *testing.T) {
		res, err := svc.Join(ctx, domain.DatasetProducts, domain.DatasetPrices, "", "", 0)
		require.NoError(t, err)
		require.NotEmpty(t, res.Rows)
		assert.Equal(t, "Defensa Toyota Hilux", res.Rows[1].Left.Str(domain.FieldDescription1))
		assert.Equal(t, "LISTA 2", res.Rows[1].Right.Str(domain.FieldCategory))
	})
}

func TestDatasetService_CatalogExport(t *testing.T) {
	svc := NewDatasetService(datasetFixture())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("ART", -3*3600)) }

	catalog := svc.CatalogExport(context.Background())

	assert.Equal(t, domain.CatalogMeta{
		ExportedAt: time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
		Products:   3,
		Priced:     2,
		Unpriced:   1,
		PriceRows:  3,
	}, catalog.Meta)
	assert.Len(t, catalog.Entries, 3)
}

func TestDatasetService_All(t *testing.T) {
	all := NewDatasetService(datasetFixture()).All(context.Background())

	require.Len(t, all, len(KnownDatasets))
	for i, ds := range all {
		assert.Equal(t, KnownDatasets[i], ds.Meta.Dataset)
		assert.Equal(t, len(ds.Rows), ds.Meta.Count)
		assert.NotNil(t, ds.Rows)
	}
	assert.Len(t, all[0].Rows, 3)
	assert.Len(t, all[1].Rows, 3)
	assert.Empty(t, all[3].Rows)
}

func TestParseFields(t *testing.T) {
	assert.Nil(t, ParseFields(""))
	assert.Nil(t, ParseFields(" , "))
	assert.Equal(t, []string{"COD_ALFABA", "DETALLE"}, ParseFields("COD_ALFABA, DETALLE,,COD_ALFABA"))
}
