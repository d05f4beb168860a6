package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Dataset keys served by the ERP provider
const (
	DatasetProducts  = "productos"
	DatasetPrices    = "lista_precios"
	DatasetClients   = "clientes"
	DatasetClientsIA = "clientes_ia"
)

// ClientDatasets are merged, in this order, when looking up a client
var ClientDatasets = []string{DatasetClients, DatasetClientsIA}

// Field names used by the ERP exports
const (
	FieldCode         = "COD_ALFABA"
	FieldAltCode      = "CODIGO"
	FieldDescription1 = "DETALLE1"
	FieldDescription  = "DETALLE"
	FieldBrand        = "MARCA"
	FieldModel        = "MODELO"
	FieldRubro        = "RUBRO"
	FieldSubrubro     = "SUBRUBRO"
	FieldCategory     = "CATEGORIA"
	FieldList         = "LISTA"
	FieldPriceList    = "LISTA_PRECIOS"
	FieldNetPrice     = "PRE_NETO"
	FieldGrossPrice   = "PRE_BRUTO"
	FieldPhone        = "TELEFONO"
	FieldMobile       = "CELULAR"
	FieldPhoneAlt     = "PHONE"
	FieldWhatsApp     = "WHATSAPP"
	FieldName         = "NOMBRE"
	FieldCompany      = "RAZON_SOCIAL"
)

// Row is one record of a tabular dataset. Values are JSON scalars or nil;
// unknown fields are carried along untouched.
type Row map[string]any

// Str returns the first non-empty value among fields, rendered as a trimmed
// string. Missing fields, nil values and nested objects are skipped.
func (r Row) Str(fields ...string) string {
	for _, field := range fields {
		value, ok := r[field]
		if !ok || value == nil {
			continue
		}
		if s := scalarString(value); s != "" {
			return s
		}
	}
	return ""
}

// Float returns the numeric value of field. The second result is false when
// the field is absent, null or not a number.
func (r Row) Float(field string) (float64, bool) {
	value, ok := r[field]
	if !ok || value == nil {
		return 0, false
	}

	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		if !strings.Contains(s, ".") {
			s = strings.Replace(s, ",", ".", 1)
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func scalarString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// DatasetMeta describes where a dataset came from
type DatasetMeta struct {
	Dataset   string    `json:"dataset"`
	Query     string    `json:"query,omitempty"`
	Count     int       `json:"count"`
	FetchedAt time.Time `json:"fetchedAt,omitempty"`
}

// Dataset is a named row set together with its metadata
type Dataset struct {
	Meta DatasetMeta `json:"meta"`
	Rows []Row       `json:"data"`
}

// EmptyDataset returns the value stores hand out on a miss
func EmptyDataset(key string) Dataset {
	return Dataset{
		Meta: DatasetMeta{Dataset: key},
		Rows: []Row{},
	}
}

// DatasetSummary is a short description of a stored dataset
type DatasetSummary struct {
	Key       string    `json:"key"`
	Count     int       `json:"count"`
	FetchedAt time.Time `json:"fetchedAt,omitempty"`
}

// SearchHit is one row found by a cross-dataset search
type SearchHit struct {
	Dataset string `json:"dataset"`
	Row     Row    `json:"row"`
}

// CatalogPrice is one price-list entry attached to a catalog product
type CatalogPrice struct {
	List       string   `json:"lista,omitempty"`
	NetPrice   *float64 `json:"precioNeto"`
	GrossPrice *float64 `json:"precioBruto"`
}

// CatalogEntry is a product joined with every price row that carries its code
type CatalogEntry struct {
	Code        string         `json:"codigo"`
	Description string         `json:"detalle"`
	Brand       string         `json:"marca,omitempty"`
	Model       string         `json:"modelo,omitempty"`
	Category    string         `json:"categoria,omitempty"`
	Prices      []CatalogPrice `json:"precios"`
	MinPrice    *float64       `json:"precioMin"`
	MaxPrice    *float64       `json:"precioMax"`
}

// CatalogMeta summarizes a catalog export
type CatalogMeta struct {
	ExportedAt time.Time `json:"exportedAt"`
	Products   int       `json:"totalProductos"`
	Priced     int       `json:"productosConPrecio"`
	Unpriced   int       `json:"productosSinPrecio"`
	PriceRows  int       `json:"totalRegistrosPrecios"`
}

// Catalog is the full products-with-prices export
type Catalog struct {
	Meta    CatalogMeta    `json:"meta"`
	Entries []CatalogEntry `json:"data"`
}

// JoinedRow pairs a left and a right row sharing a key value
type JoinedRow struct {
	Key   string `json:"key"`
	Left  Row    `json:"left"`
	Right Row    `json:"right"`
}

// JoinResult is the inner join of two datasets on one field each
type JoinResult struct {
	Left     string      `json:"left"`
	Right    string      `json:"right"`
	LeftKey  string      `json:"leftKey"`
	RightKey string      `json:"rightKey"`
	Count    int         `json:"count"`
	Rows     []JoinedRow `json:"rows"`
}
