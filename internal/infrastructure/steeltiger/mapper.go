package steeltiger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
)

// DatasetQueries maps dataset keys to the ERP query that produces them
var DatasetQueries = map[string]string{
	domain.DatasetClients:   "Clientes",
	domain.DatasetClientsIA: "ClientesIA",
	domain.DatasetProducts:  "Productos",
	domain.DatasetPrices:    "ListaDePrecios",
}

// QueryName returns the ERP query for a dataset key
func QueryName(key string) (string, error) {
	name, ok := DatasetQueries[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownDataset, key)
	}
	return name, nil
}

// queryRequest is the body of a RecuperarDatos_ERP_por_Query call
type queryRequest struct {
	License    string `json:"_licencia"`
	User       string `json:"_usuario"`
	Password   string `json:"_password"`
	CUIT       string `json:"_cuit"`
	Parameters any    `json:"_parametros"`
	PureJSON   bool   `json:"jsonPuro"`
	Query      string `json:"_query"`
}

// queryResponse is the ERP answer. Datos is usually an array of rows but
// the ERP sends other shapes on empty results.
type queryResponse struct {
	Datos json.RawMessage `json:"Datos"`
}

// authRequest is the body of an Autorizacion call
type authRequest struct {
	License string `json:"_licencia"`
	Email   string `json:"_email"`
}

// AuthResult reports the ERP answer to an authorization request
type AuthResult struct {
	OK       bool `json:"ok"`
	Status   int  `json:"status"`
	Response any  `json:"response"`
}

// MapToDataset decodes an ERP response body into a dataset
func MapToDataset(key, query string, body []byte, fetchedAt time.Time) (domain.Dataset, error) {
	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Dataset{}, fmt.Errorf("failed to decode response: %w", err)
	}

	rows := []domain.Row{}
	if trimmed := bytes.TrimSpace(resp.Datos); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return domain.Dataset{}, fmt.Errorf("failed to decode rows: %w", err)
		}
	}

	// null array elements carry no data
	kept := rows[:0]
	for _, row := range rows {
		if row != nil {
			kept = append(kept, row)
		}
	}

	return domain.Dataset{
		Meta: domain.DatasetMeta{
			Dataset:   key,
			Query:     query,
			Count:     len(kept),
			FetchedAt: fetchedAt.UTC(),
		},
		Rows: kept,
	}, nil
}

// decodeAuthResponse keeps JSON bodies as values and anything else as raw text
func decodeAuthResponse(body []byte) any {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return map[string]string{"raw": string(body)}
	}
	return v
}
