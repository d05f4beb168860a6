package domain

// QueryRequest represents a free-text price question
type QueryRequest struct {
	Question    string `json:"question"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	ProductCode string `json:"productCode,omitempty"`
	Limit       int    `json:"limit,omitempty"` // zero means no cap
}

// Match is one product offered in an answer, priced for the active list
type Match struct {
	Product        string  `json:"producto"`
	SKU            string  `json:"sku"`
	Brand          string  `json:"marca,omitempty"`
	Model          string  `json:"modelo,omitempty"`
	Price          float64 `json:"precioNumerico"`
	PriceFormatted string  `json:"precio"`
	List           string  `json:"listaCategoria,omitempty"`
}

// QueryResult is the answer to a QueryRequest. Matches is never nil.
type QueryResult struct {
	Answer     string  `json:"answer"`
	Matches    []Match `json:"matches"`
	ClientList string  `json:"clientList,omitempty"`
}
