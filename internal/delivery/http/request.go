package http

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
)

// queryBody is the JSON body of a price question. Some chat platforms wrap
// the real payload as {"body":{"body":{...}}}; the innermost one wins.
type queryBody struct {
	Question    string      `json:"question"`
	PhoneNumber string      `json:"phoneNumber"`
	PhoneAlias  string      `json:"_phoneNumber"`
	ProductCode string      `json:"productCode"`
	Limit       flexibleInt `json:"limit"`
	Body        *envelope   `json:"body"`
}

type envelope struct {
	Body *queryBody `json:"body"`
}

// unwrap returns the innermost payload of a nested envelope
func (b queryBody) unwrap() queryBody {
	if b.Body != nil && b.Body.Body != nil {
		return b.Body.Body.unwrap()
	}
	return b
}

func (b queryBody) toRequest() domain.QueryRequest {
	phone := b.PhoneNumber
	if phone == "" {
		phone = b.PhoneAlias
	}
	return domain.QueryRequest{
		Question:    b.Question,
		PhoneNumber: strings.TrimSpace(phone),
		ProductCode: strings.TrimSpace(b.ProductCode),
		Limit:       int(b.Limit),
	}
}

// flexibleInt accepts a JSON number or a numeric string. Anything else,
// including a string that does not parse, decodes as zero.
type flexibleInt int

func (f *flexibleInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			n = 0
		}
		*f = flexibleInt(n)
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleInt(int(n))
	return nil
}

// parseLimit reads an optional non-negative limit query parameter
func parseLimit(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
