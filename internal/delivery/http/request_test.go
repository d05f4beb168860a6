package http

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexibleInt(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{raw: `5`, want: 5},
		{raw: `5.9`, want: 5},
		{raw: `"12"`, want: 12},
		{raw: `" 7 "`, want: 7},
		{raw: `"diez"`, want: 0},
		{raw: `""`, want: 0},
		{raw: `null`, want: 0},
		{raw: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var body struct {
				Limit flexibleInt `json:"limit"`
			}
			err := json.Unmarshal([]byte(`{"limit":`+tt.raw+`}`), &body)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, int(body.Limit))
		})
	}
}

func TestQueryBody_Unwrap(t *testing.T) {
	var body queryBody
	raw := `{"question":"outer","body":{"body":{"question":"bocha 50","_phoneNumber":"1155551234","productCode":" ASE011 ","limit":"3"}}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &body))

	req := body.unwrap().toRequest()
	assert.Equal(t, "bocha 50", req.Question)
	assert.Equal(t, "1155551234", req.PhoneNumber)
	assert.Equal(t, "ASE011", req.ProductCode)
	assert.Equal(t, 3, req.Limit)
}

func TestQueryBody_PhoneNumberWinsOverAlias(t *testing.T) {
	var body queryBody
	require.NoError(t, json.Unmarshal([]byte(`{"question":"q","phoneNumber":"111","_phoneNumber":"222"}`), &body))
	assert.Equal(t, "111", body.unwrap().toRequest().PhoneNumber)
}

func TestParseLimit(t *testing.T) {
	n, ok := parseLimit("")
	assert.True(t, ok)
	assert.Zero(t, n)

	n, ok = parseLimit("25")
	assert.True(t, ok)
	assert.Equal(t, 25, n)

	_, ok = parseLimit("-1")
	assert.False(t, ok)

	_, ok = parseLimit("x")
	assert.False(t, ok)
}
