package usecase

import (
	"strings"
	"unicode"

	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
)

// BaselineList is the price list used when a client has none assigned
const BaselineList = "LISTA 1"

const (
	defaultCountryCode = "54"
	nationalDigits     = 10

	// Argentine mobiles dialed from abroad carry a 9 between the country
	// and area codes, which the national form never has.
	argentinaCode       = "54"
	mobileInternational = "9"
)

var (
	phoneFields      = []string{domain.FieldPhone, domain.FieldMobile, domain.FieldPhoneAlt, domain.FieldWhatsApp}
	clientListFields = []string{domain.FieldPriceList, domain.FieldList, domain.FieldCategory}
)

// ClientLookup finds clients by phone number across client datasets
type ClientLookup struct {
	countryCode string
}

// NewClientLookup creates a lookup that strips countryCode from numbers
// longer than a national number. An empty code uses Argentina's.
func NewClientLookup(countryCode string) *ClientLookup {
	if countryCode == "" {
		countryCode = defaultCountryCode
	}
	return &ClientLookup{countryCode: countryCode}
}

// NormalizePhone reduces a phone number to its national digits
func (l *ClientLookup) NormalizePhone(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)

	if len(digits) > nationalDigits && strings.HasPrefix(digits, l.countryCode) {
		digits = strings.TrimPrefix(digits, l.countryCode)
		if l.countryCode == argentinaCode && len(digits) == nationalDigits+1 {
			digits = strings.TrimPrefix(digits, mobileInternational)
		}
	}
	return strings.TrimPrefix(digits, "0")
}

// FindClient returns the first row, across datasets in order, with a phone
// field equal to phone after normalization. A phone field may hold several
// numbers separated by "/", "," or ";".
func (l *ClientLookup) FindClient(phone string, datasets ...[]domain.Row) (domain.Row, bool) {
	target := l.NormalizePhone(phone)
	if target == "" {
		return nil, false
	}

	for _, rows := range datasets {
		for _, row := range rows {
			if l.rowHasPhone(row, target) {
				return row, true
			}
		}
	}
	return nil, false
}

func (l *ClientLookup) rowHasPhone(row domain.Row, target string) bool {
	for _, field := range phoneFields {
		value := row.Str(field)
		if value == "" {
			continue
		}
		numbers := strings.FieldsFunc(value, func(r rune) bool {
			return r == '/' || r == ',' || r == ';'
		})
		for _, n := range numbers {
			if l.NormalizePhone(n) == target {
				return true
			}
		}
	}
	return false
}

// ResolveList returns the client's assigned price list, or BaselineList
func ResolveList(client domain.Row) string {
	if client == nil {
		return BaselineList
	}
	if list := client.Str(clientListFields...); list != "" {
		return list
	}
	return BaselineList
}

// ClientName returns a display name for a client row
func ClientName(client domain.Row) string {
	return client.Str(domain.FieldName, domain.FieldCompany)
}
