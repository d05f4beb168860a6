package usecase

import (
	"regexp"
	"strconv"
)

// Year-range notations found in product descriptions
var (
	// "22->", "22>", "2022->": from that model year onward
	openYearRangePattern = regexp.MustCompile(`\b(\d{4}|\d{2})\s*-?>`)

	// "16-21", "2016-2021", "16 - 2021": bounded model years
	boundedYearRangePattern = regexp.MustCompile(`\b(\d{4}|\d{2})\s*-\s*(\d{4}|\d{2})\b`)
)

// YearRange is a span of vehicle model years. Open ranges have no upper bound.
type YearRange struct {
	Min  int
	Max  int
	Open bool
}

// Contains reports whether year falls inside the range
func (r YearRange) Contains(year int) bool {
	if r.Open {
		return year >= r.Min
	}
	return year >= r.Min && year <= r.Max
}

// IsCompatible reports whether a product description fits the target model
// year. A zero year or a description without year notation is always
// compatible.
func IsCompatible(description string, targetYear int) bool {
	if targetYear == 0 {
		return true
	}
	r, ok := ParseYearRange(description)
	if !ok {
		return true
	}
	return r.Contains(targetYear)
}

// ParseYearRange finds the first year-range notation in text
func ParseYearRange(text string) (YearRange, bool) {
	open := openYearRangePattern.FindStringSubmatchIndex(text)
	bounded := boundedYearRangePattern.FindStringSubmatchIndex(text)

	if open != nil && (bounded == nil || open[0] <= bounded[0]) {
		start, ok := parseYear(text[open[2]:open[3]])
		if ok {
			return YearRange{Min: start, Open: true}, true
		}
	}

	if bounded != nil {
		low, okLow := parseYear(text[bounded[2]:bounded[3]])
		high, okHigh := parseYear(text[bounded[4]:bounded[5]])
		if okLow && okHigh {
			if low > high {
				low, high = high, low
			}
			return YearRange{Min: low, Max: high}, true
		}
	}

	return YearRange{}, false
}

// HasYearNotation reports whether text carries a year-range notation
func HasYearNotation(text string) bool {
	_, ok := ParseYearRange(text)
	return ok
}

// parseYear reads a two- or four-digit year. Four-digit values outside
// 1900-2099 are not model years.
func parseYear(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	if len(s) == 2 {
		return expandTwoDigitYear(n), true
	}
	if n < 1900 || n > 2099 {
		return 0, false
	}
	return n, true
}

// expandTwoDigitYear maps 0-50 to the 2000s and 51-99 to the 1900s
func expandTwoDigitYear(n int) int {
	if n <= 50 {
		return 2000 + n
	}
	return 1900 + n
}
