package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// ParsedQuery holds what was extracted from a raw question
type ParsedQuery struct {
	Tokens     []string // lowercased words of two or more characters
	SKU        string   // upper-cased product code candidate, empty when none
	TargetYear int      // vehicle model year, zero when none detected
}

// Compiled regex patterns for query parsing
var (
	// Two or more letters followed by two or more letters, digits, dots or dashes (e.g. "ASE011", "DBN-114")
	skuPattern = regexp.MustCompile(`(?i)[a-z]{2,}[a-z0-9.\-]{2,}`)

	// A literal model year between 2000 and 2029
	fullYearPattern = regexp.MustCompile(`\b(20[0-2][0-9])\b`)

	// A two-digit year right after a vehicle brand or model ("nissan 19", "hilux 21")
	vehicleYearPattern = regexp.MustCompile(`\b(nissan|frontier|amarok|hilux|ranger|alaskan|s10|colorado)\s+(\d{2})\b`)
)

// tokenTrimSet is the punctuation stripped from the edges of query words
const tokenTrimSet = `,;:!?¿¡"'()[]`

// synonymGroups lists interchangeable terms. When any member shows up in a
// query every member of its group is searched for. Groups must stay disjoint.
var synonymGroups = [][]string{
	{"lona maritima", "cobertor", "tapa", "cover", "lona"},
	{"amarok", "vw amarok", "volkswagen amarok", "vw"},
	{"enganche", "enganches", "tow", "hitch"},
	{"defensa", "defensas", "bumper", "paragolpe", "paragolpes"},
	{"estribo", "estribos", "pisadera", "pisaderas"},
	{"barra antivuelco", "antivuelco", "jaula", "roll bar"},
	{"hilux", "toyota hilux"},
	{"ranger", "ford ranger"},
	{"frontier", "nissan frontier", "np300"},
	{"s10", "chevrolet s10"},
}

// QueryParser extracts tokens, product codes and model years from questions
type QueryParser struct {
	groups [][]string
	logger zerolog.Logger
}

// NewQueryParser creates a parser using the built-in synonym table
func NewQueryParser(logger zerolog.Logger) *QueryParser {
	groups := make([][]string, len(synonymGroups))
	for i, group := range synonymGroups {
		groups[i] = normalizeTokens(group)
	}

	return &QueryParser{
		groups: groups,
		logger: logger,
	}
}

// Parse extracts the literal token set, the SKU candidate and the target
// year from a raw question. It never fails; missing parts are left empty.
func (p *QueryParser) Parse(raw string) ParsedQuery {
	parsed := ParsedQuery{
		Tokens:     splitTokens(raw, 2),
		SKU:        extractSKU(raw),
		TargetYear: extractTargetYear(raw),
	}

	p.logger.Debug().
		Str("question", raw).
		Strs("tokens", parsed.Tokens).
		Str("sku", parsed.SKU).
		Int("target_year", parsed.TargetYear).
		Msg("query parsed")

	return parsed
}

// Expand normalizes tokens and adds every member of each synonym group that
// has a member among them. A multi-word member counts as present when each
// of its words is a token. The result is a set in first-seen order, and
// expanding it again returns it unchanged.
func (p *QueryParser) Expand(tokens []string) []string {
	expanded := normalizeTokens(tokens)
	present := make(map[string]bool, len(expanded))
	for _, t := range expanded {
		present[t] = true
	}

	for changed := true; changed; {
		changed = false
		for _, group := range p.groups {
			if !groupPresent(group, present) {
				continue
			}
			for _, member := range group {
				if !present[member] {
					present[member] = true
					expanded = append(expanded, member)
					changed = true
				}
			}
		}
	}

	return expanded
}

func groupPresent(group []string, present map[string]bool) bool {
	for _, member := range group {
		if present[member] {
			return true
		}
		words := strings.Fields(member)
		if len(words) < 2 {
			continue
		}
		all := true
		for _, w := range words {
			if !present[w] {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// splitTokens splits text on whitespace and keeps lowercased words of at
// least minLen characters, with surrounding punctuation removed.
func splitTokens(text string, minLen int) []string {
	words := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		word = strings.Trim(word, tokenTrimSet)
		if runeLen(word) < minLen {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// rawWords returns the whitespace-split words of text with at least minLen
// characters. Case is kept; surrounding punctuation is not.
func rawWords(text string, minLen int) []string {
	var words []string
	for _, w := range strings.Fields(text) {
		w = strings.Trim(w, tokenTrimSet)
		if runeLen(w) >= minLen {
			words = append(words, w)
		}
	}
	return words
}

func extractSKU(raw string) string {
	m := skuPattern.FindString(raw)
	return strings.ToUpper(m)
}

func extractTargetYear(raw string) int {
	text := Normalize(raw)

	if m := fullYearPattern.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		return year
	}

	if m := vehicleYearPattern.FindStringSubmatch(text); m != nil {
		short, _ := strconv.Atoi(m[2])
		return expandTwoDigitYear(short)
	}

	return 0
}
