package usecase

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rs/zerolog"

	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
)

// Token similarity bands. Any literal substring hit scores at least
// substringFloor; approximate hits never exceed fuzzyCeiling.
const (
	substringFloor     = 0.8
	fuzzyCeiling       = 0.7
	abbreviationScore  = 0.5
	sharedSubstringMin = 3
	defaultMinSim      = 0.4
)

// Deterministic boosts applied on top of the fuzzy score
const (
	descriptionTokenBoost = 0.5 // token found in the primary description
	leadingWordsBoost     = 1.0 // token found in its first three words
	skuMatchBoost         = 2.0 // SKU candidate equals the row code
	fallbackSKUBoost      = 5.0 // same, for the brute-force scan
	leadingWordCount      = 3
)

// FieldWeight is the relative influence of one row field on the score
type FieldWeight struct {
	Field  string
	Weight float64
}

// RankProfile describes how rows of one dataset are searched
type RankProfile struct {
	Name          string
	Fields        []FieldWeight
	PrimaryFields []string // description used for boosts, first non-empty wins
	CodeField     string
}

// ProductProfile ranks rows of the product catalog
var ProductProfile = RankProfile{
	Name: "productos",
	Fields: []FieldWeight{
		{Field: domain.FieldDescription1, Weight: 0.4},
		{Field: domain.FieldDescription, Weight: 0.4},
		{Field: domain.FieldModel, Weight: 0.25},
		{Field: domain.FieldBrand, Weight: 0.2},
		{Field: domain.FieldRubro, Weight: 0.15},
		{Field: domain.FieldSubrubro, Weight: 0.1},
		{Field: domain.FieldCategory, Weight: 0.1},
		{Field: domain.FieldCode, Weight: 0.1},
		{Field: domain.FieldAltCode, Weight: 0.05},
	},
	PrimaryFields: []string{domain.FieldDescription1, domain.FieldDescription},
	CodeField:     domain.FieldCode,
}

// PriceProfile ranks rows of the price list
var PriceProfile = RankProfile{
	Name: "lista_precios",
	Fields: []FieldWeight{
		{Field: domain.FieldDescription, Weight: 0.5},
		{Field: domain.FieldDescription1, Weight: 0.5},
		{Field: domain.FieldRubro, Weight: 0.15},
		{Field: domain.FieldSubrubro, Weight: 0.15},
		{Field: domain.FieldCode, Weight: 0.1},
		{Field: domain.FieldCategory, Weight: 0.1},
	},
	PrimaryFields: []string{domain.FieldDescription, domain.FieldDescription1},
	CodeField:     domain.FieldCode,
}

// RankerConfig holds configuration for the ranker
type RankerConfig struct {
	// MinSimilarity is the token similarity (0-1] a field needs to count as
	// a hit. Lower is more permissive.
	MinSimilarity float64
}

// Ranker orders dataset rows by how well they match a token set
type Ranker struct {
	minSimilarity float64
	logger        zerolog.Logger
}

// NewRanker creates a ranker with the given configuration
func NewRanker(config RankerConfig, logger zerolog.Logger) *Ranker {
	minSim := config.MinSimilarity
	if minSim <= 0 || minSim > 1 {
		minSim = defaultMinSim
	}

	return &Ranker{
		minSimilarity: minSim,
		logger:        logger,
	}
}

type scoredRow struct {
	row   domain.Row
	score float64
}

// normalizedRow holds the normalized profile fields of one row, in
// profile.Fields order, plus its normalized primary description.
type normalizedRow struct {
	fields  []string
	primary string
}

// normalizeRows normalizes every profile field of rows once. Repeated
// values (brands, categories) share a single Normalize call.
func normalizeRows(rows []domain.Row, profile RankProfile) []normalizedRow {
	memo := make(map[string]string)
	norm := func(v string) string {
		if v == "" {
			return ""
		}
		n, ok := memo[v]
		if !ok {
			n = Normalize(v)
			memo[v] = n
		}
		return n
	}

	out := make([]normalizedRow, len(rows))
	for i, row := range rows {
		fields := make([]string, len(profile.Fields))
		for j, fw := range profile.Fields {
			fields[j] = norm(row.Str(fw.Field))
		}
		out[i] = normalizedRow{fields: fields, primary: norm(row.Str(profile.PrimaryFields...))}
	}
	return out
}

// Rank returns the rows matching tokens, best first. Rows with equal scores
// keep their dataset order. When the approximate pass finds nothing it falls
// back to counting literal token occurrences, so any row that contains a
// token is still returned.
func (r *Ranker) Rank(rows []domain.Row, tokens []string, sku string, profile RankProfile) []domain.Row {
	normTokens := normalizeTokens(tokens)
	if len(normTokens) == 0 || len(rows) == 0 {
		return []domain.Row{}
	}
	sku = strings.ToUpper(strings.TrimSpace(sku))

	normalized := normalizeRows(rows, profile)

	scored := make([]scoredRow, 0)
	for i, row := range rows {
		base, hit := r.fuzzyScore(normalized[i], normTokens, profile)
		if !hit {
			continue
		}
		scored = append(scored, scoredRow{
			row:   row,
			score: base + boostScore(row, normalized[i].primary, normTokens, sku, profile),
		})
	}

	fallback := false
	if len(scored) == 0 {
		fallback = true
		scored = bruteForceScan(rows, normalized, normTokens, sku, profile)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	r.logger.Debug().
		Str("profile", profile.Name).
		Int("rows", len(rows)).
		Int("tokens", len(normTokens)).
		Int("matched", len(scored)).
		Bool("fallback", fallback).
		Msg("ranked rows")

	out := make([]domain.Row, len(scored))
	for i, s := range scored {
		out[i] = s.row
	}
	return out
}

// fuzzyScore computes the weighted mean of per-field token similarity.
// The second result reports whether any token hit any field.
func (r *Ranker) fuzzyScore(row normalizedRow, tokens []string, profile RankProfile) (float64, bool) {
	var total, weightSum float64
	hit := false

	for i, fw := range profile.Fields {
		weightSum += fw.Weight

		value := row.fields[i]
		if value == "" {
			continue
		}
		words := strings.Fields(value)

		var fieldScore float64
		for _, t := range tokens {
			sim := tokenSimilarity(t, value, words)
			if sim >= r.minSimilarity {
				fieldScore += sim
				hit = true
			}
		}
		total += fw.Weight * fieldScore / float64(len(tokens))
	}

	if weightSum == 0 {
		return 0, hit
	}
	return total / weightSum, hit
}

// tokenSimilarity scores a normalized token against a normalized field value.
// Literal substrings score in [substringFloor, 1], earlier positions higher.
// Otherwise the best of edit-distance similarity against each word, in-order
// abbreviation and longest shared substring is used, capped at fuzzyCeiling.
func tokenSimilarity(token, value string, words []string) float64 {
	tokenLen := runeLen(token)

	// Short tokens ("19", "vw") only count as whole words.
	if tokenLen < sharedSubstringMin {
		for _, w := range words {
			if w == token {
				return 1.0
			}
		}
		return 0
	}

	if idx := strings.Index(value, token); idx >= 0 {
		position := float64(idx) / float64(len(value))
		return substringFloor + (1-substringFloor)*(1-position)
	}

	best := 0.0
	for _, w := range words {
		wordLen := runeLen(w)
		if wordLen < 2 {
			continue
		}
		dist := fuzzy.LevenshteinDistance(token, w)
		longest := max(tokenLen, wordLen)
		if sim := (1 - float64(dist)/float64(longest)) * fuzzyCeiling; sim > best {
			best = sim
		}
		if tokenLen >= 4 && fuzzy.Match(token, w) {
			best = max(best, abbreviationScore)
		}
	}

	if !sharesGram(token, value, sharedSubstringMin) {
		return best
	}
	if shared := longestCommonSubstring(token, value); shared >= sharedSubstringMin {
		sim := defaultMinSim + (fuzzyCeiling-defaultMinSim)*float64(shared)/float64(tokenLen)
		best = max(best, min(sim, fuzzyCeiling))
	}

	return best
}

// boostScore adds the deterministic boosts for description and SKU hits
func boostScore(row domain.Row, primary string, tokens []string, sku string, profile RankProfile) float64 {
	leading := strings.Join(firstWords(primary, leadingWordCount), " ")

	boost := 0.0
	early := false
	for _, t := range tokens {
		if runeLen(t) < 3 || !strings.Contains(primary, t) {
			continue
		}
		boost += descriptionTokenBoost
		if strings.Contains(leading, t) {
			early = true
		}
	}
	if early {
		boost += leadingWordsBoost
	}

	if sku != "" && codeEquals(row.Str(profile.CodeField), sku) {
		boost += skuMatchBoost
	}

	return boost
}

// bruteForceScan counts literal token occurrences across every profile field
func bruteForceScan(rows []domain.Row, normalized []normalizedRow, tokens []string, sku string, profile RankProfile) []scoredRow {
	var scored []scoredRow
	for i, row := range rows {
		searchText := strings.Join(normalized[i].fields, " ")

		score := 0.0
		for _, t := range tokens {
			if strings.Contains(searchText, t) {
				score++
			}
		}
		if sku != "" && codeEquals(row.Str(profile.CodeField), sku) {
			score += fallbackSKUBoost
		}
		if score > 0 {
			scored = append(scored, scoredRow{row: row, score: score})
		}
	}
	return scored
}

func firstWords(s string, n int) []string {
	words := strings.Fields(s)
	if len(words) > n {
		return words[:n]
	}
	return words
}

// codeEquals compares product codes ignoring case and surrounding spaces
func codeEquals(a, b string) bool {
	a = strings.TrimSpace(a)
	return a != "" && strings.EqualFold(a, strings.TrimSpace(b))
}

// sharesGram reports whether a and b have a common run of n runes. When it
// is false their longest common substring is shorter than n.
func sharesGram(a, b string, n int) bool {
	ra := []rune(a)
	if len(ra) < n {
		return false
	}
	for i := 0; i+n <= len(ra); i++ {
		if strings.Contains(b, string(ra[i:i+n])) {
			return true
		}
	}
	return false
}

// longestCommonSubstring returns the length in runes of the longest run
// shared by a and b
func longestCommonSubstring(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	longest := 0
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > longest {
					longest = curr[j]
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return longest
}
