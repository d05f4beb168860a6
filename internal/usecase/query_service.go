package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
)

const (
	retryCandidateLimit = 5
	promptSampleRows    = 50
	promptSampleBytes   = 8000

	// DefaultPhonePlaceholder is the literal some callers send when the
	// phone variable of their template was never filled in
	DefaultPhonePlaceholder = "_phoneNumber"

	summarizerInstruction = "Responde en una sola oración, breve. Si no hay coincidencias, sugiere buscar por código o palabras clave exactas."
)

// QueryServiceConfig holds configuration for the query service
type QueryServiceConfig struct {
	DefaultList      string
	PhonePlaceholder string
	CountryCode      string
	MinSimilarity    float64
}

// QueryService answers free-text price questions against the product and
// price datasets. Provider, refresher and summarizer are optional.
type QueryService struct {
	store      domain.DatasetStore
	provider   domain.DatasetProvider
	refresher  domain.DatasetRefresher
	summarizer domain.Summarizer

	parser  *QueryParser
	ranker  *Ranker
	clients *ClientLookup

	defaultList string
	placeholder string
	logger      zerolog.Logger
}

// NewQueryService creates a new query service with dependencies
func NewQueryService(
	store domain.DatasetStore,
	provider domain.DatasetProvider,
	refresher domain.DatasetRefresher,
	summarizer domain.Summarizer,
	config QueryServiceConfig,
	logger zerolog.Logger,
) *QueryService {
	defaultList := config.DefaultList
	if defaultList == "" {
		defaultList = BaselineList
	}
	placeholder := config.PhonePlaceholder
	if placeholder == "" {
		placeholder = DefaultPhonePlaceholder
	}

	logger = logger.With().Str("component", "query_service").Logger()

	return &QueryService{
		store:       store,
		provider:    provider,
		refresher:   refresher,
		summarizer:  summarizer,
		parser:      NewQueryParser(logger),
		ranker:      NewRanker(RankerConfig{MinSimilarity: config.MinSimilarity}, logger),
		clients:     NewClientLookup(config.CountryCode),
		defaultList: defaultList,
		placeholder: placeholder,
		logger:      logger,
	}
}

type stageOutcome int

const (
	outcomeMatched stageOutcome = iota
	outcomeEmpty
	outcomeNeedsRetry
)

func (o stageOutcome) String() string {
	switch o {
	case outcomeMatched:
		return "matched"
	case outcomeEmpty:
		return "empty"
	default:
		return "needs_retry"
	}
}

type stageResult struct {
	outcome stageOutcome
	result  domain.QueryResult
}

func matched(result domain.QueryResult) stageResult {
	return stageResult{outcome: outcomeMatched, result: result}
}

func empty(answer string) stageResult {
	return stageResult{
		outcome: outcomeEmpty,
		result:  domain.QueryResult{Answer: answer, Matches: []domain.Match{}},
	}
}

// snapshot is the product and price data one request works on
type snapshot struct {
	products []domain.Row
	prices   []domain.Row
}

// interpretation is the parsed question with its expanded token set
type interpretation struct {
	parsed ParsedQuery
	tokens []string
}

// Answer runs the lookup cascade for one question. Collaborator failures
// degrade the answer and are never returned; the only error is a blank
// question.
func (s *QueryService) Answer(ctx context.Context, req domain.QueryRequest) (domain.QueryResult, error) {
	if strings.TrimSpace(req.Question) == "" {
		return domain.QueryResult{}, fmt.Errorf("%w: question is required", domain.ErrInvalidRequest)
	}
	if req.Limit < 0 {
		req.Limit = 0
	}

	log := s.logger.With().Str("question", req.Question).Logger()

	if res, ok := s.directLookup(ctx, req); ok {
		log.Info().Str("stage", "direct").Stringer("outcome", res.outcome).Msg("query answered")
		return res.result, nil
	}

	snap := s.loadSnapshot(ctx)
	interp := s.interpret(req.Question)
	list := s.activeList(ctx, req.PhoneNumber)

	stage := "search"
	res := s.search(snap, interp, list, req.Limit)

	if res.outcome == outcomeNeedsRetry {
		stage = "retry"
		res = s.retry(ctx, interp, list)
	}

	if res.outcome == outcomeEmpty {
		stage = "fallback"
		res = s.fallback(ctx, req.Question, snap)
	}

	if res.outcome == outcomeMatched {
		res.result.ClientList = list
	}

	log.Info().
		Str("stage", stage).
		Stringer("outcome", res.outcome).
		Int("matches", len(res.result.Matches)).
		Str("list", list).
		Msg("query answered")

	return res.result, nil
}

// directLookup prices an explicit product code for the client owning the
// phone number. The second result is false when the request does not
// qualify for a direct lookup.
func (s *QueryService) directLookup(ctx context.Context, req domain.QueryRequest) (stageResult, bool) {
	phone := strings.TrimSpace(req.PhoneNumber)
	code := strings.TrimSpace(req.ProductCode)
	if phone == "" || code == "" || phone == s.placeholder {
		return stageResult{}, false
	}

	client, ok := s.clients.FindClient(phone, s.clientRows(ctx)...)
	if !ok {
		return empty(clientNotFoundMessage(phone)), true
	}

	list := ResolveList(client)
	priced, ok := ResolvePrice(code, s.loadRows(ctx, domain.DatasetPrices), list)
	if !ok {
		return empty(priceNotFoundMessage(code, list)), true
	}

	sku := priceKey(code)
	formatted := FormatCurrency(priced.Price)
	matchList := priced.List
	if matchList == "" {
		matchList = list
	}

	return matched(domain.QueryResult{
		Answer: directMessage(ClientName(client), list, priced.Price),
		Matches: []domain.Match{{
			Product:        priced.Row.Str(domain.FieldDescription, domain.FieldDescription1),
			SKU:            sku,
			Price:          priced.Price,
			PriceFormatted: formatted,
			List:           matchList,
		}},
		ClientList: list,
	}), true
}

// activeList resolves the price list for an optional phone number
func (s *QueryService) activeList(ctx context.Context, phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" || phone == s.placeholder {
		return s.defaultList
	}
	client, ok := s.clients.FindClient(phone, s.clientRows(ctx)...)
	if !ok {
		return s.defaultList
	}
	if list := client.Str(clientListFields...); list != "" {
		return list
	}
	return s.defaultList
}

func (s *QueryService) clientRows(ctx context.Context) [][]domain.Row {
	sets := make([][]domain.Row, 0, len(domain.ClientDatasets))
	for _, key := range domain.ClientDatasets {
		sets = append(sets, s.store.GetDataset(ctx, key).Rows)
	}
	return sets
}

func (s *QueryService) loadSnapshot(ctx context.Context) snapshot {
	return snapshot{
		products: s.loadRows(ctx, domain.DatasetProducts),
		prices:   s.loadRows(ctx, domain.DatasetPrices),
	}
}

// loadRows reads a dataset from the store and, when it is empty, fetches it
// once from the provider. A failed fetch leaves the stored rows in place.
func (s *QueryService) loadRows(ctx context.Context, key string) []domain.Row {
	stored := s.store.GetDataset(ctx, key)
	if len(stored.Rows) > 0 || s.provider == nil {
		return stored.Rows
	}

	remote, err := s.provider.FetchDataset(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("dataset", key).Msg("remote dataset fetch failed")
		return stored.Rows
	}
	return remote.Rows
}

func (s *QueryService) interpret(question string) interpretation {
	parsed := s.parser.Parse(question)
	raw := append(append([]string{}, parsed.Tokens...), rawWords(question, 3)...)
	return interpretation{
		parsed: parsed,
		tokens: s.parser.Expand(raw),
	}
}

// search ranks the snapshot and prices every ranked product. When no
// product survives it tries the best price-only row before asking for a
// retry.
func (s *QueryService) search(snap snapshot, interp interpretation, list string, limit int) stageResult {
	ranked := capRows(s.ranker.Rank(snap.products, interp.tokens, interp.parsed.SKU, ProductProfile), limit)
	prices := NewPriceIndex(snap.prices)
	year := interp.parsed.TargetYear

	matches, descriptions := priceProducts(ranked, prices, list, year)
	ac := answerContext{list: list, targetYear: year, yearFilter: true, tokens: interp.tokens}

	switch {
	case len(matches) > summaryThreshold:
		return matched(domain.QueryResult{
			Answer:  composeAnswer(summaryMessage(len(matches)), matches, descriptions, ac),
			Matches: matches,
		})
	case len(matches) > 0:
		return matched(domain.QueryResult{
			Answer:  composeAnswer(detailMessage(matches[0]), matches, descriptions, ac),
			Matches: matches,
		})
	}

	priceOnly := capRows(s.ranker.Rank(snap.prices, interp.tokens, interp.parsed.SKU, PriceProfile), limit)
	if m, desc, ok := bestPriceOnly(priceOnly, snap.products, prices, list, year); ok {
		return matched(domain.QueryResult{
			Answer:  composeAnswer(detailMessage(m), []domain.Match{m}, []string{desc}, ac),
			Matches: []domain.Match{m},
		})
	}

	return stageResult{outcome: outcomeNeedsRetry}
}

// retry forces a refresh, re-reads the store and takes the top candidates
// without year filtering
func (s *QueryService) retry(ctx context.Context, interp interpretation, list string) stageResult {
	if s.refresher != nil {
		if err := s.refresher.RefreshDatasets(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("forced dataset refresh failed")
		}
	}

	products := s.store.GetDataset(ctx, domain.DatasetProducts).Rows
	prices := NewPriceIndex(s.store.GetDataset(ctx, domain.DatasetPrices).Rows)

	ranked := capRows(s.ranker.Rank(products, interp.tokens, interp.parsed.SKU, ProductProfile), retryCandidateLimit)
	matches, descriptions := priceProducts(ranked, prices, list, 0)
	if len(matches) == 0 {
		return stageResult{outcome: outcomeEmpty}
	}

	ac := answerContext{list: list, tokens: interp.tokens}
	return matched(domain.QueryResult{
		Answer:  composeAnswer(detailMessage(matches[0]), matches, descriptions, ac),
		Matches: matches,
	})
}

// fallback asks the summarizer for a short answer, or returns the fixed
// no-results message when it is unavailable
func (s *QueryService) fallback(ctx context.Context, question string, snap snapshot) stageResult {
	if s.summarizer == nil || len(snap.products) == 0 {
		return empty(NoResultsMessage)
	}

	answer, err := s.summarizer.Summarize(ctx, buildSummaryPrompt(question, snap.products))
	if err != nil {
		s.logger.Warn().Err(err).Msg("summarizer failed")
		return empty(NoResultsMessage)
	}
	if answer = strings.TrimSpace(answer); answer == "" {
		return empty(NoResultsMessage)
	}
	return empty(answer)
}

// priceProducts builds a match for every product with a price under list
// and a description compatible with year. Products without a price or
// outside the year range are skipped.
func priceProducts(products []domain.Row, prices *PriceIndex, list string, year int) ([]domain.Match, []string) {
	matches := make([]domain.Match, 0, len(products))
	descriptions := make([]string, 0, len(products))

	for _, product := range products {
		code := product.Str(domain.FieldCode)
		priced, ok := prices.Resolve(code, list)
		if !ok {
			continue
		}
		description := product.Str(domain.FieldDescription1, domain.FieldDescription)
		if !IsCompatible(description, year) {
			continue
		}
		matches = append(matches, buildMatch(product, priced, code, description))
		descriptions = append(descriptions, description)
	}
	return matches, descriptions
}

// bestPriceOnly returns the first ranked price row that prices and passes
// the year filter, enriched with the product carrying its code
func bestPriceOnly(ranked, products []domain.Row, prices *PriceIndex, list string, year int) (domain.Match, string, bool) {
	for _, row := range ranked {
		code := row.Str(domain.FieldCode)
		product := findProduct(products, code)

		description := product.Str(domain.FieldDescription1, domain.FieldDescription)
		if description == "" {
			description = row.Str(domain.FieldDescription, domain.FieldDescription1)
		}
		if !IsCompatible(description, year) {
			continue
		}

		priced, ok := prices.Resolve(code, list)
		if !ok {
			price, hasPrice := effectivePrice(row)
			if !hasPrice {
				continue
			}
			priced = PricedRow{Row: row, Price: price, List: rowList(row)}
		}

		return buildMatch(product, priced, code, description), description, true
	}
	return domain.Match{}, "", false
}

func findProduct(products []domain.Row, code string) domain.Row {
	if strings.TrimSpace(code) == "" {
		return nil
	}
	for _, p := range products {
		if codeEquals(p.Str(domain.FieldCode), code) {
			return p
		}
	}
	return nil
}

func buildMatch(product domain.Row, priced PricedRow, code, description string) domain.Match {
	return domain.Match{
		Product:        description,
		SKU:            priceKey(code),
		Brand:          product.Str(domain.FieldBrand),
		Model:          product.Str(domain.FieldModel),
		Price:          priced.Price,
		PriceFormatted: FormatCurrency(priced.Price),
		List:           priced.List,
	}
}

func capRows(rows []domain.Row, limit int) []domain.Row {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

// buildSummaryPrompt embeds the question and a bounded product sample
func buildSummaryPrompt(question string, products []domain.Row) string {
	sample := products
	if len(sample) > promptSampleRows {
		sample = sample[:promptSampleRows]
	}

	encoded, err := json.Marshal(sample)
	if err != nil {
		encoded = []byte("[]")
	}

	return fmt.Sprintf("%s\nPregunta: %s\nEjemplos de productos (JSON): %s",
		summarizerInstruction, question, truncateUTF8(string(encoded), promptSampleBytes))
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
