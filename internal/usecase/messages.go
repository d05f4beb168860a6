package usecase

import (
	"fmt"
	"strings"

	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
)

// NoResultsMessage is the answer when nothing matched and no language model
// is available
const NoResultsMessage = "No encontré coincidencias locales. Probá con el código (ej. ASE011) o palabras más específicas."

const (
	summaryThreshold = 5

	yearNotationNote = "Nota: en las descripciones, \"16-21\" indica modelos 2016 a 2021 y \"22->\" indica modelo 2022 en adelante."
	hitchUpsellNote  = "Recordá que el enganche se complementa con bocha y ficha eléctrica. Consultanos si los necesitás."
)

var (
	hitchTriggers   = []string{"enganche", "enganches", "tow", "hitch"}
	hitchCompanions = []string{"bocha", "ficha"}
)

// answerContext carries what the message notes depend on
type answerContext struct {
	list       string
	targetYear int
	yearFilter bool
	tokens     []string
}

func summaryMessage(count int) string {
	return fmt.Sprintf("Encontré %d productos que coinciden con tu búsqueda. Aquí están los resultados:", count)
}

func detailMessage(m domain.Match) string {
	if m.SKU == "" {
		return fmt.Sprintf("Precio %s: %s", m.Product, m.PriceFormatted)
	}
	return fmt.Sprintf("Precio (%s) %s: %s", m.SKU, m.Product, m.PriceFormatted)
}

func directMessage(clientName, list string, price float64) string {
	if clientName == "" {
		clientName = "el cliente"
	}
	return fmt.Sprintf("Precio para %s (%s): %s", clientName, list, FormatCurrency(price))
}

func clientNotFoundMessage(phone string) string {
	return fmt.Sprintf("No encontré un cliente registrado con el teléfono %s.", phone)
}

func priceNotFoundMessage(code, list string) string {
	return fmt.Sprintf("No encontré precio para el código %s en %s.", strings.ToUpper(strings.TrimSpace(code)), list)
}

// composeAnswer appends the list label and the notes that apply to matches
func composeAnswer(head string, matches []domain.Match, descriptions []string, ac answerContext) string {
	lines := []string{head}

	if ac.list != "" {
		lines = append(lines, fmt.Sprintf("Lista de precios: %s.", ac.list))
	}

	for _, d := range descriptions {
		if HasYearNotation(d) {
			lines = append(lines, yearNotationNote)
			break
		}
	}

	if ac.yearFilter && ac.targetYear != 0 && len(matches) > 0 {
		lines = append(lines, fmt.Sprintf("Mostrando productos compatibles con modelo %d.", ac.targetYear))
	}

	if needsHitchUpsell(ac.tokens, descriptions) {
		lines = append(lines, hitchUpsellNote)
	}

	return strings.Join(lines, "\n")
}

// needsHitchUpsell reports whether the query is about tow hitches and none
// of the returned items include a companion part
func needsHitchUpsell(tokens, descriptions []string) bool {
	if len(descriptions) == 0 || !containsAny(tokens, hitchTriggers) {
		return false
	}
	for _, d := range descriptions {
		norm := Normalize(d)
		for _, c := range hitchCompanions {
			if strings.Contains(norm, c) {
				return false
			}
		}
	}
	return true
}

func containsAny(tokens, terms []string) bool {
	for _, t := range tokens {
		for _, term := range terms {
			if t == term {
				return true
			}
		}
	}
	return false
}
