// ABOUTME: Rule-based text classifier for the three business categories
// ABOUTME: Scores weighted keyword overlap with an optional contextual hint bias

package nlp

import (
	"math"
	"strings"
)

// Category identifies one of the three fixed business categories.
type Category string

// The three categories, in tie-break order.
const (
	CategoryVentas  Category = "ventas"
	CategorySoporte Category = "soporte"
	CategoryGeneral Category = "general"
)

// Categories lists every category in the deterministic order used for
// tie-breaking during classification.
var Categories = []Category{CategoryVentas, CategorySoporte, CategoryGeneral}

// Valid reports whether c is one of the three known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryVentas, CategorySoporte, CategoryGeneral:
		return true
	}
	return false
}

var salesKeywords = keywordSet(
	"precio", "precios", "costo", "costos", "plan", "planes", "pago", "pagar",
	"demo", "contratar", "factura", "licencia", "cotización", "cotizacion", "cuesta", "valor",
)

var supportKeywords = keywordSet(
	"error", "falla", "bug", "no funciona", "soporte", "ayuda", "problema",
	"reiniciar", "instalar", "actualizar", "restablecer", "contraseña", "contrasena", "falló", "fallo",
)

var generalKeywords = keywordSet(
	"horarios", "empresa", "contacto", "quienes son", "quiénes son", "ubicación", "ubicacion",
	"sobre", "información", "informacion", "telefono", "correo", "email",
)

func keywordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// substringHits counts keywords present as substrings of the normalized
// message. Multi-word keywords ("no funciona") only ever match here, so a
// single-word keyword that also appears as a token is counted twice. That
// double weighting is intentional.
func substringHits(msg string, keywords map[string]bool) int {
	hits := 0
	for k := range keywords {
		if strings.Contains(msg, k) {
			hits++
		}
	}
	return hits
}

func overlap(tokens, keywords map[string]bool) int {
	n := 0
	for t := range tokens {
		if keywords[t] {
			n++
		}
	}
	return n
}

// Classify scores the message against each category's keyword set and returns
// the winning category, a confidence in [0,1] and the per-category scores.
//
// Confidence is best/total rounded to two decimals, and exactly 0.0 when no
// keyword matched at all; callers treat 0-confidence as maximally uncertain.
// A non-empty hint adds one point to that category before comparison, biasing
// toward dialogue continuity.
func Classify(message string, hint Category) (Category, float64, map[Category]int) {
	msg := Normalize(message)
	tokens := Tokenize(msg)

	scores := map[Category]int{
		CategoryVentas:  overlap(tokens, salesKeywords) + substringHits(msg, salesKeywords),
		CategorySoporte: overlap(tokens, supportKeywords) + substringHits(msg, supportKeywords),
		CategoryGeneral: overlap(tokens, generalKeywords) + substringHits(msg, generalKeywords),
	}
	if hint.Valid() {
		scores[hint]++
	}

	best := CategoryVentas
	total := 0
	for _, c := range Categories {
		total += scores[c]
		if scores[c] > scores[best] {
			best = c
		}
	}

	if total == 0 {
		return best, 0.0, scores
	}
	confidence := math.Round(float64(scores[best])/float64(total)*100) / 100
	return best, confidence, scores
}
