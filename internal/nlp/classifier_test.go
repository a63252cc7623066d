// ABOUTME: Tests for the keyword classifier and normalization helpers
// ABOUTME: Verifies confidence bounds, zero-hit behavior, hint bias and tie order

package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_ConfidenceBounds(t *testing.T) {
	inputs := []string{
		"quiero precios y planes",
		"tengo un error al entrar",
		"cuáles son sus horarios",
		"no me entra a la pagina",
		"asdfgh qwerty",
		"",
	}
	for _, in := range inputs {
		cat, conf, _ := Classify(in, "")
		assert.True(t, cat.Valid(), "input %q returned %q", in, cat)
		assert.GreaterOrEqual(t, conf, 0.0)
		assert.LessOrEqual(t, conf, 1.0)
	}
}

func TestClassify_ZeroConfidenceWithoutKeywords(t *testing.T) {
	cat, conf, scores := Classify("asdfgh qwerty", "")
	assert.True(t, cat.Valid())
	assert.Equal(t, 0.0, conf)
	for _, c := range Categories {
		assert.Equal(t, 0, scores[c])
	}
}

func TestClassify_SalesKeywords(t *testing.T) {
	cat, conf, _ := Classify("quiero saber los precios de los planes", "")
	assert.Equal(t, CategoryVentas, cat)
	assert.Greater(t, conf, 0.0)
}

func TestClassify_MultiWordKeywordDoubleCounts(t *testing.T) {
	// "no funciona" never appears as a single token, only the substring pass
	// catches it. A single-word keyword scores through both passes.
	_, _, scores := Classify("no funciona", "")
	assert.Equal(t, 1, scores[CategorySoporte])

	_, _, scores = Classify("error", "")
	assert.Equal(t, 2, scores[CategorySoporte])
}

func TestClassify_HintBiasesTies(t *testing.T) {
	// No keyword from any set: the hint alone decides.
	cat, _, scores := Classify("mmm ok dale", CategorySoporte)
	assert.Equal(t, CategorySoporte, cat)
	assert.Equal(t, 1, scores[CategorySoporte])

	// Without a hint the tie breaks on enumeration order.
	cat, _, _ = Classify("mmm ok dale", "")
	assert.Equal(t, CategoryVentas, cat)
}

func TestClassify_WithHintStaysInRange(t *testing.T) {
	cat, conf, _ := Classify("no me entra a la pagina", CategorySoporte)
	require.True(t, cat.Valid())
	assert.GreaterOrEqual(t, conf, 0.0)
	assert.LessOrEqual(t, conf, 1.0)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "hola mundo", Normalize("  HOLA   Mundo \n"))
}

func TestStripDiacritics(t *testing.T) {
	assert.Equal(t, "codigo de verificacion", StripDiacritics("Código  de Verificación"))
	assert.Equal(t, "manana", StripDiacritics("mañana"))
}

func TestTokenize_KeepsAccentedRunes(t *testing.T) {
	tokens := Tokenize("¿Cuánto cuesta la cotización?")
	assert.True(t, tokens["cuesta"])
	assert.True(t, tokens["cotización"])
	assert.False(t, tokens["¿cuánto"])
}
