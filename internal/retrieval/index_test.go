// ABOUTME: Tests for the semantic fallback index
// ABOUTME: Verifies threshold behavior, candidate count and known support queries

package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlabot/charla/internal/kb"
	"github.com/charlabot/charla/internal/nlp"
)

func testIndex() *Index {
	return NewIndex(kb.SemanticCorpus())
}

func TestBest_SupportPhraseLooseThreshold(t *testing.T) {
	ix := testIndex()

	res, ok := ix.Best("no ingresa a la pagina", 0.30)
	require.True(t, ok)
	assert.GreaterOrEqual(t, res.Score, 0.30)
	assert.True(t, res.QA.Category.Valid())
}

func TestBest_ExactQuestionScoresHigh(t *testing.T) {
	ix := testIndex()

	res, ok := ix.Best("horarios de atención", DefaultThreshold)
	require.True(t, ok)
	assert.Equal(t, nlp.CategoryGeneral, res.QA.Category)
	assert.Greater(t, res.Score, 0.9)
}

func TestBest_GibberishMisses(t *testing.T) {
	ix := testIndex()

	_, ok := ix.Best("asdfgh qwerty zxcvb", DefaultThreshold)
	assert.False(t, ok)
}

func TestBest_AccentInsensitive(t *testing.T) {
	ix := testIndex()

	plain, ok := ix.Best("no me llega el codigo", DefaultThreshold)
	require.True(t, ok)
	accented, ok2 := ix.Best("no me llega el código", DefaultThreshold)
	require.True(t, ok2)
	assert.Equal(t, plain.QA.Answer, accented.QA.Answer)
	assert.InDelta(t, plain.Score, accented.Score, 1e-9)
}

func TestSearch_ReturnsAtMostThreeCandidates(t *testing.T) {
	ix := testIndex()

	results := ix.Search("precios de los planes")
	assert.LessOrEqual(t, len(results), 3)
	require.NotEmpty(t, results)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearch_DemoQuestionRanksFirst(t *testing.T) {
	ix := testIndex()

	results := ix.Search("tienen demo o prueba gratuita?")
	require.NotEmpty(t, results)
	assert.Equal(t, nlp.CategoryVentas, results[0].QA.Category)
	assert.Contains(t, results[0].QA.Answer, "demo gratuita")
}
