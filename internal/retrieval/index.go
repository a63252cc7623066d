// ABOUTME: Semantic fallback index over the fixed QA corpus
// ABOUTME: TF-IDF (unigram+bigram) cosine blended with fuzzy token-set similarity

package retrieval

import (
	"math"
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/charlabot/charla/internal/kb"
	"github.com/charlabot/charla/internal/nlp"
)

// DefaultThreshold is the minimum blended score for Best to return a match.
// Callers may pass a looser value (e.g. 0.30) for permissive checks.
const DefaultThreshold = 0.35

const (
	topK         = 3
	cosineWeight = 0.7
	fuzzyWeight  = 0.3
)

// Result pairs a corpus entry with its blended similarity score.
type Result struct {
	QA    kb.QA
	Score float64
}

// Index is an immutable similarity index over a QA corpus. Build it once at
// startup and share it freely: lookups never mutate it.
type Index struct {
	entries   []kb.QA
	questions []string // normalized question texts, parallel to entries
	vocab     map[string]int
	idf       []float64
	vectors   []map[int]float64 // l2-normalized TF-IDF vectors, parallel to entries
}

// NewIndex builds the TF-IDF index for the given corpus.
func NewIndex(entries []kb.QA) *Index {
	ix := &Index{
		entries: entries,
		vocab:   make(map[string]int),
	}

	docs := make([][]string, len(entries))
	for i, qa := range entries {
		ix.questions = append(ix.questions, nlp.StripDiacritics(qa.Question))
		docs[i] = features(ix.questions[i])
		for _, f := range docs[i] {
			if _, ok := ix.vocab[f]; !ok {
				ix.vocab[f] = len(ix.vocab)
			}
		}
	}

	// Smoothed idf, as if one extra document contained every term once.
	df := make([]int, len(ix.vocab))
	for _, doc := range docs {
		seen := make(map[int]bool)
		for _, f := range doc {
			seen[ix.vocab[f]] = true
		}
		for id := range seen {
			df[id]++
		}
	}
	n := float64(len(docs))
	ix.idf = make([]float64, len(ix.vocab))
	for id, d := range df {
		ix.idf[id] = math.Log((1+n)/float64(1+d)) + 1
	}

	for _, doc := range docs {
		ix.vectors = append(ix.vectors, ix.vectorize(doc))
	}
	return ix
}

// features extracts unigrams and bigrams of word tokens at least two runes long.
func features(normalized string) []string {
	var words []string
	for _, w := range strings.Fields(normalized) {
		w = strings.Trim(w, ".,;:¿?¡!()\"'/")
		if len([]rune(w)) >= 2 {
			words = append(words, w)
		}
	}
	feats := make([]string, 0, len(words)*2)
	feats = append(feats, words...)
	for i := 0; i+1 < len(words); i++ {
		feats = append(feats, words[i]+" "+words[i+1])
	}
	return feats
}

// vectorize builds an l2-normalized TF-IDF vector, dropping out-of-vocabulary
// features.
func (ix *Index) vectorize(feats []string) map[int]float64 {
	vec := make(map[int]float64)
	for _, f := range feats {
		if id, ok := ix.vocab[f]; ok {
			vec[id] += ix.idf[id]
		}
	}
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for id := range vec {
			vec[id] /= norm
		}
	}
	return vec
}

func cosine(a, b map[int]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for id, v := range a {
		dot += v * b[id]
	}
	return dot
}

// Search returns up to topK corpus entries ranked by cosine similarity, each
// re-scored with the fuzzy blend. Results come back sorted by blended score,
// best first.
func (ix *Index) Search(query string) []Result {
	qn := nlp.StripDiacritics(query)
	qvec := ix.vectorize(features(qn))

	type scored struct {
		idx int
		cos float64
	}
	sims := make([]scored, len(ix.entries))
	for i := range ix.entries {
		sims[i] = scored{i, cosine(qvec, ix.vectors[i])}
	}
	sort.SliceStable(sims, func(i, j int) bool { return sims[i].cos > sims[j].cos })

	k := topK
	if k > len(sims) {
		k = len(sims)
	}
	results := make([]Result, 0, k)
	for _, s := range sims[:k] {
		fuzzyScore := float64(fuzzy.TokenSetRatio(qn, ix.questions[s.idx])) / 100.0
		results = append(results, Result{
			QA:    ix.entries[s.idx],
			Score: cosineWeight*s.cos + fuzzyWeight*fuzzyScore,
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

// Best returns the highest-scoring entry among the top candidates, or false
// when nothing clears the threshold. A miss is not an error: the caller
// decides whether to fall back to a default reply or escalate.
func (ix *Index) Best(query string, threshold float64) (Result, bool) {
	candidates := ix.Search(query)
	if len(candidates) == 0 {
		return Result{}, false
	}
	best := candidates[0]
	if best.Score < threshold {
		return Result{}, false
	}
	return best, true
}
