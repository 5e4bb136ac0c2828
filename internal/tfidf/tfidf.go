// Package tfidf fits a corpus-wide term-importance model and scores
// documents against it. Fitting and transforming are separate steps and the
// fitted Vectorizer is a plain value: nothing is kept in package state.
package tfidf

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// DefaultMaxFeatures bounds the vocabulary when Options leave it unset.
const DefaultMaxFeatures = 20

// Options configures Fit.
type Options struct {
	// MaxFeatures keeps only the most frequent terms across the corpus.
	MaxFeatures int
	// StopWords are dropped before counting. Nil means EnglishStopWords.
	StopWords map[string]struct{}
}

// Vectorizer is a fitted vocabulary with its inverse document frequencies.
// Vocabulary is sorted; IDF[i] belongs to Vocabulary[i].
type Vectorizer struct {
	Vocabulary []string
	IDF        []float64
	index      map[string]int
}

// Tokenize lowercases text and splits it into runs of two or more word
// characters (letters, digits, marks and underscore).
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// Terms tokenizes text and drops stop words.
func Terms(text string, stop map[string]struct{}) []string {
	if stop == nil {
		stop = EnglishStopWords
	}
	tokens := Tokenize(text)
	out := tokens[:0]
	for _, t := range tokens {
		if _, ok := stop[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}

// Fit builds the vocabulary over the whole corpus at once. Terms are ranked
// by total count across all documents, ties broken alphabetically, and the
// top MaxFeatures are kept. IDF uses smoothing: ln((1+n)/(1+df)) + 1.
func Fit(docs []string, opts Options) *Vectorizer {
	maxFeatures := opts.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}

	counts := make(map[string]int)
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, term := range Terms(doc, opts.StopWords) {
			counts[term]++
			if !seen[term] {
				seen[term] = true
				df[term]++
			}
		}
	}

	ranked := make([]string, 0, len(counts))
	for term := range counts {
		ranked = append(ranked, term)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if counts[ranked[i]] != counts[ranked[j]] {
			return counts[ranked[i]] > counts[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	if len(ranked) > maxFeatures {
		ranked = ranked[:maxFeatures]
	}
	sort.Strings(ranked)

	n := float64(len(docs))
	v := &Vectorizer{
		Vocabulary: ranked,
		IDF:        make([]float64, len(ranked)),
		index:      make(map[string]int, len(ranked)),
	}
	for i, term := range ranked {
		v.IDF[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
		v.index[term] = i
	}
	return v
}

// Transform returns the L2-normalized tf-idf weights of doc over the
// vocabulary. Out-of-vocabulary terms are ignored; a document with none of
// the vocabulary terms yields the zero vector.
func (v *Vectorizer) Transform(doc string) []float64 {
	weights := make([]float64, len(v.Vocabulary))
	if len(weights) == 0 {
		return weights
	}
	index := v.index
	if index == nil {
		index = make(map[string]int, len(v.Vocabulary))
		for i, term := range v.Vocabulary {
			index[term] = i
		}
	}

	for _, term := range Tokenize(doc) {
		if i, ok := index[term]; ok {
			weights[i]++
		}
	}

	var norm float64
	for i := range weights {
		weights[i] *= v.IDF[i]
		norm += weights[i] * weights[i]
	}
	if norm == 0 {
		return weights
	}
	norm = math.Sqrt(norm)
	for i := range weights {
		weights[i] /= norm
	}
	return weights
}

// TopTerm returns the vocabulary term with the highest weight in doc. Ties
// go to the alphabetically first term. A zero vector returns "".
func (v *Vectorizer) TopTerm(doc string) string {
	best := -1
	bestWeight := 0.0
	for i, w := range v.Transform(doc) {
		if w > bestWeight {
			best, bestWeight = i, w
		}
	}
	if best < 0 {
		return ""
	}
	return v.Vocabulary[best]
}
