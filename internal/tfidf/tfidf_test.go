package tfidf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"lowercases and splits", "Go Tutorial: Channels!", []string{"go", "tutorial", "channels"}},
		{"drops single characters", "a b cd", []string{"cd"}},
		{"keeps digits and underscores", "top_10 in 2024", []string{"top_10", "in", "2024"}},
		{"splits apostrophes", "don't stop", []string{"don", "stop"}},
		{"unicode letters", "Café crème", []string{"café", "crème"}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFitVocabularyIsCorpusWide(t *testing.T) {
	docs := []string{
		"golang channels golang",
		"golang generics",
		"rust ownership",
	}
	v := Fit(docs, Options{MaxFeatures: 3})

	// golang (3) first, then the 1-count ties broken alphabetically.
	assert.Equal(t, []string{"channels", "generics", "golang"}, v.Vocabulary)
	require.Len(t, v.IDF, 3)

	// idf = ln((1+n)/(1+df)) + 1
	assert.InDelta(t, math.Log(4.0/3.0)+1, v.IDF[2], 1e-12)
	assert.InDelta(t, math.Log(4.0/2.0)+1, v.IDF[0], 1e-12)
}

func TestFitDropsStopWords(t *testing.T) {
	v := Fit([]string{"the best of the best", "the end"}, Options{})
	assert.NotContains(t, v.Vocabulary, "the")
	assert.NotContains(t, v.Vocabulary, "of")
	assert.Contains(t, v.Vocabulary, "best")
}

func TestFitDefaultMaxFeatures(t *testing.T) {
	doc := ""
	for i := 0; i < 30; i++ {
		doc += " term" + string(rune('a'+i%26)) + string(rune('a'+i/26))
	}
	v := Fit([]string{doc}, Options{})
	assert.Len(t, v.Vocabulary, DefaultMaxFeatures)
}

func TestTransformIsL2Normalized(t *testing.T) {
	v := Fit([]string{"alpha beta beta", "beta gamma"}, Options{})
	w := v.Transform("alpha beta beta")

	var norm float64
	for _, x := range w {
		norm += x * x
	}
	assert.InDelta(t, 1.0, norm, 1e-12)
}

func TestTransformZeroVector(t *testing.T) {
	v := Fit([]string{"alpha beta"}, Options{})
	for _, x := range v.Transform("the of and") {
		assert.Zero(t, x)
	}
}

func TestTopTerm(t *testing.T) {
	docs := []string{
		"kubernetes tutorial kubernetes",
		"docker tutorial",
		"docker compose docker",
	}
	v := Fit(docs, Options{})

	assert.Equal(t, "kubernetes", v.TopTerm(docs[0]))
	assert.Equal(t, "docker", v.TopTerm(docs[2]))
	assert.Equal(t, "", v.TopTerm(""), "empty text has no keyword")
	assert.Equal(t, "", v.TopTerm("the and"), "stop words only has no keyword")
}

func TestTopTermTieGoesToFirstVocabularyTerm(t *testing.T) {
	v := Fit([]string{"zeta alpha"}, Options{})
	assert.Equal(t, "alpha", v.TopTerm("zeta alpha"))
}

func TestEmptyCorpus(t *testing.T) {
	v := Fit(nil, Options{})
	assert.Empty(t, v.Vocabulary)
	assert.Equal(t, "", v.TopTerm("anything"))
}

func TestTransformWithoutIndex(t *testing.T) {
	fitted := Fit([]string{"alpha beta"}, Options{})
	decoded := &Vectorizer{Vocabulary: fitted.Vocabulary, IDF: fitted.IDF}
	assert.Equal(t, fitted.Transform("beta"), decoded.Transform("beta"))
}
