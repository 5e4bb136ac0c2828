package etl

import (
	"yt-analytics/internal/models"
	"yt-analytics/internal/tfidf"
)

// KeywordOptions configures ExtractKeywords.
type KeywordOptions struct {
	MaxFeatures int
	StopWords   map[string]struct{}
}

// DocumentText is the text a video contributes to the keyword corpus.
func DocumentText(r models.VideoRecord) string {
	return r.Title + " " + r.Description
}

// ExtractKeywords fits one tf-idf vocabulary over every video and assigns
// each its highest-weighted vocabulary term. Videos whose text holds no
// vocabulary term get an empty TopKeyword. The fitted vectorizer is returned
// for inspection only; it is not meant to be reused on a changed corpus.
func ExtractKeywords(ds models.Dataset, opts KeywordOptions) (models.Dataset, *tfidf.Vectorizer) {
	out := ds.Clone()

	docs := make([]string, len(out))
	for i, r := range out {
		docs[i] = DocumentText(r)
	}

	vec := tfidf.Fit(docs, tfidf.Options{
		MaxFeatures: opts.MaxFeatures,
		StopWords:   opts.StopWords,
	})
	for i := range out {
		out[i].TopKeyword = vec.TopTerm(docs[i])
	}
	return out, vec
}
