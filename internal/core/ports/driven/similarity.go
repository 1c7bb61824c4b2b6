package driven

// TextSimilarity scores how alike two normalised strings are.
type TextSimilarity interface {
	// Similarity returns a score in [0, 1]; 1 means identical.
	Similarity(a, b string) float64
}
