package domain

// Candidate is a k-NN hit from the vector index: a similar user and the
// raw similarity the index reported. Vector is included so scoring does
// not need a second round-trip per candidate.
type Candidate struct {
	UserID     string
	Similarity float64
	Vector     []float32
}
