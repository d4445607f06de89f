package domain

// RetrievedDocument is a ranked exemplar returned by the vector retriever.
// Ordering by descending similarity score is significant and preserved end-to-end.
type RetrievedDocument struct {
	ID       string
	Text     string
	Score    float64
	Metadata DocumentMetadata
}

// DocumentMetadata holds the filterable exemplar attributes.
type DocumentMetadata struct {
	Section  string
	Category string
	Rating   float64
}

// CategoryGeneral is the sentinel category meaning "no category filter".
const CategoryGeneral = "general"
