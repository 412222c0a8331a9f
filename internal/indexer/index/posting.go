package index

import "time"

// Posting records one document's occurrences of a term. Doc is the internal
// ordinal assigned at build time, not the external document id.
type Posting struct {
	Doc       uint32 `json:"d"`
	Frequency int    `json:"f"`
	Positions []int  `json:"p"`
}

// PostingList is ordered by ascending ordinal.
type PostingList []Posting

type TermEntry struct {
	Term     string
	Postings PostingList
}

// DocEntry is a row of the ordinal table: the external id and the number of
// terms the analyzer emitted for the document.
type DocEntry struct {
	DocID  int `json:"id"`
	Length int `json:"len"`
}

// Meta identifies the configuration an index was built with so a reader can
// check compatibility before searching it.
type Meta struct {
	Analyzer   string    `json:"analyzer"`
	Stopwords  string    `json:"stopwords,omitempty"`
	Similarity string    `json:"similarity"`
	K1         float64   `json:"k1"`
	B          float64   `json:"b"`
	Corpus     string    `json:"corpus,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
