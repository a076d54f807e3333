package domain

// Document represents a single normalized source record: a text body plus
// a flat metadata mapping describing where it came from.
type Document struct {
	ID       string
	Source   string
	Text     string
	Metadata map[string]string
}

// Segment is a bounded-size slice of a document's text used for indexing.
// Offset is the rune offset of the segment within the parent document.
type Segment struct {
	DocumentID string
	SegmentID  string
	Index      int
	Offset     int
	Text       string
	Metadata   map[string]string
}

// IndexEntry ties an embedding vector to the segment it was computed from.
// Vector length must be uniform across all entries of one index.
type IndexEntry struct {
	Vector  []float64
	Segment Segment
}

// ScoredSegment is one retrieval hit. A ranked slice of these, ordered by
// descending score, forms a retrieval result.
type ScoredSegment struct {
	Segment Segment
	Score   float64
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation session.
type Turn struct {
	Role    Role
	Content string
}
