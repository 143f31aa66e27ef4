package domain

// Scope restricts retrieval to the documents of one chat owned by one user.
type Scope struct {
	ChatID string
	UserID string
}

// Empty reports whether either half of the scope is missing.
func (s Scope) Empty() bool {
	return s.ChatID == "" || s.UserID == ""
}

// Chunk is a passage returned by the vector index for a single turn.
// Chunks are never persisted.
type Chunk struct {
	ID         string
	Text       string
	DocumentID string
	Source     string
	ChatID     string
	UserID     string
	Score      float32
	Rank       int
}

// InScope reports whether the chunk carries the scope's chat and user identity.
func (c Chunk) InScope(s Scope) bool {
	return c.ChatID == s.ChatID && c.UserID == s.UserID
}
