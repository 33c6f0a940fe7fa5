package domain

import "context"

// Chunk is a bounded span of consecutive transcript sentences used as the unit of retrieval.
// Index is the 1-based position within the transcript at creation time.
type Chunk struct {
	Index int
	Text  string
}

// Answer is the result of a question: a terse answer and the supporting lecture text.
// An empty Full means there is no supporting excerpt.
type Answer struct {
	Short string `json:"short"`
	Full  string `json:"full"`
}

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single entry in a chat session transcript. It is never persisted.
type Message struct {
	Role    Role
	Content string
	// Context holds the supporting lecture text of an assistant answer.
	Context string
}

// Hit is a nearest-neighbour search result: the 0-based row in the index and its distance.
type Hit struct {
	Position int
	Distance float32
}

// Embedder converts free text into fixed-dimension vectors.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex is an append-only similarity structure addressed by row position.
type VectorIndex interface {
	Add(vectors [][]float32) error
	Search(vector []float32, k int) ([]Hit, error)
	Len() int
	Dimension() int
	Save(path string) error
}

// Generator answers a question from a single lecture excerpt using an external language model.
type Generator interface {
	Generate(ctx context.Context, question, lectureContext string) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
