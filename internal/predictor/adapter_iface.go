package predictor

import "context"

// InferenceAdapter abstracts the model runtime used by the Predictor.
// Concrete implementations (in-process llama.cpp, llama.cpp server) satisfy it.
type InferenceAdapter interface {
	// Start loads the model at modelPath and returns a session that stays
	// valid until Close. It is called once per process.
	Start(modelPath string, params LoadParams) (InferSession, error)
}

// InferSession is a loaded model. It is read-only after Start, but decoding
// is not safe for concurrent use; the Predictor admits one call at a time.
type InferSession interface {
	// Tokenize returns the number of tokens the model sees for text.
	Tokenize(ctx context.Context, text string) (int, error)
	// Generate samples one continuation of prompt. onToken is invoked for each
	// decoded piece. Implementations must return when ctx is canceled.
	Generate(ctx context.Context, prompt string, params SampleParams, onToken func(string) error) (FinalResult, error)
	// Close releases the model.
	Close() error
}

// LoadParams captures model placement passed to the adapter at Start.
type LoadParams struct {
	CtxSize   int
	Threads   int
	GPULayers int
}

// SampleParams captures generation parameters for one sequence.
type SampleParams struct {
	MaxTokens     int
	Temperature   float32
	TopP          float32
	RepeatPenalty float32
	// Seed < 0 lets the backend choose.
	Seed int
}

// FinalResult summarizes one generated sequence.
type FinalResult struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage contains token accounting.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
