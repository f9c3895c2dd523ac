//go:build !llama

package predictor

// llamaBuilt is false when the binary lacks the in-process backend.
var llamaBuilt = false

// llamaAdapter refuses to load models so default builds stay CGO-free.
type llamaAdapter struct{}

// NewLlamaAdapter returns a stub; build with -tags=llama for the real backend.
func NewLlamaAdapter() InferenceAdapter { return &llamaAdapter{} }

func (a *llamaAdapter) Start(modelPath string, params LoadParams) (InferSession, error) {
	return nil, ErrDependencyUnavailable(errLlamaNotBuilt)
}
