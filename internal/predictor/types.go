package predictor

// State represents lifecycle state of the predictor.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Backends.
const (
	BackendLlama  = "llama"
	BackendServer = "server"
	BackendSpawn  = "spawn"
)

// deviceRemote marks placement owned by an external llama.cpp server.
const deviceRemote = "remote"

// Result is the outcome of one prediction.
type Result struct {
	// Output holds one text per requested sequence, in order.
	Output       []string
	PromptTokens int
}
