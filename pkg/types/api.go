package types

import "time"

// PredictionInput carries the generation parameters of a prediction.
// Numeric fields are pointers so an omitted field can be told apart from an
// explicit (possibly out of range) zero.
type PredictionInput struct {
	// Text prompt to send to the model.
	// example: Once upon a time
	Prompt string `json:"prompt" example:"Once upon a time"`
	// Number of output sequences to generate (1-5).
	// example: 1
	N *int `json:"n,omitempty" example:"1"`
	// Maximum number of tokens, prompt included. A word is generally 2-3 tokens.
	// example: 50
	MaxLength *int `json:"max_length,omitempty" example:"50"`
	// Adjusts randomness of outputs (0.01-5).
	// example: 0.75
	Temperature *float64 `json:"temperature,omitempty" example:"0.75"`
	// Samples from the top p percentage of most likely tokens (0.01-1).
	// example: 1
	TopP *float64 `json:"top_p,omitempty" example:"1"`
	// Penalty for repeated words; 1 is no penalty (0.01-5).
	// example: 1
	RepetitionPenalty *float64 `json:"repetition_penalty,omitempty" example:"1"`
	// Random seed; omit for a random seed per request.
	// example: 42
	Seed *int64 `json:"seed,omitempty" example:"42"`
}

// PredictionRequest is the body of POST /predictions.
type PredictionRequest struct {
	// Optional caller-chosen id; generated when empty.
	// example: 0b7c7b1e-6f7a-4c36-9d0c-5c1f0d6e2a11
	ID string `json:"id,omitempty"`
	// Generation input.
	Input PredictionInput `json:"input"`
}

// PredictionMetrics reports timings for a completed prediction.
type PredictionMetrics struct {
	// Wall time spent in the predictor, in seconds.
	// example: 3.21
	PredictTime float64 `json:"predict_time" example:"3.21"`
	// Number of prompt tokens as counted by the model tokenizer.
	// example: 5
	PromptTokens int `json:"prompt_tokens" example:"5"`
}

// Prediction statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// PredictionResponse is returned by POST /predictions.
type PredictionResponse struct {
	// Prediction id.
	ID string `json:"id"`
	// succeeded or failed.
	// example: succeeded
	Status string `json:"status" example:"succeeded"`
	// Echo of the input as received.
	Input PredictionInput `json:"input"`
	// Generated texts, one per requested sequence, in order.
	// example: ["Once upon a time there lived a dragon."]
	Output []string `json:"output"`
	// Error message when status is failed.
	Error string `json:"error,omitempty"`
	// Request acceptance time.
	CreatedAt time.Time `json:"created_at"`
	// Completion time.
	CompletedAt time.Time `json:"completed_at"`
	// Timing information.
	Metrics *PredictionMetrics `json:"metrics,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
	// Offending input field for validation errors.
	// example: temperature
	Field string `json:"field,omitempty" example:"temperature"`
}

// InputField describes one declared input with its bounds and default.
type InputField struct {
	// Field name.
	// example: temperature
	Name string `json:"name" example:"temperature"`
	// integer, number or string.
	// example: number
	Type string `json:"type" example:"number"`
	// Human-readable description.
	Description string `json:"description"`
	// Default value, absent for required fields.
	Default any `json:"default,omitempty"`
	// Inclusive lower bound, if any.
	Minimum *float64 `json:"minimum,omitempty"`
	// Inclusive upper bound, if any.
	Maximum *float64 `json:"maximum,omitempty"`
	// True when the field has no default.
	Required bool `json:"required,omitempty"`
}

// SchemaResponse is returned by GET /schema.
type SchemaResponse struct {
	// Declared inputs in declaration order.
	Input []InputField `json:"input"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Predictor lifecycle state (loading, ready, error).
	// example: ready
	State string `json:"state" example:"ready"`
	// Setup error when state is error.
	Error string `json:"error,omitempty"`
	// Artifact being served.
	Model Model `json:"model"`
	// Inference backend (llama, server, spawn).
	// example: llama
	Backend string `json:"backend" example:"llama"`
	// Resolved compute device; empty until setup has run.
	Device *Device `json:"device,omitempty"`
	// Seconds spent in setup.
	// example: 42.5
	SetupSeconds float64 `json:"setup_seconds" example:"42.5"`
	// Predictions waiting for the model.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Predictions currently decoding (0 or 1).
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Maximum queued predictions allowed before backpressure triggers.
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
	// Completed predictions since start.
	// example: 12
	PredictionsTotal uint64 `json:"predictions_total" example:"12"`
	// Failed predictions since start.
	// example: 1
	FailuresTotal uint64 `json:"failures_total" example:"1"`
	// PID of the spawned llama-server, spawn backend only.
	// example: 12345
	PID int `json:"pid,omitempty" example:"12345"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
