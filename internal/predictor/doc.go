// Package predictor loads one GGUF model and serves text predictions from it.
//
//   - config.go: Config, defaults and backend selection in New.
//   - setup.go: device resolution, weight fetch and model load (once).
//   - input.go: declared inputs, bounds, defaults and Normalize.
//   - predict.go: Predict, the token budget and per-sequence decoding.
//   - admission.go: single in-flight slot behind a bounded queue.
//   - status_report.go, sanity.go: read-only views for /status and the CLI.
//
// Backends implement InferenceAdapter:
//
//   - llama: in-process go-llama.cpp, built with -tags=llama. Without the tag
//     a stub reports the dependency as unavailable.
//   - server: a running llama.cpp server (/health, /tokenize, /v1/completions).
//   - spawn: a llama-server child process started for the model file.
package predictor
