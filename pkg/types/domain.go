package types

// Model represents a GGUF weights file known to the server, either the
// configured artifact or one already present in the local cache.
type Model struct {
	// Hub repository the file was fetched from.
	// example: TheBloke/GOAT-70B-Storytelling-GGUF
	ID string `json:"id" example:"TheBloke/GOAT-70B-Storytelling-GGUF"`
	// Weights file name inside the repository.
	// example: goat-70b-storytelling.Q5_K_M.gguf
	File string `json:"file" example:"goat-70b-storytelling.Q5_K_M.gguf"`
	// Absolute path to the file on disk; empty when not yet downloaded.
	// example: /srv/weights/TheBloke/GOAT-70B-Storytelling-GGUF/goat-70b-storytelling.Q5_K_M.gguf
	Path string `json:"path,omitempty"`
	// Quantization variant parsed from the file name.
	// example: Q5_K_M
	Quant string `json:"quant,omitempty" example:"Q5_K_M"`
	// Size on disk in bytes (0 when not cached).
	// example: 48750000000
	SizeBytes int64 `json:"size_bytes,omitempty" example:"48750000000"`
	// True for the artifact the predictor serves.
	// example: true
	Active bool `json:"active" example:"true"`
}

// Device describes the compute device the model is bound to.
type Device struct {
	// Device kind: cpu, cuda or metal.
	// example: cuda
	Kind string `json:"kind" example:"cuda"`
	// Number of model layers offloaded to the accelerator.
	// example: 999
	GPULayers int `json:"gpu_layers" example:"999"`
	// How the device was chosen (auto-detected or configured).
	// example: auto: /dev/nvidia0 present
	Reason string `json:"reason,omitempty" example:"auto: /dev/nvidia0 present"`
}
