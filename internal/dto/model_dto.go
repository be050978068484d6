package dto

type ModelResponse struct {
	Id          string `json:"id"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Provider    string `json:"provider"`
	Category    string `json:"category"`
	// Human readable sizes, e.g. "2.5 GB"
	Size      string `json:"size,omitempty"`
	Vram      string `json:"vram,omitempty"`
	SizeBytes uint64 `json:"size_bytes,omitempty"`
	VramBytes uint64 `json:"vram_bytes,omitempty"`
	Loaded    bool   `json:"loaded"`
}

type LoadModelRequest struct {
	Model string `json:"model" validate:"required"`
}

type LoadModelResponse struct {
	Model      string `json:"model"`
	DurationMs int64  `json:"duration_ms"`
}
