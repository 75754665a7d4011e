package types

// Model describes one discoverable model artifact. It is immutable once discovered.
type Model struct {
	// Stable identifier, "<owner>/<name>".
	// example: LGAI/EXAONE-3.0-7.8B-Instruct
	ID string `json:"id" example:"LGAI/EXAONE-3.0-7.8B-Instruct"`
	// Owner directory the artifact was found in.
	// example: LGAI
	Owner string `json:"owner" example:"LGAI"`
	// File name without the eligible suffix.
	// example: EXAONE-3.0-7.8B-Instruct
	Name string `json:"name" example:"EXAONE-3.0-7.8B-Instruct"`
	// Absolute path to the model file on disk.
	// example: /models/LGAI/EXAONE-3.0-7.8B-Instruct-Llamafied-Q4_K_M.gguf
	Path string `json:"path" example:"/models/LGAI/EXAONE-3.0-7.8B-Instruct-Llamafied-Q4_K_M.gguf"`
	// Creation time of the artifact (unix seconds).
	// example: 1700000000
	Created int64 `json:"created" example:"1700000000"`
}

// Chunk is one partial result produced by a backend while generating.
// A non-empty FinishReason marks the terminal chunk.
type Chunk struct {
	Content      string
	FinishReason string
}

// Terminal reports whether c carries the completion marker.
func (c Chunk) Terminal() bool { return c.FinishReason != "" }
