package types

// ChatMessage is one message of a chat conversation.
type ChatMessage struct {
	// example: user
	Role string `json:"role" example:"user"`
	// example: Hi
	Content string `json:"content" example:"Hi"`
}

// ChatCompletionRequest is the body of POST /v1/chat/completions.
type ChatCompletionRequest struct {
	// Model identifier as listed by GET /v1/models.
	// example: LGAI/EXAONE-3.0-7.8B-Instruct
	Model string `json:"model" example:"LGAI/EXAONE-3.0-7.8B-Instruct"`
	// Conversation so far.
	Messages []ChatMessage `json:"messages"`
	// If true, the response is a text/event-stream of chunks.
	// example: false
	Stream bool `json:"stream,omitempty" example:"false"`
	// Maximum number of new tokens to generate.
	// example: 128
	MaxTokens *int `json:"max_tokens,omitempty" example:"128"`
	// Sampling temperature.
	// example: 0.7
	Temperature *float64 `json:"temperature,omitempty" example:"0.7"`
	// Nucleus sampling probability.
	// example: 0.9
	TopP *float64 `json:"top_p,omitempty" example:"0.9"`
	// Stop sequences.
	Stop []string `json:"stop,omitempty"`
	// Random seed.
	// example: 42
	Seed *int `json:"seed,omitempty" example:"42"`
}

// Usage contains token accounting when the backend reports it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Choice is one completion alternative of a non-streaming response.
type Choice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatCompletion mirrors the OpenAI chat.completion object.
type ChatCompletion struct {
	ID      string   `json:"id" example:"chatcmpl-5f1c"`
	Object  string   `json:"object" example:"chat.completion"`
	Created int64    `json:"created" example:"1700000000"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// ChunkDelta carries the incremental part of a streamed choice.
type ChunkDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// ChunkChoice is one choice of a streamed chunk.
type ChunkChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

// ChatCompletionChunk mirrors the OpenAI chat.completion.chunk object.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

// ModelCard is one entry of GET /v1/models.
type ModelCard struct {
	// example: LGAI/EXAONE-3.0-7.8B-Instruct
	ID string `json:"id" example:"LGAI/EXAONE-3.0-7.8B-Instruct"`
	// example: 1700000000
	Created int64 `json:"created" example:"1700000000"`
	// example: model
	Object string `json:"object" example:"model"`
	// example: system
	OwnedBy string `json:"owned_by" example:"system"`
}

// ModelList wraps the models returned by GET /v1/models.
type ModelList struct {
	// example: list
	Object string      `json:"object" example:"list"`
	Data   []ModelCard `json:"data"`
}

// ErrorResponse is the error payload of every endpoint.
type ErrorResponse struct {
	// example: Invalid model
	Detail string `json:"detail" example:"Invalid model"`
}

// BackendStatus summarizes one backend for /status.
type BackendStatus struct {
	// example: LGAI/EXAONE-3.0-7.8B-Instruct
	ModelID string `json:"model_id"`
	// Lifecycle state: unloaded, loading or ready.
	// example: ready
	State string `json:"state" example:"ready"`
	// Last time this backend was used (unix seconds, 0 when unloaded).
	// example: 1700000000
	LastUsed int64 `json:"last_used_unix" example:"1700000000"`
	// Number of in-flight inference calls.
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Current queue length for incoming requests.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// TCP port assigned to this backend (subprocess mode).
	// example: 8001
	Port int `json:"port,omitempty" example:"8001"`
	// Process ID of the spawned backend (subprocess mode, when ready).
	// example: 12345
	PID int `json:"pid,omitempty" example:"12345"`
	// Last load failure, if the most recent attempt failed.
	LastError string `json:"last_error,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Backends []BackendStatus `json:"backends"`
	// Number of backends currently ready.
	// example: 1
	ReadyCount int `json:"ready_count" example:"1"`
	// Number of backends currently loading.
	// example: 0
	LoadingCount int `json:"loading_count" example:"0"`
	// Total number of successful backend loads.
	// example: 12
	LoadsTotal uint64 `json:"loads_total" example:"12"`
	// Total number of evictions.
	// example: 5
	EvictionsTotal uint64 `json:"evictions_total" example:"5"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
