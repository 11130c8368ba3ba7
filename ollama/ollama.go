// Package ollama implements [drip.Provider] for a local or remote Ollama
// server. Chat responses stream as newline-delimited JSON; the decoder
// turns each chunk into semantic events for the batching pipeline.
package ollama

import (
	"strings"
	"time"

	"github.com/driplabs/drip"
)

// DefaultBaseURL is the address of a locally running Ollama server.
const DefaultBaseURL = "http://localhost:11434"

// ChatRequest is the request body for POST /api/chat.
type ChatRequest struct {
	Model     string        `json:"model"`
	Messages  []ChatMessage `json:"messages"`
	Stream    bool          `json:"stream"`
	KeepAlive string        `json:"keep_alive,omitempty"`
	Options   *ChatOptions  `json:"options,omitempty"`
	Think     *bool         `json:"think,omitempty"`
}

// ChatMessage is one conversation entry on the wire.
type ChatMessage struct {
	Role     string   `json:"role"`
	Content  string   `json:"content"`
	Thinking string   `json:"thinking,omitempty"`
	Images   []string `json:"images,omitempty"` // base64-encoded
}

// ChatOptions tunes generation. Zero-valued fields are omitted so the
// server applies its modelfile defaults.
// https://github.com/ollama/ollama/blob/main/docs/modelfile.md
type ChatOptions struct {
	NumCtx      int      `json:"num_ctx,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
}

// ChatResponseDelta is one streamed chunk of a chat response. The final
// chunk has Done set and carries the evaluation counters.
type ChatResponseDelta struct {
	Model              string      `json:"model"`
	CreatedAt          string      `json:"created_at"`
	Message            ChatMessage `json:"message"`
	DoneReason         string      `json:"done_reason,omitempty"`
	Done               bool        `json:"done"`
	PromptEvalCount    int         `json:"prompt_eval_count,omitempty"`
	PromptEvalDuration int64       `json:"prompt_eval_duration,omitempty"` // nanoseconds
	EvalCount          int         `json:"eval_count,omitempty"`
	EvalDuration       int64       `json:"eval_duration,omitempty"` // nanoseconds
	TotalDuration      int64       `json:"total_duration,omitempty"` // nanoseconds
}

// stats converts the final chunk's counters into generation metrics.
func (d ChatResponseDelta) stats() drip.Stats {
	return drip.Stats{
		PromptTokens:   d.PromptEvalCount,
		OutputTokens:   d.EvalCount,
		PromptDuration: time.Duration(d.PromptEvalDuration),
		OutputDuration: time.Duration(d.EvalDuration),
		TotalDuration:  time.Duration(d.TotalDuration),
	}
}

const (
	// defaultMaxTokens is the assumed context length for unknown models.
	defaultMaxTokens = 4096
	// clampMaxTokens keeps context windows workable on ~16GB of RAM.
	// Models that support more (codestral 32k, devstral 128k) are clamped.
	clampMaxTokens = 16384
)

// MaxTokensFor returns a conservative context length for a model name,
// based on its family. The ":tag" suffix is ignored.
func MaxTokensFor(name string) int {
	family, _, _ := strings.Cut(name, ":")

	var tokens int
	switch family {
	case "granite-code", "phi", "tinyllama":
		tokens = 2048
	case "llama2", "stablelm2", "vicuna", "yi":
		tokens = 4096
	case "aya", "codegemma", "gemma", "gemma2", "llama3", "starcoder":
		tokens = 8192
	case "codellama", "starcoder2":
		tokens = 16384
	case "codestral", "dolphin-mixtral", "llava", "magistral", "mistral",
		"mixstral", "qwen2", "qwen2.5-coder":
		tokens = 32768
	case "cogito", "command-r", "deepseek-coder-v2", "deepseek-r1",
		"deepseek-v3", "devstral", "gemma3", "gpt-oss", "granite3.3",
		"llama3.1", "llama3.2", "llama3.3", "mistral-nemo", "phi3",
		"phi3.5", "phi4", "qwen3", "yi-coder":
		tokens = 128000
	case "qwen3-coder":
		tokens = 256000
	default:
		tokens = defaultMaxTokens
	}

	if tokens > clampMaxTokens {
		return clampMaxTokens
	}
	return tokens
}
