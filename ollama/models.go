package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
)

// ModelListing is one entry from GET /api/tags.
type ModelListing struct {
	Name       string       `json:"name"`
	ModifiedAt string       `json:"modified_at"`
	Size       int64        `json:"size"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details"`
}

// ModelDetails describes a local model file.
type ModelDetails struct {
	Format            string   `json:"format"`
	Family            string   `json:"family"`
	Families          []string `json:"families"`
	ParameterSize     string   `json:"parameter_size"`
	QuantizationLevel string   `json:"quantization_level"`
}

type modelsResponse struct {
	Models []ModelListing `json:"models"`
}

// ModelShow holds the capability details from POST /api/show.
type ModelShow struct {
	Capabilities  []string
	Architecture  string
	ContextLength int
}

// UnmarshalJSON extracts capabilities plus the architecture-specific
// context length ("<arch>.context_length") from the model_info blob,
// ignoring the rest of the (large) response.
func (m *ModelShow) UnmarshalJSON(data []byte) error {
	var raw struct {
		Capabilities []string       `json:"capabilities"`
		ModelInfo    map[string]any `json:"model_info"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.Capabilities = raw.Capabilities
	if arch, ok := raw.ModelInfo["general.architecture"].(string); ok {
		m.Architecture = arch
		if n, ok := raw.ModelInfo[arch+".context_length"].(float64); ok {
			m.ContextLength = int(n)
		}
	}
	return nil
}

// SupportsTools reports whether the model advertises tool calling.
func (m ModelShow) SupportsTools() bool {
	return slices.Contains(m.Capabilities, "tools")
}

// SupportsVision reports whether the model accepts image input.
func (m ModelShow) SupportsVision() bool {
	return slices.Contains(m.Capabilities, "vision")
}

// SupportsThinking reports whether the model emits thinking content.
func (m ModelShow) SupportsThinking() bool {
	return slices.Contains(m.Capabilities, "thinking")
}

// ListModels returns the models available on the server.
func (c *Client) ListModels(ctx context.Context) ([]ModelListing, error) {
	resp, err := c.get(ctx, "/api/tags")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, httpError(resp)
	}

	var out modelsResponse
	if err := decodeJSON(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("ollama: parse tag listing: %w", err)
	}
	return out.Models, nil
}

// Show fetches capability details for a model, used to decide whether
// thinking can be requested.
func (c *Client) Show(ctx context.Context, model string) (ModelShow, error) {
	body, err := json.Marshal(map[string]string{"model": model})
	if err != nil {
		return ModelShow{}, fmt.Errorf("ollama: %w", err)
	}

	resp, err := c.post(ctx, "/api/show", body)
	if err != nil {
		return ModelShow{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ModelShow{}, httpError(resp)
	}

	var out ModelShow
	if err := decodeJSON(resp.Body, &out); err != nil {
		return ModelShow{}, fmt.Errorf("ollama: parse model details: %w", err)
	}
	return out, nil
}

func decodeJSON(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}
