package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	config "github.com/arne314/chat-collab/internal/config"
)

// Prompt template the model was fine-tuned on. The response slot is left
// blank and filled in by the model.
const promptTemplate = `Below is a snippet of an online text conversation. The text before the user's response is given. Complete the user's response to the text message.

### Previous Message:
%s

### Response:
%s`

const responseMarker = "### Response:"

var eosTokens = []string{"</s>", "<|end_of_text|>", "<|endoftext|>"}

var ErrNoResponseMarker = errors.New("no response marker in generated text")

type generateRequest struct {
	Prompt       string `json:"prompt"`
	MaxNewTokens int    `json:"max_new_tokens"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// Generator talks to the python inference api serving the fine-tuned model.
type Generator struct {
	config     *config.LLMConfig
	httpClient *http.Client
}

func NewGenerator(cfg *config.LLMConfig) *Generator {
	return &Generator{
		config:     cfg,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (g *Generator) apiRequest(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost,
		g.config.ApiUrl+"/"+endpoint,
		bytes.NewBuffer(body),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if code := resp.StatusCode; code != 200 {
		return nil, fmt.Errorf("Received http status %v from llm api: %v", code, string(data))
	}
	return data, nil
}

// Complete generates a reply to the given message and returns it as
// individual lines, each meant to be sent as a separate chat message.
func (g *Generator) Complete(ctx context.Context, previous string) ([]string, error) {
	prompt := fmt.Sprintf(promptTemplate, previous, "")
	encoded, err := json.Marshal(generateRequest{
		Prompt:       prompt,
		MaxNewTokens: g.config.MaxNewTokens,
	})
	if err != nil {
		return nil, err
	}
	response, err := g.apiRequest(ctx, "generate", encoded)
	if err != nil {
		return nil, err
	}
	result := &generateResponse{}
	if err := json.Unmarshal(response, result); err != nil {
		return nil, err
	}
	return extractResponse(result.Text)
}

// extractResponse pulls the model's reply out of the full decoded sequence:
// everything after the first response marker, with end-of-sequence tokens
// removed and literal "\n" escapes converted to real newlines, split into
// non-empty lines.
func extractResponse(generated string) ([]string, error) {
	idx := strings.Index(generated, responseMarker)
	if idx < 0 {
		return nil, ErrNoResponseMarker
	}
	text := generated[idx+len(responseMarker):]
	for _, token := range eosTokens {
		text = strings.ReplaceAll(text, token, "")
	}
	text = strings.ReplaceAll(text, `\n`, "\n")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
