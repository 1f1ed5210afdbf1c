package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/BerylCAtieno/syllabus-analyzer/internal/utils"
)

// ChatCompletionsClient talks to an OpenAI compatible /chat/completions
// endpoint (OpenRouter, OpenAI).
type ChatCompletionsClient struct {
	baseURL string
	apiKey  string
	model   string
	logger  *utils.Logger
	client  *http.Client
}

type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatResponse struct {
	Choices []Choice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

type Choice struct {
	Message Message `json:"message"`
}

// NewChatCompletionsClient leaves timeouts to the caller's context.
func NewChatCompletionsClient(baseURL, apiKey, model string, logger *utils.Logger) *ChatCompletionsClient {
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &ChatCompletionsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		logger:  logger,
		client:  &http.Client{},
	}
}

func (c *ChatCompletionsClient) Complete(ctx context.Context, req Request) (string, error) {
	reqBody := ChatRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", eris.Wrap(err, "failed to marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", eris.Wrap(err, "failed to create request")
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", eris.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("chat completions API error", "status", resp.StatusCode, "body", string(body))
		return "", eris.Errorf("chat completions API returned status %d", resp.StatusCode)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", eris.Wrap(err, "failed to unmarshal response")
	}

	if chatResp.Error != nil {
		return "", eris.Errorf("chat completions API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", eris.New("no choices in response")
	}

	return chatResp.Choices[0].Message.Content, nil
}
