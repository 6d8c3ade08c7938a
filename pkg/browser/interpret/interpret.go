// Package interpret implements the browser agent's perception/action
// service over an OpenAI-compatible chat-completions API.
//
// The service is treated as opaque: it receives one instruction plus the
// condensed page context and answers with JSON: a primitive sequence for
// act, a candidate element list for observe, raw structured data for
// extract. No interpretation logic lives on the client side; this package
// only shapes the request and decodes the answer.
//
// Example:
//
//	provider, err := interpret.NewProvider(
//	    os.Getenv("OPENAI_API_KEY"),
//	    interpret.WithModel("gpt-4o"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	agent := session.Browser() // constructed with WithInterpreter(provider)
package interpret

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/openai/openai-go"

	"github.com/agbcloud/agb-go/pkg/browser"
)

const (
	// DefaultBaseURL is the standard OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o"
)

// Provider calls an OpenAI-compatible chat-completions API. It implements
// browser.Interpreter.
type Provider struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
}

// Option configures a Provider.
type Option func(*Provider)

// WithModel sets the model used for interpretation.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs (Azure,
// local models, gateways).
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// NewProvider creates a provider. An empty apiKey falls back to the
// OPENAI_API_KEY environment variable; a missing key is an error. If no
// base URL is configured, OPENAI_BASE_URL is honored.
func NewProvider(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("interpreter API key is required (provide via parameter or OPENAI_API_KEY environment variable)")
	}

	p := &Provider{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			p.baseURL = envBaseURL
		}
	}
	return p, nil
}

// Interpret asks the service for the primitive sequence realizing the
// instruction on the current page.
func (p *Provider) Interpret(ctx context.Context, instruction string, page *browser.PageContext) ([]browser.Primitive, error) {
	content, err := p.complete(ctx, actSystemPrompt, actUserPrompt(instruction, page))
	if err != nil {
		return nil, err
	}

	var answer struct {
		Primitives []browser.Primitive `json:"primitives"`
	}
	if err := decodeAnswer(content, &answer); err != nil {
		return nil, fmt.Errorf("undecodable action answer: %w", err)
	}
	for i, prim := range answer.Primitives {
		if !validKind(prim.Kind) {
			return nil, fmt.Errorf("action answer step %d has unknown kind %q", i, prim.Kind)
		}
	}
	return answer.Primitives, nil
}

// Observe asks the service for up to maxResults candidate elements.
func (p *Provider) Observe(ctx context.Context, instruction string, page *browser.PageContext, maxResults int) ([]browser.ObservedElement, error) {
	content, err := p.complete(ctx, observeSystemPrompt, observeUserPrompt(instruction, page, maxResults))
	if err != nil {
		return nil, err
	}

	var answer struct {
		Elements []browser.ObservedElement `json:"elements"`
	}
	if err := decodeAnswer(content, &answer); err != nil {
		return nil, fmt.Errorf("undecodable observation answer: %w", err)
	}
	return answer.Elements, nil
}

// Extract asks the service for structured data shaped by the schema. The
// agent validates the payload; this only returns it raw.
func (p *Provider) Extract(ctx context.Context, instruction string, schema *browser.Schema, page *browser.PageContext) (json.RawMessage, error) {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to render schema: %w", err)
	}

	content, err := p.complete(ctx, extractSystemPrompt, extractUserPrompt(instruction, string(schemaJSON), page))
	if err != nil {
		return nil, err
	}

	var answer struct {
		Data json.RawMessage `json:"data"`
	}
	if err := decodeAnswer(content, &answer); err != nil {
		return nil, fmt.Errorf("undecodable extraction answer: %w", err)
	}
	if len(answer.Data) == 0 {
		return nil, fmt.Errorf("extraction answer carried no data")
	}
	return answer.Data, nil
}

// complete performs one non-streaming chat completion and returns the
// assistant's content.
func (p *Provider) complete(ctx context.Context, system, user string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(system),
		openai.UserMessage(user),
	}

	reqBody := map[string]interface{}{
		"model":           p.model,
		"messages":        messages,
		"temperature":     0,
		"response_format": map[string]string{"type": "json_object"},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return "", fmt.Errorf("API request failed with status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("response carried no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

// decodeAnswer parses the assistant's JSON answer, tolerating markdown code
// fences some models wrap around JSON despite the response format.
func decodeAnswer(content string, v any) error {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}
	return json.Unmarshal([]byte(content), v)
}

func validKind(kind browser.PrimitiveKind) bool {
	switch kind {
	case browser.PrimitiveNavigate, browser.PrimitiveClick, browser.PrimitiveFill,
		browser.PrimitivePress, browser.PrimitiveScroll, browser.PrimitiveWait:
		return true
	}
	return false
}
