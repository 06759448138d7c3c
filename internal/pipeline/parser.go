package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/Role1776/gigago"
	"github.com/dvloznov/ocr-ledger/internal/domain"
	"github.com/dvloznov/ocr-ledger/internal/logger"
	"google.golang.org/genai"
)

// Completer sends one system instruction and one user message to a
// text-generation service and returns the raw reply text.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userText string) (string, error)
}

// Extractor turns raw OCR text into a candidate JSON value.
type Extractor interface {
	Extract(ctx context.Context, rawText string, today civil.Date) (any, error)
}

// ExtractionClient builds the extraction instruction, calls the backend once
// and decodes whatever it returns.
type ExtractionClient struct {
	backend Completer
}

// NewExtractionClient creates an ExtractionClient over the given backend.
func NewExtractionClient(backend Completer) *ExtractionClient {
	return &ExtractionClient{backend: backend}
}

// Extract asks the model for the transactions in rawText. Backend errors keep
// their type through wrapping; a reply that is not JSON decodes to an empty object.
func (c *ExtractionClient) Extract(ctx context.Context, rawText string, today civil.Date) (any, error) {
	content, err := c.backend.Complete(ctx, buildExtractionPrompt(today), rawText)
	if err != nil {
		return nil, fmt.Errorf("Extract: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Debug().Int("reply_len", len(content)).Msg("Model reply received")

	return DecodeLenient(content), nil
}

// Demo runs the built-in sample capture through the backend with a short
// instruction. It is used to check the generation service end to end.
func (c *ExtractionClient) Demo(ctx context.Context) (any, error) {
	content, err := c.backend.Complete(ctx, demoPrompt, strings.Join(demoLines, "\n"))
	if err != nil {
		return nil, fmt.Errorf("Demo: %w", err)
	}
	return DecodeLenient(content), nil
}

//
// ──────────────────────────────────────────────────────────────
//  Chat completions (OpenAI-compatible gateway)
// ──────────────────────────────────────────────────────────────
//

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ChatCompletionsBackend talks to an OpenAI-compatible /chat/completions endpoint.
type ChatCompletionsBackend struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewChatCompletionsBackend creates a backend. baseURL must not end with a slash;
// a nil httpClient uses http.DefaultClient.
func NewChatCompletionsBackend(baseURL, apiKey, model string, httpClient *http.Client) *ChatCompletionsBackend {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if model == "" {
		model = DefaultChatModel
	}
	return &ChatCompletionsBackend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
	}
}

// Complete performs a single non-streaming chat completion.
func (b *ChatCompletionsBackend) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	if b.apiKey == "" {
		return "", &domain.ConfigurationError{Setting: "AI_GATEWAY_API_KEY"}
	}

	body, err := json.Marshal(chatRequest{
		Model: b.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userText},
		},
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("ChatCompletionsBackend.Complete: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ChatCompletionsBackend.Complete: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", &domain.GatewayError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.GatewayError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &domain.GatewayError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("ChatCompletionsBackend.Complete: decode response: %w", err)
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == nil || *parsed.Choices[0].Message.Content == "" {
		return "{}", nil
	}
	return *parsed.Choices[0].Message.Content, nil
}

//
// ──────────────────────────────────────────────────────────────
//  Gemini
// ──────────────────────────────────────────────────────────────
//

// GeminiBackend generates through the Gemini API.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGeminiBackend creates a Gemini client. An empty apiKey is a configuration error.
func NewGeminiBackend(ctx context.Context, apiKey, model string) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, &domain.ConfigurationError{Setting: "GEMINI_API_KEY"}
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiBackend: create genai client: %w", err)
	}

	return &GeminiBackend{client: client, model: model}, nil
}

// Complete sends the instruction as the system instruction and the text as the user turn.
func (b *GeminiBackend) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: userText}},
		},
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.model, contents, config)
	if err != nil {
		return "", &domain.GatewayError{Err: err}
	}

	text := resp.Text()
	if text == "" {
		return "{}", nil
	}
	return text, nil
}

//
// ──────────────────────────────────────────────────────────────
//  GigaChat
// ──────────────────────────────────────────────────────────────
//

// GigaChatBackend generates through the GigaChat API.
type GigaChatBackend struct {
	client *gigago.Client
	model  string
}

// NewGigaChatBackend authorizes against GigaChat with the given scope.
func NewGigaChatBackend(ctx context.Context, apiKey, scope, model string) (*GigaChatBackend, error) {
	if apiKey == "" {
		return nil, &domain.ConfigurationError{Setting: "GIGACHAT_API_KEY"}
	}
	if model == "" {
		model = DefaultGigaChatModel
	}

	var opts []gigago.Option
	if scope != "" {
		opts = append(opts, gigago.WithCustomScope(scope))
	}

	client, err := gigago.NewClient(ctx, apiKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewGigaChatBackend: create client: %w", err)
	}

	return &GigaChatBackend{client: client, model: model}, nil
}

// Complete sends one user message under the given system instruction.
func (b *GigaChatBackend) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	// The system instruction carries today's date, so the model handle is per call.
	model := b.client.GenerativeModel(b.model)
	model.SystemInstruction = systemPrompt

	resp, err := model.Generate(ctx, []gigago.Message{
		{Role: gigago.RoleUser, Content: userText},
	})
	if err != nil {
		return "", &domain.GatewayError{Err: err}
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "{}", nil
	}
	return resp.Choices[0].Message.Content, nil
}
