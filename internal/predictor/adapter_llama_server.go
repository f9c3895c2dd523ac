package predictor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// llamaServerAdapter implements InferenceAdapter by talking to a running
// llama.cpp server over HTTP. The model is loaded by the server; Start only
// checks that it is healthy.
type llamaServerAdapter struct {
	client *completionClient
}

// NewLlamaServerAdapter constructs a server-backed adapter. reqTimeout bounds
// one Generate call (0 disables); connectTimeout bounds dialing.
func NewLlamaServerAdapter(baseURL, apiKey string, reqTimeout, connectTimeout time.Duration, log zerolog.Logger) InferenceAdapter {
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Timeout stays 0: every request carries a context deadline instead.
	return &llamaServerAdapter{client: &completionClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		reqTimeout: reqTimeout,
		httpClient: &http.Client{Transport: tr},
		log:        log.With().Str("adapter", "llama_server").Logger(),
	}}
}

func (a *llamaServerAdapter) Start(modelName string, params LoadParams) (InferSession, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.client.health(ctx); err != nil {
		return nil, ErrDependencyUnavailable("llama server unavailable at " + a.client.baseURL + ": " + err.Error())
	}
	return &llamaServerSession{client: a.client, model: strings.TrimSpace(modelName)}, nil
}

// llamaServerSession sends the configured model name with each completion.
type llamaServerSession struct {
	client *completionClient
	model  string
}

func (s *llamaServerSession) Tokenize(ctx context.Context, text string) (int, error) {
	return s.client.tokenize(ctx, text)
}

func (s *llamaServerSession) Generate(ctx context.Context, prompt string, params SampleParams, onToken func(string) error) (FinalResult, error) {
	return s.client.complete(ctx, s.model, prompt, params, onToken)
}

func (s *llamaServerSession) Close() error { return nil }

// completionClient speaks the llama.cpp server protocol. It is shared by the
// server and spawn backends.
type completionClient struct {
	baseURL    string
	apiKey     string
	reqTimeout time.Duration
	httpClient *http.Client
	log        zerolog.Logger
}

// completionRequest is the payload for /v1/completions.
type completionRequest struct {
	Model         string  `json:"model,omitempty"`
	Prompt        string  `json:"prompt"`
	MaxTokens     int     `json:"max_tokens,omitempty"`
	Temperature   float32 `json:"temperature"`
	TopP          float32 `json:"top_p"`
	RepeatPenalty float32 `json:"repeat_penalty,omitempty"`
	Seed          *int    `json:"seed,omitempty"`
	Stream        bool    `json:"stream"`
}

// completionChunk covers the completion, chat-delta and native stream shapes.
type completionChunk struct {
	Choices []struct {
		Text  string `json:"text"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Content string `json:"content"`
	Usage   *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *completionClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func (c *completionClient) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("llama server http error: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	return resp, nil
}

// health succeeds once the server has loaded its model.
func (c *completionClient) health(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}

func (c *completionClient) tokenize(ctx context.Context, text string) (int, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/tokenize", map[string]any{"content": text, "add_special": true})
	if err != nil {
		return 0, err
	}
	resp, err := c.do(ctx, req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	var out struct {
		Tokens []json.RawMessage `json:"tokens"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode tokenize response: %w", err)
	}
	return len(out.Tokens), nil
}

func (c *completionClient) complete(ctx context.Context, model, prompt string, params SampleParams, onToken func(string) error) (FinalResult, error) {
	if c.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.reqTimeout)
		defer cancel()
	}
	payload := completionRequest{
		Model:         model,
		Prompt:        prompt,
		MaxTokens:     params.MaxTokens,
		Temperature:   params.Temperature,
		TopP:          params.TopP,
		RepeatPenalty: params.RepeatPenalty,
		Stream:        true,
	}
	if params.Seed >= 0 {
		seed := params.Seed
		payload.Seed = &seed
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/v1/completions", payload)
	if err != nil {
		return FinalResult{}, err
	}
	resp, err := c.do(ctx, req)
	if err != nil {
		return FinalResult{}, err
	}
	defer resp.Body.Close()

	// Server-Sent Events: "data: {json}" lines terminated by "data: [DONE]".
	var (
		final FinalResult
		sb    strings.Builder
	)
	r := bufio.NewReader(resp.Body)
	for {
		line, err := r.ReadString('\n')
		if l := strings.TrimSpace(line); strings.HasPrefix(strings.ToLower(l), "data:") {
			data := strings.TrimSpace(l[len("data:"):])
			if data == "[DONE]" {
				break
			}
			var chunk completionChunk
			if jerr := json.Unmarshal([]byte(data), &chunk); jerr != nil {
				c.log.Warn().Str("line", l).Msg("unknown stream line")
			} else {
				frag := chunk.Content
				if len(chunk.Choices) > 0 {
					ch := chunk.Choices[0]
					frag = ch.Text + ch.Delta.Content
					if ch.FinishReason != "" {
						final.FinishReason = ch.FinishReason
					}
				}
				if frag != "" {
					sb.WriteString(frag)
					if cbErr := onToken(frag); cbErr != nil {
						return final, cbErr
					}
				}
				if chunk.Usage != nil {
					final.Usage = Usage{
						PromptTokens:     chunk.Usage.PromptTokens,
						CompletionTokens: chunk.Usage.CompletionTokens,
						TotalTokens:      chunk.Usage.TotalTokens,
					}
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if ctx.Err() != nil {
				return final, ctx.Err()
			}
			c.log.Error().Err(err).Msg("stream read error")
			return final, err
		}
	}
	final.Content = sb.String()
	return final, nil
}
