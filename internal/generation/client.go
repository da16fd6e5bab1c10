package generation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"inkroom/internal/apperr"
)

// Client talks to an Ollama-compatible generation service. The service is
// treated as unreliable: every call has a bounded wait and any non-success
// status, malformed body, or blank result is a generation failure.
type Client struct {
	host       string
	textModel  string
	imageModel string
	http       *http.Client
	log        *slog.Logger
}

func NewClient(host, textModel, imageModel string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		host:       strings.TrimRight(host, "/"),
		textModel:  textModel,
		imageModel: imageModel,
		http:       &http.Client{Timeout: timeout},
		log:        log,
	}
}

type generateRequest struct {
	Model   string           `json:"model"`
	Prompt  string           `json:"prompt"`
	Stream  bool             `json:"stream"`
	Options *generateOptions `json:"options,omitempty"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Response   string   `json:"response"`
	Image      string   `json:"image"`
	Images     []string `json:"images"`
	DoneReason string   `json:"done_reason"`
}

// GenerateText submits the prompt to the text model and returns the
// generated text.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := c.generate(ctx, generateRequest{
		Model:   c.textModel,
		Prompt:  prompt,
		Stream:  false,
		Options: &generateOptions{Temperature: 0.7},
	})
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.Response)
	if text == "" {
		return "", apperr.Generationf("text generation returned an empty response (done_reason=%q)", resp.DoneReason)
	}
	return text, nil
}

// GenerateImage submits the prompt to the image model and returns the
// base64 payload.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	resp, err := c.generate(ctx, generateRequest{
		Model:  c.imageModel,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", err
	}

	payload, err := pickImage(resp)
	if err != nil {
		return "", err
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return "", apperr.Generation("image payload is not valid base64", err)
	}
	return payload, nil
}

// pickImage normalizes the provider-dependent response shape: a singular
// image field, else the first element of a plural images array.
func pickImage(resp *generateResponse) (string, error) {
	if resp.Image != "" {
		return resp.Image, nil
	}
	if len(resp.Images) > 0 && resp.Images[0] != "" {
		return resp.Images[0], nil
	}
	return "", apperr.Generationf("no image in response (done_reason=%q)", resp.DoneReason)
}

func (c *Client) generate(ctx context.Context, req generateRequest) (*generateResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, apperr.Generation("generation request failed", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, apperr.Generationf("generation service returned %d: %s", httpResp.StatusCode, strings.TrimSpace(string(body)))
	}

	var resp generateResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, apperr.Generation("decoding generation response", err)
	}

	c.log.Debug("generation call completed", "model", req.Model, "took", time.Since(start))
	return &resp, nil
}
