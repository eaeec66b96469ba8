package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fitmatch/coaching-api/internal/domain"
)

const (
	DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel    = "gemini-2.5-flash"
	historyWindow         = 10
)

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Gemini calls the generateContent REST endpoint.
type Gemini struct {
	apiKey   string
	model    string
	endpoint string
	http     *http.Client
}

func NewGemini(apiKey, model, endpoint string) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	if endpoint == "" {
		endpoint = DefaultGeminiEndpoint
	}
	return &Gemini{
		apiKey:   apiKey,
		model:    model,
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: 20 * time.Second},
	}
}

func (g *Gemini) GenerateReply(ctx context.Context, history []domain.Message, assistantName, lastUserText string) (string, error) {
	if g.apiKey == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(geminiRequest{Contents: []geminiContent{{
		Role:  "user",
		Parts: []geminiPart{{Text: buildPrompt(history, assistantName, lastUserText)}},
	}}})
	if err != nil {
		return "", err
	}

	u := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.endpoint, g.model, url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("gemini: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("gemini: decode: %w", err)
	}

	if len(out.Candidates) == 0 {
		return "", nil
	}
	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}

func buildPrompt(history []domain.Message, name, last string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a helpful and motivating Danish Personal Trainer named %s.\n", name)
	sb.WriteString("Respond to the client's last message. Keep it short, encouraging, and professional.\n")
	sb.WriteString("You can speak English or Danish depending on the user's language.\n\n")

	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	if len(history) > 0 {
		sb.WriteString("Recent conversation:\n")
		for _, m := range history {
			fmt.Fprintf(&sb, "[%s] %s: %s\n", m.Timestamp.Format(time.RFC3339), m.SenderID.Hex(), m.Body)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Client says: %s", last)
	return sb.String()
}
