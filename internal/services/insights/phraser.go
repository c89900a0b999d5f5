package insights

import (
	"context"
	"fmt"
	"strings"
	"time"

	xhttp "FinSight/pkg/http"
)

// HTTPPhraser calls an external phrasing service to rewrite insight
// descriptions into friendlier language. It is strictly best effort: any
// failure, timeout or empty reply means the caller keeps the template text.
type HTTPPhraser struct {
	baseURL string
	apiKey  string
	client  *xhttp.Client
}

type PhraserOption func(*HTTPPhraser)

func WithAPIKey(key string) PhraserOption {
	return func(p *HTTPPhraser) { p.apiKey = key }
}

func WithRequestTimeout(d time.Duration) PhraserOption {
	return func(p *HTTPPhraser) { p.client = xhttp.NewClient(xhttp.WithTimeout(d)) }
}

func NewHTTPPhraser(baseURL string, opts ...PhraserOption) *HTTPPhraser {
	p := &HTTPPhraser{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  xhttp.NewClient(xhttp.WithTimeout(5 * time.Second)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type phraseRequest struct {
	Title    string   `json:"title"`
	Template string   `json:"template"`
	Evidence []string `json:"evidence"`
}

type phraseResponse struct {
	Text string `json:"text"`
}

// Rephrase asks the service for a rewrite of template. The evidence is sent
// for grounding only; the service must not introduce numbers of its own.
func (p *HTTPPhraser) Rephrase(ctx context.Context, title, template string, evidence []string) (string, error) {
	headers := map[string]string{"Content-Type": "application/json"}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}

	var resp phraseResponse
	err := p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     p.baseURL + "/v1/phrase",
		Headers: headers,
		Body: phraseRequest{
			Title:    title,
			Template: template,
			Evidence: evidence,
		},
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("phrase request: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
