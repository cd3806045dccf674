package safety

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
)

const defaultPerspectiveBaseURL = "https://commentanalyzer.googleapis.com/v1alpha1"

// PerspectiveConfig controls the remote comment-toxicity client.
type PerspectiveConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// PerspectiveScorer calls the comment-analysis endpoint and returns the
// per-attribute summary probabilities. Any non-2xx status is a scoring
// failure; the classifier's fail-safe policy decides what happens next.
type PerspectiveScorer struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewPerspectiveScorer creates a scorer with sane defaults. Returns nil when
// no API key is configured so the classifier self-reports unavailable.
func NewPerspectiveScorer(cfg PerspectiveConfig) *PerspectiveScorer {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultPerspectiveBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &PerspectiveScorer{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

type perspectiveRequest struct {
	Comment             perspectiveComment        `json:"comment"`
	RequestedAttributes map[string]map[string]any `json:"requestedAttributes"`
	Languages           []string                  `json:"languages"`
}

type perspectiveComment struct {
	Text string `json:"text"`
}

type perspectiveResponse struct {
	AttributeScores map[string]struct {
		SummaryScore struct {
			Value float64 `json:"value"`
		} `json:"summaryScore"`
	} `json:"attributeScores"`
}

// Score requests all configured toxicity attributes for text.
func (s *PerspectiveScorer) Score(ctx context.Context, text string) (map[string]float64, error) {
	reqBody := perspectiveRequest{
		Comment:             perspectiveComment{Text: text},
		RequestedAttributes: make(map[string]map[string]any, len(toxicityAttributes)),
		Languages:           []string{"en"},
	}
	for _, attr := range toxicityAttributes {
		reqBody.RequestedAttributes[attr] = map[string]any{}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("safety: marshal perspective request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/comments:analyze?key=%s", s.baseURL, url.QueryEscape(s.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("safety: build perspective request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("safety: perspective request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("safety: read perspective response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("safety: perspective returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed perspectiveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("safety: decode perspective response: %w", err)
	}

	scores := make(map[string]float64, len(parsed.AttributeScores))
	for attr, data := range parsed.AttributeScores {
		scores[attr] = data.SummaryScore.Value
	}
	return scores, nil
}

// KeywordToxicityScorer is the deterministic offline stand-in for the remote
// scorer, used in tests and keyless development environments. It feeds the
// same threshold logic as the real scorer.
type KeywordToxicityScorer struct{}

// NewKeywordToxicityScorer creates the offline keyword-weighted scorer.
func NewKeywordToxicityScorer() *KeywordToxicityScorer { return &KeywordToxicityScorer{} }

type toxicKeyword struct {
	word   string
	attr   string
	weight float64
}

var toxicKeywords = []toxicKeyword{
	{"hate", AttrToxicity, 0.8},
	{"kill", AttrThreat, 0.7},
	{"idiot", AttrInsult, 0.6},
	{"die", AttrThreat, 0.5},
	{"ugly", AttrInsult, 0.45},
	{"stupid", AttrInsult, 0.4},
	{"hurt", AttrThreat, 0.4},
	{"dumb", AttrInsult, 0.35},
}

// Score assigns each attribute the weight of the strongest matching keyword.
func (s *KeywordToxicityScorer) Score(_ context.Context, text string) (map[string]float64, error) {
	lower := strings.ToLower(text)
	scores := make(map[string]float64, len(toxicityAttributes))
	for _, attr := range toxicityAttributes {
		scores[attr] = 0
	}
	for _, kw := range toxicKeywords {
		if strings.Contains(lower, kw.word) && kw.weight > scores[kw.attr] {
			scores[kw.attr] = kw.weight
		}
	}
	return scores, nil
}
