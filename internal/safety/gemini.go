package safety

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiAssessor implements AssessmentLLM against Google's Gemini API. The
// provider's native filter is configured maximally permissive so the custom
// assessment sees unfiltered harm ratings.
type GeminiAssessor struct {
	client  *genai.Client
	modelID string
}

// NewGeminiAssessor creates a Gemini-backed assessor.
func NewGeminiAssessor(ctx context.Context, apiKey, modelID string) (*GeminiAssessor, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("safety: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("safety: failed to create gemini client: %w", err)
	}

	return &GeminiAssessor{client: client, modelID: modelID}, nil
}

// Assess sends the safety-assessment prompt and returns the text, the hard
// block signal and the native harm ratings.
func (g *GeminiAssessor) Assess(ctx context.Context, prompt string) (Assessment, error) {
	model := g.client.GenerativeModel(g.modelID)
	model.ResponseMIMEType = "application/json"
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return Assessment{}, fmt.Errorf("safety: gemini generation failed: %w", err)
	}

	var out Assessment

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		out.Blocked = true
		out.BlockReason = resp.PromptFeedback.BlockReason.String()
		return out, nil
	}

	if len(resp.Candidates) == 0 {
		return Assessment{}, errors.New("safety: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]

	if candidate.FinishReason == genai.FinishReasonSafety {
		out.Blocked = true
		out.BlockReason = candidate.FinishReason.String()
		return out, nil
	}

	for _, rating := range candidate.SafetyRatings {
		out.Ratings = append(out.Ratings, HarmRating{
			Category:    harmCategoryName(rating.Category),
			Probability: harmProbabilityName(rating.Probability),
		})
	}

	if candidate.Content != nil {
		var sb strings.Builder
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		out.Text = strings.TrimSpace(sb.String())
	}

	return out, nil
}

// Close releases the underlying client.
func (g *GeminiAssessor) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func harmCategoryName(c genai.HarmCategory) string {
	switch c {
	case genai.HarmCategoryHarassment:
		return "harassment"
	case genai.HarmCategoryHateSpeech:
		return "hate_speech"
	case genai.HarmCategorySexuallyExplicit:
		return "sexually_explicit"
	case genai.HarmCategoryDangerousContent:
		return "dangerous_content"
	default:
		return "unspecified"
	}
}

func harmProbabilityName(p genai.HarmProbability) string {
	switch p {
	case genai.HarmProbabilityNegligible:
		return "negligible"
	case genai.HarmProbabilityLow:
		return "low"
	case genai.HarmProbabilityMedium:
		return "medium"
	case genai.HarmProbabilityHigh:
		return "high"
	default:
		return "unspecified"
	}
}
