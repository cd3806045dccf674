package bootstrap

import (
	"context"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wardenlabs/childguard/internal/config"
	"github.com/wardenlabs/childguard/internal/observability/metrics"
	"github.com/wardenlabs/childguard/internal/review"
	"github.com/wardenlabs/childguard/internal/safety"
	"github.com/wardenlabs/childguard/pkg/logging"
)

// BuildClassifiers assembles the classifier chain in invocation order:
// patterns, toxicity, semantic assessment. Layers without credentials are
// built unavailable and excluded by the evaluator. The returned cleanup
// releases provider clients.
func BuildClassifiers(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) ([]safety.Classifier, func(), error) {
	if logger == nil {
		logger = logging.Default()
	}

	var scorer safety.ToxicityScorer
	if cfg.UseKeywordToxicity {
		scorer = safety.NewKeywordToxicityScorer()
		logger.Info("toxicity layer using keyword scorer")
	} else if ps := safety.NewPerspectiveScorer(safety.PerspectiveConfig{
		APIKey:  cfg.PerspectiveAPIKey,
		BaseURL: cfg.PerspectiveBaseURL,
	}); ps != nil {
		scorer = ps
	} else {
		logger.Warn("no toxicity scorer configured, layer disabled")
	}

	cleanup := func() {}
	var llm safety.AssessmentLLM
	if cfg.GoogleAPIKey != "" {
		assessor, err := safety.NewGeminiAssessor(ctx, cfg.GoogleAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, cleanup, err
		}
		llm = assessor
		cleanup = func() { _ = assessor.Close() }
	} else {
		logger.Warn("no Gemini API key configured, semantic layer disabled")
	}

	classifiers := []safety.Classifier{
		safety.NewPatternClassifier(),
		safety.NewToxicityClassifier(scorer, logger),
		safety.NewSemanticClassifier(llm, logger),
	}
	return classifiers, cleanup, nil
}

// BuildReviewQueue assembles the moderation queue with the optional Redis
// ticket archive.
func BuildReviewQueue(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger, m *metrics.SafetyMetrics) *review.Queue {
	expireAction := safety.ActionBlock
	if a, ok := safety.ParseAction(cfg.ReviewExpireAction); ok {
		expireAction = a
	}

	var archive review.Archive
	if redisClient != nil {
		archive = review.NewRedisArchive(redisClient, review.RedisArchiveConfig{})
	}

	return review.NewQueue(review.QueueConfig{
		MaxSize:      cfg.ReviewMaxSize,
		TTL:          cfg.ReviewTTL,
		ExpireAction: expireAction,
		Archive:      archive,
		Logger:       logger,
		Metrics:      m,
	})
}
