package service

import (
	"context"

	"FinSight/internal/domain/models"
)

// BehaviorClassifier turns a feature snapshot into behavior tags.
type BehaviorClassifier interface {
	Classify(snapshot models.FeatureSnapshot) ([]models.BehaviorTag, error)
}

// InsightGenerator produces ordered, explained insights from a snapshot and
// its tags.
type InsightGenerator interface {
	Explain(ctx context.Context, snapshot models.FeatureSnapshot, tags []models.BehaviorTag) ([]models.InsightRecord, error)
}

// RecommendationRanker scores catalog products against a snapshot and tags.
type RecommendationRanker interface {
	Rank(snapshot models.FeatureSnapshot, tags []models.BehaviorTag, products []models.Product) ([]models.RecommendationRecord, error)
}

// Phraser optionally rewrites insight descriptions for readability. It may
// only reformat already-computed facts; on error callers keep the
// deterministic template text.
type Phraser interface {
	Rephrase(ctx context.Context, title, template string, evidence []string) (string, error)
}
