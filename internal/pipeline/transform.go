package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/couchcryptid/smart-irrigation-service/internal/domain"
)

// Adviser produces a recommendation for one request.
type Adviser interface {
	Advise(ctx context.Context, req Request) (Advice, error)
}

// RecommendationTransformer implements Transformer by decoding a Request,
// running the advisor, and encoding the Advice.
type RecommendationTransformer struct {
	advisor Adviser
}

// NewTransformer creates a RecommendationTransformer.
func NewTransformer(advisor Adviser) *RecommendationTransformer {
	return &RecommendationTransformer{advisor: advisor}
}

func (t *RecommendationTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	var req Request
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return domain.OutputEvent{}, fmt.Errorf("%w: decode request: %w", domain.ErrInvalidInput, err)
	}
	if req.RequestID == "" && len(raw.Key) > 0 {
		req.RequestID = string(raw.Key)
	}

	advice, err := t.advisor.Advise(ctx, req)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	return SerializeAdvice(advice)
}

// SerializeAdvice encodes advice for the recommendation topic.
func SerializeAdvice(a Advice) (domain.OutputEvent, error) {
	value, err := json.Marshal(a)
	if err != nil {
		return domain.OutputEvent{}, fmt.Errorf("encode advice: %w", err)
	}
	return domain.OutputEvent{
		Key:   []byte(a.Key()),
		Value: value,
		Headers: map[string]string{
			"urgency":     string(a.Recommendation.Urgency),
			"computed_at": a.ComputedAt.Format(time.RFC3339),
		},
	}, nil
}
