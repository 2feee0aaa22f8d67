package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/replicate/replicate-go"
)

// ReplicateRunner submits predictions through the Replicate API and
// blocks until they finish.
type ReplicateRunner struct {
	client *replicate.Client
}

// NewReplicateRunner builds a runner authenticated from the
// REPLICATE_API_TOKEN environment variable.
func NewReplicateRunner() (*ReplicateRunner, error) {
	client, err := replicate.NewClient(replicate.WithTokenFromEnv())
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	return &ReplicateRunner{client: client}, nil
}

func (r *ReplicateRunner) Run(ctx context.Context, model string, input map[string]any) (any, error) {
	owner, name, ok := strings.Cut(model, "/")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("generate: model must be owner/name, got %q", model)
	}

	prediction, err := r.client.CreatePredictionWithModel(ctx, owner, name, replicate.PredictionInput(input), nil, false)
	if err != nil {
		return nil, fmt.Errorf("generate: create prediction: %w", err)
	}
	if err := r.client.Wait(ctx, prediction); err != nil {
		return nil, fmt.Errorf("generate: wait for prediction: %w", err)
	}
	if prediction.Status != replicate.Succeeded {
		return nil, fmt.Errorf("generate: prediction %s: %v", prediction.Status, prediction.Error)
	}
	return prediction.Output, nil
}
