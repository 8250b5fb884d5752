package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sarrietav-dev/ai-backlog/internal/platform/envutil"
)

// GenerationError marks failures produced while generating content with the
// model, as opposed to plain persistence or validation failures. Handlers map
// it to a dedicated error code.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func newGenerationError(op string, err error) error {
	return &GenerationError{Op: op, Err: err}
}

// withGenerationTimeout bounds a single model call. The parent request context
// still applies, this only adds an upper limit.
func withGenerationTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	secs := envutil.Int("GENERATION_TIMEOUT_SECONDS", 30)
	return context.WithTimeout(ctx, time.Duration(secs)*time.Second)
}

// decodeGenerated unmarshals the model's final JSON into v. The schema format
// is enforced server side by the model, but the payload is still re-validated
// before anything is persisted.
func decodeGenerated(op, raw string, v any) error {
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return newGenerationError(op, fmt.Errorf("model returned invalid JSON: %w", err))
	}
	return nil
}
