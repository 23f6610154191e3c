package ollama

import (
	"context"
	"fmt"
	"io"
	"time"
)

// EnsureReady checks that Ollama is running and the dialogue model is
// available, pulling it automatically with progress output written to w.
// After the model is available it is warmed up with a trivial chat request
// so the first user turn doesn't pay the cold-load penalty.
// Returns a non-nil error if Ollama is unreachable.
func EnsureReady(ctx context.Context, c *Client, model string, w io.Writer) error {
	if !c.IsRunning(ctx) {
		return fmt.Errorf("Ollama is not running. Start it with: ollama serve")
	}

	if c.HasModel(ctx, model) {
		fmt.Fprintf(w, "model %s: ready\n", model)
	} else {
		fmt.Fprintf(w, "model %s: pulling...\n", model)
		err := c.PullModel(ctx, model, func(p PullProgress) {
			if p.Total > 0 {
				pct := float64(p.Completed) / float64(p.Total) * 100
				fmt.Fprintf(w, "  %s %.0f%%\n", p.Status, pct)
			} else {
				fmt.Fprintf(w, "  %s\n", p.Status)
			}
		})
		if err != nil {
			return fmt.Errorf("pulling model %s: %w", model, err)
		}
		fmt.Fprintf(w, "model %s: ready\n", model)
	}

	fmt.Fprintf(w, "model %s: warming up...\n", model)
	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	_, err := c.Chat(warmCtx, model, []Message{
		{Role: "user", Content: "ping"},
	}, nil)
	if err != nil {
		fmt.Fprintf(w, "model %s: warm-up failed (non-fatal): %v\n", model, err)
	} else {
		fmt.Fprintf(w, "model %s: warm\n", model)
	}

	return nil
}
