package llmobs

import (
	"context"

	"invest-signals/internal/llm"
	"invest-signals/internal/logger"
	"invest-signals/internal/trace"
)

// observableChat wraps a chat client with observability (logging & tracing)
type observableChat struct {
	inner llm.Chat
}

// Compile-time interface check
var _ llm.Chat = (*observableChat)(nil)

// Wrap wraps a chat client with observability middleware
func Wrap(inner llm.Chat) llm.Chat {
	return &observableChat{inner: inner}
}

func (oc *observableChat) Provider() string { return oc.inner.Provider() }

// Complete performs a chat completion with observability
func (oc *observableChat) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Complete")
	defer span.End()

	// Use DebugSkip(1) to report the actual caller, not this middleware wrapper
	logger.DebugSkip(ctx, 1, "Requesting LLM completion",
		"provider", oc.inner.Provider(),
		"prompt_chars", len(user),
	)

	text, err := oc.inner.Complete(ctx, system, user)
	if err != nil {
		// Use ErrorWithErrSkip(1) to report the actual caller
		logger.ErrorWithErrSkip(ctx, 1, "LLM completion failed", err,
			"provider", oc.inner.Provider(),
		)
		return "", err
	}

	logger.InfoSkip(ctx, 1, "LLM completion received",
		"provider", oc.inner.Provider(),
		"response_chars", len(text),
	)
	return text, nil
}
