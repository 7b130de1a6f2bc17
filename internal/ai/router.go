package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNoProvider is returned when the router has nothing registered.
var ErrNoProvider = errors.New("no AI provider registered")

// Router tries providers in registration order, optionally starting with a
// provider preferred for the request's task.
type Router struct {
	providers map[string]Provider
	fallback  []string // ordered fallback chain
	preferred map[TaskType]string
	mu        sync.RWMutex
}

// NewRouter creates a new AI router.
func NewRouter() *Router {
	return &Router{
		providers: make(map[string]Provider),
		preferred: make(map[TaskType]string),
	}
}

// Register adds a provider to the end of the fallback chain.
func (r *Router) Register(name string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[name]; !exists {
		r.fallback = append(r.fallback, name)
	}
	r.providers[name] = provider
}

// Prefer makes the named provider the first choice for task. The rest of the
// chain still applies if it fails.
func (r *Router) Prefer(task TaskType, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preferred[task] = name
}

// Complete routes a request to the first provider that succeeds.
func (r *Router) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	r.mu.RLock()
	order := r.orderFor(req.Task)
	providers := make([]Provider, len(order))
	for i, name := range order {
		providers[i] = r.providers[name]
	}
	r.mu.RUnlock()

	if len(order) == 0 {
		return CompletionResponse{}, ErrNoProvider
	}

	var lastErr error
	for i, name := range order {
		if err := ctx.Err(); err != nil {
			return CompletionResponse{}, err
		}
		resp, err := providers[i].Complete(ctx, req)
		if err != nil {
			slog.Warn("AI provider failed, trying next",
				"provider", name,
				"task", req.Task.String(),
				"error", err,
			)
			lastErr = err
			continue
		}

		slog.Debug("AI request completed",
			"provider", name,
			"task", req.Task.String(),
			"model", resp.Model,
			"input_tokens", resp.InputTokens,
			"output_tokens", resp.OutputTokens,
		)
		return resp, nil
	}

	return CompletionResponse{}, fmt.Errorf("all AI providers failed: %w", lastErr)
}

func (r *Router) orderFor(task TaskType) []string {
	order := make([]string, 0, len(r.fallback))
	pref, ok := r.preferred[task]
	if _, registered := r.providers[pref]; ok && registered {
		order = append(order, pref)
	}
	for _, name := range r.fallback {
		if name != pref || !ok {
			order = append(order, name)
		}
	}
	return order
}

// HasProvider returns true if at least one provider is registered.
func (r *Router) HasProvider() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers) > 0
}
