package llm

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"
)

const defaultFallbackText = "Our assistant is temporarily unavailable. Please try again later."

var errEmptyResponse = errors.New("provider returned empty text")

// FallbackProviderName identifies answers produced by the chain itself after
// every configured provider failed.
const FallbackProviderName = "fallback"

// Result is the chain's answer: the generated text and which provider
// produced it.
type Result struct {
	Text     string
	Provider string
}

// ProviderStatus is per-provider observability state maintained by the chain.
type ProviderStatus struct {
	Attempts  int    `json:"attempts"`
	Failures  int    `json:"failures"`
	Available bool   `json:"available"`
	LastError string `json:"last_error,omitempty"`
}

type chainEntry struct {
	provider Provider
	timeout  time.Duration
}

// Chain tries providers strictly in the order they were added and returns the
// first success. A failed attempt, whatever its cause, advances to the next
// provider; the same provider is never re-tried within one request. When every
// provider fails the chain answers with the configured fallback text instead
// of an error, so callers always get some text back.
type Chain struct {
	entries      []chainEntry
	fallbackText string

	mu     sync.Mutex
	status map[string]*ProviderStatus
}

func NewChain(fallbackText string) *Chain {
	if strings.TrimSpace(fallbackText) == "" {
		fallbackText = defaultFallbackText
	}
	return &Chain{
		fallbackText: fallbackText,
		status:       make(map[string]*ProviderStatus),
	}
}

// Add appends a provider with its per-attempt timeout. Order of Add calls is
// priority order.
func (c *Chain) Add(p Provider, timeout time.Duration) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c.entries = append(c.entries, chainEntry{provider: p, timeout: timeout})
	c.mu.Lock()
	c.status[p.Name()] = &ProviderStatus{Available: true}
	c.mu.Unlock()
}

// Generate runs the fallback chain. The only error it can return is the
// caller's own context being cancelled, in which case the in-flight attempt
// is abandoned and no partial answer is produced.
func (c *Chain) Generate(ctx context.Context, req Request) (Result, error) {
	for _, entry := range c.entries {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, entry.timeout)
		text, err := entry.provider.Generate(attemptCtx, req)
		cancel()

		if err == nil && strings.TrimSpace(text) != "" {
			c.record(entry.provider.Name(), nil)
			return Result{Text: text, Provider: entry.provider.Name()}, nil
		}
		if err == nil {
			err = errEmptyResponse
		}

		// The caller went away; the failed attempt is not this provider's fault.
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}

		c.record(entry.provider.Name(), err)
		log.Printf("provider %s attempt failed: %v", entry.provider.Name(), err)
	}

	log.Printf("all %d providers failed, returning fallback answer", len(c.entries))
	return Result{Text: c.fallbackText, Provider: FallbackProviderName}, nil
}

// Status reports attempt counters per provider. Available flips false after a
// failure and back to true on the next success.
func (c *Chain) Status() map[string]ProviderStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]ProviderStatus, len(c.status))
	for name, s := range c.status {
		out[name] = *s
	}
	return out
}

func (c *Chain) record(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.status[name]
	if !ok {
		s = &ProviderStatus{}
		c.status[name] = s
	}
	s.Attempts++
	if err != nil {
		s.Failures++
		s.Available = false
		s.LastError = err.Error()
		return
	}
	s.Available = true
	s.LastError = ""
}
