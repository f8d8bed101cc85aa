package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/arjunsethi/agentcore/internal/message"
)

type chunkProvider struct {
	chunks []message.StreamChunk
}

func (p *chunkProvider) Stream(ctx context.Context, opts CompletionOptions) <-chan message.StreamChunk {
	ch := make(chan message.StreamChunk, len(p.chunks))
	for _, c := range p.chunks {
		ch <- c
	}
	close(ch)
	return ch
}

func (p *chunkProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	return []ModelInfo{{ID: "m1", InputPricePerMTok: 3, OutputPricePerMTok: 15}}, nil
}

func (p *chunkProvider) Name() string { return "fake:test" }

func TestCompleteAssemblesTextAndThinking(t *testing.T) {
	p := &chunkProvider{chunks: []message.StreamChunk{
		{Type: message.ChunkTypeThinking, Text: "hmm "},
		{Type: message.ChunkTypeThinking, Text: "ok"},
		{Type: message.ChunkTypeText, Text: "hello "},
		{Type: message.ChunkTypeText, Text: "world"},
		{Type: message.ChunkTypeDone},
	}}
	resp, err := Complete(context.Background(), p, CompletionOptions{Model: "m1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello world" {
		t.Errorf("expected concatenated content 'hello world', got %q", resp.Content)
	}
	if resp.Thinking != "hmm ok" {
		t.Errorf("expected concatenated thinking 'hmm ok', got %q", resp.Thinking)
	}
}

func TestCompletePrefersDoneChunkResponse(t *testing.T) {
	final := &message.CompletionResponse{Content: "authoritative", Usage: message.Usage{InputTokens: 5, OutputTokens: 2}}
	p := &chunkProvider{chunks: []message.StreamChunk{
		{Type: message.ChunkTypeText, Text: "partial"},
		{Type: message.ChunkTypeDone, Response: final},
	}}
	resp, err := Complete(context.Background(), p, CompletionOptions{Model: "m1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "authoritative" {
		t.Errorf("expected the done chunk's Response to override accumulated deltas, got %q", resp.Content)
	}
	if resp.Usage.InputTokens != 5 {
		t.Errorf("expected the final usage to be the done chunk's, got %+v", resp.Usage)
	}
}

func TestCompletePropagatesErrorChunk(t *testing.T) {
	wantErr := errors.New("boom")
	p := &chunkProvider{chunks: []message.StreamChunk{
		{Type: message.ChunkTypeError, Error: wantErr},
	}}
	_, err := Complete(context.Background(), p, CompletionOptions{Model: "m1"})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected the error chunk's error to propagate, got %v", err)
	}
}

func TestAsBackendErrorUnwraps(t *testing.T) {
	inner := errors.New("rate limited by vendor")
	wrapped := NewError(ErrorRateLimited, inner)
	var wrappedAgain error = wrapped

	be, ok := AsBackendError(wrappedAgain)
	if !ok {
		t.Fatal("expected AsBackendError to find the *Error")
	}
	if be.Kind != ErrorRateLimited {
		t.Errorf("expected kind %q, got %q", ErrorRateLimited, be.Kind)
	}
	if !errors.Is(wrapped, inner) {
		t.Error("expected Unwrap to expose the inner error")
	}
}

func TestAsBackendErrorRejectsPlainError(t *testing.T) {
	_, ok := AsBackendError(errors.New("not a backend error"))
	if ok {
		t.Error("expected AsBackendError to return false for a plain error")
	}
}

func TestClientAddUsageAccumulates(t *testing.T) {
	c := &Client{Provider: &chunkProvider{}, Model: "m1"}
	c.AddUsage(message.Usage{InputTokens: 10, OutputTokens: 2})
	c.AddUsage(message.Usage{InputTokens: 5, OutputTokens: 1})

	got := c.Tokens()
	if got.InputTokens != 15 || got.OutputTokens != 3 || got.TotalTokens != 18 {
		t.Errorf("expected accumulated usage {15,3,18}, got %+v", got)
	}
}

func TestClientCostUSDUsesModelPricing(t *testing.T) {
	c := &Client{Provider: &chunkProvider{}, Model: "m1"}
	c.AddUsage(message.Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000})

	got := c.CostUSD(context.Background())
	want := 3.0 + 15.0 // $3/M input + $15/M output from chunkProvider.ListModels
	if got != want {
		t.Errorf("expected cost $%.2f, got $%.2f", want, got)
	}
}

func TestClientCostUSDUnknownModelReturnsZero(t *testing.T) {
	c := &Client{Provider: &chunkProvider{}, Model: "unknown-model"}
	c.AddUsage(message.Usage{InputTokens: 1_000_000})
	if got := c.CostUSD(context.Background()); got != 0 {
		t.Errorf("expected 0 cost for a model with no pricing entry, got %v", got)
	}
}

func TestClientResolveMaxTokensPriority(t *testing.T) {
	c := &Client{Provider: &chunkProvider{}, Model: "m1", MaxTokens: 42}
	if got := c.ResolveMaxTokens(context.Background()); got != 42 {
		t.Errorf("expected the explicit override 42 to win, got %d", got)
	}

	c2 := &Client{Provider: &chunkProvider{}, Model: "unknown-model"}
	if got := c2.ResolveMaxTokens(context.Background()); got != defaultMaxTokens {
		t.Errorf("expected the package default %d when no override or model metadata exists, got %d", defaultMaxTokens, got)
	}
}
