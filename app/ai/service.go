package ai

import (
	"context"
	"fmt"
)

// CompletionOptions tune a single completion request.
type CompletionOptions struct {
	Temperature float64
}

// Completer sends one prompt to a text model and returns its raw reply.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}

var (
	evaluateOptions = CompletionOptions{Temperature: 0.3}
	generateOptions = CompletionOptions{Temperature: 0.7}
)

// Service implements Capability on top of any Completer.
type Service struct {
	completer Completer
}

var _ Capability = (*Service)(nil)

func NewService(completer Completer) *Service {
	return &Service{completer: completer}
}

func (s *Service) Evaluate(ctx context.Context, title, body, fallbackCategory string) (*Judgment, error) {
	reply, err := s.completer.Complete(ctx, evaluatePrompt(title, body), evaluateOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate article: %w", err)
	}
	return DecodeJudgment(reply, fallbackCategory)
}

func (s *Service) Generate(ctx context.Context, title, body, sourceName, category string) (*GeneratedArticle, error) {
	reply, err := s.completer.Complete(ctx, generatePrompt(title, body, sourceName, category), generateOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to generate article: %w", err)
	}
	return DecodeArticle(reply)
}
