// Package ai defines the evaluate/generate capability the pipeline calls and validates
// every remote reply before it is used.
package ai

import (
	"context"
	"fmt"
)

// Categories an evaluation may assign. Anything else falls back to the job category.
var Categories = []string{"technology", "finance", "health", "sports", "science", "entertainment"}

type Judgment struct {
	ShouldPublish  bool
	Category       string
	EvergreenScore float64
	EstimatedRPM   float64
	Reason         string
}

type GeneratedArticle struct {
	Title           string
	Slug            string
	Excerpt         string
	KeyPoints       []string
	Content         string
	Tags            []string
	ReadTimeMinutes int
}

// Capability is the two-step remote contract. Transport failures are returned as plain
// errors; replies that do not satisfy the contract are returned as *ContractError.
type Capability interface {
	Evaluate(ctx context.Context, title, body, fallbackCategory string) (*Judgment, error)
	Generate(ctx context.Context, title, body, sourceName, category string) (*GeneratedArticle, error)
}

// ContractError reports a reply that could not be decoded or failed validation.
type ContractError struct {
	Stage  string
	Reason string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s reply violates contract: %s", e.Stage, e.Reason)
}

func contractError(stage, format string, args ...any) *ContractError {
	return &ContractError{Stage: stage, Reason: fmt.Sprintf(format, args...)}
}
