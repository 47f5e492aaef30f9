package match

import (
	"context"
	"fmt"
	"strings"

	"github.com/clawclub/clawclub/internal/config"
	"github.com/clawclub/clawclub/internal/item"
	"github.com/clawclub/clawclub/internal/llm"
)

// Token ceilings for classifier calls; these ride the same provider as
// execution but stay small enough to be budget noise.
const (
	profileMaxTokens = 300
	verdictMaxTokens = 10
	maxPromptExcerpt = 2000
)

// LLMClassifier implements Classifier on top of a completion provider.
type LLMClassifier struct {
	provider llm.Provider
	model    string
}

// NewLLMClassifier creates a classifier backed by the given provider.
func NewLLMClassifier(provider llm.Provider, model string) *LLMClassifier {
	return &LLMClassifier{provider: provider, model: model}
}

// BuildProfile asks the model to compress the owner's configured
// interests into a short matching profile.
func (c *LLMClassifier) BuildProfile(ctx context.Context, prefs config.Preferences) (string, error) {
	var b strings.Builder
	b.WriteString("Summarize the following participation preferences into a short profile (3-5 sentences) describing what kinds of work items this person wants their agent to take on.\n\n")
	if prefs.Arena.Enabled {
		fmt.Fprintf(&b, "Competitive battles: categories %s; interests %s.\n",
			strings.Join(prefs.Arena.Categories, ", "), strings.Join(prefs.Arena.Interests, ", "))
	}
	if prefs.ForGood.Enabled {
		fmt.Fprintf(&b, "Volunteer tasks: categories %s; interests %s.\n",
			strings.Join(prefs.ForGood.Categories, ", "), strings.Join(prefs.ForGood.Interests, ", "))
	}

	resp, err := c.provider.Generate(ctx, &llm.Request{
		Model:     c.model,
		System:    "You write concise preference profiles for autonomous agents.",
		Prompt:    b.String(),
		MaxTokens: profileMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("building owner profile: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// Matches asks the model for a binary verdict on one candidate.
func (c *LLMClassifier) Matches(ctx context.Context, profile, prompt string, kind item.Kind) (bool, error) {
	excerpt := prompt
	if len(excerpt) > maxPromptExcerpt {
		excerpt = excerpt[:maxPromptExcerpt]
	}
	question := fmt.Sprintf(
		"Owner profile:\n%s\n\nCandidate %s:\n%s\n\nWould the owner want their agent to take this on? Answer with exactly MATCH or NO_MATCH.",
		profile, kind, excerpt)

	resp, err := c.provider.Generate(ctx, &llm.Request{
		Model:       c.model,
		System:      "You decide whether work items fit an owner's preferences. Answer only MATCH or NO_MATCH.",
		Prompt:      question,
		MaxTokens:   verdictMaxTokens,
		Temperature: 0,
	})
	if err != nil {
		return false, fmt.Errorf("classifying candidate: %w", err)
	}

	verdict := strings.ToUpper(strings.TrimSpace(resp.Content))
	if strings.Contains(verdict, "NO_MATCH") {
		return false, nil
	}
	return strings.Contains(verdict, "MATCH"), nil
}
