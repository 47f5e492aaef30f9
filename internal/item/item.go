// Package item defines the work-item snapshot the agent arbitrates over
// and the parser for configuration blocks embedded in item bodies.
package item

import (
	"strings"
)

// Kind distinguishes competitive battles from volunteer tasks.
type Kind string

const (
	KindBattle Kind = "battle"
	KindTask   Kind = "task"
)

// Item is an immutable snapshot of a claimable work item, fetched once
// per invocation from the pool.
type Item struct {
	ID     string // opaque, unique within the pool
	Number int    // tracker issue number
	Title  string
	Body   string
	Labels []string
	Kind   Kind
	Pool   string // owner/repo the item came from
}

// KindFromLabels derives the item kind. A "battle" label makes it a
// battle; everything else is treated as a volunteer task.
func KindFromLabels(labels []string) Kind {
	for _, l := range labels {
		if strings.EqualFold(l, "battle") {
			return KindBattle
		}
	}
	return KindTask
}

// EffectivePrompt returns the prompt the agent should work from: the
// explicit "prompt" key of the body's config block when present, else
// the body with config blocks stripped.
func (it *Item) EffectivePrompt() string {
	cfg := ParseBodyConfig(it.Body)
	if p := cfg["prompt"]; p != "" {
		return p
	}
	return strings.TrimSpace(StripConfigBlocks(it.Body))
}

// EffectiveCategory resolves the item's category: explicit "category"
// key, else the first label, else "general".
func (it *Item) EffectiveCategory() string {
	cfg := ParseBodyConfig(it.Body)
	if c := cfg["category"]; c != "" {
		return c
	}
	if len(it.Labels) > 0 {
		return it.Labels[0]
	}
	return "general"
}

// RequiresRepo reports whether the item asks for a repository deliverable.
func (it *Item) RequiresRepo() bool {
	v := ParseBodyConfig(it.Body)["requires_repo"]
	return v == "true" || v == "yes" || v == "1"
}

// RepoTemplate returns the requested workspace template, if any.
func (it *Item) RepoTemplate() string {
	return ParseBodyConfig(it.Body)["repo_template"]
}

// HasLabel reports whether the item carries the given label (case-insensitive).
func (it *Item) HasLabel(label string) bool {
	for _, l := range it.Labels {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}
