// Package match decides whether a candidate item fits the owner's
// preferences. Two tiers: a semantic classifier against a cached owner
// profile when one is available, and a static category-intersection rule
// otherwise. A rejected candidate is skipped, not claimed; it stays
// eligible for future runs.
package match

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clawclub/clawclub/internal/config"
	"github.com/clawclub/clawclub/internal/item"
	"github.com/clawclub/clawclub/internal/store"
)

// Classifier is the external semantic-matching collaborator.
type Classifier interface {
	// BuildProfile summarizes the owner's preferences into a short
	// natural-language profile.
	BuildProfile(ctx context.Context, prefs config.Preferences) (string, error)
	// Matches decides whether a candidate fits the profile.
	Matches(ctx context.Context, profile, prompt string, kind item.Kind) (bool, error)
}

// Engine evaluates the two-tier match decision.
type Engine struct {
	store      *store.Store
	classifier Classifier // nil disables tier 1 entirely
	prefs      config.Preferences
	now        func() time.Time
}

// NewEngine creates a match engine over the given state store.
func NewEngine(s *store.Store, classifier Classifier, prefs config.Preferences) *Engine {
	return &Engine{
		store:      s,
		classifier: classifier,
		prefs:      prefs,
		now:        time.Now,
	}
}

// Matches applies tier 1 when an owner profile is available (cached or
// freshly refreshed) and tier 2 otherwise. Tier 1 supersedes the manual
// category configuration entirely. A classifier error rejects the
// candidate for this run only.
func (e *Engine) Matches(ctx context.Context, it *item.Item) (bool, error) {
	if profile, ok := e.ownerProfile(ctx); ok {
		matched, err := e.classifier.Matches(ctx, profile, it.EffectivePrompt(), it.Kind)
		if err != nil {
			log.Warn().Err(err).Str("item_id", it.ID).Msg("semantic_match_failed")
			return false, err
		}
		return matched, nil
	}
	return e.staticMatch(it), nil
}

// staticMatch is tier 2: the item must carry at least one label from the
// allow-list configured for its kind. Participation disabled for the
// kind rejects outright.
func (e *Engine) staticMatch(it *item.Item) bool {
	var enabled bool
	var categories []string
	switch it.Kind {
	case item.KindBattle:
		enabled, categories = e.prefs.Arena.Enabled, e.prefs.Arena.Categories
	case item.KindTask:
		enabled, categories = e.prefs.ForGood.Enabled, e.prefs.ForGood.Categories
	default:
		return false
	}
	if !enabled {
		return false
	}
	for _, label := range it.Labels {
		for _, cat := range categories {
			if strings.EqualFold(label, cat) {
				return true
			}
		}
	}
	log.Debug().
		Str("item_id", it.ID).
		Str("category", it.EffectiveCategory()).
		Msg("static_match_rejected")
	return false
}
