package match

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Owner-profile cache keys and refresh policy.
const (
	profileKey        = "owner_profile"
	profileUpdatedKey = "owner_profile_updated"
	profileMaxAge     = 7 * 24 * time.Hour
)

// ownerProfile returns the profile text for tier-1 matching and whether
// one is usable. A missing or expired cache triggers a refresh through
// the classifier; refresh failure falls back to the stale cache, or to
// tier 2 when there is no cache at all. Never fatal.
func (e *Engine) ownerProfile(ctx context.Context) (string, bool) {
	if e.classifier == nil {
		return "", false
	}

	cached, updatedAt := e.cachedProfile(ctx)
	if cached != "" && e.now().Sub(updatedAt) < profileMaxAge {
		return cached, true
	}

	fresh, err := e.classifier.BuildProfile(ctx, e.prefs)
	if err != nil || fresh == "" {
		if cached != "" {
			log.Warn().Err(err).Msg("profile_refresh_failed_using_stale")
			return cached, true
		}
		log.Warn().Err(err).Msg("profile_refresh_failed_no_cache")
		return "", false
	}

	if err := e.store.Set(ctx, profileKey, fresh); err != nil {
		log.Warn().Err(err).Msg("profile_cache_write_failed")
	} else if err := e.store.Set(ctx, profileUpdatedKey, e.now().UTC().Format(time.RFC3339)); err != nil {
		log.Warn().Err(err).Msg("profile_timestamp_write_failed")
	}
	log.Info().Int("profile_len", len(fresh)).Msg("owner_profile_refreshed")
	return fresh, true
}

// cachedProfile reads the stored profile and its last-updated timestamp.
// A missing or unparsable timestamp reports the cache as arbitrarily old.
func (e *Engine) cachedProfile(ctx context.Context) (string, time.Time) {
	profile, ok, err := e.store.Get(ctx, profileKey)
	if err != nil || !ok {
		return "", time.Time{}
	}
	rawTS, ok, err := e.store.Get(ctx, profileUpdatedKey)
	if err != nil || !ok {
		return profile, time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, rawTS)
	if err != nil {
		return profile, time.Time{}
	}
	return profile, ts
}
