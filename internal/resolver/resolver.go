// Package resolver turns free-form profile references typed by users into
// canonical Dota 2 account ids.
package resolver

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dotastats-bot/internal/domain"
)

// VanityResolver looks up the Steam64 id behind a custom profile name
type VanityResolver interface {
	ResolveVanity(ctx context.Context, vanity string) (int64, error)
}

// Resolver recognizes, in order: .../profiles/<steam64>, .../id/<vanity>,
// and bare numeric ids (either Steam64 or already canonical).
type Resolver struct {
	vanity VanityResolver
	logger *slog.Logger
}

// New creates a resolver. A nil vanity resolver disables .../id/<name> references.
func New(vanity VanityResolver, logger *slog.Logger) *Resolver {
	return &Resolver{
		vanity: vanity,
		logger: logger,
	}
}

// Resolve returns the canonical account id for ref. It never fails loudly:
// anything it cannot parse or look up yields ok == false.
func (r *Resolver) Resolve(ctx context.Context, ref string) (int64, bool) {
	ref = normalize(ref)
	if ref == "" {
		return 0, false
	}

	segments := strings.Split(ref, "/")
	last := segments[len(segments)-1]

	switch {
	case hasSegment(segments, "profiles"):
		steam64, err := strconv.ParseInt(last, 10, 64)
		if err != nil {
			r.logger.Warn("malformed profile url", "ref", ref, "error", err)
			return 0, false
		}
		return positive(domain.AccountIDFromSteam64(steam64))

	case hasSegment(segments, "id"):
		if r.vanity == nil {
			r.logger.Debug("vanity resolution disabled", "ref", ref)
			return 0, false
		}
		steam64, err := r.vanity.ResolveVanity(ctx, last)
		if err != nil {
			r.logger.Warn("vanity resolution failed", "vanity", last, "error", err)
			return 0, false
		}
		return positive(domain.AccountIDFromSteam64(steam64))

	case isDigits(ref):
		id, err := strconv.ParseInt(ref, 10, 64)
		if err != nil {
			r.logger.Warn("numeric id out of range", "ref", ref, "error", err)
			return 0, false
		}
		if id > domain.SteamIDOffset {
			id = domain.AccountIDFromSteam64(id)
		}
		return positive(id)
	}

	r.logger.Debug("unrecognized profile reference", "ref", ref)
	return 0, false
}

// normalize trims whitespace, query strings, fragments and trailing slashes
func normalize(ref string) string {
	ref = strings.TrimSpace(ref)
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	return strings.TrimRight(ref, "/")
}

// hasSegment reports whether name appears as a path segment followed by another segment
func hasSegment(segments []string, name string) bool {
	for i := 0; i < len(segments)-1; i++ {
		if segments[i] == name {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func positive(id int64) (int64, bool) {
	if id <= 0 {
		return 0, false
	}
	return id, true
}
