// Package forum defines the collaborator boundary toward the discussion
// platform. The engine never speaks the platform's wire protocol; it
// consumes these interfaces and the platform adapter implements them.
package forum

import (
	"context"
	"log/slog"
	"time"
)

// Post is the platform-agnostic view of one forum post: the fields the
// engine needs to judge validity and credit its author.
type Post struct {
	ID            string
	AuthorID      string
	Title         string
	ContentLength int
}

// Gateway is the consumed forum surface. FetchPosts backs the
// retroactive scan when the competition opens; Announce posts the
// engine's own messages (control panel, bet options, final report).
type Gateway interface {
	FetchPosts(ctx context.Context) ([]Post, error)
	Announce(ctx context.Context, title, body string) error
}

// Notifier delivers short-lived, addressee-only notices: grant
// confirmations, rejected bets, validation errors. TTL is advisory;
// platforms without expiring messages may ignore it.
type Notifier interface {
	Notify(ctx context.Context, participantID, message string, ttl time.Duration)
}

// LogNotifier is a Notifier that writes notices to the structured log.
// Used when no platform adapter is wired, and in development.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, participantID, message string, _ time.Duration) {
	slog.Info("notice", "participant", participantID, "message", message)
}

// NopGateway is a Gateway with no posts and no delivery. Used when the
// engine runs without a platform adapter.
type NopGateway struct{}

func (NopGateway) FetchPosts(context.Context) ([]Post, error)     { return nil, nil }
func (NopGateway) Announce(context.Context, string, string) error { return nil }
