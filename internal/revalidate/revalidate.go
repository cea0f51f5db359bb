// internal/revalidate/revalidate.go
//
// Cache-tag fan-out to the rendering tier.
//
// Context
// -------
// Mutating actions return the cache tags whose rendered pages went stale
// (`page-<id>`, `website-settings-<app>`).  After a successful action the
// HTTP layer hands them to a Publisher; the Redis implementation PUBLISHes
// one JSON message per action on a shared channel, and every renderer
// instance subscribed to it purges the matching entries.
//
// Notes
// -----
// • Publishing is best-effort.  A failure never turns a committed action
//   into an error; the caller logs and counts it.
// • Noop is used when no Redis URL is configured.
package revalidate

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message is the payload renderers receive.
type Message struct {
	App  string    `json:"app"`
	Tags []string  `json:"tags"`
	At   time.Time `json:"at"`
}

// Publisher announces stale cache tags.
type Publisher interface {
	Publish(ctx context.Context, appID string, tags []string) error
	Close() error
}

//
// Redis
//

// RedisPublisher publishes on a single channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	now     func() time.Time
}

// NewRedis parses url (redis://host:port/db) and pings the server.
func NewRedis(ctx context.Context, url, channel string) (*RedisPublisher, error) {
	if url == "" {
		return nil, errors.New("redis URL is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 5 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisPublisher{client: client, channel: channel, now: time.Now}, nil
}

// Publish sends one message; an empty tag list is skipped.
func (p *RedisPublisher) Publish(ctx context.Context, appID string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	body, err := json.Marshal(Message{App: appID, Tags: tags, At: p.now().UTC()})
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, body).Err()
}

func (p *RedisPublisher) Close() error { return p.client.Close() }

//
// Noop
//

// Noop discards every publication.
type Noop struct{}

func (Noop) Publish(context.Context, string, []string) error { return nil }
func (Noop) Close() error                                    { return nil }
