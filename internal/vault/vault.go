// internal/vault/vault.go
//
// Secret references for configuration values.
//
// Context
// -------
// Any config string of the form `vault:<mount>/<path>#<key>` is a reference
// into a KV-v2 secret.  The loader hands each such value to Resolve, which
// reads the key once and caches it for the process lifetime (or the given
// TTL).  Plain strings pass through untouched, so a dev box without Vault
// can run with literal passwords.
//
// Workflow
// --------
//  1. cli, err := vault.New(ctx, log)            // once, during boot.
//  2. pw,  err := cli.Resolve(ctx, cfg.Password) // per secret value.
//
// Notes
// -----
// • VAULT_ADDR and VAULT_TOKEN come from the environment.
// • A background loop renews the token until ctx is cancelled.
package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// Prefix marks a config value as a secret reference.
const Prefix = "vault:"

// Ref is a parsed `vault:<mount>/<path>#<key>` reference.
type Ref struct {
	Mount string
	Path  string
	Key   string
}

func (r Ref) String() string { return Prefix + r.Mount + "/" + r.Path + "#" + r.Key }

// IsRef reports whether s should be resolved through Vault.
func IsRef(s string) bool { return strings.HasPrefix(s, Prefix) }

// ParseRef splits a reference into mount, path and key.
func ParseRef(s string) (Ref, error) {
	if !IsRef(s) {
		return Ref{}, fmt.Errorf("vault ref %q: missing %q prefix", s, Prefix)
	}
	body := strings.TrimPrefix(s, Prefix)
	loc, key, ok := strings.Cut(body, "#")
	if !ok || key == "" {
		return Ref{}, fmt.Errorf("vault ref %q: missing #key", s)
	}
	mount, path, ok := strings.Cut(strings.Trim(loc, "/"), "/")
	if !ok || mount == "" || path == "" {
		return Ref{}, fmt.Errorf("vault ref %q: want <mount>/<path>", s)
	}
	return Ref{Mount: mount, Path: path, Key: key}, nil
}

// Reader fetches the data map of a KV-v2 secret.
type Reader interface {
	ReadKV(ctx context.Context, mount, path string) (map[string]any, error)
}

//
// client
//

// Client resolves references with a per-key cache.  Safe for concurrent use.
type Client struct {
	reader Reader
	log    *zap.Logger
	ttl    time.Duration

	mu    sync.RWMutex
	cache map[string]cached
}

type cached struct {
	val string
	exp time.Time // zero = never
}

// New builds a Client on the HashiCorp SDK and starts token renewal.
func New(ctx context.Context, log *zap.Logger) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}
	api, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}

	c := NewWithReader(sdkReader{api: api}, log)
	go renewLoop(ctx, api, c.log)
	return c, nil
}

// NewWithReader wires an arbitrary Reader; tests pass a map-backed fake.
func NewWithReader(r Reader, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{reader: r, log: log, cache: make(map[string]cached)}
}

// WithTTL bounds how long resolved values are cached.  Zero keeps them
// forever.
func (c *Client) WithTTL(d time.Duration) *Client {
	c.ttl = d
	return c
}

// Resolve returns s unchanged unless it is a reference, in which case the
// referenced string value is returned.
func (c *Client) Resolve(ctx context.Context, s string) (string, error) {
	if !IsRef(s) {
		return s, nil
	}
	ref, err := ParseRef(s)
	if err != nil {
		return "", err
	}
	canonical := ref.String()

	c.mu.RLock()
	cv, ok := c.cache[canonical]
	c.mu.RUnlock()
	if ok && (cv.exp.IsZero() || time.Now().Before(cv.exp)) {
		return cv.val, nil
	}

	data, err := c.reader.ReadKV(ctx, ref.Mount, ref.Path)
	if err != nil {
		return "", fmt.Errorf("vault get %s/%s: %w", ref.Mount, ref.Path, err)
	}
	raw, ok := data[ref.Key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %s/%s", ref.Key, ref.Mount, ref.Path)
	}
	val, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s is not a string", canonical)
	}

	entry := cached{val: val}
	if c.ttl > 0 {
		entry.exp = time.Now().Add(c.ttl)
	}
	c.mu.Lock()
	c.cache[canonical] = entry
	c.mu.Unlock()

	c.log.Debug("vault secret resolved", zap.String("ref", canonical))
	return val, nil
}

//
// SDK adapter and token renewal
//

type sdkReader struct{ api *vault.Client }

func (r sdkReader) ReadKV(ctx context.Context, mount, path string) (map[string]any, error) {
	sec, err := r.api.KVv2(mount).Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if sec == nil {
		return nil, errors.New("empty secret")
	}
	return sec.Data, nil
}

func renewLoop(ctx context.Context, api *vault.Client, log *zap.Logger) {
	for ctx.Err() == nil {
		sec, err := api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil {
			log.Warn("vault token renew failed", zap.Error(err))
			sleep(ctx, 30*time.Second)
			continue
		}
		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			log.Info("vault token not renewable")
			sleep(ctx, time.Hour)
			continue
		}

		watcher, err := api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{Secret: sec})
		if err != nil {
			log.Warn("vault watcher init failed", zap.Error(err))
			sleep(ctx, 30*time.Second)
			continue
		}
		go watcher.Start()
		watch(ctx, watcher, log)
		watcher.Stop()
		sleep(ctx, 15*time.Second)
	}
}

// watch blocks until the watcher gives up or ctx ends.
func watch(ctx context.Context, w *vault.LifetimeWatcher, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-w.DoneCh():
			if err != nil {
				log.Warn("vault token renewal stopped", zap.Error(err))
			}
			return
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				log.Debug("vault token renewed", zap.Int("ttl_s", ev.Secret.Auth.LeaseDuration))
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
