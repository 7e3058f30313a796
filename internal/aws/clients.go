package aws

import (
	"context"
	"strings"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
)

// ConfigLoader returns an SDK config for a region. LoadConfig is the default;
// tests swap in static configs.
type ConfigLoader func(ctx context.Context, region string) (sdkaws.Config, error)

// ClientCache builds one client per profile and region and keeps it for the
// life of the process.
type ClientCache[T any] struct {
	mu      sync.Mutex
	profile string
	load    ConfigLoader
	build   func(sdkaws.Config) T
	clients map[string]clientEntry[T]
}

type clientEntry[T any] struct {
	client T
	region string
}

func NewClientCache[T any](profile string, load ConfigLoader, build func(sdkaws.Config) T) *ClientCache[T] {
	profile = ResolveProfile(profile)
	if load == nil {
		load = func(ctx context.Context, region string) (sdkaws.Config, error) {
			return LoadConfig(ctx, region, profile)
		}
	}
	return &ClientCache[T]{
		profile: profile,
		load:    load,
		build:   build,
		clients: map[string]clientEntry[T]{},
	}
}

// Get returns the cached client for region, constructing it on first use.
// The second return value is the region the client is bound to.
func (c *ClientCache[T]) Get(ctx context.Context, region string) (T, string, error) {
	key := c.cacheKey(region)
	c.mu.Lock()
	if entry, ok := c.clients[key]; ok {
		c.mu.Unlock()
		return entry.client, entry.region, nil
	}
	c.mu.Unlock()

	var zero T
	cfg, err := c.load(ctx, region)
	if err != nil {
		return zero, "", err
	}
	entry := clientEntry[T]{client: c.build(cfg), region: strings.TrimSpace(cfg.Region)}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A concurrent caller may have won the race; keep the first client.
	if existing, ok := c.clients[key]; ok {
		return existing.client, existing.region, nil
	}
	c.clients[key] = entry
	return entry.client, entry.region, nil
}

func (c *ClientCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

func (c *ClientCache[T]) cacheKey(region string) string {
	cacheKey := ResolveRegion(region)
	if cacheKey == "" {
		cacheKey = "default"
	}
	if c.profile != "" {
		cacheKey = c.profile + "|" + cacheKey
	}
	return cacheKey
}
