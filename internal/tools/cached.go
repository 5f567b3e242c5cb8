package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"minerva/internal/cache"
	"minerva/pkg/logger"
)

// ForceRefreshParam is the boolean parameter every cached tool accepts to
// bypass memoization for one call.
const ForceRefreshParam = "force_refresh"

// Cached is a Tool whose successful results are memoized through a
// cache.Manager. The declared schema gains a force_refresh parameter; the
// parameter never reaches the handler and never participates in the cache
// key. Cache hits carry provenance in metadata so the agent can tell stale
// data apart from a fresh fetch.
type Cached struct {
	schema  Schema
	manager *cache.Manager
	handler HandlerFunc
	log     *logger.Logger
}

// NewCached wraps a handler with result memoization. A nil manager degrades
// to a plain pass-through tool.
func NewCached(schema Schema, manager *cache.Manager, log *logger.Logger, handler HandlerFunc) *Cached {
	params := make([]Parameter, 0, len(schema.Parameters)+1)
	params = append(params, schema.Parameters...)
	params = append(params, Parameter{
		Name:        ForceRefreshParam,
		Type:        TypeBoolean,
		Description: "Bypass the cache and fetch fresh data",
		Default:     false,
	})
	schema.Parameters = params

	return &Cached{
		schema:  schema,
		manager: manager,
		handler: handler,
		log:     log.With("tool", schema.Name),
	}
}

// Name returns the tool identifier.
func (c *Cached) Name() string { return c.schema.Name }

// Schema returns the schema including the force_refresh parameter.
func (c *Cached) Schema() Schema { return c.schema }

// Execute validates args, serves a memoized result when one is fresh, and
// otherwise runs the handler, memoizing its result on success. A cache write
// failure never fails the call.
func (c *Cached) Execute(ctx context.Context, args map[string]interface{}) Result {
	if c.handler == nil {
		return Fail("tool handler is not defined", nil)
	}

	validated, err := c.schema.Validate(args)
	if err != nil {
		return Fail(err, map[string]interface{}{"validation_error": true})
	}

	forceRefresh, _ := validated[ForceRefreshParam].(bool)
	delete(validated, ForceRefreshParam)

	if !forceRefresh && c.manager != nil {
		if entry := c.manager.Get(ctx, c.schema.Name, true, validated); entry != nil {
			c.log.Debugw("Serving cached result", "age", entry.Age())
			return OK(entry.Data, cachedMetadata(entry))
		}
	}

	result := c.handler(ctx, validated)

	if result.Success && c.manager != nil {
		// Write failure is non-fatal; the manager already logged it.
		_ = c.manager.Set(ctx, c.schema.Name, result.Data, result.Metadata, validated)
	}

	return result
}

// cachedMetadata merges the stored metadata with cache provenance fields.
func cachedMetadata(entry *cache.Entry) map[string]interface{} {
	meta := make(map[string]interface{}, len(entry.Metadata)+3)
	for k, v := range entry.Metadata {
		meta[k] = v
	}
	meta["cached"] = true
	meta["cached_at"] = entry.CachedAt.UTC().Format(time.RFC3339)
	meta["cache_warning"] = fmt.Sprintf(
		"Data cached %s. Set force_refresh=true to fetch the latest data.",
		humanize.Time(entry.CachedAt),
	)
	return meta
}
