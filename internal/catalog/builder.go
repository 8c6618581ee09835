// Package catalog builds the filtered entity catalog of one sync cycle.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/hub"
)

// Source is the part of the hub client the builder reads from.
// *hub.Client satisfies it.
type Source interface {
	FetchRawEntityData(ctx context.Context) ([]hub.RawEntity, error)
	ClassifyEntities(raw []hub.RawEntity) []hub.Entity
	Scenes(raw []hub.RawEntity) []hub.Entity
}

// Logger is the logging interface used by the builder.
type Logger interface {
	Info(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}

// Builder turns raw hub data into the entities handed to reconciliation.
//
// Filtering rules:
//   - Blacklisted ids are dropped, scenes included.
//   - Disabled modules and groups are dropped.
//   - Scenes are only included when requested and skip the disabled check.
type Builder struct {
	source    Source
	blacklist map[int]struct{}
	logger    Logger
}

// NewBuilder creates a builder that drops every id in blacklist.
func NewBuilder(source Source, blacklist []int) *Builder {
	bl := make(map[int]struct{}, len(blacklist))
	for _, id := range blacklist {
		bl[id] = struct{}{}
	}
	return &Builder{source: source, blacklist: bl, logger: noopLogger{}}
}

// SetLogger sets the logger.
func (b *Builder) SetLogger(logger Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// Build fetches and filters the catalog. A fetch failure returns an error
// wrapping hub.ErrCatalogFetch and no entities.
func (b *Builder) Build(ctx context.Context, includeScenes bool) ([]hub.Entity, error) {
	raw, err := b.source.FetchRawEntityData(ctx)
	if err != nil {
		if errors.Is(err, hub.ErrCatalogFetch) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", hub.ErrCatalogFetch, err)
	}

	var entities []hub.Entity
	for _, e := range b.source.ClassifyEntities(raw) {
		if b.blacklisted(e.ID) || e.Disabled {
			continue
		}
		entities = append(entities, e)
	}

	if includeScenes {
		for _, s := range b.source.Scenes(raw) {
			if b.blacklisted(s.ID) {
				continue
			}
			entities = append(entities, s)
		}
	}

	b.logger.Info(fmt.Sprintf("found %d entities", len(entities)), "count", len(entities), "scenes", includeScenes)
	return entities, nil
}

func (b *Builder) blacklisted(id int) bool {
	_, ok := b.blacklist[id]
	return ok
}
