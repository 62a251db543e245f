package schema

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	rulesErrors "mercator-hq/beacon/pkg/rules/errors"
)

// LoadObserver receives catalog load outcomes. The metrics collector implements it.
type LoadObserver interface {
	SchemaLoadFailed(categoryID string)
	SchemasLoaded(count int)
}

// snapshot is an immutable generation of loaded categories.
type snapshot struct {
	categories []*CategorySchema
	version    string
	loadedAt   time.Time
}

// Catalog holds the active set of categories. Reload swaps the whole set at once,
// so readers always see one consistent generation.
type Catalog struct {
	loader   *Loader
	current  atomic.Pointer[snapshot]
	observer LoadObserver
	logger   *slog.Logger
}

// NewCatalog creates an empty catalog backed by loader.
func NewCatalog(loader *Loader, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Catalog{
		loader: loader,
		logger: logger.With("component", "schema.catalog"),
	}
	c.current.Store(&snapshot{})
	return c
}

// NewStaticCatalog returns a catalog holding schemas, with no loader. Reload is a
// no-op. Intended for tests and embedding.
func NewStaticCatalog(schemas ...*CategorySchema) *Catalog {
	c := &Catalog{logger: slog.Default()}
	c.current.Store(&snapshot{
		categories: slices.Clone(schemas),
		version:    versionOf(schemas),
		loadedAt:   time.Now(),
	})
	return c
}

// WithObserver sets the observer notified after each reload.
func (c *Catalog) WithObserver(observer LoadObserver) *Catalog {
	c.observer = observer
	return c
}

// Reload loads every category from the source. Categories that fail validation
// are dropped and reported in the returned error; the rest replace the current
// set. When the source itself cannot be read the current set is kept.
func (c *Catalog) Reload() error {
	if c.loader == nil {
		return nil
	}

	schemas, err := c.loader.LoadAll()
	if schemas == nil && err != nil {
		if _, isConfig := err.(*rulesErrors.ErrorList); !isConfig {
			c.logger.Error("Failed to read rules, keeping previous categories", "error", err)
			return err
		}
	}

	if c.observer != nil {
		for _, id := range rejectedCategories(err) {
			c.observer.SchemaLoadFailed(id)
		}
		c.observer.SchemasLoaded(len(schemas))
	}

	prev := c.current.Load()
	next := &snapshot{
		categories: schemas,
		version:    versionOf(schemas),
		loadedAt:   time.Now(),
	}
	c.current.Store(next)

	c.logger.Info("Categories loaded",
		"count", len(schemas),
		"version", next.version,
		"previous_version", prev.version,
	)
	return err
}

// Categories returns the active categories in load order.
func (c *Catalog) Categories() []*CategorySchema {
	return slices.Clone(c.current.Load().categories)
}

// Get returns the active category with the given id.
func (c *Catalog) Get(categoryID string) (*CategorySchema, bool) {
	for _, s := range c.current.Load().categories {
		if s.CategoryID == categoryID {
			return s, true
		}
	}
	return nil, false
}

// Count returns the number of active categories.
func (c *Catalog) Count() int {
	return len(c.current.Load().categories)
}

// MaxCooldown returns the longest suppression cooldown across the active
// routing rules.
func (c *Catalog) MaxCooldown() time.Duration {
	var longest time.Duration
	for _, s := range c.current.Load().categories {
		for _, rule := range s.Routing {
			longest = max(longest, rule.Suppression.Cooldown())
		}
	}
	return longest
}

// Version is a short hash identifying the active generation.
func (c *Catalog) Version() string {
	return c.current.Load().version
}

// LoadedAt returns when the active generation was installed.
func (c *Catalog) LoadedAt() time.Time {
	return c.current.Load().loadedAt
}

func versionOf(schemas []*CategorySchema) string {
	if len(schemas) == 0 {
		return ""
	}
	h := sha256.New()
	for _, s := range schemas {
		fmt.Fprintf(h, "%s|%s|%d|%d\n", s.CategoryID, s.Source, s.Priority, s.TriggerCount())
		for _, r := range s.Routing {
			fmt.Fprintf(h, "%s|%s|%d|%t\n", r.TriggerID, r.Severity, r.Suppression.CooldownMinutes, r.Suppression.VersionAware)
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}

func rejectedCategories(err error) []string {
	errList, ok := err.(*rulesErrors.ErrorList)
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var ids []string
	for _, e := range errList.Errors {
		id := e.Category
		if id == "" {
			id = "unknown"
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
