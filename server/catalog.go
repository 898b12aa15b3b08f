package server

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hupe1980/redboxdb"
)

// handle pairs an open engine with the mutex that serializes access to
// it. The engine itself performs no locking (single-writer model); the
// front-end owns that obligation.
type handle struct {
	mu sync.Mutex
	db *redboxdb.DB
}

// catalog maps database names to open engines, creating them lazily on
// first SELECT_DB.
type catalog struct {
	mu       sync.Mutex
	dbs      map[string]*handle
	dataDir  string
	capacity int
	logger   *slog.Logger
	metrics  *Metrics
}

func newCatalog(cfg Config, logger *slog.Logger, metrics *Metrics) *catalog {
	return &catalog{
		dbs:      make(map[string]*handle),
		dataDir:  cfg.DataDir,
		capacity: cfg.DefaultCapacity,
		logger:   logger,
		metrics:  metrics,
	}
}

// get returns the engine for name, opening "<data_dir>/<name>.db" with
// the requested dimension if it is not yet in the catalog. Selecting an
// already open database with a different dimension fails.
func (c *catalog) get(name string, dim int) (*handle, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if h, ok := c.dbs[name]; ok {
		if h.db.Dim() != dim {
			return nil, fmt.Errorf("server: database %q has dimension %d, requested %d", name, h.db.Dim(), dim)
		}
		return h, nil
	}

	path := filepath.Join(c.dataDir, name+".db")
	db, err := redboxdb.Open(path, dim, c.capacity,
		redboxdb.WithLogger(&redboxdb.Logger{Logger: c.logger.With("db", name)}),
		redboxdb.WithMetricsCollector(c.metrics.Collector()),
	)
	if err != nil {
		return nil, err
	}

	h := &handle{db: db}
	c.dbs[name] = h
	c.metrics.OpenDatabases.Set(float64(len(c.dbs)))

	c.logger.Info("database opened", "db", name, "dimension", dim, "rows", db.Count())
	return h, nil
}

// closeAll flushes and closes every open engine.
func (c *catalog) closeAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for name, h := range c.dbs {
		h.mu.Lock()
		if err := h.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("server: close %q: %w", name, err)
		}
		h.mu.Unlock()
		delete(c.dbs, name)
	}
	c.metrics.OpenDatabases.Set(0)

	return firstErr
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("server: empty database name")
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." || strings.Contains(name, "..") {
		return fmt.Errorf("server: invalid database name %q", name)
	}
	return nil
}
