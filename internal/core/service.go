package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/salon/internal/catalog"
	"github.com/JonMunkholm/salon/internal/config"
	"github.com/JonMunkholm/salon/internal/metrics"
	"github.com/JonMunkholm/salon/internal/source"
	"github.com/JonMunkholm/salon/internal/store"
)

var (
	// ErrNoFiles is returned when an ingestion run is given no tables.
	ErrNoFiles = errors.New("no files to import")
	// ErrInvalidMapping wraps mapping rules that name an unknown field.
	ErrInvalidMapping = errors.New("invalid column mapping")
)

// DefaultImportTimeout bounds one ingestion run when no config is given.
const DefaultImportTimeout = 5 * time.Minute

// Batch is the set of source tables for one run, keyed by table key.
type Batch map[string]*source.Table

// Service is the entry point for ingestion and catalog queries. It is safe
// for concurrent use; ingestion runs are serialised by an ImportLimiter.
type Service struct {
	store    store.Store
	mappings map[string]Mapping
	pipeline catalog.Pipeline
	opts     NormalizeOptions
	limiter  *ImportLimiter
	metrics  *metrics.Registry
	timeout  time.Duration
}

// NewService builds a Service over st. A nil cfg uses built-in defaults and
// nil mappings keep every table's default mapping and the default discount
// bands. reg may be nil to disable metrics.
func NewService(st store.Store, cfg *config.Config, m *config.Mappings, reg *metrics.Registry) (*Service, error) {
	if st == nil {
		return nil, errors.New("store is required")
	}

	s := &Service{
		store:    st,
		mappings: make(map[string]Mapping, TableCount()),
		pipeline: catalog.NewPipeline(m.RangeSet()),
		opts:     NormalizeOptions{ImageDir: DefaultImageDir},
		metrics:  reg,
		timeout:  DefaultImportTimeout,
	}

	if cfg != nil {
		s.opts.ImageDir = cfg.Import.ImageDir
		s.limiter = NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime)
		if cfg.Import.Timeout > 0 {
			s.timeout = cfg.Import.Timeout
		}
	} else {
		s.limiter = NewImportLimiter(1, DefaultMaxWaitTime)
	}

	for _, def := range All() {
		mapping := def.DefaultMapping
		if rules, ok := m.For(def.Info.Key); ok {
			custom, err := MappingFromRules(rules)
			if err != nil {
				return nil, fmt.Errorf("%w: table %s: %v", ErrInvalidMapping, def.Info.Key, err)
			}
			mapping = custom
		}
		s.mappings[def.Info.Key] = mapping
	}

	return s, nil
}

// ListTables returns information about all registered tables in load order.
func (s *Service) ListTables() []TableInfo {
	defs := All()
	infos := make([]TableInfo, len(defs))
	for i, def := range defs {
		infos[i] = def.Info
	}
	return infos
}

// Mapping returns the column mapping in effect for table.
func (s *Service) Mapping(table string) (Mapping, bool) {
	m, ok := s.mappings[table]
	return m, ok
}

// Ranges returns the discount bands offered to the catalog view.
func (s *Service) Ranges() catalog.RangeSet {
	return s.pipeline.Ranges
}

// ImportStatus reports how many ingestion runs hold a slot.
func (s *Service) ImportStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
