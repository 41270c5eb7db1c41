// Package engine is the run context of featuremap. A Session owns every
// memoized layer (feature registry, directory cache, glob expansion,
// resolvers and resolution cache) and drives the pipelines over them.
package engine

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"featuremap/internal/config"
	"featuremap/internal/features"
	"featuremap/internal/inventory"
	"featuremap/internal/metrics"
	"featuremap/internal/paths"
	"featuremap/internal/resolution"
	"featuremap/internal/resolver"
	"featuremap/internal/slogutil"
	"featuremap/internal/storage"
)

// cacheFormat is folded into the cache fingerprint; bump it when the
// meaning of persisted buckets changes.
const cacheFormat = "featuremap-cache-v1"

// Options configures a Session.
type Options struct {
	// Root is the repository root. Defaults to the working directory.
	Root string
	// Config overrides .feature_map/config.yml when set.
	Config *config.Config
	Logger *slog.Logger
	// Collector supplies per-file metrics. Defaults to tree-sitter.
	Collector metrics.Collector
	// HTTPClient is used for the coverage fetch.
	HTTPClient *http.Client
	// Now stamps health history records.
	Now func() time.Time
}

// Session is one featuremap run over one repository.
type Session struct {
	root       string
	cfg        *config.Config
	logger     *slog.Logger
	runID      string
	collector  metrics.Collector
	httpClient *http.Client
	now        func() time.Time

	inventory *inventory.Inventory
	dirs      *resolver.DirCache
	expander  *resolver.GlobExpander
	store     *storage.CacheStore

	// memoized; cleared by Reset
	features  *features.Registry
	resolvers *resolver.Registry
	cache     *resolution.Cache
	files     []string
	assigned  map[string]resolution.Assignment
}

// New creates a session. The config is loaded from the repository unless
// one is given.
func New(opts Options) (*Session, error) {
	root := opts.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	cfg := opts.Config
	if cfg == nil {
		cfg, err = config.LoadConfig(root)
		if err != nil {
			return nil, err
		}
	}

	runID := uuid.NewString()
	logger := slogutil.OrDiscard(opts.Logger).With("run", runID)

	collector := opts.Collector
	if collector == nil {
		collector = metrics.NewTreeSitterCollector(root)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Session{
		root:       root,
		cfg:        cfg,
		logger:     logger,
		runID:      runID,
		collector:  collector,
		httpClient: opts.HTTPClient,
		now:        now,
		inventory:  inventory.New(root, cfg, logger),
		dirs:       resolver.NewDirCache(root, cfg.MarkerFile),
		expander:   resolver.NewGlobExpander(root),
	}, nil
}

// Root returns the absolute repository root.
func (s *Session) Root() string { return s.root }

// Config returns the effective configuration.
func (s *Session) Config() *config.Config { return s.cfg }

// RunID identifies this session in logs and health history.
func (s *Session) RunID() string { return s.runID }

// Logger returns the session logger.
func (s *Session) Logger() *slog.Logger { return s.logger }

// Reset drops every memoized layer: the feature registry, the resolvers and
// the directory cache behind them, the resolution cache and glob expansion.
// The next operation reloads from disk.
func (s *Session) Reset() {
	if s.resolvers != nil {
		s.resolvers.Reset()
	}
	if s.cache != nil {
		s.cache.Reset()
	}
	s.dirs.Reset()
	s.expander.Reset()
	s.features = nil
	s.resolvers = nil
	s.cache = nil
	s.files = nil
	s.assigned = nil
	s.logger.Debug("Session reset")
}

// Close releases the persisted cache.
func (s *Session) Close() error {
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	return err
}

// Features returns the feature registry, loading it on first use.
func (s *Session) Features() (*features.Registry, error) {
	if s.features != nil {
		return s.features, nil
	}
	reg, err := features.Load(s.root, s.cfg.DefinitionsDir)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Features loaded", "count", reg.Len())
	s.features = reg
	return reg, nil
}

// Resolvers returns the resolver registry, building it on first use.
func (s *Session) Resolvers() (*resolver.Registry, error) {
	if s.resolvers != nil {
		return s.resolvers, nil
	}
	reg, err := s.Features()
	if err != nil {
		return nil, err
	}
	resolvers, err := resolver.NewDefaultRegistry(resolver.Options{
		Root:       s.root,
		MarkerFile: s.cfg.MarkerFile,
		ScanLines:  s.cfg.Annotation.ScanLines,
		Features:   reg,
		Dirs:       s.dirs,
		Expander:   s.expander,
	})
	if err != nil {
		return nil, err
	}
	s.resolvers = resolvers
	return resolvers, nil
}

// fingerprint identifies everything persisted buckets depend on besides
// the contents of inventory files. Marker files count wherever they live,
// since include and exclude globs may hide them from the inventory.
func (s *Session) fingerprint(reg *features.Registry) (string, error) {
	parts := []string{
		cacheFormat,
		s.cfg.MarkerFile,
		strconv.Itoa(s.cfg.Annotation.ScanLines),
	}
	for _, f := range reg.All() {
		parts = append(parts, f.Name, f.DefinitionPath, strings.Join(f.AssignedGlobs, "\n"))
	}

	pattern := "**/" + resolver.EscapeGlob(s.cfg.MarkerFile)
	s.expander.Forget(pattern)
	markers, err := s.expander.Expand(pattern)
	if err != nil {
		return "", fmt.Errorf("listing marker files: %w", err)
	}
	stamps := s.inventory.Stamps(markers)
	for _, m := range markers {
		st, ok := stamps[m]
		if !ok {
			continue
		}
		parts = append(parts, m, strconv.FormatInt(st.Size, 10), strconv.FormatInt(st.ModTime, 10))
	}
	return storage.Fingerprint(parts...), nil
}

// cacheStore opens the persisted cache on first use. It returns nil when
// caching is disabled.
func (s *Session) cacheStore() (*storage.CacheStore, error) {
	if !s.cfg.Cache.Enabled {
		return nil, nil
	}
	if s.store != nil {
		return s.store, nil
	}
	db, err := storage.Open(s.cachePath(), s.logger)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewCacheStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.store = store
	return store, nil
}

func (s *Session) cachePath() string {
	return paths.JoinRepoPath(s.root, s.cfg.Cache.Path)
}

// ClearCache deletes the persisted cache and resets the session.
func (s *Session) ClearCache() error {
	if err := s.Close(); err != nil {
		return err
	}
	s.Reset()
	return storage.Remove(s.cachePath())
}

// dataFile returns the absolute path of a generated document.
func (s *Session) dataFile(name string) string {
	return paths.DataFile(s.root, name)
}

// abs turns a repo-relative or absolute path into an absolute one.
func (s *Session) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return paths.JoinRepoPath(s.root, p)
}
