// Package registry keeps named mappers available to the rest of trustmap.
//
// Lookups take a read lock and may run from any number of goroutines;
// registration and removal take the write lock. When a store is attached,
// every registered mapper is persisted as its JSON document and lookups
// that miss in memory fall back to the store.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ppiankov/trustmap/internal/cache"
	"github.com/ppiankov/trustmap/internal/mapper"
	"github.com/ppiankov/trustmap/internal/model"
)

// Registry maps mapper ids to mappers
type Registry struct {
	mu      sync.RWMutex
	mappers map[string]mapper.Mapper
	store   cache.Cache
	logger  *zap.Logger
	opts    []mapper.Option
}

// Option configures a Registry
type Option func(*Registry)

// WithMapperOptions sets options applied when decoding stored or imported documents
func WithMapperOptions(opts ...mapper.Option) Option {
	return func(r *Registry) { r.opts = append(r.opts, opts...) }
}

// New creates a registry. store and logger may be nil.
func New(store cache.Cache, logger *zap.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		mappers: make(map[string]mapper.Mapper),
		store:   store,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds m. An id that is already registered is an argument error.
func (r *Registry) Register(m mapper.Mapper) error {
	if m == nil {
		return model.ArgumentError("cannot register a nil mapper")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.mappers[m.ID()]; exists || r.storedLocked(m.ID()) {
		return model.ArgumentError("mapper %q is already registered", m.ID())
	}
	return r.putLocked(m)
}

// Put inserts or replaces m
func (r *Registry) Put(m mapper.Mapper) error {
	if m == nil {
		return model.ArgumentError("cannot register a nil mapper")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.putLocked(m)
}

func (r *Registry) putLocked(m mapper.Mapper) error {
	if r.store != nil {
		data, err := mapper.Encode(m)
		if err != nil {
			return fmt.Errorf("encode mapper %q: %w", m.ID(), err)
		}
		if err := r.store.Set(cache.Key(m.ID()), data, 0); err != nil {
			return fmt.Errorf("persist mapper %q: %w", m.ID(), err)
		}
	}
	r.mappers[m.ID()] = m
	r.logger.Debug("mapper registered", zap.String("id", m.ID()), zap.String("type", string(m.Type())))
	return nil
}

func (r *Registry) storedLocked(id string) bool {
	if r.store == nil {
		return false
	}
	_, ok := r.store.Get(cache.Key(id))
	return ok
}

// Get returns the mapper registered under id, consulting the store on a miss
func (r *Registry) Get(id string) (mapper.Mapper, error) {
	r.mu.RLock()
	m, ok := r.mappers[id]
	r.mu.RUnlock()
	if ok {
		return m, nil
	}

	if r.store != nil {
		if data, found := r.store.Get(cache.Key(id)); found {
			m, err := mapper.Decode(data, r.opts...)
			if err != nil {
				return nil, fmt.Errorf("decode stored mapper %q: %w", id, err)
			}
			if m.ID() != id {
				return nil, model.FormatError("stored document for %q holds mapper %q", id, m.ID())
			}

			r.mu.Lock()
			if existing, raced := r.mappers[id]; raced {
				m = existing
			} else {
				r.mappers[id] = m
			}
			r.mu.Unlock()

			r.logger.Debug("mapper loaded from store", zap.String("id", id))
			return m, nil
		}
	}

	return nil, model.LookupError(id, "mapper %q is not registered", id)
}

// Remove deletes id from the registry and the store
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, inMemory := r.mappers[id]
	if !inMemory && !r.storedLocked(id) {
		return model.LookupError(id, "mapper %q is not registered", id)
	}

	delete(r.mappers, id)
	if r.store != nil {
		if err := r.store.Delete(cache.Key(id)); err != nil {
			return fmt.Errorf("delete stored mapper %q: %w", id, err)
		}
	}
	r.logger.Debug("mapper removed", zap.String("id", id))
	return nil
}

// Contains reports whether id is registered in memory or in the store
func (r *Registry) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.mappers[id]
	return ok || r.storedLocked(id)
}

// List returns the registered ids, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.mappers))
	for id := range r.mappers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of mappers held in memory
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.mappers)
}

// CreateNumerical builds and registers a NumericalMapper
func (r *Registry) CreateNumerical(id string, p mapper.Points, opts ...mapper.Option) (*mapper.NumericalMapper, error) {
	m, err := mapper.NewNumericalMapper(id, p, r.withDefaults(opts)...)
	if err != nil {
		return nil, err
	}
	if err := r.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// CreateCategorical builds and registers a CategoricalMapper
func (r *Registry) CreateCategorical(id string, table map[string]model.Triple, opts ...mapper.Option) (*mapper.CategoricalMapper, error) {
	m, err := mapper.NewCategoricalMapper(id, table, r.withDefaults(opts)...)
	if err != nil {
		return nil, err
	}
	if err := r.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// CreateBoolean builds and registers a BooleanMapper
func (r *Registry) CreateBoolean(id string, trueMap, falseMap model.Triple, opts ...mapper.Option) (*mapper.BooleanMapper, error) {
	m, err := mapper.NewBooleanMapper(id, trueMap, falseMap, r.withDefaults(opts)...)
	if err != nil {
		return nil, err
	}
	if err := r.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *Registry) withDefaults(opts []mapper.Option) []mapper.Option {
	return append(append([]mapper.Option(nil), r.opts...), opts...)
}

// Export renders every in-memory mapper as a JSON object keyed by id
func (r *Registry) Export() ([]byte, error) {
	r.mu.RLock()
	docs := make(map[string]mapper.Document, len(r.mappers))
	for id, m := range r.mappers {
		doc, err := m.Document()
		if err != nil {
			r.mu.RUnlock()
			return nil, fmt.Errorf("export mapper %q: %w", id, err)
		}
		docs[id] = doc
	}
	r.mu.RUnlock()

	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal registry: %w", err)
	}
	return data, nil
}

// Import registers (or replaces) every mapper in an Export document.
// Nothing is registered unless every document decodes.
func (r *Registry) Import(data []byte) (int, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, model.WrapFormat(err, "registry export is not a JSON object")
	}

	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	decoded := make([]mapper.Mapper, 0, len(ids))
	for _, id := range ids {
		m, err := mapper.Decode(raw[id], r.opts...)
		if err != nil {
			return 0, fmt.Errorf("import mapper %q: %w", id, err)
		}
		if m.ID() != id {
			return 0, model.FormatError("import key %q holds mapper %q", id, m.ID())
		}
		decoded = append(decoded, m)
	}

	for _, m := range decoded {
		if err := r.Put(m); err != nil {
			return 0, err
		}
	}
	r.logger.Info("registry imported", zap.Int("mappers", len(decoded)))
	return len(decoded), nil
}

// LoadDir registers (or replaces) every *.json, *.yaml and *.yml mapper
// document in dir. It returns the number of mappers loaded.
func (r *Registry) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read mapper dir: %w", err)
	}

	loaded := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		m, err := LoadFile(path, r.opts...)
		if errors.Is(err, ErrUnsupportedFile) {
			continue
		}
		if err != nil {
			return loaded, err
		}
		if err := r.Put(m); err != nil {
			return loaded, err
		}
		loaded++
	}

	r.logger.Info("mapper directory loaded", zap.String("dir", dir), zap.Int("mappers", loaded))
	return loaded, nil
}

// Restore loads every document held by the store into memory
func (r *Registry) Restore() (int, error) {
	if r.store == nil {
		return 0, nil
	}
	keys, err := r.store.Keys()
	if err != nil {
		return 0, fmt.Errorf("list stored mappers: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	restored := 0
	for _, key := range keys {
		if !strings.HasPrefix(key, cache.KeyPrefix) {
			continue
		}
		data, ok := r.store.Get(key)
		if !ok {
			continue
		}
		m, err := mapper.Decode(data, r.opts...)
		if err != nil {
			r.logger.Warn("skipping unreadable stored mapper", zap.String("key", key), zap.Error(err))
			continue
		}
		r.mappers[m.ID()] = m
		restored++
	}
	return restored, nil
}

// ErrUnsupportedFile is returned by LoadFile for files that are not JSON or YAML
var ErrUnsupportedFile = errors.New("unsupported mapper file extension")

// LoadFile decodes one mapper document, choosing JSON or YAML by extension
func LoadFile(path string, opts ...mapper.Option) (mapper.Mapper, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedFile)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapper file: %w", err)
	}

	var m mapper.Mapper
	if ext == ".json" {
		m, err = mapper.Decode(data, opts...)
	} else {
		m, err = mapper.DecodeYAML(data, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	return m, nil
}
