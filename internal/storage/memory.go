package storage

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// MemoryStore keeps everything in process memory. Used for dry runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*types.NewsRecord
	sources []types.SourceDescriptor
	runs    map[string]*types.ScrapeRun
	order   []string
	logger  *slog.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		runs:   make(map[string]*types.ScrapeRun),
		logger: logger.With("component", "memory_store"),
	}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) ListActiveSources(_ context.Context) ([]types.SourceDescriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.SourceDescriptor
	for _, src := range s.sources {
		if src.Active {
			out = append(out, src)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListSources(_ context.Context) ([]types.SourceDescriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.SourceDescriptor(nil), s.sources...), nil
}

func (s *MemoryStore) UpsertSource(_ context.Context, src *types.SourceDescriptor) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sources {
		if s.sources[i].URL == src.URL {
			existing := &s.sources[i]
			if src.Name != "" {
				existing.Name = src.Name
			}
			if src.Location != "" {
				existing.Location = src.Location
			}
			if src.Category != "" {
				existing.Category = types.CoerceCategory(string(src.Category))
			}
			*src = *existing
			return false, nil
		}
	}
	if err := prepareSource(src); err != nil {
		return false, err
	}
	s.sources = append(s.sources, *src)
	return true, nil
}

func (s *MemoryStore) SetSourceActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sources {
		if s.sources[i].ID == id {
			s.sources[i].Active = active
			return nil
		}
	}
	return types.ErrNotFound
}

func (s *MemoryStore) ExistsByTitleAndURL(_ context.Context, title, url string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	title = strings.TrimSpace(title)
	for _, r := range s.records {
		if url != "" && r.SourceURL == url {
			return true, nil
		}
		if title != "" && strings.EqualFold(r.Title, title) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) Save(_ context.Context, rec *types.NewsRecord) (*types.NewsRecord, error) {
	out, err := prepareRecord(rec)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.records = append(s.records, out)
	n := len(s.records)
	s.mu.Unlock()
	s.logger.Debug("record stored", "id", out.ID, "total", n)
	return out.Clone(), nil
}

func (s *MemoryStore) ListRecords(_ context.Context, f Filter) ([]*types.NewsRecord, error) {
	s.mu.RLock()
	var out []*types.NewsRecord
	for _, r := range s.records {
		if f.matches(r) {
			out = append(out, r.Clone())
		}
	}
	s.mu.RUnlock()
	sortNewestFirst(out)
	return limit(out, f.Limit), nil
}

func (s *MemoryStore) CreateRun(_ context.Context, run *types.ScrapeRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; ok {
		return types.ErrDuplicate
	}
	s.runs[run.ID] = run.Clone()
	s.order = append(s.order, run.ID)
	return nil
}

func (s *MemoryStore) UpdateRun(_ context.Context, run *types.ScrapeRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; !ok {
		return types.ErrNotFound
	}
	s.runs[run.ID] = run.Clone()
	return nil
}

func (s *MemoryStore) ListRuns(_ context.Context, n int) ([]*types.ScrapeRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.ScrapeRun, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.runs[id].Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.logger.Info("memory store closing", "records", len(s.records), "runs", len(s.runs))
	return nil
}
