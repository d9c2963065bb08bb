// Package memory implementa el record store en memoria. Es el driver de
// desarrollo y de tests: mismas garantías de optimistic locking que el driver
// Postgres, sin durabilidad.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dropDatabas3/scaflow/internal/domain/repository"
	"github.com/dropDatabas3/scaflow/internal/domain/types"
)

type entry struct {
	auth *repository.Authorisation
	seq  int
}

// Store guarda autorizaciones en un mapa protegido por RWMutex.
type Store struct {
	mu   sync.RWMutex
	rows map[string]entry
	seq  int
}

// New crea un Store vacío.
func New() *Store {
	return &Store{rows: make(map[string]entry)}
}

func (s *Store) Get(ctx context.Context, authorisationID string) (*repository.Authorisation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.rows[authorisationID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return e.auth.Clone(), nil
}

func (s *Store) Create(ctx context.Context, a *repository.Authorisation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[a.ID]; exists {
		return repository.ErrConflict
	}
	s.seq++
	s.rows[a.ID] = entry{auth: a.Clone(), seq: s.seq}
	return nil
}

// Save persiste el snapshot con chequeo de versión: si otro worker ya
// escribió, la versión almacenada no coincide y el write es stale.
func (s *Store) Save(ctx context.Context, a *repository.Authorisation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rows[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if e.auth.Version != a.Version {
		return repository.ErrConflict
	}
	updated := a.Clone()
	updated.Version++
	s.rows[a.ID] = entry{auth: updated, seq: e.seq}
	return nil
}

func (s *Store) ListByParent(ctx context.Context, parentID string, t types.AuthorisationType) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []entry
	for _, e := range s.rows {
		if e.auth.ParentID == parentID && e.auth.Type == t {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	ids := make([]string, 0, len(matched))
	for _, e := range matched {
		ids = append(ids, e.auth.ID)
	}
	return ids, nil
}

// StatusRecorder es un ParentStatusSink que solo registra lo notificado.
// Útil en desarrollo y tests.
type StatusRecorder struct {
	mu      sync.Mutex
	updates map[string]types.BusinessStatus
}

// NewStatusRecorder crea un recorder vacío.
func NewStatusRecorder() *StatusRecorder {
	return &StatusRecorder{updates: make(map[string]types.BusinessStatus)}
}

func (r *StatusRecorder) UpdateBusinessStatus(ctx context.Context, parentID string, t types.AuthorisationType, status types.BusinessStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates[parentID] = status
	return nil
}

// Status retorna el último estado notificado para el recurso padre.
func (r *StatusRecorder) Status(parentID string) (types.BusinessStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.updates[parentID]
	return st, ok
}
