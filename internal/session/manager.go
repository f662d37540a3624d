// Package session keeps inspection forms that are still being filled in.
package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vistoria/inspection/internal/checklist"
	"github.com/vistoria/inspection/internal/inspection"
	"github.com/vistoria/inspection/internal/models"
	"go.uber.org/zap"
)

// DefaultMaxDrafts limits concurrent drafts to prevent memory exhaustion.
const DefaultMaxDrafts = 200

// DraftKeepAliveWindow protects drafts touched recently from cleanup.
const DraftKeepAliveWindow = 5 * time.Minute

var (
	ErrDraftNotFound = errors.New("draft not found")
	ErrTooManyDrafts = errors.New("too many open drafts")
)

// draftState holds one form and its bookkeeping.
// mu serializes edits of the form; closed is set once the draft is submitted or deleted.
type draftState struct {
	mu     sync.Mutex
	info   models.DraftInfo
	form   *inspection.Form
	closed bool
}

// DraftView is a read-only copy of a draft.
type DraftView struct {
	models.DraftInfo
	Values inspection.Values       `json:"values"`
	Items  []models.InspectionItem `json:"items"`
}

// Expired describes a draft removed by cleanup and the photos it left behind.
type Expired struct {
	DraftID  string
	ImageIDs []string
}

// Manager handles open inspection drafts.
type Manager struct {
	drafts    map[string]*draftState
	mu        sync.RWMutex
	templates *checklist.Registry
	maxDrafts int
	formOpts  []inspection.Option
	now       func() time.Time
	logger    *zap.Logger

	// maxAge and onExpire are used when drafts expire, by cleanup or on Create at capacity.
	maxAge   time.Duration
	onExpire func([]Expired)
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithMaxDrafts overrides DefaultMaxDrafts.
func WithMaxDrafts(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.maxDrafts = n
		}
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock sets the clock used for draft timestamps and new forms.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
			m.formOpts = append(m.formOpts, inspection.WithClock(now))
		}
	}
}

// WithExpiry lets Create evict drafts idle for longer than maxAge when the
// draft limit is reached. onExpire, if set, receives every expired draft.
// A draft accessed within DraftKeepAliveWindow is never expired, so the
// effective idle limit is the larger of maxAge and DraftKeepAliveWindow.
func WithExpiry(maxAge time.Duration, onExpire func([]Expired)) ManagerOption {
	return func(m *Manager) {
		m.maxAge = maxAge
		m.onExpire = onExpire
	}
}

// NewManager creates a draft manager that builds checklists from templates.
func NewManager(templates *checklist.Registry, opts ...ManagerOption) *Manager {
	if templates == nil {
		templates = checklist.NewRegistry()
	}
	m := &Manager{
		drafts:    make(map[string]*draftState),
		templates: templates,
		maxDrafts: DefaultMaxDrafts,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create opens a new draft using the checklist template for propertyType.
func (m *Manager) Create(propertyType string) (models.DraftInfo, error) {
	tmpl := m.templates.Lookup(propertyType)
	now := m.now()

	state := &draftState{
		info: models.DraftInfo{
			ID:           uuid.New().String(),
			PropertyType: tmpl.PropertyType,
			Template:     tmpl.Name,
			CreatedAt:    now,
			LastAccessed: now,
		},
		form: inspection.NewForm(tmpl.Items, m.formOpts...),
	}

	if m.maxAge > 0 && m.Len() >= m.maxDrafts {
		m.CleanupOldDrafts(m.maxAge)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.drafts) >= m.maxDrafts {
		return models.DraftInfo{}, ErrTooManyDrafts
	}
	m.drafts[state.info.ID] = state

	m.logger.Debug("draft created",
		zap.String("draft_id", state.info.ID),
		zap.String("template", tmpl.Name))
	return state.info, nil
}

// lock returns the open draft with its lock held.
func (m *Manager) lock(id string) (*draftState, error) {
	m.mu.RLock()
	state, ok := m.drafts[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrDraftNotFound
	}

	state.mu.Lock()
	if state.closed {
		state.mu.Unlock()
		return nil, ErrDraftNotFound
	}
	state.info.LastAccessed = m.now()
	return state, nil
}

// With runs fn against the draft's form while holding the draft lock.
func (m *Manager) With(id string, fn func(*inspection.Form) error) error {
	state, err := m.lock(id)
	if err != nil {
		return err
	}
	defer state.mu.Unlock()
	return fn(state.form)
}

// View returns a copy of the draft's current state.
func (m *Manager) View(id string) (*DraftView, error) {
	state, err := m.lock(id)
	if err != nil {
		return nil, err
	}
	defer state.mu.Unlock()

	return &DraftView{
		DraftInfo: state.info,
		Values:    state.form.Values(),
		Items:     state.form.Items(),
	}, nil
}

// Touch refreshes the last-access time of a draft.
func (m *Manager) Touch(id string) bool {
	state, err := m.lock(id)
	if err != nil {
		return false
	}
	state.mu.Unlock()
	return true
}

// Submit submits the draft's form and discards the draft on success.
// When submission fails the draft stays open with all entered data.
func (m *Manager) Submit(ctx context.Context, id string, saver inspection.Saver, notifier inspection.Notifier) (*models.Inspection, error) {
	state, err := m.lock(id)
	if err != nil {
		return nil, err
	}
	record, err := state.form.Submit(ctx, saver, notifier)
	if err != nil {
		state.mu.Unlock()
		return nil, err
	}
	state.closed = true
	state.mu.Unlock()

	m.mu.Lock()
	delete(m.drafts, id)
	m.mu.Unlock()

	m.logger.Info("draft submitted",
		zap.String("draft_id", id),
		zap.String("inspection_id", record.ID))
	return record, nil
}

// Delete discards a draft and returns the ids of the photos it referenced.
func (m *Manager) Delete(id string) ([]string, error) {
	m.mu.Lock()
	state, ok := m.drafts[id]
	if ok {
		delete(m.drafts, id)
	}
	m.mu.Unlock()
	if !ok {
		return nil, ErrDraftNotFound
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	state.closed = true
	return imageIDs(state.form), nil
}

// List returns all open drafts, most recently used first.
func (m *Manager) List() []models.DraftInfo {
	m.mu.RLock()
	states := make([]*draftState, 0, len(m.drafts))
	for _, s := range m.drafts {
		states = append(states, s)
	}
	m.mu.RUnlock()

	out := make([]models.DraftInfo, 0, len(states))
	for _, s := range states {
		s.mu.Lock()
		out = append(out, s.info)
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastAccessed.After(out[j].LastAccessed)
	})
	return out
}

// Len returns the number of open drafts.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.drafts)
}

// CleanupOldDrafts removes drafts idle for longer than maxAge,
// but keeps drafts accessed within DraftKeepAliveWindow even when maxAge
// is shorter than the window.
// The expiry hook, if any, is called after the manager lock is released.
func (m *Manager) CleanupOldDrafts(maxAge time.Duration) []Expired {
	expired := m.removeIdle(maxAge)
	if len(expired) > 0 {
		m.logger.Info("expired idle drafts", zap.Int("count", len(expired)))
		if m.onExpire != nil {
			m.onExpire(expired)
		}
	}
	return expired
}

func (m *Manager) removeIdle(maxAge time.Duration) []Expired {
	now := m.now()
	cutoff := now.Add(-maxAge)
	keepAliveCutoff := now.Add(-DraftKeepAliveWindow)

	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []Expired
	for id, state := range m.drafts {
		// Skip drafts busy in a submit or edit.
		if !state.mu.TryLock() {
			continue
		}
		last := state.info.LastAccessed
		if last.After(keepAliveCutoff) || !last.Before(cutoff) {
			state.mu.Unlock()
			continue
		}
		state.closed = true
		expired = append(expired, Expired{DraftID: id, ImageIDs: imageIDs(state.form)})
		state.mu.Unlock()
		delete(m.drafts, id)
	}
	return expired
}

func imageIDs(f *inspection.Form) []string {
	images := f.Values().Images
	ids := make([]string, 0, len(images))
	for _, img := range images {
		ids = append(ids, img.ID)
	}
	return ids
}
