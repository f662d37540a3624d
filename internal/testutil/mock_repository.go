// mock_repository.go - Repository and notifier fakes for testing
package testutil

import (
	"context"
	"sync"

	"github.com/vistoria/inspection/internal/inspection"
	"github.com/vistoria/inspection/internal/models"
	"github.com/vistoria/inspection/internal/repository"
)

// FailingRepository wraps a repository and fails Save while Err is set
type FailingRepository struct {
	repository.Repository

	mu    sync.Mutex
	Err   error
	calls int
}

// NewFailingRepository returns an in-memory repository that fails with err
func NewFailingRepository(err error) *FailingRepository {
	return &FailingRepository{Repository: repository.NewMemoryRepository(), Err: err}
}

func (r *FailingRepository) Save(ctx context.Context, record models.Inspection) (string, error) {
	r.mu.Lock()
	r.calls++
	err := r.Err
	r.mu.Unlock()
	if err != nil {
		return "", err
	}
	return r.Repository.Save(ctx, record)
}

// SetErr changes the failure returned by Save; nil makes Save succeed
func (r *FailingRepository) SetErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Err = err
}

// Calls returns how many times Save was called
func (r *FailingRepository) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// RecordingNotifier remembers every notification it receives
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []inspection.Notification
}

func (n *RecordingNotifier) Notify(_ context.Context, note inspection.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
}

// Sent returns a copy of the received notifications
func (n *RecordingNotifier) Sent() []inspection.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]inspection.Notification(nil), n.sent...)
}
