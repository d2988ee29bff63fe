package service

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/bitfantasy/requisition/internal/requisition/entity"
	"github.com/bitfantasy/requisition/internal/requisition/workflow"
)

// memoryStore mimics the gorm repository: copies in and out, optimistic versions.
type memoryStore struct {
	mu      sync.Mutex
	items   map[string]*entity.PurchaseRequest
	created   time.Time
	saveErr   error
	createErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		items:   make(map[string]*entity.PurchaseRequest),
		created: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func clone(pr *entity.PurchaseRequest) *entity.PurchaseRequest {
	c := *pr
	c.LineItems = slices.Clone(pr.LineItems)
	c.Attachments = slices.Clone(pr.Attachments)
	c.ApprovalHistory = slices.Clone(pr.ApprovalHistory)
	c.AccountingSteps = slices.Clone(pr.AccountingSteps)
	return &c
}

func (m *memoryStore) Create(ctx context.Context, pr *entity.PurchaseRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.created = m.created.Add(time.Second)
	pr.CreatedAt = m.created
	pr.UpdatedAt = m.created
	if pr.Version == 0 {
		pr.Version = 1
	}
	m.items[pr.ID] = clone(pr)
	return nil
}

func (m *memoryStore) FindByID(ctx context.Context, id string) (*entity.PurchaseRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pr, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(pr), nil
}

func (m *memoryStore) Find(ctx context.Context, filter entity.RequestFilter) ([]entity.PurchaseRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.PurchaseRequest
	for _, pr := range m.items {
		if workflow.Matches(filter, pr) {
			out = append(out, *clone(pr))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) Save(ctx context.Context, pr *entity.PurchaseRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	stored, ok := m.items[pr.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != pr.Version {
		return ErrConflict
	}
	pr.Version++
	m.items[pr.ID] = clone(pr)
	return nil
}

type fakeSequence struct {
	mu  sync.Mutex
	seq int64
}

func (f *fakeSequence) NextValue(ctx context.Context, name string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return f.seq, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) RequestChanged(pr *entity.PurchaseRequest, from entity.Status, actor entity.Actor) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, string(from)+"->"+string(pr.Status))
}
