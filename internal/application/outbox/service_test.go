package outbox

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	entries map[uuid.UUID]*shared.OutboxEntry
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[uuid.UUID]*shared.OutboxEntry)}
}

func (s *fakeStore) add(status shared.OutboxStatus) *shared.OutboxEntry {
	e := &shared.OutboxEntry{
		ID:         uuid.New(),
		EventID:    uuid.New(),
		EventType:  "OrderPlaced",
		Status:     status,
		MaxRetries: shared.DefaultOutboxMaxRetries,
	}
	if status == shared.OutboxStatusDead {
		e.RetryCount = e.MaxRetries
		e.LastError = "broker unavailable"
	}
	s.entries[e.ID] = e
	return e
}

func (s *fakeStore) dead() []*shared.OutboxEntry {
	var out []*shared.OutboxEntry
	for _, e := range s.entries {
		if e.Status == shared.OutboxStatusDead {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func (s *fakeStore) FindDead(_ context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	dead := s.dead()
	start := (page - 1) * pageSize
	if start >= len(dead) {
		return nil, int64(len(dead)), nil
	}
	end := min(start+pageSize, len(dead))
	return dead[start:end], int64(len(dead)), nil
}

func (s *fakeStore) FindByID(_ context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	if e, ok := s.entries[id]; ok {
		return e, nil
	}
	return nil, shared.NewNotFoundError(shared.CodeNotFound, "outbox entry", id.String())
}

func (s *fakeStore) Update(_ context.Context, entry *shared.OutboxEntry) error {
	if s.err != nil {
		return s.err
	}
	s.entries[entry.ID] = entry
	return nil
}

func (s *fakeStore) RetryDead(_ context.Context) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	var moved int64
	for _, e := range s.dead() {
		_ = e.ResetForRetry()
		moved++
	}
	return moved, nil
}

func (s *fakeStore) CountByStatus(_ context.Context) (map[shared.OutboxStatus]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range s.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func TestService_ListDead(t *testing.T) {
	store := newFakeStore()
	for i := 0; i < 3; i++ {
		store.add(shared.OutboxStatusDead)
	}
	store.add(shared.OutboxStatusSent)
	svc := NewService(store, zap.NewNop())

	t.Run("pages through dead entries", func(t *testing.T) {
		entries, total, err := svc.ListDead(context.Background(), ListFilter{Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		require.Len(t, entries, 1)
		assert.Equal(t, "DEAD", entries[0].Status)
		assert.Equal(t, "broker unavailable", entries[0].LastError)
	})

	t.Run("defaults page and size", func(t *testing.T) {
		entries, total, err := svc.ListDead(context.Background(), ListFilter{})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		assert.Len(t, entries, 3)
	})

	t.Run("store failure", func(t *testing.T) {
		failing := newFakeStore()
		failing.err = errors.New("db down")
		_, _, err := NewService(failing, zap.NewNop()).ListDead(context.Background(), ListFilter{})
		assert.Error(t, err)
	})
}

func TestService_RetryEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("dead entry is requeued", func(t *testing.T) {
		store := newFakeStore()
		dead := store.add(shared.OutboxStatusDead)

		resp, err := NewService(store, zap.NewNop()).RetryEntry(ctx, dead.ID)
		require.NoError(t, err)
		assert.Equal(t, "PENDING", resp.Status)
		assert.Zero(t, resp.RetryCount)
		assert.Empty(t, resp.LastError)
		assert.Equal(t, shared.OutboxStatusPending, store.entries[dead.ID].Status)
	})

	t.Run("entry that is not dead", func(t *testing.T) {
		store := newFakeStore()
		sent := store.add(shared.OutboxStatusSent)

		_, err := NewService(store, zap.NewNop()).RetryEntry(ctx, sent.ID)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("unknown entry", func(t *testing.T) {
		_, err := NewService(newFakeStore(), zap.NewNop()).RetryEntry(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestService_RetryAllDead(t *testing.T) {
	store := newFakeStore()
	store.add(shared.OutboxStatusDead)
	store.add(shared.OutboxStatusDead)
	store.add(shared.OutboxStatusPending)

	moved, err := NewService(store, zap.NewNop()).RetryAllDead(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, moved)
	assert.Empty(t, store.dead())
}

func TestService_Stats(t *testing.T) {
	store := newFakeStore()
	store.add(shared.OutboxStatusPending)
	store.add(shared.OutboxStatusSent)
	store.add(shared.OutboxStatusSent)
	store.add(shared.OutboxStatusDead)

	stats, err := NewService(store, zap.NewNop()).Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Pending)
	assert.EqualValues(t, 2, stats.Sent)
	assert.EqualValues(t, 1, stats.Dead)
	assert.EqualValues(t, 4, stats.Total)
}
