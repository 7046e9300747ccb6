package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	outboxapp "github.com/storefront/backend/internal/application/outbox"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newOutboxEngine(svc *mockOutboxAdmin) *gin.Engine {
	h := NewOutboxHandler(svc)
	r := newEngine(asUser(uuid.New(), true))
	r.GET("/admin/outbox/stats", h.Stats)
	r.GET("/admin/outbox/dead", h.ListDead)
	r.POST("/admin/outbox/retry", h.RetryAll)
	r.GET("/admin/outbox/:id", h.GetEntry)
	r.POST("/admin/outbox/:id/retry", h.Retry)
	return r
}

func TestOutboxHandler_Stats(t *testing.T) {
	svc := new(mockOutboxAdmin)
	svc.On("Stats", mock.Anything).Return(&outboxapp.StatsResponse{Pending: 2, Dead: 1, Total: 3}, nil)

	w := do(newOutboxEngine(svc), http.MethodGet, "/admin/outbox/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got outboxapp.StatsResponse
	require.NoError(t, json.Unmarshal(parse(t, w).Data, &got))
	assert.EqualValues(t, 1, got.Dead)
	assert.EqualValues(t, 3, got.Total)
}

func TestOutboxHandler_ListDead(t *testing.T) {
	t.Run("pages dead entries", func(t *testing.T) {
		svc := new(mockOutboxAdmin)
		entries := []outboxapp.EntryResponse{{ID: uuid.New(), EventType: "OrderPlaced", Status: "DEAD"}}
		svc.On("ListDead", mock.Anything, outboxapp.ListFilter{Page: 2, PageSize: 5}).Return(entries, int64(6), nil)

		w := do(newOutboxEngine(svc), http.MethodGet, "/admin/outbox/dead?page=2&page_size=5", nil)
		require.Equal(t, http.StatusOK, w.Code)

		env := parse(t, w)
		require.NotNil(t, env.Meta)
		assert.EqualValues(t, 6, env.Meta.Total)
		assert.Equal(t, 2, env.Meta.TotalPages)
	})

	t.Run("page size over the cap", func(t *testing.T) {
		svc := new(mockOutboxAdmin)
		w := do(newOutboxEngine(svc), http.MethodGet, "/admin/outbox/dead?page_size=500", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "ListDead", mock.Anything, mock.Anything)
	})
}

func TestOutboxHandler_GetEntry(t *testing.T) {
	svc := new(mockOutboxAdmin)
	id := uuid.New()
	svc.On("GetEntry", mock.Anything, id).Return(nil, shared.NewNotFoundError(shared.CodeNotFound, "outbox entry", id.String()))

	w := do(newOutboxEngine(svc), http.MethodGet, "/admin/outbox/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(newOutboxEngine(svc), http.MethodGet, "/admin/outbox/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOutboxHandler_Retry(t *testing.T) {
	t.Run("requeues a dead entry", func(t *testing.T) {
		svc := new(mockOutboxAdmin)
		id := uuid.New()
		svc.On("RetryEntry", mock.Anything, id).Return(&outboxapp.EntryResponse{ID: id, Status: "PENDING"}, nil)

		w := do(newOutboxEngine(svc), http.MethodPost, "/admin/outbox/"+id.String()+"/retry", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var got outboxapp.EntryResponse
		require.NoError(t, json.Unmarshal(parse(t, w).Data, &got))
		assert.Equal(t, "PENDING", got.Status)
	})

	t.Run("entry is not dead", func(t *testing.T) {
		svc := new(mockOutboxAdmin)
		id := uuid.New()
		svc.On("RetryEntry", mock.Anything, id).Return(nil, shared.NewDomainError(shared.CodeInvalidState, "can only retry dead letter entries"))

		w := do(newOutboxEngine(svc), http.MethodPost, "/admin/outbox/"+id.String()+"/retry", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestOutboxHandler_RetryAll(t *testing.T) {
	t.Run("reports requeued count", func(t *testing.T) {
		svc := new(mockOutboxAdmin)
		svc.On("RetryAllDead", mock.Anything).Return(int64(4), nil)

		w := do(newOutboxEngine(svc), http.MethodPost, "/admin/outbox/retry", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var got RetryAllResponse
		require.NoError(t, json.Unmarshal(parse(t, w).Data, &got))
		assert.EqualValues(t, 4, got.Requeued)
	})

	t.Run("store failure", func(t *testing.T) {
		svc := new(mockOutboxAdmin)
		svc.On("RetryAllDead", mock.Anything).Return(int64(0), errors.New("db down"))

		w := do(newOutboxEngine(svc), http.MethodPost, "/admin/outbox/retry", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
