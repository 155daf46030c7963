package application_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/msdp-platform/msdp-flexstaff/internal/application"
	applicationerrors "github.com/msdp-platform/msdp-flexstaff/internal/application/errors"
	"github.com/msdp-platform/msdp-flexstaff/internal/middleware"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/actor"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiEnvelope struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error"`
}

func decodeEnvelope(t *testing.T, body []byte) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	assert.NoError(t, json.Unmarshal(body, &env))
	return env
}

type fakeApplicationService struct {
	applyFn    func(ctx context.Context, workerID, shiftID string, req application.ApplyRequest) (application.ApplicationResponse, error)
	acceptFn   func(ctx context.Context, employerID, id string) (application.AcceptResponse, error)
	rejectFn   func(ctx context.Context, employerID, id, reason string) (application.ApplicationResponse, error)
	withdrawFn func(ctx context.Context, workerID, id string) (application.ApplicationResponse, error)
	confirmFn  func(ctx context.Context, workerID, id string) (application.AssignmentResponse, error)
}

func (f *fakeApplicationService) Apply(ctx context.Context, workerID, shiftID string, req application.ApplyRequest) (application.ApplicationResponse, error) {
	return f.applyFn(ctx, workerID, shiftID, req)
}
func (f *fakeApplicationService) Accept(ctx context.Context, employerID, id string) (application.AcceptResponse, error) {
	return f.acceptFn(ctx, employerID, id)
}
func (f *fakeApplicationService) Reject(ctx context.Context, employerID, id, reason string) (application.ApplicationResponse, error) {
	return f.rejectFn(ctx, employerID, id, reason)
}
func (f *fakeApplicationService) Withdraw(ctx context.Context, workerID, id string) (application.ApplicationResponse, error) {
	return f.withdrawFn(ctx, workerID, id)
}
func (f *fakeApplicationService) ListForShift(context.Context, string, string) ([]application.ApplicationResponse, error) {
	return []application.ApplicationResponse{}, nil
}
func (f *fakeApplicationService) ListMine(context.Context, string) ([]application.ApplicationResponse, error) {
	return []application.ApplicationResponse{}, nil
}
func (f *fakeApplicationService) ListMyAssignments(context.Context, string) ([]application.AssignmentResponse, error) {
	return []application.AssignmentResponse{}, nil
}
func (f *fakeApplicationService) ConfirmAssignment(ctx context.Context, workerID, id string) (application.AssignmentResponse, error) {
	return f.confirmFn(ctx, workerID, id)
}

func newApplicationRouter(svc application.Service, rdb *redis.Client, profileID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := application.NewHandlerWithRedis(svc, rdb)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(actor.KeyUserID, "u-1")
		c.Set(actor.KeyProfileID, profileID)
		c.Set("user_id_validated", "u-1")
	})
	r.POST("/shifts/:id/applications", h.Apply)
	if rdb != nil {
		r.POST("/applications/:id/accept", middleware.Idempotency(rdb), h.Accept)
	} else {
		r.POST("/applications/:id/accept", h.Accept)
	}
	r.POST("/applications/:id/reject", h.Reject)
	r.POST("/applications/:id/withdraw", h.Withdraw)
	r.POST("/assignments/:id/confirm", h.ConfirmAssignment)
	return r
}

func TestApplicationHandler_Apply(t *testing.T) {
	t.Run("empty body is allowed", func(t *testing.T) {
		svc := &fakeApplicationService{applyFn: func(_ context.Context, workerID, shiftID string, req application.ApplyRequest) (application.ApplicationResponse, error) {
			assert.Equal(t, "wrk-1", workerID)
			assert.Equal(t, "s-1", shiftID)
			assert.Empty(t, req.Message)
			return application.ApplicationResponse{ID: "a-1", Status: application.StatusPending}, nil
		}}
		w := httptest.NewRecorder()
		newApplicationRouter(svc, nil, "wrk-1").ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/shifts/s-1/applications", nil))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, decodeEnvelope(t, w.Body.Bytes()).Ok)
	})

	t.Run("duplicate maps to 409", func(t *testing.T) {
		svc := &fakeApplicationService{applyFn: func(context.Context, string, string, application.ApplyRequest) (application.ApplicationResponse, error) {
			return application.ApplicationResponse{}, applicationerrors.ErrDuplicateApplication
		}}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/shifts/s-1/applications", bytes.NewBufferString(`{"message":"hi"}`))
		newApplicationRouter(svc, nil, "wrk-1").ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "DUPLICATE_APPLICATION", decodeEnvelope(t, w.Body.Bytes()).Error.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/shifts/s-1/applications", bytes.NewBufferString(`{"message":`))
		newApplicationRouter(&fakeApplicationService{}, nil, "wrk-1").ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestApplicationHandler_Accept(t *testing.T) {
	accepted := application.AcceptResponse{
		Application:     application.ApplicationResponse{ID: "a-1", Status: application.StatusAccepted},
		Assignment:      application.AssignmentResponse{ID: "as-1"},
		FilledPositions: 2,
		TotalPositions:  2,
		IsFullyBooked:   true,
	}

	t.Run("capacity exceeded", func(t *testing.T) {
		svc := &fakeApplicationService{acceptFn: func(context.Context, string, string) (application.AcceptResponse, error) {
			return application.AcceptResponse{}, applicationerrors.ErrCapacityExceeded
		}}
		w := httptest.NewRecorder()
		newApplicationRouter(svc, nil, "emp-1").ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/applications/a-1/accept", nil))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "CAPACITY_EXCEEDED", decodeEnvelope(t, w.Body.Bytes()).Error.Code)
	})

	t.Run("success is stored under the idempotency key", func(t *testing.T) {
		const cacheKey = "idemp:/applications/a-1/accept:u-1:k-1"
		body, _ := json.Marshal(response.ApiEnvelope{Ok: true, Data: accepted})

		rdb, mock := redismock.NewClientMock()
		mock.ExpectGet(cacheKey).RedisNil()
		mock.ExpectSetNX(cacheKey+":lock", "locked", 30*time.Second).SetVal(true)
		mock.ExpectSet(cacheKey, body, middleware.IdempotencyCacheTTL).SetVal("OK")
		mock.ExpectDel(cacheKey + ":lock").SetVal(1)

		svc := &fakeApplicationService{acceptFn: func(_ context.Context, employerID, id string) (application.AcceptResponse, error) {
			assert.Equal(t, "emp-1", employerID)
			assert.Equal(t, "a-1", id)
			return accepted, nil
		}}
		req := httptest.NewRequest(http.MethodPost, "/applications/a-1/accept", nil)
		req.Header.Set(middleware.IdempotencyHeader, "k-1")
		w := httptest.NewRecorder()
		newApplicationRouter(svc, rdb, "emp-1").ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, string(body), w.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unexpected failure hides details", func(t *testing.T) {
		svc := &fakeApplicationService{acceptFn: func(context.Context, string, string) (application.AcceptResponse, error) {
			return application.AcceptResponse{}, errors.New("pq: deadlock detected")
		}}
		w := httptest.NewRecorder()
		newApplicationRouter(svc, nil, "emp-1").ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/applications/a-1/accept", nil))

		env := decodeEnvelope(t, w.Body.Bytes())
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
		assert.Equal(t, "Internal server error", env.Error.Message)
	})
}

func TestApplicationHandler_RejectWithdrawConfirm(t *testing.T) {
	t.Run("reject passes reason", func(t *testing.T) {
		svc := &fakeApplicationService{rejectFn: func(_ context.Context, employerID, id, reason string) (application.ApplicationResponse, error) {
			assert.Equal(t, "filled internally", reason)
			return application.ApplicationResponse{ID: id, Status: application.StatusRejected}, nil
		}}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/applications/a-1/reject", bytes.NewBufferString(`{"reason":"filled internally"}`))
		newApplicationRouter(svc, nil, "emp-1").ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("withdraw of accepted is invalid state", func(t *testing.T) {
		svc := &fakeApplicationService{withdrawFn: func(context.Context, string, string) (application.ApplicationResponse, error) {
			return application.ApplicationResponse{}, applicationerrors.ErrInvalidStatusTransition
		}}
		w := httptest.NewRecorder()
		newApplicationRouter(svc, nil, "wrk-1").ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/applications/a-1/withdraw", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_STATE", decodeEnvelope(t, w.Body.Bytes()).Error.Code)
	})

	t.Run("confirm unknown assignment", func(t *testing.T) {
		svc := &fakeApplicationService{confirmFn: func(context.Context, string, string) (application.AssignmentResponse, error) {
			return application.AssignmentResponse{}, applicationerrors.ErrAssignmentNotFound
		}}
		w := httptest.NewRecorder()
		newApplicationRouter(svc, nil, "wrk-1").ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/assignments/as-1/confirm", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
