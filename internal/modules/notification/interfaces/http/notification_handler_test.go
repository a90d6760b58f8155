package http_test

import (
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/saransh1220/notification-service/internal/modules/notification/application"
	"github.com/saransh1220/notification-service/internal/modules/notification/domain"
	notificationhttp "github.com/saransh1220/notification-service/internal/modules/notification/interfaces/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceStub struct {
	createFn    func(context.Context, application.CreateInput) (*domain.Notification, error)
	updateFn    func(context.Context, int64, application.UpdateInput) (*domain.Notification, error)
	deleteFn    func(context.Context, int64) (bool, error)
	getByIDFn   func(context.Context, int64) (*domain.Notification, bool, error)
	getRecentFn func(context.Context) ([]*domain.Notification, error)
}

func (s serviceStub) Create(ctx context.Context, in application.CreateInput) (*domain.Notification, error) {
	return s.createFn(ctx, in)
}
func (s serviceStub) Update(ctx context.Context, id int64, in application.UpdateInput) (*domain.Notification, error) {
	return s.updateFn(ctx, id, in)
}
func (s serviceStub) Delete(ctx context.Context, id int64) (bool, error) {
	return s.deleteFn(ctx, id)
}
func (s serviceStub) GetByID(ctx context.Context, id int64) (*domain.Notification, bool, error) {
	return s.getByIDFn(ctx, id)
}
func (s serviceStub) GetRecent(ctx context.Context) ([]*domain.Notification, error) {
	return s.getRecentFn(ctx)
}

func newMux(svc serviceStub) *stdhttp.ServeMux {
	h := notificationhttp.NewNotificationHandler(svc, nil)
	mux := stdhttp.NewServeMux()
	mux.HandleFunc("POST /notifications", h.Create)
	mux.HandleFunc("GET /notifications/recent", h.Recent)
	mux.HandleFunc("GET /notifications/{id}", h.Get)
	mux.HandleFunc("PUT /notifications/{id}", h.Update)
	mux.HandleFunc("DELETE /notifications/{id}", h.Delete)
	mux.HandleFunc("GET /ws", h.Subscribe)
	return mux
}

func serve(mux *stdhttp.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

var sample = &domain.Notification{
	ID:        1,
	Type:      domain.CategoryEmail,
	Recipient: "a@x.com",
	Subject:   "S",
	Content:   "C",
	CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
}

func TestNotificationHandler_Create(t *testing.T) {
	var got application.CreateInput
	mux := newMux(serviceStub{createFn: func(_ context.Context, in application.CreateInput) (*domain.Notification, error) {
		got = in
		if in.Type == "FAX" {
			return nil, domain.ErrInvalidCategory
		}
		if in.Recipient == "boom" {
			return nil, errors.New("pq: connection refused")
		}
		return sample, nil
	}})

	rec := serve(mux, stdhttp.MethodPost, "/notifications", `{"type":"EMAIL","recipient":"a@x.com","subject":"S","content":"C"}`)
	require.Equal(t, stdhttp.StatusCreated, rec.Code)
	assert.Equal(t, application.CreateInput{Type: "EMAIL", Recipient: "a@x.com", Subject: "S", Content: "C"}, got)

	var resp notificationhttp.NotificationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.ID)
	assert.Equal(t, domain.CategoryEmail, resp.Type)

	rec = serve(mux, stdhttp.MethodPost, "/notifications", `{"type":"FAX","recipient":"a","content":"c"}`)
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid notification type")

	rec = serve(mux, stdhttp.MethodPost, "/notifications", `{bad json`)
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	rec = serve(mux, stdhttp.MethodPost, "/notifications", `{"type":"SMS","recipient":"boom","content":"c"}`)
	assert.Equal(t, stdhttp.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pq:")
}

func TestNotificationHandler_Get(t *testing.T) {
	mux := newMux(serviceStub{getByIDFn: func(_ context.Context, id int64) (*domain.Notification, bool, error) {
		switch id {
		case 1:
			return sample, true, nil
		case 2:
			cp := *sample
			cp.ID = 2
			return &cp, false, nil
		case 500:
			return nil, false, errors.New("db down")
		}
		return nil, false, nil
	}})

	rec := serve(mux, stdhttp.MethodGet, "/notifications/1", "")
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Contains(t, rec.Body.String(), `"recipient":"a@x.com"`)

	rec = serve(mux, stdhttp.MethodGet, "/notifications/2", "")
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	rec = serve(mux, stdhttp.MethodGet, "/notifications/3", "")
	assert.Equal(t, stdhttp.StatusNotFound, rec.Code)

	rec = serve(mux, stdhttp.MethodGet, "/notifications/abc", "")
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	rec = serve(mux, stdhttp.MethodGet, "/notifications/500", "")
	assert.Equal(t, stdhttp.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestNotificationHandler_Recent(t *testing.T) {
	var recent []*domain.Notification
	var failure error
	mux := newMux(serviceStub{getRecentFn: func(context.Context) ([]*domain.Notification, error) {
		return recent, failure
	}})

	rec := serve(mux, stdhttp.MethodGet, "/notifications/recent", "")
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	recent = []*domain.Notification{sample}
	rec = serve(mux, stdhttp.MethodGet, "/notifications/recent", "")
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	var resp []notificationhttp.NotificationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)

	failure = errors.New("db down")
	rec = serve(mux, stdhttp.MethodGet, "/notifications/recent", "")
	assert.Equal(t, stdhttp.StatusInternalServerError, rec.Code)
}

func TestNotificationHandler_Update(t *testing.T) {
	mux := newMux(serviceStub{updateFn: func(_ context.Context, id int64, in application.UpdateInput) (*domain.Notification, error) {
		if id == 404 {
			return nil, nil
		}
		if in.Content == "" {
			return nil, domain.ErrContentRequired
		}
		cp := *sample
		cp.Subject = in.Subject
		cp.Content = in.Content
		return &cp, nil
	}})

	rec := serve(mux, stdhttp.MethodPut, "/notifications/1", `{"subject":"S","content":"C2"}`)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"content":"C2"`)

	rec = serve(mux, stdhttp.MethodPut, "/notifications/404", `{"content":"x"}`)
	assert.Equal(t, stdhttp.StatusNotFound, rec.Code)

	rec = serve(mux, stdhttp.MethodPut, "/notifications/1", `{"content":""}`)
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	rec = serve(mux, stdhttp.MethodPut, "/notifications/1", `nope`)
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	rec = serve(mux, stdhttp.MethodPut, "/notifications/0", `{"content":"x"}`)
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
}

func TestNotificationHandler_Delete(t *testing.T) {
	mux := newMux(serviceStub{deleteFn: func(_ context.Context, id int64) (bool, error) {
		switch id {
		case 1:
			return true, nil
		case 500:
			return false, errors.New("db down")
		}
		return false, nil
	}})

	assert.Equal(t, stdhttp.StatusNoContent, serve(mux, stdhttp.MethodDelete, "/notifications/1", "").Code)
	assert.Equal(t, stdhttp.StatusNotFound, serve(mux, stdhttp.MethodDelete, "/notifications/2", "").Code)
	assert.Equal(t, stdhttp.StatusInternalServerError, serve(mux, stdhttp.MethodDelete, "/notifications/500", "").Code)
}

func TestNotificationHandler_SubscribeWithoutHub(t *testing.T) {
	rec := serve(newMux(serviceStub{}), stdhttp.MethodGet, "/ws", "")
	assert.Equal(t, stdhttp.StatusServiceUnavailable, rec.Code)
}
