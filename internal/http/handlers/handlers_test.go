package handlers

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	apierrors "github.com/cornenkiV/web-ads/internal/errors"
	"github.com/cornenkiV/web-ads/internal/models"
	logctx "github.com/cornenkiV/web-ads/internal/pkg/log"
	"github.com/cornenkiV/web-ads/mocks"
)

func withID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestAdID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ads/42", nil)

	id, err := adID(withID(req, "42"))
	require.NoError(t, err)
	require.EqualValues(t, 42, id)

	for _, bad := range []string{"", "abc", "0", "-3", "1.5"} {
		_, err := adID(withID(req, bad))
		require.ErrorIs(t, err, apierrors.ErrInvalidArgument, bad)
	}
}

func TestDecodeStrict(t *testing.T) {
	var in models.LoginRequest

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"a","password":"b"}`))
	require.NoError(t, decodeStrict(httptest.NewRecorder(), req, &in))
	require.Equal(t, models.LoginRequest{Username: "a", Password: "b"}, in)

	req = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"user":"a"}`))
	require.ErrorIs(t, decodeStrict(httptest.NewRecorder(), req, &in), apierrors.ErrInvalidArgument)

	req = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`not json`))
	require.ErrorIs(t, decodeStrict(httptest.NewRecorder(), req, &in), apierrors.ErrInvalidArgument)
}

func TestDecodeStrict_BodyLimit(t *testing.T) {
	big := `{"username":"` + strings.Repeat("a", maxBody) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(big))

	var in models.LoginRequest
	require.ErrorIs(t, decodeStrict(httptest.NewRecorder(), req, &in), apierrors.ErrInvalidArgument)
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusCreated, models.Session{IsAuthenticated: true})

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.JSONEq(t, `{"isAuthenticated":true,"isInitializing":false,"user":null}`, rr.Body.String())
}

func TestRegister_LogMasksPhone(t *testing.T) {
	ctrl := gomock.NewController(t)
	auth := mocks.NewMockAuthClient(ctrl)
	auth.EXPECT().Register(gomock.Any(), gomock.Any()).Return(&models.User{ID: 1, Username: "bob"}, nil)

	h := New(mocks.NewMockSession(ctrl), auth, mocks.NewMockAdsClient(ctrl))

	var buf bytes.Buffer
	lg := slog.New(slog.NewTextHandler(&buf, nil))

	body := `{"username":"bob","password":"pw","phoneNumber":"+381 64 123-45-67"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	req = req.WithContext(logctx.Into(req.Context(), lg))

	rr := httptest.NewRecorder()
	h.Register(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Contains(t, buf.String(), "register_ok")
	require.Contains(t, buf.String(), "phone=***67")
	require.NotContains(t, buf.String(), "123-45")
	require.NotContains(t, buf.String(), "pw")
}
