package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	apierrors "github.com/cornenkiV/web-ads/internal/errors"
	"github.com/cornenkiV/web-ads/internal/models"
	"github.com/cornenkiV/web-ads/mocks"
)

type fixture struct {
	session *mocks.MockSession
	auth    *mocks.MockAuthClient
	ads     *mocks.MockAdsClient
	handler http.Handler
}

func newFixture(t *testing.T, basePath string) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := &fixture{
		session: mocks.NewMockSession(ctrl),
		auth:    mocks.NewMockAuthClient(ctrl),
		ads:     mocks.NewMockAdsClient(ctrl),
	}

	f.handler = NewRouter(Deps{Session: f.session, Auth: f.auth, Ads: f.ads}, Options{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		BasePath: basePath,
	})

	return f
}

func closedCh() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// authenticated настраивает охранника защищённых маршрутов.
func (f *fixture) authenticated(ok bool) {
	snap := models.Session{IsAuthenticated: ok}
	if ok {
		snap.User = &models.UserIdentity{Username: "alice"}
	}

	f.session.EXPECT().Ready().Return(closedCh()).AnyTimes()
	f.session.EXPECT().Snapshot().Return(snap).AnyTimes()
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

type errEnvelope struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

func decodeErr(t *testing.T, rr *httptest.ResponseRecorder) errEnvelope {
	t.Helper()

	var env errEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

const formJSON = `{"name":"Bike","description":"","imageUrl":"","price":100,"category":"SPORTS","city":"Novi Sad"}`

var form = models.AdForm{Name: "Bike", Price: 100, Category: models.CategorySports, City: "Novi Sad"}

func TestRouter_GetSession_NoTokens(t *testing.T) {
	f := newFixture(t, "")
	f.session.EXPECT().Snapshot().Return(models.Session{IsInitializing: true})

	rr := f.do(http.MethodGet, "/auth/session", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.NotEmpty(t, rr.Header().Get("X-Request-Id"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Equal(t, map[string]any{"isAuthenticated": false, "isInitializing": true, "user": nil}, got)
}

func TestRouter_Login(t *testing.T) {
	f := newFixture(t, "")

	gomock.InOrder(
		f.session.EXPECT().Login(gomock.Any(), models.LoginRequest{Username: "alice", Password: "secret"}).Return(nil),
		f.session.EXPECT().Snapshot().Return(models.Session{IsAuthenticated: true, User: &models.UserIdentity{Username: "alice"}}),
	)

	rr := f.do(http.MethodPost, "/auth/login", `{"username":"alice","password":"secret"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var snap models.Session
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	require.True(t, snap.IsAuthenticated)
	require.Equal(t, "alice", snap.User.Username)
	require.NotContains(t, rr.Body.String(), "token")
}

func TestRouter_Login_BadCredentials(t *testing.T) {
	f := newFixture(t, "")
	f.session.EXPECT().Login(gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("session.Login: %w", &apierrors.APIError{Status: http.StatusUnauthorized, Message: "Bad credentials"}))

	rr := f.do(http.MethodPost, "/auth/login", `{"username":"alice","password":"nope"}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "Bad credentials", decodeErr(t, rr).Error.Message)
}

func TestRouter_Login_UnknownFieldRejected(t *testing.T) {
	f := newFixture(t, "")

	rr := f.do(http.MethodPost, "/auth/login", `{"username":"alice","password":"x","admin":true}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "invalid_argument", decodeErr(t, rr).Error.Code)
}

func TestRouter_Register(t *testing.T) {
	f := newFixture(t, "")

	in := models.RegisterRequest{Username: "bob", Password: "pw", PhoneNumber: "+381"}
	f.auth.EXPECT().Register(gomock.Any(), in).Return(&models.User{ID: 7, Username: "bob"}, nil)

	rr := f.do(http.MethodPost, "/auth/register", `{"username":"bob","password":"pw","phoneNumber":"+381"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	var u models.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &u))
	require.EqualValues(t, 7, u.ID)
}

func TestRouter_Register_Conflict(t *testing.T) {
	f := newFixture(t, "")
	f.auth.EXPECT().Register(gomock.Any(), gomock.Any()).
		Return(nil, &apierrors.APIError{Status: http.StatusConflict, Message: "Username is already taken!"})

	rr := f.do(http.MethodPost, "/auth/register", `{"username":"bob","password":"pw","phoneNumber":"1"}`)
	require.Equal(t, http.StatusConflict, rr.Code)

	env := decodeErr(t, rr)
	require.Equal(t, "already_exists", env.Error.Code)
	require.Equal(t, "Username is already taken!", env.Error.Message)
}

func TestRouter_Logout(t *testing.T) {
	f := newFixture(t, "")
	f.session.EXPECT().Logout(gomock.Any())

	rr := f.do(http.MethodPost, "/auth/logout", "")
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRouter_ListAds_Filter(t *testing.T) {
	f := newFixture(t, "")

	minPrice := 10.5
	want := models.AdFilter{Page: 2, Size: 20, Category: models.CategorySports, MinPrice: &minPrice, ShowMineOnly: true}
	f.ads.EXPECT().List(gomock.Any(), want).
		Return(&models.Page[models.Ad]{Content: []models.Ad{{ID: 1, Name: "Bike"}}, TotalElements: 1}, nil)

	rr := f.do(http.MethodGet, "/ads?page=2&size=20&category=SPORTS&minPrice=10.5&showMineOnly=true", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var page models.Page[models.Ad]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.Len(t, page.Content, 1)
}

func TestRouter_ListAds_BadQuery(t *testing.T) {
	f := newFixture(t, "")

	rr := f.do(http.MethodGet, "/ads?page=abc", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_GetAd(t *testing.T) {
	f := newFixture(t, "")
	f.ads.EXPECT().Get(gomock.Any(), int64(5)).Return(&models.Ad{ID: 5, Name: "Bike"}, nil)

	rr := f.do(http.MethodGet, "/ads/5", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(http.MethodGet, "/ads/x", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_GetAd_NotFound(t *testing.T) {
	f := newFixture(t, "")
	f.ads.EXPECT().Get(gomock.Any(), int64(9)).Return(nil, &apierrors.APIError{Status: http.StatusNotFound})

	rr := f.do(http.MethodGet, "/ads/9", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "not_found", decodeErr(t, rr).Error.Code)
}

func TestRouter_ProtectedRoutes_Unauthenticated(t *testing.T) {
	f := newFixture(t, "")
	f.authenticated(false)

	for _, tc := range []struct{ method, target, body string }{
		{http.MethodPost, "/ads", formJSON},
		{http.MethodPut, "/ads/5", formJSON},
		{http.MethodDelete, "/ads/5", ""},
	} {
		rr := f.do(tc.method, tc.target, tc.body)
		require.Equal(t, http.StatusUnauthorized, rr.Code, tc.method+" "+tc.target)
		require.Equal(t, "unauthenticated", decodeErr(t, rr).Error.Code)
	}
}

func TestRouter_CreateUpdateDelete(t *testing.T) {
	f := newFixture(t, "")
	f.authenticated(true)

	f.ads.EXPECT().Create(gomock.Any(), form).Return(&models.Ad{ID: 3, Name: "Bike"}, nil)
	f.ads.EXPECT().Update(gomock.Any(), int64(3), form).Return(&models.Ad{ID: 3, Name: "Bike"}, nil)
	f.ads.EXPECT().Delete(gomock.Any(), int64(3)).Return(nil)

	rr := f.do(http.MethodPost, "/ads", formJSON)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = f.do(http.MethodPut, "/ads/3", formJSON)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(http.MethodDelete, "/ads/3", "")
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRouter_UpstreamFailuresMapped(t *testing.T) {
	f := newFixture(t, "")
	f.authenticated(true)

	gomock.InOrder(
		// повтор после обновления тоже получил 403
		f.ads.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(nil, &apierrors.APIError{Status: http.StatusForbidden, Message: "Access Denied"}),
		// обмен refresh-токена не удался
		f.ads.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("transport.Authenticator: %w", apierrors.ErrRefreshFailed)),
		f.ads.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(nil, &apierrors.APIError{Status: http.StatusTooManyRequests}),
		f.ads.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(nil, &apierrors.APIError{Status: http.StatusInternalServerError, Message: "stack trace"}),
	)

	rr := f.do(http.MethodPost, "/ads", formJSON)
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Equal(t, "permission_denied", decodeErr(t, rr).Error.Code)

	rr = f.do(http.MethodPost, "/ads", formJSON)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "session_expired", decodeErr(t, rr).Error.Code)

	rr = f.do(http.MethodPost, "/ads", formJSON)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Equal(t, "rate_limited", decodeErr(t, rr).Error.Code)

	rr = f.do(http.MethodPost, "/ads", formJSON)
	require.Equal(t, http.StatusBadGateway, rr.Code)
	require.NotContains(t, rr.Body.String(), "stack trace")
}

func TestRouter_BasePath(t *testing.T) {
	f := newFixture(t, "/api")
	f.session.EXPECT().Snapshot().Return(models.Session{})

	rr := f.do(http.MethodGet, "/api/auth/session", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(http.MethodGet, "/auth/session", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_ErrorCarriesRequestID(t *testing.T) {
	f := newFixture(t, "")

	req := httptest.NewRequest(http.MethodGet, "/ads/x", nil)
	req.Header.Set("X-Request-Id", "rid-42")
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)

	require.Equal(t, "rid-42", rr.Header().Get("X-Request-Id"))
	require.Equal(t, "rid-42", decodeErr(t, rr).Error.RequestID)
}
