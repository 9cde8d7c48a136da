// fakeapi - поддельный REST API маркетплейса для тестов.
//
// Ведёт себя как настоящий бэкенд в том, что важно для сессии: выдаёт
// подписанные HS256 access-токены, хранит refresh-токены, отвечает 403 на
// недействительный bearer и считает обращения к /auth/refresh.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cornenkiV/web-ads/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

// Request - запись об обращении к API.
type Request struct {
	Method string
	Path   string
	Auth   string
}

type user struct {
	id       int64
	password string
	phone    string
	created  string
}

type accessClaims struct {
	Seq int `json:"seq"`
	jwt.RegisteredClaims
}

// Server - поддельный API. Базовый URL клиента: URL() (с суффиксом /api).
type Server struct {
	srv *httptest.Server

	// AccessTTL - срок жизни выдаваемых access-токенов.
	AccessTTL time.Duration
	// Rotate - выдавать новый refresh-токен при каждом обмене.
	Rotate bool
	// Now - часы сервера.
	Now func() time.Time

	secret []byte

	mu           sync.Mutex
	seq          int
	minSeq       int
	users        map[string]*user
	refresh      map[string]string
	ads          map[int64]models.Ad
	owners       map[int64]string
	nextAdID     int64
	requests     []Request
	refreshCalls int
	logoutCalls  int
	forbidNext   int
	failLogout   bool
}

// New запускает сервер; остановка - Close.
func New() *Server { return NewAt(time.Now) }

// NewAt запускает сервер с заданными часами (для тестов истечения токенов).
func NewAt(now func() time.Time) *Server {
	s := &Server{
		AccessTTL: 15 * time.Minute,
		Rotate:    true,
		Now:       now,
		secret:    []byte("fakeapi-secret"),
		users:     make(map[string]*user),
		refresh:   make(map[string]string),
		ads:       make(map[int64]models.Ad),
		owners:    make(map[int64]string),
	}

	s.srv = httptest.NewServer(s.routes())

	return s
}

// URL - базовый URL API (…/api).
func (s *Server) URL() string { return s.srv.URL + "/api" }

func (s *Server) Close() { s.srv.Close() }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.register)
		r.Post("/auth/login", s.login)
		r.Post("/auth/refresh", s.refreshToken)
		r.With(s.requireAuth).Post("/auth/logout", s.logout)

		r.Get("/ads", s.listAds)
		r.Get("/ads/{id}", s.getAd)
		r.With(s.requireAuth).Post("/ads", s.createAd)
		r.With(s.requireAuth).Put("/ads/{id}", s.updateAd)
		r.With(s.requireAuth).Delete("/ads/{id}", s.deleteAd)
	})

	return r
}

// SeedUser регистрирует пользователя напрямую.
func (s *Server) SeedUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.addUserLocked(username, password, "")
}

// IssueRefresh выдаёт refresh-токен пользователю напрямую.
func (s *Server) IssueRefresh(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.newRefreshLocked(username)
}

// IssueAccess выдаёт access-токен пользователю напрямую.
func (s *Server) IssueAccess(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.newAccessLocked(username)
}

// RevokeAccess делает недействительными все выданные access-токены.
func (s *Server) RevokeAccess() {
	s.mu.Lock()
	s.minSeq = s.seq + 1
	s.mu.Unlock()
}

// RevokeRefresh удаляет все refresh-токены.
func (s *Server) RevokeRefresh() {
	s.mu.Lock()
	s.refresh = make(map[string]string)
	s.mu.Unlock()
}

// ForbidNext отвечает 403 на следующие n защищённых запросов.
func (s *Server) ForbidNext(n int) {
	s.mu.Lock()
	s.forbidNext = n
	s.mu.Unlock()
}

// FailLogout заставляет /auth/logout отвечать 500.
func (s *Server) FailLogout(fail bool) {
	s.mu.Lock()
	s.failLogout = fail
	s.mu.Unlock()
}

func (s *Server) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.refreshCalls
}

func (s *Server) LogoutCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.logoutCalls
}

// Requests возвращает журнал обращений.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Request(nil), s.requests...)
}

// AuthsFor возвращает заголовки Authorization обращений к path по порядку.
func (s *Server) AuthsFor(method, path string) []string {
	var out []string
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r.Auth)
		}
	}

	return out
}

// HasRefresh сообщает, действителен ли refresh-токен.
func (s *Server) HasRefresh(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.refresh[token]
	return ok
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   strings.TrimPrefix(r.URL.Path, "/api"),
			Auth:   r.Header.Get("Authorization"),
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		forced := s.forbidNext > 0
		if forced {
			s.forbidNext--
		}
		s.mu.Unlock()

		username, ok := s.authenticate(r)
		if forced || !ok {
			writeJSON(w, http.StatusForbidden, map[string]string{"message": "Access Denied"})
			return
		}

		r.Header.Set("X-Fake-User", username)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(r *http.Request) (string, bool) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return "", false
	}

	var claims accessClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.Now),
	)
	if err != nil {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if claims.Seq < s.minSeq {
		return "", false
	}

	if _, exists := s.users[claims.Subject]; !exists {
		return "", false
	}

	return claims.Subject, true
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Username == "" || in.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid registration data"})
		return
	}

	s.mu.Lock()
	if _, exists := s.users[in.Username]; exists {
		s.mu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Username is already taken!"})
		return
	}
	u := s.addUserLocked(in.Username, in.Password, in.PhoneNumber)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, models.User{
		ID:               u.id,
		Username:         in.Username,
		PhoneNumber:      in.PhoneNumber,
		RegistrationDate: u.created,
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	_ = json.NewDecoder(r.Body).Decode(&in)

	s.mu.Lock()
	u, ok := s.users[in.Username]
	if !ok || u.password != in.Password {
		s.mu.Unlock()
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Bad credentials"})
		return
	}
	resp := models.LoginResponse{
		Token:        s.newAccessLocked(in.Username),
		RefreshToken: s.newRefreshLocked(in.Username),
		TokenType:    "Bearer",
		Username:     in.Username,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	var in models.RefreshRequest
	_ = json.NewDecoder(r.Body).Decode(&in)

	s.mu.Lock()
	s.refreshCalls++
	username, ok := s.refresh[in.RefreshToken]
	if !ok {
		s.mu.Unlock()
		writeJSON(w, http.StatusForbidden, map[string]string{
			"message": fmt.Sprintf("Failed for [%s]: Refresh token is not in database!", in.RefreshToken),
		})
		return
	}

	next := in.RefreshToken
	if s.Rotate {
		delete(s.refresh, in.RefreshToken)
		next = s.newRefreshLocked(username)
	}

	resp := models.RefreshResponse{
		Token:        s.newAccessLocked(username),
		RefreshToken: next,
		TokenType:    "Bearer",
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	username := r.Header.Get("X-Fake-User")

	s.mu.Lock()
	s.logoutCalls++
	if s.failLogout {
		s.mu.Unlock()
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "boom"})
		return
	}
	for tok, owner := range s.refresh {
		if owner == username {
			delete(s.refresh, tok)
		}
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, "Log out successful")
}

func (s *Server) listAds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mine := q.Get("showMineOnly") == "true"

	var me string
	if mine {
		var ok bool
		if me, ok = s.authenticate(r); !ok {
			writeJSON(w, http.StatusOK, models.Page[models.Ad]{Content: []models.Ad{}})
			return
		}
	}

	name := strings.ToLower(q.Get("name"))
	category := q.Get("category")

	s.mu.Lock()
	ids := make([]int64, 0, len(s.ads))
	for id := range s.ads {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	content := make([]models.Ad, 0, len(ids))
	for _, id := range ids {
		ad := s.ads[id]
		if mine && s.owners[id] != me {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(ad.Name), name) {
			continue
		}
		if category != "" && string(ad.Category) != category {
			continue
		}
		content = append(content, ad)
	}
	s.mu.Unlock()

	size := 20
	if v, err := strconv.Atoi(q.Get("size")); err == nil && v > 0 {
		size = v
	}

	writeJSON(w, http.StatusOK, models.Page[models.Ad]{
		Content:       content,
		TotalPages:    (len(content) + size - 1) / size,
		TotalElements: int64(len(content)),
		Size:          size,
	})
}

func (s *Server) getAd(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad id"})
		return
	}

	s.mu.Lock()
	ad, ok := s.ads[id]
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Ad not found with id: " + strconv.FormatInt(id, 10)})
		return
	}

	writeJSON(w, http.StatusOK, ad)
}

func (s *Server) createAd(w http.ResponseWriter, r *http.Request) {
	var form models.AdForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil || form.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid ad data"})
		return
	}

	username := r.Header.Get("X-Fake-User")

	s.mu.Lock()
	s.nextAdID++
	ad := models.Ad{
		ID:          s.nextAdID,
		Name:        form.Name,
		Description: form.Description,
		ImageURL:    form.ImageURL,
		Price:       form.Price,
		Category:    form.Category,
		City:        form.City,
		PostDate:    s.Now().UTC().Format(time.RFC3339),
		Seller:      &models.Seller{ID: s.users[username].id, Username: username},
	}
	s.ads[ad.ID] = ad
	s.owners[ad.ID] = username
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, ad)
}

func (s *Server) updateAd(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad id"})
		return
	}

	var form models.AdForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid ad data"})
		return
	}

	username := r.Header.Get("X-Fake-User")

	s.mu.Lock()
	ad, ok := s.ads[id]
	switch {
	case !ok:
		s.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Ad not found"})
		return
	case s.owners[id] != username:
		s.mu.Unlock()
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "You are not the owner of this ad"})
		return
	}

	ad.Name, ad.Description, ad.ImageURL = form.Name, form.Description, form.ImageURL
	ad.Price, ad.Category, ad.City = form.Price, form.Category, form.City
	s.ads[id] = ad
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, ad)
}

func (s *Server) deleteAd(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad id"})
		return
	}

	username := r.Header.Get("X-Fake-User")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ads[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Ad not found"})
		return
	}

	if s.owners[id] != username {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "You are not the owner of this ad"})
		return
	}

	delete(s.ads, id)
	delete(s.owners, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addUserLocked(username, password, phone string) *user {
	u := &user{
		id:       int64(len(s.users) + 1),
		password: password,
		phone:    phone,
		created:  s.Now().UTC().Format(time.RFC3339),
	}
	s.users[username] = u

	return u
}

func (s *Server) newAccessLocked(username string) string {
	s.seq++
	now := s.Now()

	claims := accessClaims{
		Seq: s.seq,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.AccessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(err)
	}

	return signed
}

func (s *Server) newRefreshLocked(username string) string {
	s.seq++
	tok := fmt.Sprintf("R%d-%s", s.seq, username)
	s.refresh[tok] = username

	return tok
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
