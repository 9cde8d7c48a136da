// handlers - REST-эндпойнты гейтвея для UI: сессия, регистрация и объявления.
// Токены в ответы не попадают; UI видит только models.Session.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/cornenkiV/web-ads/internal/errors"
	"github.com/cornenkiV/web-ads/internal/models"
)

//go:generate mockgen -destination=../../../mocks/mock_handlers.go -package=mocks github.com/cornenkiV/web-ads/internal/http/handlers Session,AuthClient,AdsClient

// maxBody - предел тела запроса UI.
const maxBody = 1 << 20

// Session - менеджер сессии гейтвея (session.Manager).
type Session interface {
	Ready() <-chan struct{}
	Snapshot() models.Session
	Login(ctx context.Context, creds models.LoginRequest) error
	Logout(ctx context.Context)
	Refresh(ctx context.Context) (string, error)
}

// AuthClient - операции auth API, не меняющие сессию (authapi.Client).
type AuthClient interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
}

// AdsClient - ads API (adsapi.Client).
type AdsClient interface {
	List(ctx context.Context, f models.AdFilter) (*models.Page[models.Ad], error)
	Get(ctx context.Context, id int64) (*models.Ad, error)
	Create(ctx context.Context, form models.AdForm) (*models.Ad, error)
	Update(ctx context.Context, id int64, form models.AdForm) (*models.Ad, error)
	Delete(ctx context.Context, id int64) error
}

// Handlers агрегирует зависимости эндпойнтов.
type Handlers struct {
	Session Session
	Auth    AuthClient
	Ads     AdsClient
}

func New(s Session, auth AuthClient, ads AdsClient) *Handlers {
	return &Handlers{Session: s, Auth: auth, Ads: ads}
}

// writeJSON - единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict - строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("%w: %w", apierrors.ErrInvalidArgument, err)
	}

	return nil
}

// adID разбирает {id} маршрута.
func adID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: ad id", apierrors.ErrInvalidArgument)
	}

	return id, nil
}
