// session владеет состоянием аутентификации клиента.
//
// Manager - конечный автомат Initializing → {Authenticated, Unauthenticated}.
// Он связывает три хранилища: access-токен в памяти (token.Store),
// refresh-токен в долговременном хранилище (storage.RefreshTokenStore)
// и личность пользователя, декодированную из access-токена.
//
// Конкурентность:
//   - mu защищает состояние и никогда не удерживается во время I/O;
//   - commitMu упорядочивает фиксацию результатов (запись в хранилище +
//     смена состояния), чтобы login не перемешался с purge;
//   - каждый Login/Logout/purge увеличивает поколение сессии. Обмен
//     refresh-токена, завершившийся в другом поколении, ничего не пишет;
//   - запись в хранилище при фиксации идёт в контексте без отмены
//     вызывающего (detached): logout и purge удаляют refresh-токен, даже
//     если запрос UI уже отменён или истёк.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	apierrors "github.com/cornenkiV/web-ads/internal/errors"
	"github.com/cornenkiV/web-ads/internal/metrics"
	"github.com/cornenkiV/web-ads/internal/models"
	"github.com/cornenkiV/web-ads/internal/pkg/log"
	"github.com/cornenkiV/web-ads/internal/storage"
	"github.com/cornenkiV/web-ads/internal/token"
)

//go:generate mockgen -destination=../../mocks/mock_session.go -package=mocks github.com/cornenkiV/web-ads/internal/session AuthAPI

var (
	// ErrEmptyAccessToken - сервер ответил 2xx, но без access-токена.
	ErrEmptyAccessToken = errors.New("empty access token")

	// ErrNoSubject - в access-токене нет subject, личность не определить.
	ErrNoSubject = errors.New("access token has no subject")
)

// AuthAPI - удалённые операции аутентификации, нужные менеджеру.
type AuthAPI interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*models.RefreshResponse, error)
	Logout(ctx context.Context) error
}

// storeTimeout - предел одной операции фиксации в хранилище.
const storeTimeout = 5 * time.Second

// Options - необязательные зависимости Manager.
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// Now - источник времени для проверки срока access-токена.
	Now func() time.Time
}

// Manager - менеджер клиентской сессии.
type Manager struct {
	api     AuthAPI
	tokens  *token.Store
	store   storage.RefreshTokenStore
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	initOnce sync.Once
	ready    chan struct{}

	commitMu sync.Mutex

	mu        sync.Mutex
	state     models.SessionState
	user      *models.UserIdentity
	expiresAt time.Time // нулевое значение: срок неизвестен
	gen       uint64
}

// New создаёт менеджер в состоянии Initializing.
func New(api AuthAPI, tokens *token.Store, store storage.RefreshTokenStore, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Manager{
		api:     api,
		tokens:  tokens,
		store:   store,
		log:     opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Now,
		ready:   make(chan struct{}),
		state:   models.StateInitializing,
	}
}

// Ready закрывается после завершения Init.
func (m *Manager) Ready() <-chan struct{} { return m.ready }

// IsInitializing - true, пока Init не завершён.
func (m *Manager) IsInitializing() bool {
	select {
	case <-m.ready:
		return false
	default:
		return true
	}
}

// Wait блокируется до завершения Init или отмены ctx.
func (m *Manager) Wait(ctx context.Context) error {
	select {
	case <-m.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Init восстанавливает сессию из сохранённого refresh-токена.
// Выполняется один раз; повторные вызовы ничего не делают.
func (m *Manager) Init(ctx context.Context) {
	m.initOnce.Do(func() {
		defer close(m.ready)
		m.init(ctx)
	})
}

func (m *Manager) init(ctx context.Context) {
	const op = "session.Init"

	lg := log.FromOr(ctx, m.log)
	gen := m.generation()

	rt, err := m.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			lg.Warn("session_store_load_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}

		m.settle(ctx, gen)
		return
	}

	resp, err := m.api.Refresh(ctx, rt)
	if err == nil && resp.Token == "" {
		err = ErrEmptyAccessToken
	}

	if err != nil {
		m.metrics.ObserveRefresh(metrics.RefreshFailed)
		lg.Warn("session_init_refresh_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		m.purge(ctx, gen)
		return
	}

	user, exp, err := decodeAccess(resp.Token)
	if err != nil {
		m.metrics.ObserveRefresh(metrics.RefreshFailed)
		lg.Warn("session_init_token_invalid",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		m.purge(ctx, gen)
		return
	}

	if err := m.commitRefresh(ctx, gen, rt, resp, user, exp); err != nil {
		lg.Info("session_init_discarded", slog.String("op", op))
		return
	}

	m.metrics.ObserveRefresh(metrics.RefreshOK)
}

// Login выполняет вход и применяет ответ сервера.
func (m *Manager) Login(ctx context.Context, creds models.LoginRequest) error {
	const op = "session.Login"

	resp, err := m.api.Login(ctx, creds)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := m.ApplyLogin(ctx, resp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ApplyLogin фиксирует успешный вход: сохраняет refresh-токен, кладёт
// access-токен в Store и переводит сессию в Authenticated. Повторный вызов
// перезаписывает текущую сессию.
func (m *Manager) ApplyLogin(ctx context.Context, resp *models.LoginResponse) error {
	const op = "session.ApplyLogin"

	if resp == nil || resp.Token == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyAccessToken)
	}

	lg := log.FromOr(ctx, m.log)

	// Личность берётся из ответа; токен декодируется только ради срока.
	user := &models.UserIdentity{Username: resp.Username}
	decoded, exp, err := decodeAccess(resp.Token)
	if err == nil && user.Username == "" {
		user = decoded
	}

	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	m.bump()

	if resp.RefreshToken != "" {
		sctx, cancel := detached(ctx)
		err := m.store.Save(sctx, resp.RefreshToken)
		cancel()
		if err != nil {
			lg.Error("session_store_save_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}
	}

	m.tokens.Set(resp.Token)
	m.transition(ctx, models.StateAuthenticated, user, exp)

	lg.Info("session_login", slog.String("username", user.Username))

	return nil
}

// Logout завершает сессию. Серверный вызов выполняется по возможности,
// локальное состояние очищается всегда.
func (m *Manager) Logout(ctx context.Context) {
	const op = "session.Logout"

	lg := log.FromOr(ctx, m.log)

	if err := m.api.Logout(ctx); err != nil {
		lg.Warn("session_server_logout_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
	}

	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	m.bump()
	m.clear(ctx, op)

	lg.Info("session_logout")
}

// Refresh обменивает сохранённый refresh-токен на новый access-токен.
// Используется конвейером запросов при ответе 403.
//
// Ошибки:
//   - apierrors.ErrNoRefreshToken - токена нет, сессия не меняется;
//   - apierrors.ErrRefreshFailed - обмен не удался, сессия сброшена;
//   - apierrors.ErrStaleSession - за время обмена сессия сменилась, результат отброшен.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	const op = "session.Refresh"

	lg := log.FromOr(ctx, m.log)

	// Отменённый вызывающий не тратит refresh-токен и не сбрасывает сессию.
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	gen := m.generation()

	rt, err := m.store.Load(ctx)
	if err != nil {
		m.metrics.ObserveRefresh(metrics.RefreshNoToken)
		if errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", op, apierrors.ErrNoRefreshToken)
		}

		lg.Warn("session_store_load_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("%s: %w: %w", op, apierrors.ErrNoRefreshToken, err)
	}

	resp, err := m.api.Refresh(ctx, rt)
	if err == nil && resp.Token == "" {
		err = ErrEmptyAccessToken
	}

	if err != nil {
		lg.Warn("session_refresh_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)

		if !m.purge(ctx, gen) {
			m.metrics.ObserveRefresh(metrics.RefreshStale)
			return "", fmt.Errorf("%s: %w", op, apierrors.ErrStaleSession)
		}

		m.metrics.ObserveRefresh(metrics.RefreshFailed)
		return "", fmt.Errorf("%s: %w: %w", op, apierrors.ErrRefreshFailed, err)
	}

	// Лениво: непрозрачный токен допустим, личность тогда не меняется.
	user, exp, _ := decodeAccess(resp.Token)

	if err := m.commitRefresh(ctx, gen, rt, resp, user, exp); err != nil {
		m.metrics.ObserveRefresh(metrics.RefreshStale)
		lg.Info("session_refresh_discarded", slog.String("op", op))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	m.metrics.ObserveRefresh(metrics.RefreshOK)
	lg.Debug("session_refreshed", slog.String("op", op))

	return resp.Token, nil
}

// Snapshot возвращает производное значение сессии для UI.
func (m *Manager) Snapshot() models.Session {
	m.mu.Lock()
	state, user, exp := m.state, m.user, m.expiresAt
	m.mu.Unlock()

	_, held := m.tokens.Get()

	s := models.Session{
		IsInitializing: m.IsInitializing(),
		IsAuthenticated: state == models.StateAuthenticated &&
			held &&
			(exp.IsZero() || m.now().Before(exp)),
	}

	if user != nil {
		u := *user
		s.User = &u
	}

	return s
}

// State - текущее состояние автомата.
func (m *Manager) State() models.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// commitRefresh фиксирует успешный обмен, если поколение не сменилось.
func (m *Manager) commitRefresh(
	ctx context.Context,
	gen uint64,
	presented string,
	resp *models.RefreshResponse,
	user *models.UserIdentity,
	exp time.Time,
) error {
	const op = "session.commitRefresh"

	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	if m.generation() != gen {
		return apierrors.ErrStaleSession
	}

	if resp.RefreshToken != "" && resp.RefreshToken != presented {
		sctx, cancel := detached(ctx)
		err := m.store.Save(sctx, resp.RefreshToken)
		cancel()
		if err != nil {
			log.FromOr(ctx, m.log).Error("session_store_save_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}
	}

	m.tokens.Set(resp.Token)

	if user == nil {
		m.mu.Lock()
		user = m.user
		m.mu.Unlock()
	}

	m.transition(ctx, models.StateAuthenticated, user, exp)

	return nil
}

// purge сбрасывает сессию после неудачного обмена. Возвращает false,
// если поколение уже сменилось и сбрасывать нечего.
func (m *Manager) purge(ctx context.Context, gen uint64) bool {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	if m.generation() != gen {
		return false
	}

	m.bump()
	m.clear(ctx, "session.purge")

	return true
}

// settle завершает инициализацию без сохранённого токена.
func (m *Manager) settle(ctx context.Context, gen uint64) {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	if m.generation() != gen {
		return
	}

	m.tokens.Clear()
	m.transition(ctx, models.StateUnauthenticated, nil, time.Time{})
}

// clear удаляет оба токена и личность. Вызывается под commitMu.
func (m *Manager) clear(ctx context.Context, op string) {
	sctx, cancel := detached(ctx)
	defer cancel()

	if err := m.store.Delete(sctx); err != nil {
		log.FromOr(ctx, m.log).Warn("session_store_delete_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
	}

	m.tokens.Clear()
	m.transition(ctx, models.StateUnauthenticated, nil, time.Time{})
}

func (m *Manager) transition(ctx context.Context, to models.SessionState, user *models.UserIdentity, exp time.Time) {
	m.mu.Lock()
	from := m.state
	m.state = to
	m.user = user
	m.expiresAt = exp
	m.mu.Unlock()

	if from == to {
		return
	}

	m.metrics.ObserveTransition(to.String())
	log.FromOr(ctx, m.log).Info("session_transition",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)
}

func (m *Manager) generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.gen
}

func (m *Manager) bump() {
	m.mu.Lock()
	m.gen++
	m.mu.Unlock()
}

// detached отвязывает локальную фиксацию от отмены и дедлайна вызывающего.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
}
