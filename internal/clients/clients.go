package clients

import (
	"log/slog"
	"net/http"

	"github.com/cornenkiV/web-ads/internal/clients/adsapi"
	"github.com/cornenkiV/web-ads/internal/clients/authapi"
	"github.com/cornenkiV/web-ads/internal/clients/transport"
	"github.com/cornenkiV/web-ads/internal/config"
	"github.com/cornenkiV/web-ads/internal/metrics"
	"github.com/cornenkiV/web-ads/internal/token"
)

// Clients агрегирует клиенты удалённого API поверх общего конвейера.
type Clients struct {
	HTTP *http.Client
	Auth *authapi.Client
	Ads  *adsapi.Client

	auth *transport.Authenticator
	base *http.Transport
}

// New собирает конвейер запросов и клиенты API.
// Refresher подключается позже через SetRefresher: менеджер сессии сам
// зависит от Auth-клиента.
func New(cfg config.Config, tokens *token.Store, log *slog.Logger, m *metrics.Metrics) *Clients {
	base := http.DefaultTransport.(*http.Transport).Clone()

	auth := transport.NewAuthenticator(tokens, transport.AuthOptions{
		RefreshPath: cfg.API.RefreshPath,
		Coalesce:    cfg.Auth.CoalesceRefresh,
		Metrics:     m,
		Logger:      log,
	})

	// Цепочка: request-id -> user-agent -> auth -> logging -> throttle -> timeout.
	// Logging внутри auth, чтобы повтор после 403 был отдельной записью.
	rt := transport.Chain(base,
		transport.RequestID(),
		transport.UserAgent(cfg.API.UserAgent),
		auth.Middleware(),
		transport.Logging(log),
		transport.Throttle(transport.NewLimiter(cfg.API.RPS, cfg.API.Burst), m),
		transport.Timeout(cfg.Timeouts.Upstream),
	)

	hc := &http.Client{Transport: rt}

	return &Clients{
		HTTP: hc,
		Auth: authapi.New(hc, cfg.API.BaseURL, cfg.API.RefreshPath),
		Ads:  adsapi.New(hc, cfg.API.BaseURL),
		auth: auth,
		base: base,
	}
}

// SetRefresher подключает обновление токена к конвейеру.
func (c *Clients) SetRefresher(r transport.Refresher) {
	c.auth.SetRefresher(r)
}

// Close закрывает простаивающие соединения.
func (c *Clients) Close() {
	c.base.CloseIdleConnections()
}
