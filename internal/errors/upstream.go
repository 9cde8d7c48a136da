package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrUnauthenticated - сессия не аутентифицирована (нет access-токена
	// или он истёк). Гейтвей: 401/unauthenticated.
	ErrUnauthenticated = stderrors.New("unauthenticated")

	// ErrNoRefreshToken - в долговременном хранилище нет refresh-токена.
	// Конвейер в этом случае отдаёт вызывающему исходный ответ 403 без изменений.
	ErrNoRefreshToken = stderrors.New("no refresh token")

	// ErrRefreshFailed - обмен refresh-токена на новый access-токен не удался
	// (сеть, отказ сервера, истёкший/отозванный токен). Гейтвей: 401/session_expired.
	ErrRefreshFailed = stderrors.New("refresh failed")

	// ErrStaleSession - обмен завершился после logout/login; результат отброшен.
	// Гейтвей: 401/session_expired.
	ErrStaleSession = stderrors.New("stale session")

	// ErrInvalidArgument - некорректный запрос UI к гейтвею (тело, query, id).
	ErrInvalidArgument = stderrors.New("invalid argument")
)

// maxErrorBody - сколько байт тела ответа читаем для извлечения сообщения.
const maxErrorBody = 64 << 10

// APIError - неуспешный (не 2xx) ответ удалённого API.
// Message - сообщение сервера (если удалось извлечь), пригодное для показа
// пользователю; для 5xx не отдаётся наружу.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}

	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// FromResponse строит *APIError по ответу. Тело читается (не более maxErrorBody)
// и закрывается. Сообщение берётся из JSON-поля message/error, иначе - из текста.
func FromResponse(resp *http.Response) error {
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	_, code, _ := baseFromStatus(resp.StatusCode)
	return &APIError{
		Status:    resp.StatusCode,
		Code:      code,
		Message:   extractMessage(body),
		RequestID: resp.Header.Get("X-Request-Id"),
	}
}

// extractMessage - JSON {"message": ...} | {"error": "..."} | {"error": {"message": ...}} | text/plain.
func extractMessage(body []byte) string {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return ""
	}

	var env struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Message != "" {
			return env.Message
		}

		var str string
		if json.Unmarshal(env.Error, &str) == nil && str != "" {
			return str
		}

		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(env.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}

		return ""
	}

	return s
}

// StatusOf возвращает HTTP-статус апстрима, если err содержит *APIError, иначе 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Status
	}

	return 0
}

// IsForbidden - апстрим ответил 403 (в том числе после неудачного повтора).
func IsForbidden(err error) bool { return StatusOf(err) == http.StatusForbidden }

// IsRateLimited - апстрим ответил 429. Ядро такие запросы не повторяет.
func IsRateLimited(err error) bool { return StatusOf(err) == http.StatusTooManyRequests }
