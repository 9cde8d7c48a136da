// errors стандартизирует ошибки гейтвея в обе стороны:
//   - апстрим -> Go: FromResponse превращает не-2xx ответ удалённого API в *APIError;
//   - Go -> UI: ToHTTP/WriteError дают корректный HTTP-статус и краткое
//     безопасное сообщение без утечки деталей.
//
// Таксономия:
//   - 4xx апстрима пробрасываются с сообщением сервера (429 - rate_limited,
//     временная ошибка, которую UI показывает пользователю);
//   - 5xx апстрима -> 502;
//   - неудачный/устаревший обмен refresh-токена -> 401/session_expired;
//   - отмена клиентом -> 499, дедлайн -> 504, сетевая ошибка -> 502.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/http"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// ErrorBody - единый формат для фронта.
// Code - короткий стабильный код для машиночитаемой обработки на FE.
// Message - безопасное человекочитаемое описание.
// RequestID - прокидывается из X-Request-Id, если есть (для трассировки).
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse - корневой объект в ответе.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ToHTTP конвертирует ошибку в HTTP-статус и унифицированный ответ для фронта.
//
// Поведение:
//   - err == nil - программная ошибка вызова: 500/internal;
//   - ошибки обмена refresh-токена - 401/session_expired;
//   - *APIError 4xx - тот же статус и сообщение сервера;
//   - *APIError 5xx - 502/upstream_error без деталей;
//   - context.Canceled / DeadlineExceeded - 499 / 504;
//   - net.Error - 502/upstream_unavailable;
//   - прочее - 500/internal.
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := classify(err)
	return status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: msg,
		},
	}
}

func classify(err error) (int, string, string) {
	if err == nil {
		return http.StatusInternalServerError, "internal", "internal error"
	}

	switch {
	case stderrors.Is(err, ErrRefreshFailed), stderrors.Is(err, ErrStaleSession):
		return http.StatusUnauthorized, "session_expired", "session expired, please log in again"
	case stderrors.Is(err, ErrUnauthenticated), stderrors.Is(err, ErrNoRefreshToken):
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated"
	case stderrors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	}

	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		if apiErr.Status >= http.StatusInternalServerError {
			return http.StatusBadGateway, "upstream_error", "upstream error"
		}

		status, code, msg := baseFromStatus(apiErr.Status)
		if apiErr.Message != "" {
			msg = apiErr.Message
		}

		return status, code, msg
	}

	switch {
	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		if netErr.Timeout() {
			return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
		}

		return http.StatusBadGateway, "upstream_unavailable", "upstream unavailable"
	}

	return http.StatusInternalServerError, "internal", "internal error"
}

// WriteError - хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// baseFromStatus - маппинг статуса апстрима в статус/FE-код/сообщение:
//   - 400, 422 -> invalid_argument
//   - 401 -> unauthenticated
//   - 403 -> permission_denied (повтор после обновления тоже 403)
//   - 404 -> not_found
//   - 409 -> already_exists
//   - 429 -> rate_limited
//   - прочие 4xx -> bad_request
//   - 5xx -> upstream_error
func baseFromStatus(status int) (int, string, string) {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return status, "invalid_argument", "invalid argument"
	case http.StatusUnauthorized:
		return status, "unauthenticated", "unauthenticated"
	case http.StatusForbidden:
		return status, "permission_denied", "permission denied"
	case http.StatusNotFound:
		return status, "not_found", "not found"
	case http.StatusConflict:
		return status, "already_exists", "already exists"
	case http.StatusTooManyRequests:
		return status, "rate_limited", "too many requests, try again later"
	}

	if status >= http.StatusInternalServerError {
		return http.StatusBadGateway, "upstream_error", "upstream error"
	}

	return status, "bad_request", "bad request"
}
