// transport предоставляет набор http.RoundTripper-декораторов исходящего
// конвейера запросов к удалённому API.
//
// Каждый декоратор работает с копией запроса и не меняет запрос вызывающего.
package transport

import "net/http"

type CtxKey string

// CtxRequestID - ключ контекста с request id входящего запроса гейтвея.
const CtxRequestID CtxKey = "request_id"

// Middleware - декоратор http.RoundTripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc - адаптер функции к http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

// Chain оборачивает base мидлварами: первый в списке - самый внешний.
// nil base заменяется на http.DefaultTransport.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}

	return base
}
