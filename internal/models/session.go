package models

// SessionState - состояние конечного автомата сессии.
type SessionState int

const (
	StateInitializing SessionState = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s SessionState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// UserIdentity - личность пользователя, декодированная из subject access-токена.
// Только для отображения: на клиенте не используется для авторизации.
type UserIdentity struct {
	Username string `json:"username"`
}

// Session - производное значение, которое видит UI.
// Токены сюда не попадают.
type Session struct {
	IsAuthenticated bool          `json:"isAuthenticated"`
	IsInitializing  bool          `json:"isInitializing"`
	User            *UserIdentity `json:"user"`
}
