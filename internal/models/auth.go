// Модели REST-контракта удалённого API (auth/ads) и производного
// значения сессии, которое гейтвей отдаёт UI.
package models

// LoginRequest - тело POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse - ответ /auth/login.
type LoginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType,omitempty"`
	Username     string `json:"username"`
}

// RegisterRequest - тело POST /auth/register.
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
}

// RefreshRequest - тело POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse - ответ /auth/refresh. RefreshToken может совпадать
// с предъявленным (сервер не всегда ротирует).
type RefreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType,omitempty"`
}

// User - запись пользователя, которую возвращает /auth/register.
type User struct {
	ID               int64  `json:"id"`
	Username         string `json:"username"`
	PhoneNumber      string `json:"phoneNumber"`
	RegistrationDate string `json:"registrationDate"`
}
