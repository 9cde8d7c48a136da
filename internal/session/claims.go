package session

import (
	"fmt"
	"time"

	"github.com/cornenkiV/web-ads/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// decodeAccess читает subject и срок из access-токена без проверки подписи.
// Результат годится только для отображения.
func decodeAccess(raw string) (*models.UserIdentity, time.Time, error) {
	const op = "session.decodeAccess"

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return nil, time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	if claims.Subject == "" {
		return nil, time.Time{}, fmt.Errorf("%s: %w", op, ErrNoSubject)
	}

	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}

	return &models.UserIdentity{Username: claims.Subject}, exp, nil
}
