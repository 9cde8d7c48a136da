// authapi - клиент эндпоинтов /auth удалённого API.
package authapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cornenkiV/web-ads/internal/clients/rest"
	"github.com/cornenkiV/web-ads/internal/models"
)

// Client ходит в /auth через конвейер запросов.
type Client struct {
	http        *http.Client
	baseURL     string
	refreshPath string
}

// New создаёт клиент; refreshPath - путь обмена токена относительно baseURL.
func New(c *http.Client, baseURL, refreshPath string) *Client {
	if refreshPath == "" {
		refreshPath = "/auth/refresh"
	}

	return &Client{
		http:        c,
		baseURL:     strings.TrimRight(baseURL, "/"),
		refreshPath: refreshPath,
	}
}

// Login - POST /auth/login. Неверные учётные данные сервер отдаёт как 403.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	const op = "authapi.Login"

	var out models.LoginResponse
	if err := rest.Do(ctx, c.http, http.MethodPost, c.baseURL+"/auth/login", req, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// Register - POST /auth/register.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	const op = "authapi.Register"

	var out models.User
	if err := rest.Do(ctx, c.http, http.MethodPost, c.baseURL+"/auth/register", req, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// Refresh - обмен refresh-токена на новый access-токен.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*models.RefreshResponse, error) {
	const op = "authapi.Refresh"

	var out models.RefreshResponse
	in := models.RefreshRequest{RefreshToken: refreshToken}
	if err := rest.Do(ctx, c.http, http.MethodPost, c.baseURL+c.refreshPath, in, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// Logout - POST /auth/logout с текущим bearer.
func (c *Client) Logout(ctx context.Context) error {
	const op = "authapi.Logout"

	if err := rest.Do(ctx, c.http, http.MethodPost, c.baseURL+"/auth/logout", nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
