// adsapi - клиент эндпоинтов /ads удалённого API.
package adsapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cornenkiV/web-ads/internal/clients/rest"
	"github.com/cornenkiV/web-ads/internal/models"
)

type Client struct {
	http    *http.Client
	baseURL string
}

func New(c *http.Client, baseURL string) *Client {
	return &Client{http: c, baseURL: strings.TrimRight(baseURL, "/")}
}

// List - GET /ads с фильтром.
func (c *Client) List(ctx context.Context, f models.AdFilter) (*models.Page[models.Ad], error) {
	const op = "adsapi.List"

	u := c.baseURL + "/ads"
	if q := f.Values().Encode(); q != "" {
		u += "?" + q
	}

	var out models.Page[models.Ad]
	if err := rest.Do(ctx, c.http, http.MethodGet, u, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (c *Client) Get(ctx context.Context, id int64) (*models.Ad, error) {
	const op = "adsapi.Get"

	var out models.Ad
	if err := rest.Do(ctx, c.http, http.MethodGet, c.adURL(id), nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (c *Client) Create(ctx context.Context, form models.AdForm) (*models.Ad, error) {
	const op = "adsapi.Create"

	var out models.Ad
	if err := rest.Do(ctx, c.http, http.MethodPost, c.baseURL+"/ads", form, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (c *Client) Update(ctx context.Context, id int64, form models.AdForm) (*models.Ad, error) {
	const op = "adsapi.Update"

	var out models.Ad
	if err := rest.Do(ctx, c.http, http.MethodPut, c.adURL(id), form, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	const op = "adsapi.Delete"

	if err := rest.Do(ctx, c.http, http.MethodDelete, c.adURL(id), nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *Client) adURL(id int64) string {
	return c.baseURL + "/ads/" + strconv.FormatInt(id, 10)
}
