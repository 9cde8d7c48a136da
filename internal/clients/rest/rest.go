// rest - общий JSON-помощник для вызовов удалённого REST API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apierrors "github.com/cornenkiV/web-ads/internal/errors"
)

// maxBody - верхняя граница тела успешного ответа.
const maxBody = 4 << 20

// Do выполняет запрос method url с JSON-телом in (если не nil) и декодирует
// успешный ответ в out (если не nil). Ответ не 2xx превращается в
// *apierrors.APIError с сообщением сервера.
func Do(ctx context.Context, c *http.Client, method, url string, in, out any) error {
	const op = "rest.Do"

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apierrors.FromResponse(resp)
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}

	return nil
}
