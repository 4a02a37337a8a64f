package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"kos_chat/internal/domain"
	"kos_chat/internal/metrics"
	apperrors "kos_chat/pkg/errors"
	"kos_chat/pkg/logger"
)

// ErrNoContent - бэкенд ответил 204
var ErrNoContent = errors.New("no content")

// apiClient - общий HTTP-клиент к REST API маркетплейса
type apiClient struct {
	baseURL    string
	httpClient *http.Client
	log        logger.Logger
}

func newAPIClient(baseURL string, timeout time.Duration, log logger.Logger) *apiClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &apiClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// do выполняет запрос с учетными данными из sess. endpoint - шаблон пути для метрик.
// Ответ вне 2xx возвращается как *errors.BackendError, 204 - как ErrNoContent.
func (c *apiClient) do(ctx context.Context, sess domain.Session, method, path, endpoint string, payload interface{}) ([]byte, error) {
	if err := CheckSession(sess); err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Authorization", sess.BearerHeader())
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	metrics.BackendRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(method, endpoint, "error").Inc()
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	metrics.BackendRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("Backend request failed", "method", method, "endpoint", endpoint, "status", resp.StatusCode)
		return nil, &apperrors.BackendError{Status: resp.StatusCode, Body: string(respBody)}
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, ErrNoContent
	}

	return respBody, nil
}

func decode(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
