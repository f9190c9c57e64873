package entitlementapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client — HTTP-клиент биллингового бэкенда с bearer-авторизацией.
type Client struct {
	baseURL     string
	bearerToken string
	httpClient  *http.Client

	statusTimeout   time.Duration
	teamSizeTimeout time.Duration
}

// NewClient создаёт клиента бэкенда. statusTimeout ограничивает запрос статуса,
// teamSizeTimeout — запрос размера команды.
func NewClient(baseURL, bearerToken string, statusTimeout, teamSizeTimeout time.Duration) *Client {
	return &Client{
		baseURL:         baseURL,
		bearerToken:     bearerToken,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		statusTimeout:   statusTimeout,
		teamSizeTimeout: teamSizeTimeout,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// classify переводит ошибку транспорта в ErrTimeout либо ErrBackend.
func classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrBackend, err)
}

// FetchStatus запрашивает состояние подписки арендатора.
// Запрос ограничен бюджетом statusTimeout и отменяем; по истечении бюджета
// возвращается ошибка, оборачивающая ErrTimeout, не-2xx и транспортные сбои
// оборачивают ErrBackend.
func (c *Client) FetchStatus(ctx context.Context, adminEmail string) (*StatusPayload, error) {
	const op = "entitlementapi.FetchStatus"

	ctx, cancel := context.WithTimeout(ctx, c.statusTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet,
		"/subscription/status?adminEmail="+url.QueryEscape(adminEmail), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: %w: unexpected status %s", op, ErrBackend, resp.Status)
	}

	var payload StatusPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrBackend, err)
	}
	return &payload, nil
}

// FetchTeamSize возвращает размер команды арендатора.
// Запрос ограничен бюджетом teamSizeTimeout; любой сбой деградирует
// в команду из одного участника и не считается ошибкой проверки.
func (c *Client) FetchTeamSize(ctx context.Context, teamID string) int {
	const fallbackTeamSize = 1
	if teamID == "" {
		return fallbackTeamSize
	}

	ctx, cancel := context.WithTimeout(ctx, c.teamSizeTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet,
		"/team/members?teamId="+url.QueryEscape(teamID), nil)
	if err != nil {
		return fallbackTeamSize
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fallbackTeamSize
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fallbackTeamSize
	}

	var members []TeamMember
	if err := json.NewDecoder(resp.Body).Decode(&members); err != nil || len(members) == 0 {
		return fallbackTeamSize
	}
	return len(members)
}

// Initialize регистрирует подписку арендатора в бэкенде.
// Вызывается в режиме fire-and-forget: вызывающая сторона логирует ошибку
// и никогда не показывает её пользователю.
func (c *Client) Initialize(ctx context.Context, reqBody InitializeRequest) error {
	const op = "entitlementapi.Initialize"

	req, err := c.newRequest(ctx, http.MethodPost, "/subscription/initialize", reqBody)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify(op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: %w: unexpected status %s", op, ErrBackend, resp.Status)
	}
	return nil
}

// SubmitPayment отправляет платёжный запрос в бэкенд.
// Не-2xx ответ с телом {message} возвращается как *BackendRejection.
func (c *Client) SubmitPayment(ctx context.Context, reqBody PaymentRequest) (*PaymentAck, error) {
	const op = "entitlementapi.SubmitPayment"

	req, err := c.newRequest(ctx, http.MethodPost, "/subscription/payment", reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rejection := &BackendRejection{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(rejection); err != nil || rejection.Message == "" {
			rejection.Message = "payment was declined"
		}
		return nil, rejection
	}

	var ack PaymentAck
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrBackend, err)
	}
	return &ack, nil
}
