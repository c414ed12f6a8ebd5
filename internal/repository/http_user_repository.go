package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"job_portal/internal/domain/models"
	"job_portal/internal/storage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxErrorBody = 4 << 10

var tracer = otel.Tracer("job_portal/internal/repository")

// HTTPUserRepo talks to the backend API that owns user accounts.
type HTTPUserRepo struct {
	baseURL string
	client  *http.Client
}

func NewHTTPUserRepository(baseURL string, timeout time.Duration) *HTTPUserRepo {
	return &HTTPUserRepo{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (r *HTTPUserRepo) VerifyCredentials(ctx context.Context, email, password string) (models.Account, error) {
	const op = "repository.HTTPUserRepo.VerifyCredentials"

	account, status, msg, err := r.do(ctx, "userstore.VerifyCredentials", http.MethodPost, "/api/auth/verify",
		credentialsRequest{Email: email, Password: password})
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	switch {
	case status == http.StatusOK:
		return account, nil
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusNotFound:
		return models.Account{}, fmt.Errorf("%s: %w", op, storage.Reject(storage.ErrInvalidCredentials, msg))
	case status < http.StatusInternalServerError:
		return models.Account{}, fmt.Errorf("%s: %w", op, storage.Reject(storage.ErrRejected, msg))
	}

	return models.Account{}, fmt.Errorf("%s: user store responded %d: %s", op, status, msg)
}

func (r *HTTPUserRepo) UserByID(ctx context.Context, id string) (models.Account, error) {
	const op = "repository.HTTPUserRepo.UserByID"

	account, status, msg, err := r.do(ctx, "userstore.UserByID", http.MethodGet, "/api/users/"+url.PathEscape(id), nil)
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	switch {
	case status == http.StatusOK:
		return account, nil
	case status == http.StatusNotFound, status == http.StatusForbidden, status == http.StatusGone:
		return models.Account{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	case status < http.StatusInternalServerError:
		return models.Account{}, fmt.Errorf("%s: %w", op, storage.Reject(storage.ErrRejected, msg))
	}

	return models.Account{}, fmt.Errorf("%s: user store responded %d: %s", op, status, msg)
}

func (r *HTTPUserRepo) CreateUser(ctx context.Context, email, password string) (models.Account, error) {
	const op = "repository.HTTPUserRepo.CreateUser"

	account, status, msg, err := r.do(ctx, "userstore.CreateUser", http.MethodPost, "/api/users",
		credentialsRequest{Email: email, Password: password})
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	switch {
	case status == http.StatusOK, status == http.StatusCreated:
		return account, nil
	case status == http.StatusConflict:
		return models.Account{}, fmt.Errorf("%s: %w", op, storage.Reject(storage.ErrUserExists, msg))
	case status < http.StatusInternalServerError:
		return models.Account{}, fmt.Errorf("%s: %w", op, storage.Reject(storage.ErrRejected, msg))
	}

	return models.Account{}, fmt.Errorf("%s: user store responded %d: %s", op, status, msg)
}

// do performs one JSON round trip. The account is decoded only for 2xx
// responses; otherwise the store's error message is returned.
func (r *HTTPUserRepo) do(ctx context.Context, spanName, method, path string, payload any) (models.Account, int, string, error) {
	ctx, span := tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	fail := func(err error) (models.Account, int, string, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return models.Account{}, 0, "", err
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fail(err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return fail(err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var account models.Account
		if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
			return fail(fmt.Errorf("decode account: %w", err))
		}
		if account.ID == "" {
			return fail(errors.New("user store returned an account without id"))
		}

		return account, resp.StatusCode, "", nil
	}

	msg := readErrorMessage(resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, msg)
	}

	return models.Account{}, resp.StatusCode, msg, nil
}

func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return ""
	}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}

	return strings.TrimSpace(string(raw))
}
