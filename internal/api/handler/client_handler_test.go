package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
)

type stubClientService struct {
	registerFn func(ctx context.Context, email, password string) (*domain.Client, error)
	loginFn    func(ctx context.Context, email, password string) (string, *domain.Client, error)
}

func (s *stubClientService) Register(ctx context.Context, email, password string) (*domain.Client, error) {
	return s.registerFn(ctx, email, password)
}

func (s *stubClientService) Login(ctx context.Context, email, password string) (string, *domain.Client, error) {
	return s.loginFn(ctx, email, password)
}

func newJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestClientHandler_Register_Success(t *testing.T) {
	stub := &stubClientService{
		registerFn: func(ctx context.Context, email, password string) (*domain.Client, error) {
			if email != "alice@example.com" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return &domain.Client{ID: 7, Email: email, Role: domain.RoleClient}, nil
		},
	}
	handler := NewClientHandler(stub)

	c, rec := newJSONContext(http.MethodPost, "/auth/register", `{"email":"alice@example.com","password":"secret"}`)
	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	client, ok := resp["client"].(map[string]any)
	if !ok {
		t.Fatalf("expected client in response")
	}
	if client["client_id"] != float64(7) || client["role"] != domain.RoleClient {
		t.Fatalf("unexpected client payload: %+v", client)
	}
	if _, hasWarning := resp["warning"]; hasWarning {
		t.Fatalf("unexpected warning: %+v", resp)
	}
}

func TestClientHandler_Register_PersistenceWarning(t *testing.T) {
	stub := &stubClientService{
		registerFn: func(ctx context.Context, email, password string) (*domain.Client, error) {
			return &domain.Client{ID: 1, Email: email, Role: domain.RoleClient},
				fmt.Errorf("%w: disk full", domain.ErrPersistence)
		},
	}
	handler := NewClientHandler(stub)

	c, rec := newJSONContext(http.MethodPost, "/auth/register", `{"email":"bob@example.com","password":"secret"}`)
	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"warning"`) {
		t.Fatalf("expected warning in body, got %s", rec.Body.String())
	}
}

func TestClientHandler_Register_ClientExists(t *testing.T) {
	stub := &stubClientService{
		registerFn: func(ctx context.Context, email, password string) (*domain.Client, error) {
			return nil, domain.ErrClientExists
		},
	}
	handler := NewClientHandler(stub)

	c, _ := newJSONContext(http.MethodPost, "/auth/register", `{"email":"bob@example.com","password":"secret"}`)
	if err := handler.Register(c); !errors.Is(err, domain.ErrClientExists) {
		t.Fatalf("expected ErrClientExists, got %v", err)
	}
}

func TestClientHandler_Register_InvalidPayload(t *testing.T) {
	stub := &stubClientService{
		registerFn: func(ctx context.Context, email, password string) (*domain.Client, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewClientHandler(stub)

	c, rec := newJSONContext(http.MethodPost, "/auth/register", "not-json")
	_ = handler.Register(c)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	c, _ = newJSONContext(http.MethodPost, "/auth/register", `{"email":"not-an-email","password":"abc"}`)
	if code := httpCode(t, handler.Register(c)); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
}

func TestClientHandler_Login_Success(t *testing.T) {
	stub := &stubClientService{
		loginFn: func(ctx context.Context, email, password string) (string, *domain.Client, error) {
			if email != "alice@example.com" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return "token123", &domain.Client{ID: 1, Email: email, Role: domain.RoleAdmin}, nil
		},
	}
	handler := NewClientHandler(stub)

	c, rec := newJSONContext(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"secret"}`)
	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "token123" {
		t.Fatalf("unexpected token: %v", resp["token"])
	}
}

func TestClientHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubClientService{
		loginFn: func(ctx context.Context, email, password string) (string, *domain.Client, error) {
			return "", nil, domain.ErrInvalidCredentials
		},
	}
	handler := NewClientHandler(stub)

	c, _ := newJSONContext(http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"bad"}`)
	if err := handler.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
