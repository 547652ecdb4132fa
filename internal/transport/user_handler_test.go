package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"feira-smart/internal/domain"
	"feira-smart/internal/middleware"
	"feira-smart/internal/repository"
	"feira-smart/internal/service"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

// Mock repositories for testing
type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{
		tokens: make(map[string]*domain.RefreshToken),
	}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func newTestUserHandler() (*UserHandler, service.UserService) {
	userService := service.NewUserService(newMockUserRepository(), newMockRefreshTokenRepository(), "test-secret")
	return NewUserHandler(userService, zap.NewNop()), userService
}

func postJSON(path string, v interface{}) *http.Request {
	body, _ := json.Marshal(v)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestProperty_InvalidRegistrationDataIsRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("registration with invalid data returns validation errors", prop.ForAll(
		func(invalidCase int) bool {
			handler, _ := newTestUserHandler()

			var reqBody RegisterRequest
			switch invalidCase % 5 {
			case 0:
				reqBody = RegisterRequest{Email: "", Password: "ValidPass123", Name: "Joana"}
			case 1:
				reqBody = RegisterRequest{Email: "not-an-email", Password: "ValidPass123", Name: "Joana"}
			case 2:
				reqBody = RegisterRequest{Email: "joana@feira.com", Password: "short", Name: "Joana"}
			case 3:
				reqBody = RegisterRequest{Email: "joana@feira.com", Password: "ValidPass123"}
			case 4:
				reqBody = RegisterRequest{Email: "joana@feira.com", Password: "ValidPass123", Name: "Joana", Role: "admin"}
			}

			w := httptest.NewRecorder()
			handler.Register(w, postJSON("/api/users/register", reqBody))

			if w.Code != http.StatusBadRequest {
				t.Logf("FAIL: Expected 400 status code, got %d", w.Code)
				return false
			}

			var response map[string]interface{}
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Logf("FAIL: Could not decode error response: %v", err)
				return false
			}

			_, exists := response["error"]
			return exists
		},
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_SuccessfulRegistrationReturnsProfileData(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("successful registration returns the profile with its role", prop.ForAll(
		func(email string, password string, name string, role string) bool {
			handler, _ := newTestUserHandler()

			w := httptest.NewRecorder()
			handler.Register(w, postJSON("/api/users/register", RegisterRequest{
				Email:    email,
				Password: password,
				Name:     name,
				Role:     role,
			}))

			if w.Code != http.StatusCreated {
				t.Logf("FAIL: Expected 201 status code, got %d", w.Code)
				return false
			}

			var profile UserProfile
			if err := json.NewDecoder(w.Body).Decode(&profile); err != nil {
				t.Logf("FAIL: Could not decode response: %v", err)
				return false
			}

			wantRole := role
			if wantRole == "" {
				wantRole = string(domain.RoleCustomer)
			}

			if _, err := uuid.Parse(profile.ID); err != nil {
				t.Logf("FAIL: Profile ID is not a valid UUID: %v", err)
				return false
			}

			return profile.Email == email && profile.Name == name && profile.Role == wantRole
		},
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
		gen.OneConstOf("", "cliente", "feirante"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	handler, _ := newTestUserHandler()
	reqBody := RegisterRequest{Email: "joana@feira.com", Password: "ValidPass123", Name: "Joana"}

	w := httptest.NewRecorder()
	handler.Register(w, postJSON("/api/users/register", reqBody))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.Register(w, postJSON("/api/users/register", reqBody))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestProperty_ValidLoginReturnsBothTokens(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("valid login returns access token and refresh token", prop.ForAll(
		func(email string, password string, name string) bool {
			handler, userService := newTestUserHandler()

			_, err := userService.Register(context.Background(), service.RegisterInput{
				Email:    email,
				Password: password,
				Name:     name,
				Role:     domain.RoleVendor,
			})
			if err != nil {
				t.Logf("FAIL: registration failed: %v", err)
				return false
			}

			w := httptest.NewRecorder()
			handler.Login(w, postJSON("/api/users/login", LoginRequest{Email: email, Password: password}))

			if w.Code != http.StatusOK {
				t.Logf("FAIL: Expected 200 status code, got %d", w.Code)
				return false
			}

			var loginResp LoginResponse
			if err := json.NewDecoder(w.Body).Decode(&loginResp); err != nil {
				t.Logf("FAIL: Could not decode login response: %v", err)
				return false
			}

			if loginResp.AccessToken == "" || loginResp.RefreshToken == "" {
				t.Logf("FAIL: missing tokens")
				return false
			}

			claims, err := userService.ValidateToken(loginResp.AccessToken)
			if err != nil {
				t.Logf("FAIL: Access token validation failed: %v", err)
				return false
			}

			if claims.UserID.String() != loginResp.User.ID || claims.Role != domain.RoleVendor {
				t.Logf("FAIL: Token claims don't match profile")
				return false
			}

			newAccessToken, err := userService.RefreshToken(context.Background(), loginResp.RefreshToken)
			return err == nil && newAccessToken != ""
		},
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestLogin_WrongPasswordIsUnauthorized(t *testing.T) {
	handler, userService := newTestUserHandler()
	_, err := userService.Register(context.Background(), service.RegisterInput{
		Email:    "joana@feira.com",
		Password: "ValidPass123",
		Name:     "Joana",
	})
	if err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	handler.Login(w, postJSON("/api/users/login", LoginRequest{Email: "joana@feira.com", Password: "WrongPass123"}))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestGetProfile_UsesCaller(t *testing.T) {
	handler, userService := newTestUserHandler()
	user, err := userService.Register(context.Background(), service.RegisterInput{
		Email:    "joana@feira.com",
		Password: "ValidPass123",
		Name:     "Joana",
		Role:     domain.RoleVendor,
	})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users/profile", nil)
	req = req.WithContext(middleware.WithCaller(req.Context(), domain.Caller{UserID: user.ID, Role: user.Role}))
	w := httptest.NewRecorder()
	handler.GetProfile(w, req)

	var profile UserProfile
	if err := json.NewDecoder(w.Body).Decode(&profile); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusOK || profile.ID != user.ID.String() || profile.Role != "feirante" {
		t.Fatalf("unexpected profile %d %+v", w.Code, profile)
	}
}
