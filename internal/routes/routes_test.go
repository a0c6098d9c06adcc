package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidshare/api/internal/auth"
	"github.com/vidshare/api/internal/comments"
	"github.com/vidshare/api/internal/config"
	"github.com/vidshare/api/internal/middleware"
	"github.com/vidshare/api/internal/store"
)

const strongPassword = "Password1!"

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	logger := quietLogger()
	cfg := &config.Config{}
	cfg.Observability.MetricsPath = "/metrics"
	cfg.Store.Driver = config.StoreDriverMemory

	tokens, err := auth.NewTokenService("routes-test-secret", "vidshare-api")
	require.NoError(t, err)
	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	stores, err := store.New(t.Context(), cfg, logger)
	require.NoError(t, err)
	authenticator, err := auth.NewAuthenticator(stores.Users, hasher, tokens, logger)
	require.NoError(t, err)

	mw, err := middleware.NewManager(t.Context(), cfg, auth.NewAccessGate(tokens), nil, logger)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
	app.Use(requestid.New())
	Setup(app, Dependencies{
		Config:        cfg,
		Logger:        logger,
		Middleware:    mw,
		Stores:        stores,
		Authenticator: authenticator,
		Comments:      comments.NewService(stores.Comments, logger),
	})
	return app
}

type apiResponse struct {
	Status int
	Body   map[string]interface{}
}

func (r apiResponse) errorCode() string {
	e, _ := r.Body["error"].(map[string]interface{})
	code, _ := e["code"].(string)
	return code
}

func call(t *testing.T, app *fiber.App, method, path string, body interface{}, headers map[string]string) apiResponse {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := apiResponse{Status: resp.StatusCode}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.Body), string(raw))
	}
	return out
}

func register(t *testing.T, app *fiber.App, username, email string) {
	t.Helper()
	resp := call(t, app, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": strongPassword,
	}, nil)
	require.Equal(t, fiber.StatusCreated, resp.Status, resp.Body)
}

func login(t *testing.T, app *fiber.App, ident string) string {
	t.Helper()
	resp := call(t, app, http.MethodPost, "/api/auth/login", map[string]string{
		"emailOrUsername": ident,
		"password":        strongPassword,
	}, nil)
	require.Equal(t, fiber.StatusOK, resp.Status, resp.Body)
	token, _ := resp.Body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestRegister(t *testing.T) {
	app := newTestApp(t)

	resp := call(t, app, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": strongPassword,
	}, nil)
	assert.Equal(t, fiber.StatusCreated, resp.Status)
	assert.Equal(t, "User registered successfully", resp.Body["message"])
	assert.NotContains(t, resp.Body, "token")

	tests := []struct {
		name     string
		body     map[string]string
		wantCode string
	}{
		{
			name:     "duplicate username",
			body:     map[string]string{"username": "alice", "email": "other@example.com", "password": strongPassword},
			wantCode: "DUPLICATE_USER",
		},
		{
			name:     "duplicate email",
			body:     map[string]string{"username": "alice2", "email": "ALICE@example.com", "password": strongPassword},
			wantCode: "DUPLICATE_USER",
		},
		{
			name:     "weak password",
			body:     map[string]string{"username": "bob", "email": "bob@example.com", "password": "password"},
			wantCode: "VALIDATION_FAILED",
		},
		{
			name:     "missing email",
			body:     map[string]string{"username": "carol", "password": strongPassword},
			wantCode: "VALIDATION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := call(t, app, http.MethodPost, "/api/auth/register", tt.body, nil)
			assert.Equal(t, fiber.StatusBadRequest, resp.Status)
			assert.Equal(t, tt.wantCode, resp.errorCode())
		})
	}
}

func TestRegister_MalformedBody(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)
	register(t, app, "alice", "alice@example.com")

	resp := call(t, app, http.MethodPost, "/api/auth/login", map[string]string{
		"emailOrUsername": "alice@example.com",
		"password":        strongPassword,
	}, nil)
	require.Equal(t, fiber.StatusOK, resp.Status)
	assert.NotEmpty(t, resp.Body["token"])
	assert.Equal(t, "alice", resp.Body["username"])
	assert.NotEmpty(t, resp.Body["userId"])
	assert.NotContains(t, resp.Body, "password")
	assert.NotContains(t, resp.Body, "passwordHash")

	wrongPassword := call(t, app, http.MethodPost, "/api/auth/login", map[string]string{
		"emailOrUsername": "alice",
		"password":        "Wrong1234!",
	}, nil)
	unknownUser := call(t, app, http.MethodPost, "/api/auth/login", map[string]string{
		"emailOrUsername": "nobody",
		"password":        strongPassword,
	}, nil)

	assert.Equal(t, fiber.StatusBadRequest, wrongPassword.Status)
	assert.Equal(t, wrongPassword.Status, unknownUser.Status)
	assert.Equal(t, "INVALID_CREDENTIALS", wrongPassword.errorCode())

	// identical apart from the per-request trace id
	for _, r := range []apiResponse{wrongPassword, unknownUser} {
		delete(r.Body["error"].(map[string]interface{}), "trace_id")
	}
	assert.Equal(t, wrongPassword.Body, unknownUser.Body)
}

func TestComments_AccessGate(t *testing.T) {
	app := newTestApp(t)
	body := map[string]string{"text": "first!"}

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
		wantCode   string
	}{
		{"no token", nil, fiber.StatusUnauthorized, "UNAUTHENTICATED"},
		{"garbage token header", map[string]string{"token": "garbage"}, fiber.StatusForbidden, "INVALID_TOKEN"},
		{"garbage bearer", map[string]string{"Authorization": "Bearer garbage"}, fiber.StatusForbidden, "INVALID_TOKEN"},
		{"non-bearer scheme", map[string]string{"Authorization": "Basic Zm9vOmJhcg=="}, fiber.StatusForbidden, "INVALID_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := call(t, app, http.MethodPost, "/api/comments/video-1", body, tt.headers)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantCode, resp.errorCode())
		})
	}
}

func TestComments_Lifecycle(t *testing.T) {
	app := newTestApp(t)
	register(t, app, "alice", "alice@example.com")
	register(t, app, "bob", "bob@example.com")
	aliceToken := login(t, app, "alice")
	bobToken := login(t, app, "bob")

	// listing is public
	resp := call(t, app, http.MethodGet, "/api/comments/video-1", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.Status)
	assert.Equal(t, float64(0), resp.Body["count"])
	assert.Equal(t, []interface{}{}, resp.Body["comments"])

	resp = call(t, app, http.MethodPost, "/api/comments/video-1", map[string]string{"text": "  hello  "},
		map[string]string{"token": aliceToken})
	require.Equal(t, fiber.StatusCreated, resp.Status, resp.Body)
	assert.Equal(t, "hello", resp.Body["text"])
	assert.Equal(t, "alice", resp.Body["authorName"])
	assert.Equal(t, "video-1", resp.Body["videoId"])
	commentID, _ := resp.Body["id"].(string)
	require.NotEmpty(t, commentID)

	resp = call(t, app, http.MethodGet, "/api/comments/video-1", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.Status)
	assert.Equal(t, float64(1), resp.Body["count"])

	// bob may not touch alice's comment
	resp = call(t, app, http.MethodPut, "/api/comments/"+commentID, map[string]string{"text": "hijacked"},
		map[string]string{"Authorization": "Bearer " + bobToken})
	assert.Equal(t, fiber.StatusForbidden, resp.Status)
	assert.Equal(t, "FORBIDDEN", resp.errorCode())

	resp = call(t, app, http.MethodDelete, "/api/comments/"+commentID, nil,
		map[string]string{"token": bobToken})
	assert.Equal(t, fiber.StatusForbidden, resp.Status)

	resp = call(t, app, http.MethodPut, "/api/comments/"+commentID, map[string]string{"text": "edited"},
		map[string]string{"Authorization": "Bearer " + aliceToken})
	require.Equal(t, fiber.StatusOK, resp.Status, resp.Body)
	assert.Equal(t, "edited", resp.Body["text"])

	resp = call(t, app, http.MethodPut, "/api/comments/"+commentID, map[string]string{"text": ""},
		map[string]string{"token": aliceToken})
	assert.Equal(t, fiber.StatusBadRequest, resp.Status)
	assert.Equal(t, "VALIDATION_FAILED", resp.errorCode())

	resp = call(t, app, http.MethodDelete, "/api/comments/"+commentID, nil,
		map[string]string{"token": aliceToken})
	require.Equal(t, fiber.StatusOK, resp.Status)
	assert.Equal(t, "Comment deleted", resp.Body["message"])

	resp = call(t, app, http.MethodDelete, "/api/comments/"+commentID, nil,
		map[string]string{"token": aliceToken})
	assert.Equal(t, fiber.StatusNotFound, resp.Status)
	assert.Equal(t, "NOT_FOUND", resp.errorCode())
}

func TestComments_MissingBeforeForbidden(t *testing.T) {
	app := newTestApp(t)
	register(t, app, "alice", "alice@example.com")
	token := login(t, app, "alice")

	resp := call(t, app, http.MethodPut, "/api/comments/does-not-exist", map[string]string{"text": "x"},
		map[string]string{"token": token})
	assert.Equal(t, fiber.StatusNotFound, resp.Status)
	assert.Equal(t, "NOT_FOUND", resp.errorCode())
}

func TestComments_UpdateMalformedBodyReportsAccessFirst(t *testing.T) {
	app := newTestApp(t)
	register(t, app, "alice", "alice@example.com")
	register(t, app, "bob", "bob@example.com")
	aliceToken := login(t, app, "alice")
	bobToken := login(t, app, "bob")

	resp := call(t, app, http.MethodPost, "/api/comments/video-1", map[string]string{"text": "mine"},
		map[string]string{"token": aliceToken})
	require.Equal(t, fiber.StatusCreated, resp.Status)
	commentID, _ := resp.Body["id"].(string)

	tests := []struct {
		name       string
		id         string
		token      string
		wantStatus int
		wantCode   string
	}{
		{"missing comment", "does-not-exist", aliceToken, fiber.StatusNotFound, "NOT_FOUND"},
		{"not the author", commentID, bobToken, fiber.StatusForbidden, "FORBIDDEN"},
		{"author", commentID, aliceToken, fiber.StatusBadRequest, "BAD_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/comments/"+tt.id, bytes.NewBufferString("{not json"))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("token", tt.token)
			raw, err := app.Test(req, -1)
			require.NoError(t, err)
			defer raw.Body.Close()

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(raw.Body).Decode(&body))
			resp := apiResponse{Status: raw.StatusCode, Body: body}
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantCode, resp.errorCode())
		})
	}
}

func TestLogin_EmailShapedUsernameRejected(t *testing.T) {
	tests := []struct {
		name       string
		ownerFirst bool
	}{
		{"email owner registers first", true},
		{"squatter registers first", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			if tt.ownerFirst {
				register(t, app, "alice", "alice@example.com")
			}

			resp := call(t, app, http.MethodPost, "/api/auth/register", map[string]string{
				"username": "alice@example.com",
				"email":    "mallory@example.com",
				"password": strongPassword,
			}, nil)
			assert.Equal(t, fiber.StatusBadRequest, resp.Status)
			assert.Equal(t, "VALIDATION_FAILED", resp.errorCode())

			if !tt.ownerFirst {
				register(t, app, "alice", "alice@example.com")
			}

			resp = call(t, app, http.MethodPost, "/api/auth/login", map[string]string{
				"emailOrUsername": "alice@example.com",
				"password":        strongPassword,
			}, nil)
			require.Equal(t, fiber.StatusOK, resp.Status, resp.Body)
			assert.Equal(t, "alice", resp.Body["username"])
		})
	}
}

func TestSystemEndpoints(t *testing.T) {
	app := newTestApp(t)

	resp := call(t, app, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, fiber.StatusOK, resp.Status)
	assert.Equal(t, "healthy", resp.Body["status"])

	resp = call(t, app, http.MethodGet, "/readyz", nil, nil)
	assert.Equal(t, fiber.StatusOK, resp.Status)
	assert.Equal(t, "memory", resp.Body["store"])

	resp = call(t, app, http.MethodGet, "/version", nil, nil)
	assert.Equal(t, fiber.StatusOK, resp.Status)
	assert.Equal(t, serviceName, resp.Body["service"])

	resp = call(t, app, http.MethodGet, "/api/nope", nil, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.Status)
	assert.Equal(t, "NOT_FOUND", resp.errorCode())
}
