package testutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/authclient/internal/models"
)

// Backend paths, relative to server URL
const (
	PathLogin          = "/api/v1/auth/login"
	PathRegister       = "/api/v1/auth/register"
	PathIsAvailable    = "/api/v1/auth/is-available"
	PathRecovery       = "/api/v1/auth/recovery"
	PathChangePassword = "/api/v1/auth/change-password"
	PathProfile        = "/api/v1/auth/profile"
	PathRefreshToken   = "/api/v1/auth/refresh-token"
	PathUsers          = "/api/v1/users"
)

type backendUser struct {
	models.User
	password string
}

// Backend is a fake auth API.
// It issues HS256 tokens and checks them the way real backend does, so client code can be tested end to end
type Backend struct {
	*httptest.Server

	// Token lifetimes used for new tokens
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Login and refresh answer without refresh_token
	OmitRefreshToken bool
	// Login and refresh answer without access_token
	OmitAccessToken bool

	secret []byte

	mu        sync.Mutex
	nextID    int
	users     map[string]*backendUser
	failures  map[string]int
	calls     map[string]int
	headers   map[string]http.Header
	bodies    map[string]json.RawMessage
	recovered map[string]string
}

// Start fake backend. It is stopped when test ends
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,

		secret:    []byte("backend-secret-" + uuid.NewString()),
		nextID:    1,
		users:     make(map[string]*backendUser),
		failures:  make(map[string]int),
		calls:     make(map[string]int),
		headers:   make(map[string]http.Header),
		bodies:    make(map[string]json.RawMessage),
		recovered: make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+PathLogin, b.login)
	mux.HandleFunc("POST "+PathRegister, b.register)
	mux.HandleFunc("POST "+PathIsAvailable, b.isAvailable)
	mux.HandleFunc("POST "+PathRecovery, b.recovery)
	mux.HandleFunc("POST "+PathChangePassword, b.changePassword)
	mux.HandleFunc("GET "+PathProfile, b.profile)
	mux.HandleFunc("POST "+PathRefreshToken, b.refreshToken)
	mux.HandleFunc("GET "+PathUsers, b.listUsers)

	b.Server = httptest.NewServer(b.track(mux))
	t.Cleanup(b.Close)

	return b
}

// AddUser registers user directly, bypassing API
func (b *Backend) AddUser(name string, email string, password string) models.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUser(name, email, password)
}

// Fail makes every following request to path answer with status
func (b *Backend) Fail(path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[path] = status
}

// Calls returns how many times path was requested
func (b *Backend) Calls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

// LastHeader returns headers of the last request to path
func (b *Backend) LastHeader(path string) http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.headers[path].Clone()
}

// LastBody returns body of the last request to path
func (b *Backend) LastBody(path string) json.RawMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[path]
}

// RecoveryToken returns reset token sent to email by recovery
func (b *Backend) RecoveryToken(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.recovered[email]
}

// IssueToken creates token signed by backend with custom expiry
func (b *Backend) IssueToken(userID int, expiresAt time.Time) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}).SignedString(b.secret)
	if err != nil {
		panic(fmt.Sprintf("fake backend can't sign token: %v", err))
	}
	return token
}

func (b *Backend) addUser(name string, email string, password string) models.User {
	now := time.Now().UTC().Truncate(time.Second)
	u := &backendUser{
		User: models.User{
			ID:        b.nextID,
			Email:     email,
			Name:      name,
			Avatar:    "https://i.imgur.com/" + uuid.NewString() + ".png",
			Role:      "customer",
			CreatedAt: now,
			UpdatedAt: now,
		},
		password: password,
	}
	b.nextID++
	b.users[email] = u
	return u.User
}

// Record call, then fail it if asked
func (b *Backend) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		b.mu.Lock()
		b.calls[r.URL.Path]++
		b.headers[r.URL.Path] = r.Header.Clone()
		b.bodies[r.URL.Path] = body
		status, fail := b.failures[r.URL.Path]
		b.mu.Unlock()

		if fail {
			writeJSON(w, status, map[string]any{"statusCode": status, "message": http.StatusText(status)})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (b *Backend) issuePair(userID int) map[string]string {
	pair := map[string]string{}
	if !b.OmitAccessToken {
		pair["access_token"] = b.IssueToken(userID, time.Now().Add(b.AccessTTL))
	}
	if !b.OmitRefreshToken {
		pair["refresh_token"] = b.IssueToken(userID, time.Now().Add(b.RefreshTTL))
	}
	return pair
}

// Verify token and return user it belongs to
func (b *Backend) userByToken(token string) (*backendUser, error) {
	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return b.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	id, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, errors.New("user not found")
}

func (b *Backend) bearerUser(r *http.Request) (*backendUser, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return nil, false
	}
	u, err := b.userByToken(token)
	return u, err == nil
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}

	b.mu.Lock()
	u, ok := b.users[req.Email]
	ok = ok && u.password == req.Password
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"statusCode": 401, "message": "Unauthorized"})
		return
	}

	writeJSON(w, http.StatusCreated, b.issuePair(u.ID))
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[req.Email]; exists {
		writeJSON(w, http.StatusConflict, map[string]any{"statusCode": 409, "message": "Email already registered"})
		return
	}

	writeJSON(w, http.StatusCreated, b.addUser(req.Name, req.Email, req.Password))
}

func (b *Backend) isAvailable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &req) {
		return
	}

	b.mu.Lock()
	_, exists := b.users[req.Email]
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]bool{"isAvailable": !exists})
}

func (b *Backend) recovery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &req) {
		return
	}

	b.mu.Lock()
	u, ok := b.users[req.Email]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"statusCode": 404, "message": "User not found"})
		return
	}

	token := b.IssueToken(u.ID, time.Now().Add(15*time.Minute))
	b.mu.Lock()
	b.recovered[req.Email] = token
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"recovery": true})
}

func (b *Backend) changePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if !decode(w, r, &req) {
		return
	}

	u, err := b.userByToken(req.Token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"statusCode": 401, "message": "Invalid token"})
		return
	}

	b.mu.Lock()
	u.password = req.NewPassword
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"email": u.Email, "changed": true})
}

func (b *Backend) profile(w http.ResponseWriter, r *http.Request) {
	u, ok := b.bearerUser(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"statusCode": 401, "message": "Unauthorized"})
		return
	}

	writeJSON(w, http.StatusOK, u.User)
}

func (b *Backend) refreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decode(w, r, &req) {
		return
	}

	u, err := b.userByToken(req.RefreshToken)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"statusCode": 401, "message": "Invalid refresh token"})
		return
	}

	writeJSON(w, http.StatusCreated, b.issuePair(u.ID))
}

func (b *Backend) listUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.bearerUser(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"statusCode": 401, "message": "Unauthorized"})
		return
	}

	b.mu.Lock()
	users := make([]models.User, 0, len(b.users))
	for _, u := range b.users {
		users = append(users, u.User)
	}
	b.mu.Unlock()
	slices.SortFunc(users, func(a, b models.User) int { return a.ID - b.ID })

	writeJSON(w, http.StatusOK, users)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"statusCode": 400, "message": err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
