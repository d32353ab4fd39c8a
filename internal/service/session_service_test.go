package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ntkhang/classline/config"
	"github.com/ntkhang/classline/internal/apierr"
	"github.com/ntkhang/classline/internal/client"
	"github.com/ntkhang/classline/internal/dto"
	"github.com/ntkhang/classline/internal/store"
)

func testConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.API.BaseURL = baseURL
	cfg.API.Timeout = 2 * time.Second
	return cfg
}

type sessionFixture struct {
	svc      SessionService
	store    *store.MemoryStore
	cache    *client.TokenCache
	mux      *http.ServeMux
	server   *httptest.Server
	meCalls  atomic.Int32
	refCalls atomic.Int32
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		store: store.NewMemory(),
		cache: client.NewTokenCache(),
		mux:   http.NewServeMux(),
	}
	f.server = httptest.NewServer(f.mux)
	t.Cleanup(f.server.Close)

	api := client.New(testConfig(f.server.URL), f.cache)
	f.svc = NewSessionService(api, f.store, f.cache)
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func sampleUser() dto.UserDTO {
	return dto.UserDTO{ID: 7, Email: "a@b.com", Name: "Alice", Role: "student", IsActive: true}
}

func TestLoginPersistsTokenPairAndUser(t *testing.T) {
	f := newSessionFixture(t)
	f.mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req dto.LoginRequestDTO
		json.NewDecoder(r.Body).Decode(&req)
		if req.Email != "a@b.com" || req.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Message: "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, dto.AuthResponseDTO{Token: "acc-1", RefreshToken: "ref-1", User: sampleUser()})
	})

	usr, err := f.svc.Login(context.Background(), "a@b.com", "secret")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if usr.Email != "a@b.com" || usr.Name != "Alice" {
		t.Fatalf("unexpected user %+v", usr)
	}
	access, refresh, _ := f.store.Tokens()
	if access != "acc-1" || refresh != "ref-1" {
		t.Fatalf("expected persisted pair, got %q/%q", access, refresh)
	}
	if f.cache.AccessToken() != "acc-1" {
		t.Fatalf("expected cached access token, got %q", f.cache.AccessToken())
	}
	if !f.svc.IsAuthenticated() {
		t.Fatal("expected authenticated session")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newSessionFixture(t)
	f.mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Invalid credentials"))
	})

	_, err := f.svc.Login(context.Background(), "a@b.com", "wrong")
	var authErr *apierr.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Message != "Invalid credentials" {
		t.Fatalf("expected server body as message, got %q", authErr.Message)
	}
	if f.svc.IsAuthenticated() {
		t.Fatal("session must remain unauthenticated")
	}
	access, refresh, _ := f.store.Tokens()
	if access != "" || refresh != "" {
		t.Fatalf("no tokens should be written, got %q/%q", access, refresh)
	}
}

func TestRegisterConflict(t *testing.T) {
	f := newSessionFixture(t)
	f.mux.HandleFunc("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Message: "Email already registered"})
	})

	_, err := f.svc.Register(context.Background(), "a@b.com", "secret", "Alice")
	if !apierr.IsConflict(err) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	f := newSessionFixture(t)
	f.mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dto.AuthResponseDTO{Token: "acc", RefreshToken: "ref", User: sampleUser()})
	})
	if _, err := f.svc.Login(context.Background(), "a@b.com", "secret"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	f.svc.Logout()

	access, refresh, _ := f.store.Tokens()
	if access != "" || refresh != "" {
		t.Fatalf("expected cleared store, got %q/%q", access, refresh)
	}
	if f.cache.AccessToken() != "" {
		t.Fatal("expected cleared token cache")
	}
	if f.svc.CurrentUser() != nil {
		t.Fatal("expected no current user")
	}
}

func TestRefreshWithoutStoredTokenMakesNoCall(t *testing.T) {
	f := newSessionFixture(t)
	f.mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refCalls.Add(1)
		writeJSON(w, http.StatusOK, dto.RefreshResponseDTO{Token: "x", RefreshToken: "y"})
	})

	if f.svc.RefreshAccessToken(context.Background()) {
		t.Fatal("expected refresh to report false with no stored token")
	}
	if n := f.refCalls.Load(); n != 0 {
		t.Fatalf("expected no network call, got %d", n)
	}
}

func TestRefreshFailureLeavesStateUntouched(t *testing.T) {
	f := newSessionFixture(t)
	f.store.SaveTokens("acc-old", "ref-old")
	f.cache.Set("acc-old")
	f.mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Message: "Invalid refresh token"})
	})

	if f.svc.RefreshAccessToken(context.Background()) {
		t.Fatal("expected refresh to fail")
	}
	access, refresh, _ := f.store.Tokens()
	if access != "acc-old" || refresh != "ref-old" {
		t.Fatalf("expected untouched pair, got %q/%q", access, refresh)
	}
	if f.cache.AccessToken() != "acc-old" {
		t.Fatal("cached token must be unchanged after a failed refresh")
	}
}

func TestConcurrentRefreshesCollapseToOneExchange(t *testing.T) {
	f := newSessionFixture(t)
	f.store.SaveTokens("acc-old", "ref-old")
	f.mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refCalls.Add(1)
		time.Sleep(100 * time.Millisecond) // hold callers in flight
		writeJSON(w, http.StatusOK, dto.RefreshResponseDTO{Token: "acc-new", RefreshToken: "ref-new"})
	})

	const callers = 5
	var wg sync.WaitGroup
	results := make([]bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.svc.RefreshAccessToken(context.Background())
		}(i)
	}
	wg.Wait()

	if n := f.refCalls.Load(); n != 1 {
		t.Fatalf("expected exactly one refresh exchange, got %d", n)
	}
	for i, ok := range results {
		if !ok {
			t.Fatalf("caller %d did not share the successful exchange", i)
		}
	}
	access, refresh, _ := f.store.Tokens()
	if access != "acc-new" || refresh != "ref-new" {
		t.Fatalf("expected rotated pair, got %q/%q", access, refresh)
	}
}

// Startup with an expired access token and a valid refresh token: the 401
// triggers one refresh, the who-am-I call is retried once, and the session
// ends up authenticated with the rotated pair persisted.
func TestBootstrapRecoversExpiredAccessToken(t *testing.T) {
	f := newSessionFixture(t)
	f.store.SaveTokens("acc-expired", "ref-valid")

	f.mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		f.meCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer acc-fresh" {
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Message: "Invalid or expired token"})
			return
		}
		writeJSON(w, http.StatusOK, sampleUser())
	})
	f.mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refCalls.Add(1)
		var req dto.RefreshRequestDTO
		json.NewDecoder(r.Body).Decode(&req)
		if req.RefreshToken != "ref-valid" {
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Message: "Invalid refresh token"})
			return
		}
		writeJSON(w, http.StatusOK, dto.RefreshResponseDTO{Token: "acc-fresh", RefreshToken: "ref-rotated"})
	})

	if err := f.svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap returned error: %v", err)
	}
	if !f.svc.IsAuthenticated() {
		t.Fatal("expected authenticated session after recovery")
	}
	if usr := f.svc.CurrentUser(); usr.Email != "a@b.com" {
		t.Fatalf("unexpected user %+v", usr)
	}
	if n := f.refCalls.Load(); n != 1 {
		t.Fatalf("expected one refresh, got %d", n)
	}
	if n := f.meCalls.Load(); n != 2 {
		t.Fatalf("expected the who-am-I call to be retried exactly once, got %d calls", n)
	}
	access, refresh, _ := f.store.Tokens()
	if access != "acc-fresh" || refresh != "ref-rotated" {
		t.Fatalf("expected refreshed pair persisted, got %q/%q", access, refresh)
	}
}

func TestRefreshUserForcesLogoutWhenRefreshFails(t *testing.T) {
	f := newSessionFixture(t)
	f.store.SaveTokens("acc-expired", "ref-dead")
	f.cache.Set("acc-expired")

	f.mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		f.meCalls.Add(1)
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Message: "Invalid or expired token"})
	})
	f.mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refCalls.Add(1)
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Message: "Invalid refresh token"})
	})

	err := f.svc.RefreshUser(context.Background())
	if !apierr.IsAuth(err) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if n := f.meCalls.Load(); n != 1 {
		t.Fatalf("expected no retry after a failed refresh, got %d calls", n)
	}
	if n := f.refCalls.Load(); n != 1 {
		t.Fatalf("expected exactly one refresh attempt, got %d", n)
	}
	access, refresh, _ := f.store.Tokens()
	if access != "" || refresh != "" {
		t.Fatalf("expected forced logout to clear tokens, got %q/%q", access, refresh)
	}
	if f.svc.IsAuthenticated() {
		t.Fatal("expected unauthenticated session")
	}
}

// Bootstrap treats an expired session as a clean logged-out start, not a
// fault, while a network failure still propagates and keeps the tokens.
func TestBootstrapOutcomes(t *testing.T) {
	t.Run("expired session", func(t *testing.T) {
		f := newSessionFixture(t)
		f.store.SaveTokens("acc-dead", "ref-dead")
		f.mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Message: "Invalid or expired token"})
		})
		f.mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Message: "Invalid refresh token"})
		})

		if err := f.svc.Bootstrap(context.Background()); err != nil {
			t.Fatalf("expired session should not be an error, got %v", err)
		}
		if f.svc.IsAuthenticated() {
			t.Fatal("expected logged-out start")
		}
	})

	t.Run("no stored tokens", func(t *testing.T) {
		f := newSessionFixture(t)
		f.mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
			f.meCalls.Add(1)
		})
		if err := f.svc.Bootstrap(context.Background()); err != nil {
			t.Fatalf("Bootstrap returned error: %v", err)
		}
		if n := f.meCalls.Load(); n != 0 {
			t.Fatalf("expected no validation call without tokens, got %d", n)
		}
	})

	t.Run("server unreachable", func(t *testing.T) {
		f := newSessionFixture(t)
		f.store.SaveTokens("acc", "ref")
		f.server.Close()

		err := f.svc.Bootstrap(context.Background())
		if !apierr.IsNetwork(err) {
			t.Fatalf("expected NetworkError, got %v", err)
		}
		access, refresh, _ := f.store.Tokens()
		if access != "acc" || refresh != "ref" {
			t.Fatalf("network failure must not clear tokens, got %q/%q", access, refresh)
		}
	})
}

func TestLogoutDuringRefreshIsNotResurrected(t *testing.T) {
	f := newSessionFixture(t)
	f.store.SaveTokens("acc-old", "ref-old")
	release := make(chan struct{})
	f.mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeJSON(w, http.StatusOK, dto.RefreshResponseDTO{Token: "acc-new", RefreshToken: "ref-new"})
	})

	done := make(chan bool, 1)
	go func() {
		done <- f.svc.RefreshAccessToken(context.Background())
	}()
	time.Sleep(50 * time.Millisecond) // let the exchange get in flight
	f.svc.Logout()
	close(release)

	if ok := <-done; ok {
		t.Fatal("refresh racing a logout must not report success")
	}
	access, refresh, _ := f.store.Tokens()
	if access != "" || refresh != "" {
		t.Fatalf("logout must win the race, got %q/%q", access, refresh)
	}
}
