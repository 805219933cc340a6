package session

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/shared"
	tu "github.com/desertthunder/mediadesk/internal/testing"
)

func newTestStore(t *testing.T) (*Store, *MemoryStorage) {
	t.Helper()
	storage := NewMemoryStorage()
	return NewStore(storage, nil), storage
}

// flakyStorage fails the failOn-th Set and delegates everything else to a MemoryStorage.
type flakyStorage struct {
	*MemoryStorage
	mu     sync.Mutex
	sets   int
	failOn int
}

func (f *flakyStorage) Set(key, value string) error {
	f.mu.Lock()
	f.sets++
	fail := f.sets == f.failOn
	f.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return f.MemoryStorage.Set(key, value)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp), Subject: "user-1"}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return raw
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	res := models.LoginResult{
		User:         models.User{ID: "u1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		AccessToken:  "abc123",
		RefreshToken: "refresh-1",
	}
	if err := s.BeginSession(res); err != nil {
		t.Fatalf("BeginSession failed: %v", err)
	}
	if err := s.SetPermissions([]string{"users:read"}); err != nil {
		t.Fatalf("SetPermissions failed: %v", err)
	}
	if err := s.SetCountry(models.Country{ID: "ng", Name: "Nigeria"}); err != nil {
		t.Fatalf("SetCountry failed: %v", err)
	}
	if _, err := s.EnsureDeviceID(); err != nil {
		t.Fatalf("EnsureDeviceID failed: %v", err)
	}
}

func TestStore(t *testing.T) {
	t.Run("Tokens", func(t *testing.T) {
		t.Run("last write wins", func(t *testing.T) {
			s, _ := newTestStore(t)
			for _, tok := range []string{"a", "b", "c"} {
				if err := s.SetAccessToken(tok); err != nil {
					t.Fatalf("SetAccessToken(%q) failed: %v", tok, err)
				}
				if got := s.AccessToken(); got != tok {
					t.Errorf("expected %q, got %q", tok, got)
				}
			}
		})

		t.Run("empty value removes the key", func(t *testing.T) {
			s, storage := newTestStore(t)
			_ = s.SetAccessToken("abc123")
			_ = s.SetRefreshToken("r1")

			if err := s.SetAccessToken(""); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := s.SetRefreshToken(""); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if _, ok, _ := storage.Get(KeyAccessToken); ok {
				t.Error("expected access token key to be removed")
			}
			if _, ok, _ := storage.Get(KeyRefreshToken); ok {
				t.Error("expected refresh token key to be removed")
			}
			if s.IsAuthenticated() {
				t.Error("expected store to be unauthenticated")
			}
		})

		t.Run("raw tokens are stored unencoded", func(t *testing.T) {
			s, storage := newTestStore(t)
			_ = s.SetAccessToken("abc123")

			v, _, _ := storage.Get(KeyAccessToken)
			if v != "abc123" {
				t.Errorf("expected raw token, got %q", v)
			}
		})
	})

	t.Run("IsAuthenticated", func(t *testing.T) {
		t.Run("ignores the logged-in flag", func(t *testing.T) {
			s, _ := newTestStore(t)
			_ = s.SetLoggedIn(true)

			if s.IsAuthenticated() {
				t.Error("logged-in flag alone must not authenticate")
			}
		})

		t.Run("true with an access token", func(t *testing.T) {
			s, _ := newTestStore(t)
			_ = s.SetAccessToken("abc123")

			if !s.IsAuthenticated() {
				t.Error("expected store to be authenticated")
			}
		})
	})

	t.Run("UserProfile", func(t *testing.T) {
		t.Run("round trip", func(t *testing.T) {
			s, _ := newTestStore(t)
			u := &models.User{ID: "u1", Email: "ada@example.com", Status: models.StatusActive}
			if err := s.SetUserProfile(u); err != nil {
				t.Fatalf("SetUserProfile failed: %v", err)
			}

			got := s.UserProfile()
			if got == nil || got.ID != "u1" || got.Status != models.StatusActive {
				t.Errorf("unexpected profile: %+v", got)
			}
		})

		t.Run("nil removes", func(t *testing.T) {
			s, _ := newTestStore(t)
			_ = s.SetUserProfile(&models.User{ID: "u1"})
			_ = s.SetUserProfile(nil)

			if s.UserProfile() != nil {
				t.Error("expected profile to be removed")
			}
		})

		t.Run("update merges fields", func(t *testing.T) {
			s, _ := newTestStore(t)
			_ = s.SetUserProfile(&models.User{ID: "u1", FirstName: "Ada", LastName: "Byron", Email: "ada@example.com"})

			last := "Lovelace"
			got, err := s.UpdateUserProfile(models.UserPatch{LastName: &last})
			if err != nil {
				t.Fatalf("UpdateUserProfile failed: %v", err)
			}
			if got.Name != "Ada Lovelace" || got.Email != "ada@example.com" {
				t.Errorf("unexpected merge result: %+v", got)
			}
			if cached := s.UserProfile(); cached.LastName != "Lovelace" {
				t.Errorf("expected merged profile to be persisted, got %+v", cached)
			}
		})

		t.Run("update without a cached profile is a no-op", func(t *testing.T) {
			s, storage := newTestStore(t)
			name := "Ada"

			got, err := s.UpdateUserProfile(models.UserPatch{FirstName: &name})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != nil {
				t.Errorf("expected nil profile, got %+v", got)
			}
			if storage.Len() != 0 {
				t.Errorf("expected empty storage, got %d entries", storage.Len())
			}
		})
	})

	t.Run("Malformed entries fail soft", func(t *testing.T) {
		s, storage := newTestStore(t)
		for _, key := range []string{
			KeyUserProfile, KeyPermissions, KeySuperAdmin, KeySettings, KeyFullSession,
			KeyLoggedIn, KeyCountry, KeyLanguage, KeyLoginTime,
		} {
			_ = storage.Set(key, "{not json")
		}

		if s.UserProfile() != nil {
			t.Error("expected nil profile")
		}
		if p := s.Permissions(); p == nil || len(p) != 0 {
			t.Errorf("expected empty permissions, got %v", p)
		}
		if s.SuperAdmin() {
			t.Error("expected super admin to default to false")
		}
		if s.Settings() != nil || s.FullSession() != nil {
			t.Error("expected nil maps")
		}
		if s.LoggedIn() {
			t.Error("expected logged in to default to false")
		}
		if s.Country() != nil || s.Language() != nil {
			t.Error("expected nil country and language")
		}
		if _, ok := s.LoginTime(); ok {
			t.Error("expected no login time")
		}
	})

	t.Run("Backend read errors fail soft", func(t *testing.T) {
		s := NewStore(&tu.FailingStorage{Err: errors.New("disk gone")}, nil)

		if s.AccessToken() != "" || s.IsAuthenticated() {
			t.Error("expected unauthenticated store")
		}
		if err := s.SetAccessToken("abc"); !errors.Is(err, shared.ErrStorage) {
			t.Errorf("expected ErrStorage, got %v", err)
		}
	})

	t.Run("BeginSession", func(t *testing.T) {
		t.Run("persists the login", func(t *testing.T) {
			s, _ := newTestStore(t)
			fixed := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
			s.now = func() time.Time { return fixed }

			res := models.LoginResult{
				User:         models.User{ID: "u1", FirstName: "Ada", LastName: "Lovelace"},
				Token:        "abc123",
				RefreshToken: "r1",
			}
			if err := s.BeginSession(res); err != nil {
				t.Fatalf("BeginSession failed: %v", err)
			}

			if s.AccessToken() != "abc123" || s.RefreshToken() != "r1" {
				t.Errorf("unexpected tokens: %q %q", s.AccessToken(), s.RefreshToken())
			}
			if !s.LoggedIn() {
				t.Error("expected logged in flag")
			}
			if got, ok := s.LoginTime(); !ok || !got.Equal(fixed) {
				t.Errorf("expected login time %v, got %v", fixed, got)
			}
			if p := s.UserProfile(); p == nil || p.Name != "Ada Lovelace" || p.Status != models.StatusPending {
				t.Errorf("expected normalized profile, got %+v", p)
			}
			if s.FullSession() == nil {
				t.Error("expected full session snapshot")
			}
		})

		t.Run("drops a stale refresh token", func(t *testing.T) {
			s, _ := newTestStore(t)
			_ = s.SetRefreshToken("old")

			if err := s.BeginSession(models.LoginResult{AccessToken: "abc123"}); err != nil {
				t.Fatalf("BeginSession failed: %v", err)
			}
			if s.RefreshToken() != "" {
				t.Errorf("expected refresh token to be cleared, got %q", s.RefreshToken())
			}
		})

		t.Run("rejects a response without a token", func(t *testing.T) {
			s, storage := newTestStore(t)

			err := s.BeginSession(models.LoginResult{User: models.User{ID: "u1"}})
			if !errors.Is(err, shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", err)
			}
			if storage.Len() != 0 {
				t.Errorf("expected nothing persisted, got %d entries", storage.Len())
			}
		})
	})

	t.Run("BeginSession rolls back a partial write", func(t *testing.T) {
		for _, failOn := range []int{2, 3, 6} {
			storage := &flakyStorage{MemoryStorage: NewMemoryStorage(), failOn: failOn}
			s := NewStore(storage, nil)

			err := s.BeginSession(models.LoginResult{
				User:         models.User{ID: "u1", Email: "ada@example.com"},
				AccessToken:  "abc123",
				RefreshToken: "r1",
			})
			if !errors.Is(err, shared.ErrStorage) {
				t.Errorf("write %d: expected ErrStorage, got %v", failOn, err)
			}
			if s.IsAuthenticated() || s.UserProfile() != nil || s.LoggedIn() {
				t.Errorf("write %d: expected no session after a failed login", failOn)
			}
			if storage.Len() != 0 {
				t.Errorf("write %d: expected empty storage, got %d entries", failOn, storage.Len())
			}
		}
	})

	t.Run("ReplaceUserProfileIf", func(t *testing.T) {
		t.Run("writes while the token is current", func(t *testing.T) {
			s, _ := newTestStore(t)
			seed(t, s)

			ok, err := s.ReplaceUserProfileIf("abc123", &models.User{ID: "u1", Email: "new@example.com"})
			if err != nil || !ok {
				t.Fatalf("expected write, got ok=%v err=%v", ok, err)
			}
			if p := s.UserProfile(); p == nil || p.Email != "new@example.com" {
				t.Errorf("expected replaced profile, got %+v", p)
			}
		})

		t.Run("skips a cleared session", func(t *testing.T) {
			s, _ := newTestStore(t)
			seed(t, s)
			_ = s.ClearAll()

			ok, err := s.ReplaceUserProfileIf("abc123", &models.User{ID: "u1"})
			if err != nil || ok {
				t.Errorf("expected no write, got ok=%v err=%v", ok, err)
			}
			if s.UserProfile() != nil {
				t.Error("expected no cached profile")
			}
		})

		t.Run("skips a replaced token", func(t *testing.T) {
			s, _ := newTestStore(t)
			seed(t, s)
			_ = s.SetAccessToken("other")

			if ok, _ := s.ReplaceUserProfileIf("abc123", &models.User{ID: "u2"}); ok {
				t.Error("expected no write for a stale token")
			}
			if p := s.UserProfile(); p == nil || p.ID != "u1" {
				t.Errorf("expected the original profile, got %+v", p)
			}
		})
	})

	t.Run("ClearAll", func(t *testing.T) {
		t.Run("removes every namespaced key", func(t *testing.T) {
			s, storage := newTestStore(t)
			seed(t, s)

			if err := s.ClearAll(); err != nil {
				t.Fatalf("ClearAll failed: %v", err)
			}

			if s.AccessToken() != "" || s.UserProfile() != nil || s.IsAuthenticated() {
				t.Error("expected session to be fully cleared")
			}
			for _, key := range Keys() {
				if _, ok, _ := storage.Get(key); ok {
					t.Errorf("expected %s to be removed", key)
				}
			}
		})

		t.Run("leaves foreign keys alone", func(t *testing.T) {
			s, storage := newTestStore(t)
			seed(t, s)
			_ = storage.Set("other-app.theme", "dark")

			_ = s.ClearAll()

			if v, ok, _ := storage.Get("other-app.theme"); !ok || v != "dark" {
				t.Error("expected foreign key to survive")
			}
			if storage.Len() != 1 {
				t.Errorf("expected 1 entry left, got %d", storage.Len())
			}
		})

		t.Run("is idempotent", func(t *testing.T) {
			s, storage := newTestStore(t)
			seed(t, s)

			for i := range 3 {
				if err := s.ClearAll(); err != nil {
					t.Fatalf("ClearAll #%d failed: %v", i, err)
				}
			}
			if storage.Len() != 0 {
				t.Errorf("expected empty storage, got %d entries", storage.Len())
			}
		})

		t.Run("concurrent clears", func(t *testing.T) {
			s, storage := newTestStore(t)
			seed(t, s)

			var wg sync.WaitGroup
			errs := make(chan error, 8)
			for range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs <- s.ClearAll()
				}()
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
			if storage.Len() != 0 {
				t.Errorf("expected empty storage, got %d entries", storage.Len())
			}
		})

		t.Run("reports backend failures", func(t *testing.T) {
			s := NewStore(&tu.FailingStorage{Err: errors.New("locked")}, nil)

			err := s.ClearAll()
			if !errors.Is(err, shared.ErrStorage) {
				t.Errorf("expected ErrStorage, got %v", err)
			}
		})
	})

	t.Run("EnsureDeviceID", func(t *testing.T) {
		s, _ := newTestStore(t)

		first, err := s.EnsureDeviceID()
		if err != nil {
			t.Fatalf("EnsureDeviceID failed: %v", err)
		}
		second, _ := s.EnsureDeviceID()

		if first == "" || first != second {
			t.Errorf("expected a stable device id, got %q then %q", first, second)
		}
	})

	t.Run("Token", func(t *testing.T) {
		t.Run("opaque token", func(t *testing.T) {
			s, _ := newTestStore(t)
			_ = s.SetAccessToken("abc123")
			_ = s.SetRefreshToken("r1")

			tok, err := s.Token()
			if err != nil {
				t.Fatalf("Token failed: %v", err)
			}
			if tok.AccessToken != "abc123" || tok.RefreshToken != "r1" || tok.Type() != "Bearer" {
				t.Errorf("unexpected token: %+v", tok)
			}
			if !tok.Expiry.IsZero() {
				t.Errorf("expected no expiry, got %v", tok.Expiry)
			}
		})

		t.Run("jwt expiry", func(t *testing.T) {
			s, _ := newTestStore(t)
			exp := time.Now().Add(time.Hour).Truncate(time.Second)
			_ = s.SetAccessToken(signedToken(t, exp))

			tok, _ := s.Token()
			if !tok.Expiry.Equal(exp) {
				t.Errorf("expected expiry %v, got %v", exp, tok.Expiry)
			}
			if !tok.Valid() {
				t.Error("expected token to be valid")
			}
		})
	})

	t.Run("String hides tokens", func(t *testing.T) {
		s, _ := newTestStore(t)
		_ = s.SetAccessToken("abc123")

		if strings.Contains(s.String(), "abc123") {
			t.Errorf("expected token to be hidden, got %q", s.String())
		}
	})
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(-time.Minute).Truncate(time.Second)

	tests := []struct {
		name   string
		raw    string
		wantOK bool
	}{
		{name: "opaque", raw: "abc123", wantOK: false},
		{name: "empty", raw: "", wantOK: false},
		{name: "garbage segments", raw: "a.b.c", wantOK: false},
		{name: "expired jwt", raw: signedToken(t, exp), wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TokenExpiry(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if ok && !got.Equal(exp) {
				t.Errorf("expected %v, got %v", exp, got)
			}
		})
	}
}
