package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/shared"
	"golang.org/x/oauth2"
)

// Store is the typed accessor layer over a [Storage]. It is the only code allowed to touch session keys.
type Store struct {
	storage Storage
	logger  *log.Logger
	now     func() time.Time

	// mu serializes writers so a ClearAll never interleaves with a partial login or profile merge.
	mu sync.Mutex
}

var _ oauth2.TokenSource = (*Store)(nil)

// NewStore creates a [Store] over storage. A nil logger discards output.
func NewStore(storage Storage, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Store{storage: storage, logger: logger, now: time.Now}
}

// AccessToken returns the stored bearer token or "".
func (s *Store) AccessToken() string {
	return s.getRaw(KeyAccessToken)
}

// SetAccessToken stores token; an empty token removes the entry.
func (s *Store) SetAccessToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putRaw(KeyAccessToken, token)
}

// RefreshToken returns the stored refresh token or "".
func (s *Store) RefreshToken() string {
	return s.getRaw(KeyRefreshToken)
}

// SetRefreshToken stores token; an empty token removes the entry.
func (s *Store) SetRefreshToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putRaw(KeyRefreshToken, token)
}

// IsAuthenticated reports whether an access token is stored.
func (s *Store) IsAuthenticated() bool {
	return s.AccessToken() != ""
}

// UserProfile returns the cached profile, or nil when absent or unreadable.
func (s *Store) UserProfile() *models.User {
	var u models.User
	if !s.getJSON(KeyUserProfile, &u) {
		return nil
	}
	return &u
}

// SetUserProfile overwrites the cached profile; nil removes it.
func (s *Store) SetUserProfile(u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u == nil {
		return s.remove(KeyUserProfile)
	}
	return s.putJSON(KeyUserProfile, u)
}

// UpdateUserProfile merges p into the cached profile and returns the result.
// With no cached profile it does nothing and returns nil.
func (s *Store) UpdateUserProfile(p models.UserPatch) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.UserProfile()
	if current == nil {
		return nil, nil
	}

	updated := current.Apply(p)
	if err := s.putJSON(KeyUserProfile, updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// LoggedIn returns the informational logged-in flag.
func (s *Store) LoggedIn() bool {
	var v bool
	s.getJSON(KeyLoggedIn, &v)
	return v
}

// SetLoggedIn writes the informational logged-in flag.
func (s *Store) SetLoggedIn(v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putJSON(KeyLoggedIn, v)
}

// LoginTime returns when the current session began.
func (s *Store) LoginTime() (time.Time, bool) {
	raw := s.getRaw(KeyLoginTime)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		s.logger.Debug("discarding malformed entry", "key", KeyLoginTime, "error", err)
		return time.Time{}, false
	}
	return t, true
}

// SetLoginTime records when the session began.
func (s *Store) SetLoginTime(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putRaw(KeyLoginTime, t.UTC().Format(time.RFC3339Nano))
}

// Permissions returns the granted permissions, never nil.
func (s *Store) Permissions() []string {
	var p []string
	if !s.getJSON(KeyPermissions, &p) || p == nil {
		return []string{}
	}
	return p
}

// SetPermissions replaces the granted permissions.
func (s *Store) SetPermissions(p []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putJSON(KeyPermissions, p)
}

// SuperAdmin returns the super-admin flag, false when absent.
func (s *Store) SuperAdmin() bool {
	var v bool
	s.getJSON(KeySuperAdmin, &v)
	return v
}

// SetSuperAdmin writes the super-admin flag.
func (s *Store) SetSuperAdmin(v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putJSON(KeySuperAdmin, v)
}

// Country returns the selected country, nil when absent.
func (s *Store) Country() *models.Country {
	var c models.Country
	if !s.getJSON(KeyCountry, &c) {
		return nil
	}
	return &c
}

// SetCountry stores the selected country.
func (s *Store) SetCountry(c models.Country) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putJSON(KeyCountry, c)
}

// Language returns the selected language, nil when absent.
func (s *Store) Language() *models.Language {
	var l models.Language
	if !s.getJSON(KeyLanguage, &l) {
		return nil
	}
	return &l
}

// SetLanguage stores the selected language.
func (s *Store) SetLanguage(l models.Language) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putJSON(KeyLanguage, l)
}

// Settings returns free-form user settings, nil when absent.
func (s *Store) Settings() map[string]any {
	var m map[string]any
	if !s.getJSON(KeySettings, &m) {
		return nil
	}
	return m
}

// SetSettings replaces the user settings.
func (s *Store) SetSettings(m map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putJSON(KeySettings, m)
}

// FullSession returns the snapshot written at login, nil when absent.
func (s *Store) FullSession() map[string]any {
	var m map[string]any
	if !s.getJSON(KeyFullSession, &m) {
		return nil
	}
	return m
}

// SetFullSession replaces the login snapshot.
func (s *Store) SetFullSession(m map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putJSON(KeyFullSession, m)
}

// DeviceID returns the stored device id or "".
func (s *Store) DeviceID() string {
	return s.getRaw(KeyDeviceID)
}

// SetDeviceID stores id; an empty id removes the entry.
func (s *Store) SetDeviceID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putRaw(KeyDeviceID, id)
}

// EnsureDeviceID returns the stored device id, generating and persisting one on first use.
func (s *Store) EnsureDeviceID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id := s.getRaw(KeyDeviceID); id != "" {
		return id, nil
	}
	id := shared.GenerateID()
	if err := s.putRaw(KeyDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}

// BeginSession persists a successful login: token pair, profile, logged-in flag, login time and snapshot.
//
// A response without a refresh token removes any refresh token left from an earlier session.
func (s *Store) BeginSession(res models.LoginResult) error {
	token := res.BearerToken()
	if token == "" {
		return fmt.Errorf("%w: login response has no access token", shared.ErrAuthFailed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	user := res.User.Normalize()
	steps := []func() error{
		func() error { return s.putRaw(KeyAccessToken, token) },
		func() error { return s.putRaw(KeyRefreshToken, res.RefreshToken) },
		func() error { return s.putJSON(KeyUserProfile, user) },
		func() error { return s.putJSON(KeyLoggedIn, true) },
		func() error { return s.putRaw(KeyLoginTime, now.UTC().Format(time.RFC3339Nano)) },
		func() error {
			return s.putJSON(KeyFullSession, map[string]any{"user": user, "loginTime": now.UTC()})
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			if rerr := s.removeAll(); rerr != nil {
				s.logger.Error("failed to roll back partial login", "error", rerr)
			}
			return err
		}
	}

	s.logger.Info("session started", "user", user.Email)
	return nil
}

// ClearAll removes every namespaced key. Safe to call on an already-cleared store and from concurrent goroutines.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.removeAll(); err != nil {
		return err
	}

	s.logger.Debug("session cleared")
	return nil
}

// ReplaceUserProfileIf overwrites the cached profile only while token is still the stored access token.
// It reports whether the profile was written.
func (s *Store) ReplaceUserProfileIf(token string, u *models.User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" || s.getRaw(KeyAccessToken) != token {
		return false, nil
	}
	if u == nil {
		return true, s.remove(KeyUserProfile)
	}
	if err := s.putJSON(KeyUserProfile, u); err != nil {
		return false, err
	}
	return true, nil
}

// removeAll deletes every namespaced key. Callers hold mu.
func (s *Store) removeAll() error {
	var errs []error
	for _, key := range allKeys {
		if err := s.remove(key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Token implements [oauth2.TokenSource]. The expiry is taken from the access token when it is a JWT.
func (s *Store) Token() (*oauth2.Token, error) {
	tok := &oauth2.Token{
		AccessToken:  s.AccessToken(),
		RefreshToken: s.RefreshToken(),
		TokenType:    "Bearer",
	}
	if exp, ok := TokenExpiry(tok.AccessToken); ok {
		tok.Expiry = exp
	}
	return tok, nil
}

func (s *Store) getRaw(key string) string {
	v, ok, err := s.storage.Get(key)
	if err != nil {
		s.logger.Warn("failed to read session entry", "key", key, "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

// getJSON decodes key into dst and reports whether a well-formed value was found.
func (s *Store) getJSON(key string, dst any) bool {
	raw := s.getRaw(key)
	if raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.logger.Debug("discarding malformed entry", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Store) putRaw(key, value string) error {
	if value == "" {
		return s.remove(key)
	}
	if err := s.storage.Set(key, value); err != nil {
		return fmt.Errorf("%w: write %s: %v", shared.ErrStorage, key, err)
	}
	return nil
}

func (s *Store) putJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", shared.ErrStorage, key, err)
	}
	return s.putRaw(key, string(data))
}

func (s *Store) remove(key string) error {
	if err := s.storage.Remove(key); err != nil {
		return fmt.Errorf("%w: remove %s: %v", shared.ErrStorage, key, err)
	}
	return nil
}

// String summarizes the session for status output without revealing tokens.
func (s *Store) String() string {
	return "authenticated=" + strconv.FormatBool(s.IsAuthenticated()) + " logged_in=" + strconv.FormatBool(s.LoggedIn())
}
