package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mediadesk/internal/api"
	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/session"
	"github.com/desertthunder/mediadesk/internal/shared"
)

const usersPath = "/users"

// UserService manages the authenticated user and platform accounts.
type UserService struct {
	client *api.Client
	logger *log.Logger
}

// NewUserService creates a [UserService]. A nil logger discards output.
func NewUserService(client *api.Client, logger *log.Logger) *UserService {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &UserService{client: client, logger: logger}
}

func (s *UserService) store() *session.Store { return s.client.Store() }

// Login posts creds and persists the resulting session.
func (s *UserService) Login(ctx context.Context, creds models.Credentials) (*models.LoginResult, error) {
	if creds.Email == "" || creds.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", shared.ErrMissingArgument)
	}

	resp, err := s.client.Post(ctx, usersPath+"/login", creds)
	if err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			return nil, fmt.Errorf("%w: invalid email or password", shared.ErrAuthFailed)
		}
		return nil, err
	}

	res, err := api.Decode[models.LoginResult](resp)
	if err != nil {
		return nil, err
	}
	if res.BearerToken() == "" {
		return nil, fmt.Errorf("%w: invalid email or password", shared.ErrAuthFailed)
	}

	if err := s.store().BeginSession(res); err != nil {
		return nil, err
	}
	if _, err := s.store().EnsureDeviceID(); err != nil {
		s.logger.Warn("failed to persist device id", "error", err)
	}

	res.User = res.User.Normalize()
	return &res, nil
}

// Logout clears the local session. The server keeps no session state to revoke.
func (s *UserService) Logout() error {
	return s.store().ClearAll()
}

// Profile loads the authenticated user. Any failure logs the user out.
func (s *UserService) Profile(ctx context.Context) (*models.User, error) {
	user, err := s.fetchProfile(ctx)
	if err != nil {
		if ctx.Err() == nil {
			if clearErr := s.store().ClearAll(); clearErr != nil {
				s.logger.Error("failed to clear session", "error", clearErr)
			}
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) fetchProfile(ctx context.Context) (*models.User, error) {
	resp, err := s.client.Get(ctx, usersPath+"/profile", nil)
	if err != nil {
		return nil, err
	}

	out, err := api.Decode[struct {
		User *models.User `json:"user"`
	}](resp)
	if err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, fmt.Errorf("%w: user not authenticated", shared.ErrNotAuthenticated)
	}

	user := out.User.Normalize()
	return &user, nil
}

// Validate confirms the stored token with the server by loading the profile.
func (s *UserService) Validate(ctx context.Context) error {
	_, err := s.Profile(ctx)
	return err
}

// List returns every account with defaults filled in.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	resp, err := s.client.Get(ctx, usersPath+"/", nil)
	if err != nil {
		return nil, err
	}

	users, err := decodeList[models.User](resp, "users")
	if err != nil {
		return nil, fmt.Errorf("invalid response format from server: %w", err)
	}
	for i := range users {
		users[i] = users[i].Normalize()
	}
	return users, nil
}

// ListUsers is [UserService.List] under the name bulk export expects.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.List(ctx)
}

// Register creates an account from a multipart form, attaching the avatar when set.
func (s *UserService) Register(ctx context.Context, u models.NewUser) (*models.User, error) {
	if u.Email == "" || u.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", shared.ErrMissingArgument)
	}

	form := &api.Multipart{}
	setField(form, "firstName", u.FirstName)
	setField(form, "lastName", u.LastName)
	setField(form, "email", u.Email)
	setField(form, "username", u.Username)
	setField(form, "role", u.Role)
	setField(form, "password", u.Password)
	setField(form, "bio", u.Bio)
	setField(form, "website", u.Website)

	closeFiles, err := openAttachments(form, attachment{field: "avatar", path: u.AvatarPath})
	if err != nil {
		return nil, err
	}
	defer closeFiles()

	resp, err := s.client.PostMultipart(ctx, usersPath+"/register", form)
	if err != nil {
		return nil, err
	}

	user, err := decodeOne[models.User](resp, "user")
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	normalized := user.Normalize()
	return &normalized, nil
}

// Delete removes the account with id.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}

	_, err := s.client.Delete(ctx, usersPath+"/"+url.PathEscape(id))
	if apiErr, ok := api.AsError(err); ok && apiErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s: %v", shared.ErrUserNotFound, id, err)
	}
	return err
}

// AvatarURL resolves the cached profile's avatar to an absolute URL.
func (s *UserService) AvatarURL(u *models.User) (string, error) {
	if u == nil {
		return "", nil
	}
	return s.client.ResolveAssetURL(u.Avatar)
}
