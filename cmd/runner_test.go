package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mediadesk/internal/session"
	"github.com/desertthunder/mediadesk/internal/shared"
	tu "github.com/desertthunder/mediadesk/internal/testing"
)

// fakePlatform serves the subset of the platform API the commands use.
func fakePlatform(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/users/login", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var creds struct{ Email, Password string }
		json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"Invalid credentials"}`))
			return
		}
		w.Write([]byte(`{"user":{"_id":"u1","firstName":"Ada","lastName":"Lovelace","email":"ada@example.com"},"accessToken":"tok","refreshToken":"ref"}`))
	})
	mux.HandleFunc("GET /api/v1/users/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"users":[{"_id":"1","firstName":"Grace","lastName":"Hopper","email":"grace@example.com","role":"admin"}]}`))
	})
	mux.HandleFunc("GET /api/v1/music", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("GET /api/v1/videos", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"videos":[
			{"_id":"v1","title":"Intro","creator":"Ada","category":"Tutorial"},
			{"_id":"v2","title":"Live set","creator":"Grace","category":"Music"},
			{"_id":"v3","title":"Basics","creator":"Alan","category":"tutorial"}
		]}`))
	})
	mux.HandleFunc("POST /api/v1/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"accessToken":"tok2"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestRunner(t *testing.T, host string) (*Runner, *bytes.Buffer) {
	t.Helper()

	config := shared.DefaultConfig()
	config.API.Host = host
	config.API.RateLimit = 0
	config.Session.ValidateOnCheck = false

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: shared.NewLogger(&bytes.Buffer{}),
		Output: output,
	})
	return runner, output
}

func run(r *Runner, args ...string) error {
	app := &cli.Command{Name: "mediadesk", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"mediadesk"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.client.BaseURL() != "http://localhost:5000/api/v1" {
				t.Errorf("unexpected base URL %s", runner.client.BaseURL())
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil storage uses memory", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if err := runner.store.SetAccessToken("tok"); err != nil {
				t.Fatalf("expected in-memory storage to accept writes, got %v", err)
			}
			if !runner.store.IsAuthenticated() {
				t.Error("expected store to be authenticated")
			}
		})

		t.Run("shares provided storage", func(t *testing.T) {
			storage := session.NewMemoryStorage()
			runner := NewRunner(RunnerOpts{Storage: storage})

			if err := runner.store.SetAccessToken("tok"); err != nil {
				t.Fatalf("SetAccessToken failed: %v", err)
			}
			if v, ok, _ := storage.Get(session.KeyAccessToken); !ok || v != "tok" {
				t.Errorf("expected token in provided storage, got %q", v)
			}
		})
	})

	t.Run("SetLogger keeps session", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		if err := runner.store.SetAccessToken("tok"); err != nil {
			t.Fatalf("SetAccessToken failed: %v", err)
		}

		replacement := shared.NewLogger(&bytes.Buffer{})
		runner.SetLogger(replacement)

		if runner.logger != replacement {
			t.Error("expected logger to be replaced")
		}
		if !runner.store.IsAuthenticated() {
			t.Error("expected session to survive the rebuild")
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) == 0 {
			t.Error("expected at least one command to be registered")
		}

		seen := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
				continue
			}
			if seen[cmd.Name] {
				t.Errorf("duplicate command %q", cmd.Name)
			}
			seen[cmd.Name] = true
		}

		for _, name := range []string{"setup", "auth", "users", "media", "export", "api", "session", "tui", "serve"} {
			if !seen[name] {
				t.Errorf("expected command %q", name)
			}
		}
	})
}

func TestOpenStorage(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Session.StorageDriver = shared.StorageMemory

		storage, kv, closeFn, err := OpenStorage(context.Background(), config)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer closeFn()

		if storage == nil || kv != nil {
			t.Error("expected memory storage without a kv repository")
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Database.Path = filepath.Join(t.TempDir(), "session.db")

		storage, kv, closeFn, err := OpenStorage(context.Background(), config)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer closeFn()

		if kv == nil {
			t.Fatal("expected kv repository for sqlite driver")
		}
		if err := storage.Set(session.KeyDeviceID, "dev"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if v, ok, err := kv.Get(session.KeyDeviceID); err != nil || !ok || v != "dev" {
			t.Errorf("expected round trip through sqlite, got %q %v %v", v, ok, err)
		}
	})

	t.Run("redis unreachable", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Session.StorageDriver = shared.StorageRedis
		config.Redis.Addr = "127.0.0.1:1"

		if _, _, _, err := OpenStorage(context.Background(), config); err == nil {
			t.Fatal("expected error for unreachable redis")
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Session.StorageDriver = "etcd"

		_, _, _, err := OpenStorage(context.Background(), config)
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestCommands(t *testing.T) {
	t.Run("protected commands require a session", func(t *testing.T) {
		srv, hits := fakePlatform(t)
		runner, _ := newTestRunner(t, srv.URL)

		for _, args := range [][]string{
			{"users", "list"},
			{"media", "music"},
			{"export"},
			{"api", "get", "/users/"},
		} {
			err := run(runner, args...)
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("%v: expected ErrNotAuthenticated, got %v", args, err)
			}
		}
		if hits.Load() != 0 {
			t.Errorf("expected no API calls, got %d", hits.Load())
		}
	})

	t.Run("login then list users", func(t *testing.T) {
		srv, _ := fakePlatform(t)
		runner, output := newTestRunner(t, srv.URL)

		if err := run(runner, "auth", "login", "--email", "ada@example.com", "--password", "secret"); err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if !strings.Contains(output.String(), "Signed in as Ada Lovelace") {
			t.Errorf("unexpected login output %q", output.String())
		}
		if runner.store.DeviceID() == "" {
			t.Error("expected device id after login")
		}

		output.Reset()
		if err := run(runner, "users", "list", "--format", "csv"); err != nil {
			t.Fatalf("users list failed: %v", err)
		}
		out := output.String()
		if !strings.HasPrefix(out, "ID,Name,Email") || !strings.Contains(out, "grace@example.com") {
			t.Errorf("unexpected CSV output %q", out)
		}
	})

	t.Run("videos filtered and sorted", func(t *testing.T) {
		srv, _ := fakePlatform(t)
		runner, output := newTestRunner(t, srv.URL)
		if err := runner.store.SetAccessToken("tok"); err != nil {
			t.Fatalf("SetAccessToken failed: %v", err)
		}

		err := run(runner, "media", "videos", "--format", "csv", "--category", "TUTORIAL", "--sort", "title")
		if err != nil {
			t.Fatalf("media videos failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(output.String()), "\n")
		if len(lines) != 3 || !strings.HasPrefix(lines[1], "v3,Basics") || !strings.HasPrefix(lines[2], "v1,Intro") {
			t.Errorf("unexpected CSV output %q", output.String())
		}
	})

	t.Run("videos with an unknown sort key", func(t *testing.T) {
		srv, hits := fakePlatform(t)
		runner, _ := newTestRunner(t, srv.URL)
		_ = runner.store.SetAccessToken("tok")

		err := run(runner, "media", "videos", "--sort", "popular")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
		if hits.Load() != 0 {
			t.Errorf("expected no API calls, got %d", hits.Load())
		}
	})

	t.Run("login with wrong password", func(t *testing.T) {
		srv, _ := fakePlatform(t)
		runner, _ := newTestRunner(t, srv.URL)

		err := run(runner, "auth", "login", "--email", "ada@example.com", "--password", "nope")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if runner.store.IsAuthenticated() {
			t.Error("expected no session after failed login")
		}
	})

	t.Run("status", func(t *testing.T) {
		srv, _ := fakePlatform(t)
		runner, output := newTestRunner(t, srv.URL)

		if err := run(runner, "auth", "status", "--json"); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		var status authStatus
		if err := json.Unmarshal(output.Bytes(), &status); err != nil {
			t.Fatalf("invalid status JSON: %v", err)
		}
		if status.State != "unauthenticated" || status.Reason != "no-token" {
			t.Errorf("unexpected status %+v", status)
		}
	})

	t.Run("refresh keeps refresh token", func(t *testing.T) {
		srv, _ := fakePlatform(t)
		runner, _ := newTestRunner(t, srv.URL)

		if err := run(runner, "auth", "login", "--email", "ada@example.com", "--password", "secret"); err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if err := run(runner, "auth", "refresh"); err != nil {
			t.Fatalf("refresh failed: %v", err)
		}
		if got := runner.store.AccessToken(); got != "tok2" {
			t.Errorf("expected rotated access token, got %q", got)
		}
		if got := runner.store.RefreshToken(); got != "ref" {
			t.Errorf("expected refresh token to be kept, got %q", got)
		}
	})

	t.Run("logout clears session", func(t *testing.T) {
		srv, _ := fakePlatform(t)
		runner, _ := newTestRunner(t, srv.URL)

		if err := run(runner, "auth", "login", "--email", "ada@example.com", "--password", "secret"); err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if err := run(runner, "auth", "logout"); err != nil {
			t.Fatalf("logout failed: %v", err)
		}
		if runner.store.IsAuthenticated() || runner.store.UserProfile() != nil || runner.store.DeviceID() != "" {
			t.Error("expected every session key to be cleared")
		}
	})

	t.Run("export writes manifest", func(t *testing.T) {
		srv, _ := fakePlatform(t)
		runner, output := newTestRunner(t, srv.URL)
		dir := filepath.Join(t.TempDir(), "out")

		if err := run(runner, "auth", "login", "--email", "ada@example.com", "--password", "secret"); err != nil {
			t.Fatalf("login failed: %v", err)
		}
		output.Reset()

		if err := run(runner, "export", "-c", "users", "-c", "music", "-o", dir, "--rate", "100"); err != nil {
			t.Fatalf("export failed: %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))
		tu.AssertFileExists(t, filepath.Join(dir, "users.json"))
		if out := output.String(); !strings.Contains(out, "Succeeded: 1/2") || !strings.Contains(out, "music") {
			t.Errorf("unexpected export output %q", out)
		}
	})

	t.Run("export rejects unknown collection", func(t *testing.T) {
		srv, _ := fakePlatform(t)
		runner, _ := newTestRunner(t, srv.URL)
		if err := runner.store.SetAccessToken("tok"); err != nil {
			t.Fatalf("SetAccessToken failed: %v", err)
		}

		err := run(runner, "export", "-c", "podcasts")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("session show hides tokens", func(t *testing.T) {
		srv, _ := fakePlatform(t)
		runner, output := newTestRunner(t, srv.URL)

		if err := run(runner, "auth", "login", "--email", "ada@example.com", "--password", "secret"); err != nil {
			t.Fatalf("login failed: %v", err)
		}
		output.Reset()

		if err := run(runner, "session", "show", "--json"); err != nil {
			t.Fatalf("session show failed: %v", err)
		}
		out := output.String()
		if strings.Contains(out, `"tok"`) || strings.Contains(out, `"ref"`) {
			t.Errorf("token values leaked: %s", out)
		}
		if !strings.Contains(out, `"has_refresh_token": true`) {
			t.Errorf("expected refresh token flag, got %s", out)
		}
	})

	t.Run("session keys needs sqlite", func(t *testing.T) {
		runner, _ := newTestRunner(t, "http://localhost:5000")

		err := run(runner, "session", "keys")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("api post rejects invalid JSON", func(t *testing.T) {
		srv, hits := fakePlatform(t)
		runner, _ := newTestRunner(t, srv.URL)
		if err := runner.store.SetAccessToken("tok"); err != nil {
			t.Fatalf("SetAccessToken failed: %v", err)
		}

		err := run(runner, "api", "post", "--data", "{nope", "/users/")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if hits.Load() != 0 {
			t.Errorf("expected no API calls, got %d", hits.Load())
		}
	})
}
