package server

import (
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mediadesk/internal/gate"
)

// RequireSession runs g before next. Denied requests are redirected to loginPath with the reason as a query parameter.
func RequireSession(g *gate.Gate, loginPath string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.Check(r.Context())
			if !d.Allowed() {
				target := loginPath
				if d.Reason != gate.ReasonNone {
					target += "?" + url.Values{"reason": {string(d.Reason)}}.Encode()
				}
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logging logs method, path, status and duration of every request at debug level.
func Logging(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("http", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
		})
	}
}
