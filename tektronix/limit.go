package tektronix

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/jpsecher/labawg/generichttp"
	"github.com/jpsecher/labawg/util"
)

var errClamped = errors.New("level outside server-imposed bounds, not transmitted to instrument")

// LimitMiddleware imposes server-side bounds on the levels that may be
// set over HTTP, keyed by the final route segment, e.g. "amplitude",
// "offset", "trigger-level".  Levels without a limiter pass unchecked.
type LimitMiddleware struct {
	// Limits contains the server imposed bounds per level
	Limits map[string]util.Limiter
}

// Check verifies if a set request would violate the level limit, if it
// exists, and if it does, responds with StatusBadRequest.
// Otherwise, flows control to the next handler.
func (l *LimitMiddleware) Check(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}
		pieces := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		level := pieces[len(pieces)-1]
		limiter, ok := l.Limits[level]
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		// downstream functions want the body...
		// read it all here, then paste it back
		bodyContent, _ := io.ReadAll(r.Body)
		defer r.Body.Close()
		r.Body = io.NopCloser(bytes.NewBuffer(bodyContent))
		f := generichttp.FloatT{}
		err := json.NewDecoder(bytes.NewReader(bodyContent)).Decode(&f)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !limiter.Check(f.F64) {
			http.Error(w, errClamped.Error(), http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Inject places a /limits route on the table of the HTTPer
func (l *LimitMiddleware) Inject(h generichttp.HTTPer) {
	h.RT()[generichttp.MethodPath{Method: http.MethodGet, Path: "/limits"}] = Limits(l)
}

// Limits returns an HTTP handler func that returns the imposed limits
func Limits(l *LimitMiddleware) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(l.Limits)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
