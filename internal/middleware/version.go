package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/atinyakov/mottokeeper/internal/common"
	"golang.org/x/mod/semver"
)

// AppVersionHeader carries the client application version.
const AppVersionHeader = "app-version"

// NewVersionGate returns a middleware answering 426 to clients whose
// app-version header is older than minVersion or not a version at all.
// Requests without the header pass.
func NewVersionGate(minVersion string) (func(http.Handler) http.Handler, error) {
	floor, ok := canonicalVersion(minVersion)
	if !ok {
		return nil, fmt.Errorf("invalid minimum app version %q", minVersion)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(AppVersionHeader)
			if header != "" {
				v, ok := canonicalVersion(header)
				if !ok || semver.Compare(v, floor) < 0 {
					common.WriteMessage(w, http.StatusUpgradeRequired, "Please update your client application.")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}

func canonicalVersion(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "v") {
		s = "v" + s
	}
	if !semver.IsValid(s) {
		return "", false
	}
	return s, true
}
