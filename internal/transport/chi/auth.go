package chi

import (
	"net/http"
	"strings"
)

const bearerScheme = "Bearer "

// exemptPaths bypass authentication so probes and scrapers need no token.
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// BearerAuthMiddleware validates Authorization: Bearer tokens against the
// configured key set. An empty key set disables auth entirely.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	keys := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, exempt := exemptPaths[r.URL.Path]; exempt {
				next.ServeHTTP(w, r)
				return
			}

			if msg := checkBearer(r.Header.Get("Authorization"), keys); msg != "" {
				writeError(w, http.StatusUnauthorized, codeBadRequest, msg)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// checkBearer returns an empty string when the header carries a known token,
// otherwise the rejection message to send back.
func checkBearer(header string, keys map[string]struct{}) string {
	switch {
	case header == "":
		return "missing authorization header"
	case !strings.HasPrefix(header, bearerScheme):
		return "authorization header must use Bearer scheme"
	default:
		if _, ok := keys[strings.TrimPrefix(header, bearerScheme)]; !ok {
			return "invalid api key"
		}
		return ""
	}
}
