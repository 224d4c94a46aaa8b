package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"

	"appointly/internal/config"
	"appointly/internal/models"
)

const (
	apiKeyHeaderDefault   = "x-api-key"
	apiExtraHeaderDefault = "x-api-extra"
	clientKeyUnknown      = "unknown"

	// Без аутентификации актор берётся из заголовков прокси
	actorIDHeader          = "x-actor-id"
	actorPermissionsHeader = "x-actor-permissions"
)

var (
	errMissingKey   = errors.New("missing api key headers")
	errInvalidKey   = errors.New("invalid api key")
	errInvalidExtra = errors.New("invalid extra header")
	errNoActor      = errors.New("authentication required")
	errRateLimited  = errors.New("rate limit exceeded")
)

type actorKey struct{}

func withActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor attached by the auth middleware.
func ActorFrom(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(models.Actor)
	return actor, ok && actor.ID != ""
}

// HTTPAuth resolves the calling actor from API-key headers and applies the
// per-key rate limit.
type HTTPAuth struct {
	cfg     config.APIConfig
	clients map[string]config.APIClientKey
	limiter *rateLimiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{cfg: cfg, clients: m, limiter: newRateLimiter(cfg.RateLimit)}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		var actor models.Actor
		if a.cfg.Auth.Enabled {
			var err error
			actor, err = a.authenticate(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
		} else {
			actor = actorFromHeaders(r)
		}

		if !a.limiter.allow(a.clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, errRateLimited.Error())
			return
		}

		if actor.ID != "" {
			r = r.WithContext(withActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) authenticate(r *http.Request) (models.Actor, error) {
	apiKey := strings.TrimSpace(r.Header.Get(a.header(a.cfg.Auth.HeaderAPIKey, apiKeyHeaderDefault)))
	extra := strings.TrimSpace(r.Header.Get(a.header(a.cfg.Auth.HeaderExtra, apiExtraHeaderDefault)))
	if apiKey == "" {
		return models.Actor{}, errMissingKey
	}

	client, ok := a.clients[apiKey]
	if !ok {
		return models.Actor{}, errInvalidKey
	}
	if client.Extra != "" && subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return models.Actor{}, errInvalidExtra
	}

	return models.NewActor(client.ActorID, client.Name, client.Permissions), nil
}

func (a *HTTPAuth) header(configured, fallback string) string {
	h := strings.TrimSpace(strings.ToLower(configured))
	if h == "" {
		return fallback
	}
	return h
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.header(a.cfg.Auth.HeaderAPIKey, apiKeyHeaderDefault))); apiKey != "" {
		return apiKey
	}
	if id := strings.TrimSpace(r.Header.Get(actorIDHeader)); id != "" {
		return "actor:" + id
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

// actorFromHeaders trusts the identity set by an upstream gateway.
func actorFromHeaders(r *http.Request) models.Actor {
	id := strings.TrimSpace(r.Header.Get(actorIDHeader))
	if id == "" {
		return models.Actor{}
	}
	return models.NewActor(id, "", splitCSV(r.Header.Get(actorPermissionsHeader)))
}

func isPublic(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

// canRead: any scheduling grant allows listing, as does admin anywhere.
func canRead(actor models.Actor) bool {
	if actor.IsAdmin() {
		return true
	}
	for _, action := range []string{models.ActionRead, models.ActionWrite, models.ActionWriteAll} {
		if actor.Can(models.ResourceScheduling, action) {
			return true
		}
	}
	return false
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
