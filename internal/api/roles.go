package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"propdesk/internal/config"
	"propdesk/internal/models"

	"golang.org/x/time/rate"
)

type roleKey struct{}

var (
	errRoleMissing      = errors.New("role header is required")
	errRoleUnknown      = errors.New("unknown role")
	errPermissionDenied = errors.New("permission denied")
	errRateLimited      = errors.New("rate limit exceeded")
)

// RoleGate selects the acting role from a request header and limits
// requests per role. It switches roles; it does not authenticate.
type RoleGate struct {
	cfg      config.APIConfig
	header   string
	limiters sync.Map // map[models.Role]*rate.Limiter
}

func NewRoleGate(cfg config.APIConfig) *RoleGate {
	header := strings.TrimSpace(strings.ToLower(cfg.Roles.Header))
	if header == "" {
		header = "x-role"
	}
	return &RoleGate{cfg: cfg, header: header}
}

// Require admits requests whose role is one of allowed. With no allowed
// roles any known role is admitted.
func (g *RoleGate) Require(next http.HandlerFunc, allowed ...models.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.cfg.Roles.Enabled {
			if !g.allow(models.RoleSuperAdmin) {
				writeError(w, http.StatusTooManyRequests, errRateLimited.Error())
				return
			}
			next(w, r.WithContext(context.WithValue(r.Context(), roleKey{}, models.RoleSuperAdmin)))
			return
		}

		role, err := g.roleFrom(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if !permitted(role, allowed) {
			writeError(w, http.StatusForbidden, errPermissionDenied.Error())
			return
		}
		if !g.allow(role) {
			writeError(w, http.StatusTooManyRequests, errRateLimited.Error())
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), roleKey{}, role)))
	})
}

func (g *RoleGate) roleFrom(r *http.Request) (models.Role, error) {
	raw := strings.TrimSpace(strings.ToLower(r.Header.Get(g.header)))
	if raw == "" {
		return "", errRoleMissing
	}
	role, ok := models.ParseRole(raw)
	if !ok {
		return "", errRoleUnknown
	}
	return role, nil
}

func permitted(role models.Role, allowed []models.Role) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == role {
			return true
		}
	}
	return false
}

func (g *RoleGate) allow(role models.Role) bool {
	if g.cfg.RateLimit.RPS <= 0 {
		return true
	}
	return g.getLimiter(role).Allow()
}

func (g *RoleGate) getLimiter(role models.Role) *rate.Limiter {
	if v, ok := g.limiters.Load(role); ok {
		return v.(*rate.Limiter)
	}

	burst := g.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(g.cfg.RateLimit.RPS), burst)
	actual, loaded := g.limiters.LoadOrStore(role, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}

// RoleFromContext returns the role admitted by RoleGate.
func RoleFromContext(ctx context.Context) (models.Role, bool) {
	role, ok := ctx.Value(roleKey{}).(models.Role)
	return role, ok
}
