package identity

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/legalaid-center/platform/internal/shared/config"
	"github.com/legalaid-center/platform/internal/shared/errors"
	"github.com/legalaid-center/platform/internal/shared/httpx"
	"github.com/legalaid-center/platform/internal/shared/types"
)

// Claims is the session token payload issued by the auth collaborator.
type Claims struct {
	jwt.RegisteredClaims
	Kind string `json:"kind"` // staff | beneficiary
	Role string `json:"role"`
}

// Resolver turns an inbound session token into a Principal. It fails closed:
// any missing, malformed or expired token resolves to Anonymous.
type Resolver struct {
	cfg       config.AuthConfig
	directory Directory
}

// NewResolver creates a resolver backed by the given account directory.
func NewResolver(cfg config.AuthConfig, directory Directory) *Resolver {
	return &Resolver{cfg: cfg, directory: directory}
}

// Middleware resolves the principal once per request and stores it in the
// context. Requests without a valid session pass through anonymously; route
// guards decide whether that is acceptable.
func (rv *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(rv.cfg.SessionCookie)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, err := jwt.ParseWithClaims(cookie.Value, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(rv.cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			next.ServeHTTP(w, r)
			return
		}

		claims, ok := token.Claims.(*Claims)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := types.ParseID(claims.Subject)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		p := Principal{
			UserID: userID,
			Kind:   Kind(claims.Kind),
			Role:   Role(claims.Role),
		}

		// Beneficiary sessions carry their profile link from the directory,
		// never from the token. A missing link leaves BeneficiaryID zero:
		// authenticated but profile-incomplete.
		if p.Kind == KindBeneficiary {
			if u, err := rv.directory.FindUser(r.Context(), userID); err == nil {
				p.BeneficiaryID = u.BeneficiaryID
			}
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequireAuth rejects anonymous requests.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			httpx.WriteError(w, errors.Unauthorized("authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireStaff rejects non-staff principals.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := FromContext(r.Context())
		if !ok {
			httpx.WriteError(w, errors.Unauthorized("authentication required"))
			return
		}
		if !p.IsStaff() {
			httpx.WriteError(w, errors.Forbidden("staff access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects principals without any of the given roles.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := FromContext(r.Context())
			if !ok {
				httpx.WriteError(w, errors.Unauthorized("authentication required"))
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.WriteError(w, errors.Forbidden("insufficient role"))
		})
	}
}
