package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/IstiakDeveloper/orgreeni/api/responses"
	"github.com/IstiakDeveloper/orgreeni/pkg/auth"
	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
)

// SessionHeader names the anonymous cart owner when no bearer token is sent.
const SessionHeader = "X-Session-ID"

const maxSessionIDLength = 128

type tokenVerifier interface {
	Verify(raw string) (auth.Principal, error)
}

// Identity resolves the Caller. A bearer token is optional but must verify
// when present. The session header is kept alongside a token so a guest
// cart can be merged after login.
func Identity(tokens tokenVerifier, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			var caller Caller
			fields := map[string]any{}

			if sessionID := strings.TrimSpace(r.Header.Get(SessionHeader)); sessionID != "" {
				if len(sessionID) > maxSessionIDLength {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session id too long"))
					return
				}
				caller.SessionID = sessionID
				fields["session_id"] = sessionID
			}

			if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
				raw, ok := bearerToken(header)
				if !ok {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid authorization header"))
					return
				}
				principal, err := tokens.Verify(raw)
				if err != nil {
					msg := "invalid access token"
					if errors.Is(err, auth.ErrTokenExpired) {
						msg = "access token expired"
					}
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, msg))
					return
				}
				caller.UserID = principal.UserID
				caller.Role = principal.Role
				fields["user_id"] = principal.UserID.String()
				fields["actor_role"] = principal.Role
			}

			ctx = WithCaller(ctx, caller)
			if logg != nil && len(fields) > 0 {
				ctx = logg.WithFields(ctx, fields)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects requests without an authenticated user.
func RequireUser(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !CallerFrom(r.Context()).Authenticated() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwner rejects requests that carry neither a user nor a session.
func RequireOwner(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !CallerFrom(r.Context()).Identified() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, SessionHeader+" header or bearer token required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
