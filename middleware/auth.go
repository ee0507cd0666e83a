package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dcode-github/realtor_listing/backend/apperror"
	"github.com/dcode-github/realtor_listing/backend/models"
	"github.com/dcode-github/realtor_listing/backend/utils"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RealtorLookup interface {
	FindByIdentity(ctx context.Context, id primitive.ObjectID, email string) (*models.Realtor, error)
}

type AdminLookup interface {
	FindByIdentity(ctx context.Context, id primitive.ObjectID, email string) (*models.Admin, error)
}

// Authenticator resolves the bearer token of a request to a stored account.
// A token is only accepted while it is still the account's current session.
type Authenticator struct {
	tokens   *utils.TokenManager
	realtors RealtorLookup
	admins   AdminLookup
	log      logrus.FieldLogger
}

func NewAuthenticator(tokens *utils.TokenManager, realtors RealtorLookup, admins AdminLookup, log logrus.FieldLogger) *Authenticator {
	return &Authenticator{tokens: tokens, realtors: realtors, admins: admins, log: log}
}

type rejection struct {
	reason string
	err    error
}

func (a *Authenticator) claims(r *http.Request) (*utils.Claims, primitive.ObjectID, *rejection) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, primitive.NilObjectID, &rejection{reason: "missing_header"}
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return nil, primitive.NilObjectID, &rejection{reason: "malformed_scheme"}
	}
	claims, err := a.tokens.Validate(parts[1], utils.PurposeSession)
	if err != nil {
		return nil, primitive.NilObjectID, &rejection{reason: "invalid_token", err: err}
	}
	id, err := primitive.ObjectIDFromHex(claims.ID)
	if err != nil {
		return nil, primitive.NilObjectID, &rejection{reason: "invalid_token", err: err}
	}
	return claims, id, nil
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func (a *Authenticator) reject(w http.ResponseWriter, r *http.Request, rej *rejection) {
	entry := a.log.WithFields(logrus.Fields{
		"request_id": GetRequestID(r),
		"method":     r.Method,
		"uri":        r.RequestURI,
		"reason":     rej.reason,
	})
	if rej.err != nil {
		entry = entry.WithError(rej.err)
	}
	entry.Warn("Unauthenticated request")
	utils.WriteError(w, apperror.Authentication("Not authorized", nil))
}

// Realtor admits requests carrying a current realtor session.
func (a *Authenticator) Realtor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, id, rej := a.claims(r)
		if rej != nil {
			a.reject(w, r, rej)
			return
		}
		realtor, err := a.realtors.FindByIdentity(r.Context(), id, claims.Email)
		if err != nil {
			a.reject(w, r, &rejection{reason: "unknown_account", err: err})
			return
		}
		if realtor.Auth.Token != bearer(r) {
			a.reject(w, r, &rejection{reason: "stale_session"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithRealtor(r.Context(), realtor)))
	})
}

// Admin admits requests carrying a current admin session.
func (a *Authenticator) Admin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, id, rej := a.claims(r)
		if rej != nil {
			a.reject(w, r, rej)
			return
		}
		admin, err := a.admins.FindByIdentity(r.Context(), id, claims.Email)
		if err != nil {
			a.reject(w, r, &rejection{reason: "unknown_account", err: err})
			return
		}
		if admin.Token != bearer(r) {
			a.reject(w, r, &rejection{reason: "stale_session"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), admin)))
	})
}

func WithRealtor(ctx context.Context, realtor *models.Realtor) context.Context {
	return context.WithValue(ctx, realtorKey, realtor)
}

func WithAdmin(ctx context.Context, admin *models.Admin) context.Context {
	return context.WithValue(ctx, adminKey, admin)
}

func RealtorFrom(ctx context.Context) (*models.Realtor, bool) {
	realtor, ok := ctx.Value(realtorKey).(*models.Realtor)
	return realtor, ok && realtor != nil
}

func AdminFrom(ctx context.Context) (*models.Admin, bool) {
	admin, ok := ctx.Value(adminKey).(*models.Admin)
	return admin, ok && admin != nil
}
