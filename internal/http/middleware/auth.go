package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"switchboard.app/server/common/logger"
	"switchboard.app/server/internal/tenant"
)

var errMissingToken = errors.New("missing bearer token")

// TenantClaims is the JWT payload accepted by the admin and agent APIs.
type TenantClaims struct {
	TenantID string `json:"tid"`
	jwt.RegisteredClaims
}

type TokenVerifier struct {
	key    []byte
	parser *jwt.Parser
}

// NewTokenVerifier accepts HS256 tokens signed with signingKey. When issuer is
// set, tokens must carry it.
func NewTokenVerifier(signingKey, issuer string) *TokenVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &TokenVerifier{key: []byte(signingKey), parser: jwt.NewParser(opts...)}
}

func (v *TokenVerifier) Verify(raw string) (*TenantClaims, error) {
	claims := &TenantClaims{}
	_, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return nil, err
	}
	if claims.TenantID == "" {
		return nil, errors.New("token has no tenant")
	}
	return claims, nil
}

// RequireTenant authenticates the bearer token and puts its tenant on the
// request context.
func RequireTenant(verifier *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		raw, err := bearerToken(c.GetHeader("Authorization"))
		if err == nil {
			var claims *TenantClaims
			claims, err = verifier.Verify(raw)
			if err == nil {
				ctx = tenant.WithInfo(ctx, tenant.Info{TenantID: claims.TenantID, LoggedInUser: claims.Subject})
				ctx = logger.WithLogFields(ctx, logger.LogFields{TenantID: logger.Ptr(claims.TenantID)})
				c.Request = c.Request.WithContext(ctx)
				c.Next()
				return
			}
		}

		slog.WarnContext(ctx, "rejected api request", "error", err, "route", c.FullPath())
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}

func bearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errMissingToken
	}
	return strings.TrimSpace(token), nil
}
