package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"travelbooking/internal/app/policies"
	domainuser "travelbooking/internal/domain/user"
)

const principalContextKey = "travelbooking.principal"

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the actor id in the subject and its roles.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

type principal struct {
	ID    string
	Roles []domainuser.Role
}

func (p principal) HasRole(role domainuser.Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (p principal) actor() domainuser.Actor {
	return domainuser.Actor{ID: domainuser.ID(p.ID), Roles: p.Roles}
}

// Tokens signs and verifies HS256 bearer tokens.
type Tokens struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

func (t Tokens) Issue(subject string, roles ...domainuser.Role) (string, error) {
	now := t.now()
	ttl := t.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(r))
	}
	claims := Claims{
		Roles: names,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    t.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.Secret)
}

func (t Tokens) Parse(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	}
	if t.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.Issuer))
	}
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return t.Secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (t Tokens) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// AuthMiddleware resolves the bearer token into a principal. Requests without a token continue anonymously;
// handlers decide whether that is acceptable.
type AuthMiddleware struct {
	Tokens Tokens
	Logger *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.Next()
		return
	}
	token := extractBearerToken(header)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header format must be Bearer {token}"})
		return
	}
	claims, err := m.Tokens.Parse(token)
	if err != nil {
		if m.Logger != nil {
			m.Logger.DebugContext(c.Request.Context(), "token validation failed", "error", err)
		}
		msg := "invalid token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			msg = "token has expired"
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
		return
	}
	p := principal{ID: claims.Subject, Roles: domainuser.ParseRoles(strings.Join(claims.Roles, ","))}
	c.Set(principalContextKey, p)
	c.Request = c.Request.WithContext(policies.WithActor(c.Request.Context(), p.actor()))
	c.Next()
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

// requireRole answers 401 without a principal and 403 when it holds none of roles. No roles means any.
func requireRole(c *gin.Context, roles ...domainuser.Role) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return principal{}, false
	}
	if len(roles) == 0 {
		return p, true
	}
	for _, role := range roles {
		if p.HasRole(role) {
			return p, true
		}
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
	return principal{}, false
}

func extractBearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
