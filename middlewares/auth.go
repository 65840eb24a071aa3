package middlewares

import (
	"errors"
	"slices"
	"strings"
	"time"

	"minerfix-backend/apperror"
	"minerfix-backend/audit"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

const (
	authHeader   = "Authorization"
	bearerPrefix = "Bearer "

	// CookieName is the HTTP-only cookie carrying the token for browser clients.
	CookieName = "jwt"

	localUserID      = "userID"
	localRole        = "role"
	localPermissions = "permissions"
)

var (
	errMissingToken = apperror.Unauthenticated("MISSING_TOKEN", "missing or invalid Authorization header")
	errInvalidToken = apperror.Unauthenticated("INVALID_TOKEN", "invalid or expired token")
	errForbidden    = apperror.Permission("FORBIDDEN", "you do not have permission to perform this action")
)

// Claims is our JWT payload: subject=user id plus the role and its permission codes.
type Claims struct {
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"perms"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("JWT secret not configured (set JWT_SECRET)")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for the user and returns it with its expiry.
func (t *TokenIssuer) Issue(userID, email, role string, permissions []string) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := &Claims{
		Email:       email,
		Role:        role,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	return signed, exp, err
}

// Parse validates raw and enforces HS256.
func (t *TokenIssuer) Parse(raw string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	var claims Claims
	token, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errInvalidToken
	}
	return &claims, nil
}

func tokenFrom(c *fiber.Ctx) string {
	h := c.Get(authHeader)
	if len(h) > len(bearerPrefix) && strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(h[len(bearerPrefix):])
	}
	return strings.TrimSpace(c.Cookies(CookieName))
}

// IsAuthenticated accepts a Bearer token or the jwt cookie and puts the
// caller into c.Locals and the audit actor of the request context.
func IsAuthenticated(issuer *TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := tokenFrom(c)
		if raw == "" {
			return errMissingToken
		}
		claims, err := issuer.Parse(raw)
		if err != nil {
			return err
		}

		c.Locals(localUserID, claims.Subject)
		c.Locals(localRole, claims.Role)
		c.Locals(localPermissions, claims.Permissions)

		actor := audit.ActorFrom(c.UserContext())
		actor.UserID = claims.Subject
		actor.Email = claims.Email
		actor.Role = claims.Role
		c.SetUserContext(audit.WithActor(c.UserContext(), actor))

		return c.Next()
	}
}

// RequirePermission lets the request through when the token carries code.
func RequirePermission(code string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		perms, _ := c.Locals(localPermissions).([]string)
		if !slices.Contains(perms, code) {
			return errForbidden
		}
		return c.Next()
	}
}

// UserID returns the authenticated user id, or "" on public routes.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}
