package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/go-oauth2/oauth2/v4"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by the auth middleware
const (
	UserIDKey   = "userID"
	UserRoleKey = "userRole"
	TokenKey    = "accessToken"
)

// TokenLoader looks an access token up in the token store. It fails for
// revoked and expired tokens.
type TokenLoader interface {
	LoadAccessToken(ctx context.Context, access string) (oauth2.TokenInfo, error)
}

// OAuth2Auth validates the JWT access token in the Authorization header and
// stores the caller in the context. Both "Bearer <token>" and "Token <token>"
// are accepted. With optional set, requests without the header continue
// anonymously; a header that is present but invalid is always rejected.
func OAuth2Auth(jwtSecret []byte, loader TokenLoader, optional bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if optional {
				c.Next()
				return
			}
			respondWithOAuth2Error(c, http.StatusUnauthorized, models.ErrInvalidRequest,
				"Authentication credentials were not provided.")
			return
		}

		tokenString, ok := extractToken(authHeader)
		if !ok {
			respondWithOAuth2Error(c, http.StatusUnauthorized, models.ErrInvalidRequest,
				"Authorization header must use the Bearer or Token scheme.")
			return
		}

		claims, err := parseAndValidateJWT(tokenString, jwtSecret)
		if err != nil {
			respondWithOAuth2Error(c, http.StatusUnauthorized, models.ErrInvalidToken, err.Error())
			return
		}

		if _, err := loader.LoadAccessToken(c.Request.Context(), tokenString); err != nil {
			respondWithOAuth2Error(c, http.StatusUnauthorized, models.ErrInvalidToken,
				"Token has been revoked or has expired.")
			return
		}

		if err := extractAndSetClaims(c, claims); err != nil {
			respondWithOAuth2Error(c, http.StatusUnauthorized, models.ErrInvalidToken, err.Error())
			return
		}
		c.Set(TokenKey, tokenString)

		c.Next()
	}
}

func extractToken(header string) (string, bool) {
	for _, scheme := range []string{"Bearer ", "Token "} {
		if strings.HasPrefix(header, scheme) {
			token := strings.TrimSpace(strings.TrimPrefix(header, scheme))
			return token, token != ""
		}
	}
	return "", false
}

// respondWithOAuth2Error responds with RFC 6750 compliant error format
func respondWithOAuth2Error(c *gin.Context, status int, errorCode, description string) {
	c.AbortWithStatusJSON(status, models.NewOAuth2Error(errorCode, description))
}

func parseJWTToken(tokenString string, jwtSecret []byte) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Reject anything but HMAC to rule out algorithm confusion
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v. Expected HMAC", token.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token parsing failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims format")
	}
	return claims, nil
}

// parseAndValidateJWT parses the JWT and checks its time based claims
func parseAndValidateJWT(tokenString string, jwtSecret []byte) (jwt.MapClaims, error) {
	claims, err := parseJWTToken(tokenString, jwtSecret)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("invalid exp claim: %w", err)
	}
	if exp != nil && exp.Before(now) {
		return nil, fmt.Errorf("token has expired")
	}

	iat, err := claims.GetIssuedAt()
	if err != nil {
		return nil, fmt.Errorf("invalid iat claim: %w", err)
	}
	if iat != nil && iat.After(now.Add(time.Minute)) {
		return nil, fmt.Errorf("token issued in the future")
	}

	return claims, nil
}

func extractAndSetClaims(c *gin.Context, claims jwt.MapClaims) error {
	userID, err := extractUserID(claims)
	if err != nil {
		return err
	}
	if userID == 0 {
		return fmt.Errorf("invalid user identifier: cannot be zero")
	}
	c.Set(UserIDKey, userID)

	if aud, ok := claims["aud"].(string); ok && aud != "" {
		c.Set("clientID", aud)
	}

	role, err := extractRole(claims)
	if err != nil {
		return err
	}
	c.Set(UserRoleKey, role)

	if scope, ok := claims["scope"].(string); ok && scope != "" {
		c.Set("scopes", scope)
	}
	return nil
}

func extractUserID(claims jwt.MapClaims) (uint, error) {
	if uid, ok := claims["uid"].(string); ok && uid != "" {
		parsedID, err := strconv.ParseUint(uid, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid uid claim format: must be a numeric string, got: %s", uid)
		}
		return uint(parsedID), nil
	}

	// JSON numbers decode as float64
	if uid, ok := claims["uid"].(float64); ok {
		if uid <= 0 {
			return 0, fmt.Errorf("invalid uid claim: must be positive, got: %f", uid)
		}
		return uint(uid), nil
	}

	return 0, fmt.Errorf("token missing required 'uid' claim")
}

func extractRole(claims jwt.MapClaims) (string, error) {
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return "", fmt.Errorf("token missing required 'role' claim")
	}

	switch role {
	case models.RoleAdmin, models.RoleUser:
		return role, nil
	default:
		return "", fmt.Errorf("invalid role '%s'. Allowed roles: admin, user", role)
	}
}

// CurrentUserID returns the authenticated user, or 0 for anonymous requests
func CurrentUserID(c *gin.Context) uint {
	if id, ok := c.Get(UserIDKey); ok {
		if uid, ok := id.(uint); ok {
			return uid
		}
	}
	return 0
}
