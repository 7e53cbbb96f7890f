package handler

import (
	"civicgo/backend/internal/config"
	"civicgo/backend/internal/models"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	jwt "github.com/golang-jwt/jwt/v5"
)

const actorContextKey = "actor"

func jwtSecret() []byte {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return []byte(secret)
	}
	return []byte("dev-only-insecure-secret")
}

// generateToken issues a signed bearer token carrying the actor claims.
func generateToken(actor models.Actor) (string, error) {
	claims := jwt.MapClaims{
		"sub":  actor.ID,
		"name": actor.Name,
		"role": actor.Role,
		"exp":  time.Now().Add(config.TokenExpiry).Unix(),
		"iss":  config.JWTIssuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// parseActor validates a bearer token and extracts the actor it carries.
func parseActor(tokenString string) (models.Actor, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret(), nil
	})
	if err != nil || !token.Valid {
		return models.Actor{}, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Actor{}, errors.New("malformed claims")
	}
	actor := models.Actor{}
	if sub, ok := claims["sub"].(string); ok {
		actor.ID = sub
	}
	if name, ok := claims["name"].(string); ok {
		actor.Name = name
	}
	if role, ok := claims["role"].(string); ok {
		actor.Role = role
	}
	if actor.ID == "" {
		return models.Actor{}, errors.New("token carries no subject")
	}
	return actor, nil
}

// IssueToken creates a citizen identity and returns its JWT. Officer and
// admin tokens are provisioned by the identity system, which is outside
// this backend; this endpoint mirrors the anonymous-id flow.
func (h *Handler) IssueToken(c *gin.Context) {
	actor := models.Actor{
		ID:   uuid.New().String(),
		Name: c.Query("name"),
		Role: "citizen",
	}

	token, err := generateToken(actor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "actor_id": actor.ID})
}

// RequireActor extracts the current actor from the Authorization header
// and aborts unauthenticated requests.
func (h *Handler) RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
			return
		}
		actor, err := parseActor(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
			return
		}
		c.Set(actorContextKey, actor)
		c.Next()
	}
}

// currentActor returns the actor resolved by RequireActor.
func currentActor(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorContextKey); ok {
		if actor, ok := v.(models.Actor); ok {
			return actor
		}
	}
	return models.Actor{}
}
