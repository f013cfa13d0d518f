package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/internal/presentation/http/dto/response"
	"github.com/sangkips/pos-engine/pkg/utils"
)

const operatorKey = "operator"

// AuthMiddleware creates a JWT authentication middleware
func AuthMiddleware(jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Authorization header is required")
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateAccessToken(parts[1])
		if err != nil {
			response.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(operatorKey, entity.Operator{
			ID:          claims.OperatorID,
			Name:        claims.Name,
			Permissions: claims.Permissions,
		})

		c.Next()
	}
}

// GetOperator returns the authenticated operator
func GetOperator(c *gin.Context) (entity.Operator, bool) {
	v, exists := c.Get(operatorKey)
	if !exists {
		return entity.Operator{}, false
	}
	op, ok := v.(entity.Operator)
	return op, ok
}

// GetOperatorID returns the authenticated operator id or uuid.Nil
func GetOperatorID(c *gin.Context) uuid.UUID {
	op, ok := GetOperator(c)
	if !ok {
		return uuid.Nil
	}
	return op.ID
}

// RequirePermission creates a middleware that requires a specific permission
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		op, ok := GetOperator(c)
		if !ok {
			response.Forbidden(c, "Access denied")
			c.Abort()
			return
		}

		if !op.Can(permission) {
			response.Forbidden(c, "You do not have permission to perform this action")
			c.Abort()
			return
		}

		c.Next()
	}
}
