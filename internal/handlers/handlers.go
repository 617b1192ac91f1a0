package handlers

import (
	"swiftride/internal/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// currentUser pulls the identity the auth middleware attached to the request.
// Core services never read ambient state; identity always arrives as an
// explicit argument from here.
func currentUser(c *gin.Context) (primitive.ObjectID, models.UserRole, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		return primitive.NilObjectID, "", false
	}

	id, ok := userID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, "", false
	}

	role, _ := c.Get("user_role")
	roleStr, _ := role.(string)

	return id, models.UserRole(roleStr), true
}
