package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shophand/logging"
	"shophand/middleware"
	"shophand/models"
	"shophand/services"
)

func (h *Handler) issue(c *gin.Context, status int, message string, user *models.User) {
	token, err := h.Auth.GenerateToken(user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, gin.H{
		"message": message,
		"token":   token,
		"user":    user,
	})
}

// Register creates a new user account
func (h *Handler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.Users.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.issue(c, http.StatusCreated, "Account created successfully", user)
}

// Login authenticates and returns a JWT
func (h *Handler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.Users.Authenticate(c.Request.Context(), req)
	if err != nil {
		logging.Warn(c, "auth.login_failed", map[string]any{"email": req.Email})
		respondError(c, err)
		return
	}
	h.issue(c, http.StatusOK, "Login successful", user)
}

// GetProfile returns the authenticated user, with the driver profile for drivers
func (h *Handler) GetProfile(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.Users.Get(ctx, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	body := gin.H{"user": user}
	if user.UserType == models.UserDriver {
		if d, err := h.Store.GetDriverByUserID(ctx, user.ID); err == nil && d != nil {
			body["driver"] = d
		}
	}
	c.JSON(http.StatusOK, body)
}
