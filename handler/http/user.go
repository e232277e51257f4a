package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docochat/src/core/user"
)

type createUserRequest struct {
	Username string `json:"username" binding:"required"`
}

// CreateUser godoc
// @Summary Register a new user with default allowances
// @Tags users
// @Accept json
// @Produce json
// @Param body body createUserRequest true "User parameters"
// @Success 201 {object} user.User
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /users [post]
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	u, err := h.userService.Create(c.Request.Context(), req.Username)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusCreated, u)
}

// GetUser godoc
// @Summary Get a user by ID
// @Tags users
// @Param id path string true "User ID"
// @Produce json
// @Success 200 {object} user.User
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /users/{id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	u, err := h.userService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	if u == nil {
		sendError(c, http.StatusNotFound, user.ErrNotFound)
		return
	}

	sendJSON(c, http.StatusOK, u)
}
