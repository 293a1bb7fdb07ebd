package controllers

import (
	"net/http"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/services"
	"github.com/gin-gonic/gin"
)

type UserController struct {
	users     services.UserService
	relations services.RelationService
	pageSize  int
}

func NewUserController(users services.UserService, relations services.RelationService, pageSize int) *UserController {
	return &UserController{users: users, relations: relations, pageSize: pageSize}
}

// Register godoc
// @Summary Register a user
// @Tags users
// @Accept json
// @Produce json
// @Param user body services.RegisterInput true "New user"
// @Success 201 {object} map[string]interface{} "email, id, username, first_name, last_name"
// @Failure 400 {object} models.APIError
// @Router /api/users/ [post]
func (uc *UserController) Register(c *gin.Context) {
	var req services.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := uc.users.CreateUser(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"email":      user.Email,
		"id":         user.ID,
		"username":   user.Username,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
	})
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} Paginated
// @Router /api/users/ [get]
func (uc *UserController) ListUsers(c *gin.Context) {
	page := pageFromQuery(c, uc.pageSize)
	users, total, err := uc.users.ListUsers(c.Request.Context(), currentUserID(c), page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paginated(c, page, total, users))
}

// Me godoc
// @Summary Current user profile
// @Tags users
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} models.OAuth2Error
// @Security BearerAuth
// @Router /api/users/me/ [get]
func (uc *UserController) Me(c *gin.Context) {
	uid := currentUserID(c)
	user, err := uc.users.GetProfile(c.Request.Context(), uid, uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// GetProfile godoc
// @Summary User profile
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} models.APIError
// @Router /api/users/{id}/ [get]
func (uc *UserController) GetProfile(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user, err := uc.users.GetProfile(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// SetPassword godoc
// @Summary Change password
// @Tags users
// @Accept json
// @Param passwords body services.SetPasswordInput true "Current and new password"
// @Success 204
// @Failure 400 {object} models.APIError
// @Security BearerAuth
// @Router /api/users/set_password/ [post]
func (uc *UserController) SetPassword(c *gin.Context) {
	var req services.SetPasswordInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if err := uc.users.SetPassword(c.Request.Context(), currentUserID(c), req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Subscriptions godoc
// @Summary Followed authors
// @Description Authors the current user follows, each with a preview of their newest recipes
// @Tags users
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param recipes_limit query int false "Recipes per author"
// @Success 200 {object} Paginated
// @Security BearerAuth
// @Router /api/users/subscriptions/ [get]
func (uc *UserController) Subscriptions(c *gin.Context) {
	page := pageFromQuery(c, uc.pageSize)
	subs, total, err := uc.users.ListSubscriptions(c.Request.Context(), currentUserID(c), page, queryInt(c, "recipes_limit"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paginated(c, page, total, subs))
}

// Subscribe godoc
// @Summary Follow an author
// @Tags users
// @Produce json
// @Param id path int true "Author ID"
// @Param recipes_limit query int false "Recipes in the preview"
// @Success 201 {object} models.Subscription
// @Failure 400 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/users/{id}/subscribe/ [post]
func (uc *UserController) Subscribe(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	uid := currentUserID(c)
	if err := uc.relations.Follow(c.Request.Context(), uid, id); err != nil {
		respondError(c, err)
		return
	}

	sub, err := uc.users.GetSubscription(c.Request.Context(), uid, id, queryInt(c, "recipes_limit"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// Unsubscribe godoc
// @Summary Stop following an author
// @Tags users
// @Param id path int true "Author ID"
// @Success 204
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/users/{id}/subscribe/ [delete]
func (uc *UserController) Unsubscribe(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := uc.relations.Unfollow(c.Request.Context(), currentUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
