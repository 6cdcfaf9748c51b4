package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-booking/middlewares"
	"github.com/yeremiapane/restaurant-booking/services"
	"github.com/yeremiapane/restaurant-booking/utils"
)

const defaultRedirect = "/"

type UserController struct {
	Users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{Users: users}
}

func (uc *UserController) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	user, err := uc.Users.Register(c.Request.Context(), services.RegisterInput{
		Name: req.Name, Email: req.Email, Password: req.Password,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("New user registered: %s (role=%s)", user.Email, user.Role)
	utils.RespondJSON(c, http.StatusCreated, "User registered", gin.H{
		"token": token,
		"user":  user,
	})
}

// Login returns a token and where the client should go next. next is
// honoured only when it is a local path.
func (uc *UserController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Next     string `json:"next"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	user, err := uc.Users.Authenticate(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	next := input.Next
	if next == "" {
		next = c.Query("next")
	}

	utils.InfoLogger.Printf("Login successful for user: %s, role: %s", user.Email, user.Role)
	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token":       token,
		"user":        user,
		"redirect_to": utils.SafeRedirect(next, defaultRedirect),
	})
}

// Logout revokes the caller's token until it would have expired anyway.
func (uc *UserController) Logout(c *gin.Context) {
	token := c.GetString(middlewares.CtxToken)
	if token == "" {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("not logged in"))
		return
	}
	exp, ok := c.Get(middlewares.CtxTokenExp)
	expiresAt, isTime := exp.(time.Time)
	if !ok || !isTime {
		expiresAt = time.Now().Add(utils.JWTTTL)
	}
	utils.BlacklistToken(token, expiresAt)

	utils.RespondJSON(c, http.StatusOK, "Logged out", nil)
}

func (uc *UserController) GetProfile(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("user not found in context"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Profile data retrieved successfully", user)
}

func (uc *UserController) UpdateProfile(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("user not found in context"))
		return
	}

	var req services.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	updated, err := uc.Users.UpdateProfile(c.Request.Context(), user.ID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Profile updated", updated)
}

func currentEmail(c *gin.Context) string {
	return c.GetString(middlewares.CtxEmail)
}
