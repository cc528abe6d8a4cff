package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parking-share-backend/internal/auth"
	"parking-share-backend/internal/mw"
)

type registerRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, tok, err := h.svc.Accounts.Register(c.Request.Context(), auth.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user, "access_token": tok})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, tok, err := h.svc.Accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "access_token": tok})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	profile, err := h.svc.Accounts.Me(c.Request.Context(), mw.CurrentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ListPointTransactions handles GET /points/transactions.
func (h *Handler) ListPointTransactions(c *gin.Context) {
	user := mw.CurrentUser(c)
	entries, err := h.svc.Accounts.ListPointTransactions(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": user.Points, "transactions": entries})
}

// VerifyUser handles POST /admin/users/:id/verify.
func (h *Handler) VerifyUser(c *gin.Context) {
	user, err := h.svc.Accounts.VerifyUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
