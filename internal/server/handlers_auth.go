package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type googleLoginRequest struct {
	AccessToken string `json:"accessToken"`
}

func (s *Server) handleGoogleLogin(c *gin.Context) {
	var req googleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AccessToken == "" {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, email, err := s.auth.Login(c.Request.Context(), req.AccessToken)
	if err != nil {
		s.logger.Warn("login failed", "error", err)
		respondError(c, http.StatusUnauthorized, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "email": email})
}
