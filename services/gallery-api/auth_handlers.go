package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bitmark-inc/client-gallery/auth"
	"github.com/bitmark-inc/client-gallery/traceutils"
)

// Register creates an account and returns a bearer token for it
func (s *GalleryAPIServer) Register(c *gin.Context) {
	traceutils.SetHandlerTag(c, "Register")

	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, http.StatusBadRequest, "Name, email and password are required", err)
		return
	}

	result, err := s.auth.Register(c, req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingFields):
			s.abortWithError(c, http.StatusBadRequest, "Name, email and password are required", err)
		case errors.Is(err, auth.ErrUserExists):
			s.abortWithError(c, http.StatusBadRequest, "User already exists", err)
		default:
			s.abortWithError(c, http.StatusInternalServerError, "Error creating user", err)
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *GalleryAPIServer) Login(c *gin.Context) {
	traceutils.SetHandlerTag(c, "Login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, http.StatusUnauthorized, "Invalid credentials", err)
		return
	}

	result, err := s.auth.Login(c, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.abortWithError(c, http.StatusUnauthorized, "Invalid credentials", err)
			return
		}
		s.abortWithError(c, http.StatusInternalServerError, "Error logging in", err)
		return
	}

	c.JSON(http.StatusOK, result)
}
