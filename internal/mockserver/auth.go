package mockserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ntkhang/classline/internal/dto"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const accessTokenTTL = 15 * time.Minute

const userKey = "mockserver.user"

func (s *Server) mintAccessToken(u *userRecord) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   strconv.FormatUint(uint64(u.ID), 10),
		"email": u.Email,
		"role":  u.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(accessTokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.MockServer.JWTSecret))
}

// issueTokens mints an access token and rotates in a fresh refresh token.
// Assumes s.mu is held.
func (s *Server) issueTokens(u *userRecord) (access, refresh string, err error) {
	access, err = s.mintAccessToken(u)
	if err != nil {
		return "", "", err
	}
	refresh = uuid.NewString()
	s.refreshTokens[refresh] = u.ID
	return access, refresh, nil
}

func (s *Server) userFromToken(tokenString string) *userRecord {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.MockServer.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usersByID[uint(id)]
}

func (s *Server) requireAuth(ctx *gin.Context) {
	header := ctx.GetHeader("Authorization")
	tokenString := strings.TrimPrefix(header, "Bearer ")
	if header == "" || tokenString == header {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Missing bearer token"})
		return
	}
	u := s.userFromToken(tokenString)
	if u == nil || !u.IsActive {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Invalid or expired token"})
		return
	}
	ctx.Set(userKey, u)
}

func (s *Server) requireAdmin(ctx *gin.Context) {
	if currentUser(ctx).Role != "admin" {
		ctx.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{Message: "Admin access required"})
	}
}

func currentUser(ctx *gin.Context) *userRecord {
	return ctx.MustGet(userKey).(*userRecord)
}

func userDTO(u *userRecord) dto.UserDTO {
	return dto.UserDTO{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

func (s *Server) handleLogin(ctx *gin.Context) {
	var req dto.LoginRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.usersByEmail[req.Email]
	if u == nil || bcrypt.CompareHashAndPassword(u.PassHash, []byte(req.Password)) != nil {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Invalid credentials"})
		return
	}
	access, refresh, err := s.issueTokens(u)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to issue tokens"})
		return
	}
	ctx.JSON(http.StatusOK, dto.AuthResponseDTO{Token: access, RefreshToken: refresh, User: userDTO(u)})
}

func (s *Server) handleAdminLogin(ctx *gin.Context) {
	var req dto.AdminLoginRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	if s.cfg.AdminKey == "" || req.AdminKey != s.cfg.AdminKey {
		ctx.JSON(http.StatusForbidden, dto.ErrorResponse{Message: "Invalid admin key"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.usersByEmail[req.Email]
	if u == nil || bcrypt.CompareHashAndPassword(u.PassHash, []byte(req.Password)) != nil {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Invalid credentials"})
		return
	}
	if u.Role != "admin" {
		ctx.JSON(http.StatusForbidden, dto.ErrorResponse{Message: "Not an admin account"})
		return
	}
	access, refresh, err := s.issueTokens(u)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to issue tokens"})
		return
	}
	ctx.JSON(http.StatusOK, dto.AuthResponseDTO{Token: access, RefreshToken: refresh, User: userDTO(u)})
}

func (s *Server) handleRegister(ctx *gin.Context) {
	var req dto.RegisterRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usersByEmail[req.Email] != nil {
		ctx.JSON(http.StatusConflict, dto.ErrorResponse{Message: "Email already registered"})
		return
	}
	u, err := s.addUser(req.Email, req.Password, req.Name, "student")
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to create account"})
		return
	}
	access, refresh, err := s.issueTokens(u)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to issue tokens"})
		return
	}
	log.Info().Str("email", u.Email).Msg("Registered new user")
	ctx.JSON(http.StatusCreated, dto.AuthResponseDTO{Token: access, RefreshToken: refresh, User: userDTO(u)})
}

// handleRefresh exchanges a refresh token for a new pair. The presented token
// is consumed: replaying it fails with a 401.
func (s *Server) handleRefresh(ctx *gin.Context) {
	var req dto.RefreshRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.refreshTokens[req.RefreshToken]
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Invalid refresh token"})
		return
	}
	delete(s.refreshTokens, req.RefreshToken)
	u := s.usersByID[userID]
	if u == nil || !u.IsActive {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Account unavailable"})
		return
	}
	access, refresh, err := s.issueTokens(u)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to issue tokens"})
		return
	}
	ctx.JSON(http.StatusOK, dto.RefreshResponseDTO{Token: access, RefreshToken: refresh})
}

func (s *Server) handleMe(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, userDTO(currentUser(ctx)))
}
