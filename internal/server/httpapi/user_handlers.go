package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adarshn/notebox/internal/common"
	"github.com/adarshn/notebox/internal/server/services"
)

// readFormFile loads an uploaded multipart file into memory. A missing file
// is reported as nil data, not an error; the service decides whether the
// file is required.
func readFormFile(c *gin.Context, field string) ([]byte, string, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("%w: invalid %s upload", common.ErrValidation, field)
	}

	file, err := header.Open()
	if err != nil {
		return nil, "", fmt.Errorf("error opening %s upload: %w", field, err)
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("error reading %s upload: %w", field, err)
	}

	return data, header.Header.Get("Content-Type"), nil
}

func (s *Server) handleRegister(c *gin.Context) {
	avatar, contentType, err := readFormFile(c, "avatar")
	if err != nil {
		s.fail(c, err)
		return
	}

	in := services.RegisterInput{
		Username:          c.PostForm("username"),
		Email:             c.PostForm("email"),
		Fullname:          c.PostForm("fullname"),
		Password:          c.PostForm("password"),
		Avatar:            avatar,
		AvatarContentType: contentType,
	}

	user, resent, err := s.users.Register(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}

	if resent {
		respond(c, http.StatusOK, user.Public(), "Account exists but not verified. New verification email sent.")
		return
	}
	respond(c, http.StatusCreated, user.Public(), "User registered successfully. Please check your email to verify your account.")
}

func (s *Server) handleVerifyEmail(c *gin.Context) {
	err := s.users.VerifyEmail(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrValidation) {
			c.Redirect(http.StatusFound, s.cfg.ClientOrigin+"/signup?verified=false")
			return
		}
		s.fail(c, err)
		return
	}

	c.Redirect(http.StatusFound, s.cfg.ClientOrigin+"/login?verified=true")
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: invalid request body", common.ErrValidation))
		return
	}

	login := req.Username
	if login == "" {
		login = req.Email
	}

	user, pair, err := s.users.Login(c.Request.Context(), login, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.setAuthCookies(c, pair)
	respond(c, http.StatusOK, gin.H{
		"user":         user.Public(),
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	}, "User logged in successfully")
}

func (s *Server) handleLogout(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		s.fail(c, fmt.Errorf("%w: no user is currently logged in", common.ErrValidation))
		return
	}

	if err := s.users.Logout(c.Request.Context(), user.ID); err != nil {
		s.fail(c, err)
		return
	}

	s.clearAuthCookies(c)
	respond(c, http.StatusOK, nil, "User logged out successfully")
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleRefreshToken(c *gin.Context) {
	token, _ := c.Cookie(refreshTokenCookie)
	if token == "" {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			token = req.RefreshToken
		}
	}

	pair, err := s.users.Refresh(c.Request.Context(), token)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.setAuthCookies(c, pair)
	respond(c, http.StatusOK, gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	}, "Access token refreshed successfully")
}

type changePasswordRequest struct {
	CurrentPassword    string `json:"currentPassword"`
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

func (s *Server) handleChangePassword(c *gin.Context) {
	user, _ := currentUser(c)

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: invalid request body", common.ErrValidation))
		return
	}

	err := s.users.ChangePassword(c.Request.Context(), user.ID,
		req.CurrentPassword, req.NewPassword, req.ConfirmNewPassword)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{}, "Password changed successfully")
}

func (s *Server) handleProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		s.fail(c, fmt.Errorf("%w: user not found", common.ErrUnauthorized))
		return
	}

	respond(c, http.StatusOK, user, "Current user fetched successfully")
}

type updateAccountRequest struct {
	Username string `json:"username"`
	Fullname string `json:"fullname"`
}

func (s *Server) handleUpdateAccount(c *gin.Context) {
	user, _ := currentUser(c)

	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: invalid request body", common.ErrValidation))
		return
	}

	updated, err := s.users.UpdateAccount(c.Request.Context(), user.ID, req.Username, req.Fullname)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, updated.Public(), "User details updated successfully")
}

func (s *Server) handleUpdateAvatar(c *gin.Context) {
	user, _ := currentUser(c)

	if id := c.Param("userId"); id != user.ID {
		s.fail(c, fmt.Errorf("%w: cannot update another user's avatar", common.ErrForbidden))
		return
	}

	avatar, contentType, err := readFormFile(c, "avatar")
	if err != nil {
		s.fail(c, err)
		return
	}

	updated, err := s.users.UpdateAvatar(c.Request.Context(), user.ID, avatar, contentType)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, updated.Public(), "Avatar updated successfully")
}
