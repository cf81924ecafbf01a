package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/school-transit/internal/auth"
	"github.com/ukydev/school-transit/internal/db"
	"github.com/ukydev/school-transit/internal/middleware"
	"github.com/ukydev/school-transit/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthHandler serves login, registration and account self-service.
//
// Registration is deliberately lopsided: parents sign themselves up and name
// the students they guard, while driver, staff and admin accounts can only be
// created by a caller who already holds an admin token.
type AuthHandler struct {
	authService *auth.Service
	users       db.UserCollection
	students    db.StudentCollection
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, users db.UserCollection, students db.StudentCollection) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		users:       users,
		students:    students,
	}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var loginReq models.LoginRequest
	if err := json.Unmarshal(body, &loginReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if loginReq.Username == "" || loginReq.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.users.FindUserByUsername(r.Context(), loginReq.Username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		log.WithError(err).Error("user lookup failed during login")
		http.Error(w, "Temporarily unable to log in", http.StatusServiceUnavailable)
		return
	}

	if !user.IsActive {
		http.Error(w, "Account is deactivated", http.StatusUnauthorized)
		return
	}

	if !h.authService.CheckPassword(loginReq.Password, user.PasswordHash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	if err := h.users.UpdateLastLogin(r.Context(), user.ID.Hex()); err != nil {
		// The login still stands.
		log.WithField("username", user.Username).WithError(err).Warn("failed to update last login")
	}

	response := models.LoginResponse{
		Token: token,
		User:  *user,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var registerReq models.RegisterRequest
	if err := json.Unmarshal(body, &registerReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	role := registerReq.Role
	if role == "" {
		role = models.RoleParent
	}
	if !models.IsValidRole(role) {
		http.Error(w, "Invalid role", http.StatusBadRequest)
		return
	}

	// Anonymous signup is for parents only. Every other role needs an admin
	// behind the request.
	if role != models.RoleParent {
		claims, ok := middleware.GetUserFromContext(r.Context())
		if !ok || claims.Role != models.RoleAdmin {
			http.Error(w, "Self-registration is limited to parent accounts", http.StatusForbidden)
			return
		}
	}

	if err := h.authService.ValidateUsername(registerReq.Username); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.authService.ValidateEmail(registerReq.Email); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.authService.ValidatePassword(registerReq.Password); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if taken, err := h.usernameTaken(r, registerReq.Username); err != nil {
		log.WithError(err).Error("username lookup failed during registration")
		http.Error(w, "Temporarily unable to register", http.StatusServiceUnavailable)
		return
	} else if taken {
		http.Error(w, "Username already exists", http.StatusConflict)
		return
	}

	if taken, err := h.emailTaken(r, registerReq.Email); err != nil {
		log.WithError(err).Error("email lookup failed during registration")
		http.Error(w, "Temporarily unable to register", http.StatusServiceUnavailable)
		return
	} else if taken {
		http.Error(w, "Email already exists", http.StatusConflict)
		return
	}

	passwordHash, err := h.authService.HashPassword(registerReq.Password)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	user := models.User{
		ID:           primitive.NewObjectID(),
		Username:     registerReq.Username,
		Email:        registerReq.Email,
		PasswordHash: passwordHash,
		Role:         role,
		FirstName:    registerReq.FirstName,
		LastName:     registerReq.LastName,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	// Guardian links are written before the account so an unknown student id
	// rejects the signup instead of minting an orphan parent account.
	if role == models.RoleParent {
		for _, studentID := range registerReq.StudentIDs {
			if err := h.students.SetStudentGuardian(r.Context(), studentID, user.ID.Hex()); err != nil {
				if errors.Is(err, db.ErrNotFound) {
					http.Error(w, fmt.Sprintf("Unknown student %q", studentID), http.StatusBadRequest)
					return
				}
				log.WithField("student_id", studentID).WithError(err).Error("guardian link failed during registration")
				http.Error(w, "Temporarily unable to register", http.StatusServiceUnavailable)
				return
			}
		}
	}

	if err := h.users.InsertUser(r.Context(), user); err != nil {
		log.WithField("username", user.Username).WithError(err).Error("user insert failed")
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	token, err := h.authService.GenerateToken(&user)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	response := models.LoginResponse{
		Token: token,
		User:  user,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}

func (h *AuthHandler) usernameTaken(r *http.Request, username string) (bool, error) {
	_, err := h.users.FindUserByUsername(r.Context(), username)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, db.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (h *AuthHandler) emailTaken(r *http.Request, email string) (bool, error) {
	_, err := h.users.FindUserByEmail(r.Context(), email)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, db.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// GetProfile handles GET /api/auth/profile.
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	user, err := h.users.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		log.WithField("user_id", claims.UserID).WithError(err).Error("profile lookup failed")
		http.Error(w, "Temporarily unable to load profile", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// ChangePassword handles POST /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var passwordReq struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.Unmarshal(body, &passwordReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if passwordReq.CurrentPassword == "" || passwordReq.NewPassword == "" {
		http.Error(w, "Current password and new password are required", http.StatusBadRequest)
		return
	}
	if err := h.authService.ValidatePassword(passwordReq.NewPassword); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.users.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	if !h.authService.CheckPassword(passwordReq.CurrentPassword, user.PasswordHash) {
		http.Error(w, "Current password is incorrect", http.StatusUnauthorized)
		return
	}

	newPasswordHash, err := h.authService.HashPassword(passwordReq.NewPassword)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	if err := h.users.UpdatePassword(r.Context(), claims.UserID, newPasswordHash); err != nil {
		log.WithField("user_id", claims.UserID).WithError(err).Error("password update failed")
		http.Error(w, "Failed to update password", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Password changed successfully"})
}
