package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"smart-health-server/internal/config"
	"smart-health-server/internal/models"
	"smart-health-server/internal/utils"
)

// UserHandler handles account management for administrators.
type UserHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(db *gorm.DB, cfg *config.Config) *UserHandler {
	return &UserHandler{DB: db, Cfg: cfg}
}

// CreateUserRequest represents the request body for creating a user by an admin.
type CreateUserRequest struct {
	Username  string `json:"username" binding:"required,max=150"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Role      string `json:"role" binding:"required,oneof=patient doctor admin"`
	FirstName string `json:"first_name" binding:"max=100"`
	LastName  string `json:"last_name" binding:"max=100"`
}

// CreateUser creates an account of any role together with its profile.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var existing models.User
	if err := h.DB.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		utils.BadRequest(c, "A user with that username already exists.")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	user := models.User{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      models.Role(req.Role),
		IsActive:  true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		switch user.Role {
		case models.RoleDoctor:
			return tx.Create(&models.DoctorProfile{UserID: user.ID}).Error
		case models.RolePatient:
			return tx.Create(&models.PatientProfile{UserID: user.ID}).Error
		}
		return nil
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to create user: "+err.Error())
		return
	}

	utils.Created(c, "User created successfully", user.Sanitize())
}

// GetUsers lists accounts, optionally filtered by role, one page at a time.
func (h *UserHandler) GetUsers(c *gin.Context) {
	p := utils.PaginationFromContext(c, h.Cfg.PageSize)

	query := h.DB.Model(&models.User{})
	if role := models.Role(c.Query("role")); role != "" {
		if !role.Valid() {
			utils.BadRequest(c, "role must be one of: patient, doctor, admin")
			return
		}
		query = query.Where("role = ?", role)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		utils.InternalServerError(c, "Failed to count users: "+err.Error())
		return
	}

	var users []models.User
	if err := query.Order("created_at asc").Limit(p.PageSize).Offset(p.Offset()).Find(&users).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch users: "+err.Error())
		return
	}

	sanitized := make([]models.UserSanitized, len(users))
	for i := range users {
		sanitized[i] = users[i].Sanitize()
	}

	utils.Success(c, "Users fetched successfully", utils.NewPage(sanitized, total, p))
}

// GetUserByID handles fetching a single user by ID (admin).
func (h *UserHandler) GetUserByID(c *gin.Context) {
	user, ok := h.findUser(c)
	if !ok {
		return
	}
	utils.Success(c, "User fetched successfully", user.Sanitize())
}

// UpdateUserRequest represents the request body for updating a user by an admin.
// Passwords are changed by the account owner only.
type UpdateUserRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,max=100"`
	LastName  *string `json:"last_name" binding:"omitempty,max=100"`
	Email     *string `json:"email" binding:"omitempty,email"`
	IsActive  *bool   `json:"is_active"`
	IsStaff   *bool   `json:"is_staff"`
}

// UpdateUser handles updating a user by ID (admin). Roles are fixed at
// creation because each role owns a profile.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req UpdateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	user, ok := h.findUser(c)
	if !ok {
		return
	}

	updates := map[string]any{}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
		updates["first_name"] = user.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
		updates["last_name"] = user.LastName
	}
	if req.Email != nil {
		user.Email = *req.Email
		updates["email"] = user.Email
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
		updates["is_active"] = user.IsActive
	}
	if req.IsStaff != nil {
		user.IsStaff = *req.IsStaff
		updates["is_staff"] = user.IsStaff
	}
	if len(updates) > 0 {
		if err := h.DB.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			utils.InternalServerError(c, "Failed to update user: "+err.Error())
			return
		}
	}

	utils.Success(c, "User updated successfully", user.Sanitize())
}

// DeactivateUser disables an account and revokes its refresh tokens. Rows
// are kept because appointments and reports reference them.
func (h *UserHandler) DeactivateUser(c *gin.Context) {
	user, ok := h.findUser(c)
	if !ok {
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.RefreshToken{}).Where("user_id = ?", user.ID).Update("is_revoked", true).Error
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to deactivate user: "+err.Error())
		return
	}

	utils.Success(c, "User deactivated successfully", nil)
}

func (h *UserHandler) findUser(c *gin.Context) (*models.User, bool) {
	var user models.User
	if err := h.DB.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return nil, false
	}
	return &user, true
}
