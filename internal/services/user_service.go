// internal/services/user_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stellara/stellara-backend/internal/models"
	"github.com/stellara/stellara-backend/internal/utils"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

type UpdateProfileRequest struct {
	Email       string                 `json:"email" validate:"omitempty,email"`
	ProfileData map[string]interface{} `json:"profile_data"`
}

// PublicProfile is the view other users see. It carries no balance and no
// email.
type PublicProfile struct {
	ID          uuid.UUID       `json:"id"`
	Username    string          `json:"username"`
	UserType    models.UserType `json:"user_type"`
	Collections int64           `json:"collections"`
	Assets      int64           `json:"assets"`
	Sales       int64           `json:"sales"`
}

func (s *UserService) GetUser(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserService) GetPublicProfile(username string) (*PublicProfile, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	profile := &PublicProfile{
		ID:       user.ID,
		Username: user.Username,
		UserType: user.UserType,
	}

	if err := s.db.Model(&models.Collection{}).Where("admin_id = ?", user.ID).Count(&profile.Collections).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Asset{}).Where("owner_id = ?", user.ID).Count(&profile.Assets).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Trade{}).Where("seller_id = ?", user.ID).Count(&profile.Sales).Error; err != nil {
		return nil, err
	}

	return profile, nil
}

func (s *UserService) UpdateProfile(userID uuid.UUID, req *UpdateProfileRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Email != "" && req.Email != user.Email {
		var existing models.User
		if err := s.db.Where("email = ? AND id != ?", req.Email, userID).First(&existing).Error; err == nil {
			return nil, fmt.Errorf("email already taken")
		}
		updates["email"] = req.Email
	}
	if req.ProfileData != nil {
		updates["profile_data"] = models.JSONB(req.ProfileData)
	}

	if len(updates) > 0 {
		if err := s.db.Model(user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}

	return s.GetUser(userID)
}

// SetUserStatus suspends, bans or reinstates an account. Admin only, and an
// admin cannot change their own status.
func (s *UserService) SetUserStatus(adminID, userID uuid.UUID, status models.UserStatus) (*models.User, error) {
	if adminID == userID {
		return nil, ErrUnauthorized
	}

	var admin models.User
	if err := s.db.First(&admin, "id = ?", adminID).Error; err != nil || !admin.IsAdmin() {
		return nil, ErrUnauthorized
	}

	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(user).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	user.Status = status
	return user, nil
}

func (s *UserService) ListUsers(params utils.PaginationParams) ([]models.User, int64, error) {
	query := s.db.Model(&models.User{})

	if params.Search != "" {
		term := "%" + params.Search + "%"
		query = query.Where("username ILIKE ? OR email ILIKE ?", term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	query = utils.ApplyPagination(query, params)
	query = utils.ApplySort(query, params, []string{"created_at", "username", "user_type"})
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}
