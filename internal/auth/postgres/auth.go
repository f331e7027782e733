package postgres

import (
	"github.com/Dhia9030/CarRental-sub000/internal/auth"
	"github.com/Dhia9030/CarRental-sub000/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type AuthRepository struct {
	db *gorm.DB
}

func NewAuthRepository(db *gorm.DB) auth.RepositoryAPI {
	return &AuthRepository{db: db}
}

func (r *AuthRepository) GetPasswordForEmail(email string) (string, int64, error) {
	var u user.User
	err := r.db.Where("email = ? AND is_active = ?", email, true).First(&u).Error
	if err != nil {
		return "", 0, err
	}
	return u.PasswordHash, u.ID, nil
}

func (r *AuthRepository) GetUserByID(userID int64) (*auth.User, error) {
	var u user.User
	err := r.db.First(&u, userID).Error
	if err != nil {
		return nil, err
	}
	return &auth.User{
		ID:    u.ID,
		Email: u.Email,
		Role:  u.Role,
	}, nil
}

func (r *AuthRepository) GetAgencyIDForUser(userID int64) (int64, error) {
	var a user.Agency
	err := r.db.Where("user_id = ?", userID).First(&a).Error
	if err != nil {
		return 0, err
	}
	return a.ID, nil
}
