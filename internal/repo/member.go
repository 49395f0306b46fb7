package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mkravchenko/member-service/internal/models"
)

var ErrNotFound = errors.New("member not found")
var ErrAlreadyExists = errors.New("member already exists")

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Member{}).
		Where("username = ?", username).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) FindByUsername(ctx context.Context, username string) (*models.Member, error) {
	var member models.Member
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &member, nil
}

func (r *GormRepo) CreateIfNotExists(ctx context.Context, m *models.Member) error {
	tx := r.DB.WithContext(ctx).Where("username = ?", m.Username).FirstOrCreate(m)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (r *GormRepo) UpdateRefreshToken(ctx context.Context, username, refreshToken string) error {
	result := r.DB.WithContext(ctx).Model(&models.Member{}).
		Where("username = ?", username).
		Update("refresh_token", refreshToken)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
