package repository

import (
	"context"
	"errors"

	"github.com/KZEN17/token-ready-sub000/internal/models"

	"gorm.io/gorm"
)

type VCARepository struct {
	db *gorm.DB
}

func NewVCARepository(db *gorm.DB) *VCARepository {
	return &VCARepository{db: db}
}

// GetByAddress 按VCA地址查询，未找到返回nil
func (r *VCARepository) GetByAddress(ctx context.Context, address string) (*models.VCA, error) {
	var vca models.VCA
	err := r.db.WithContext(ctx).
		Where("address = ?", address).
		First(&vca).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vca, nil
}

// GetByProjectID 按归一化项目ID查询，未找到返回nil
func (r *VCARepository) GetByProjectID(ctx context.Context, projectID string) (*models.VCA, error) {
	var vca models.VCA
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		First(&vca).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vca, nil
}

// GetByTokenAddress 按已映射代币地址查询，未找到返回nil
func (r *VCARepository) GetByTokenAddress(ctx context.Context, tokenAddress string) (*models.VCA, error) {
	var vca models.VCA
	err := r.db.WithContext(ctx).
		Where("token_address = ?", tokenAddress).
		First(&vca).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vca, nil
}

func (r *VCARepository) Create(ctx context.Context, vca *models.VCA) error {
	return r.db.WithContext(ctx).Create(vca).Error
}

// List 按创建时间倒序分页返回
func (r *VCARepository) List(ctx context.Context, limit, offset int) ([]models.VCA, error) {
	var vcas []models.VCA
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&vcas).Error
	return vcas, err
}

func (r *VCARepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.VCA{}).
		Count(&count).Error
	return count, err
}

// UpdateCounters 将重算结果覆盖写回VCA记录
func (r *VCARepository) UpdateCounters(ctx context.Context, address string, uniqueBackers, reviews, signalScore int64) error {
	return r.db.WithContext(ctx).
		Model(&models.VCA{}).
		Where("address = ?", address).
		Updates(map[string]interface{}{
			"unique_backers": uniqueBackers,
			"reviews":        reviews,
			"signal_score":   signalScore,
		}).Error
}

// SetTokenAddress 将代币合约地址盖章到VCA记录，重新映射时覆盖
func (r *VCARepository) SetTokenAddress(ctx context.Context, address, tokenAddress string) error {
	return r.db.WithContext(ctx).
		Model(&models.VCA{}).
		Where("address = ?", address).
		Update("token_address", tokenAddress).Error
}
