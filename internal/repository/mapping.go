package repository

import (
	"context"
	"errors"
	"time"

	"github.com/KZEN17/token-ready-sub000/internal/models"

	"gorm.io/gorm"
)

type MappingRepository struct {
	db *gorm.DB
}

func NewMappingRepository(db *gorm.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// Upsert 创建或覆盖VCA的代币合约映射
// 每个VCA最多一条有效映射
func (r *MappingRepository) Upsert(ctx context.Context, vcaAddress, tokenAddress string, mappedAt time.Time) (*models.ContractMapping, error) {
	var mapping *models.ContractMapping
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.ContractMapping
		err := tx.Where("vca_address = ?", vcaAddress).First(&existing).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			mapping = &models.ContractMapping{
				VCAAddress:   vcaAddress,
				TokenAddress: tokenAddress,
				MappedAt:     mappedAt,
			}
			return tx.Create(mapping).Error
		}
		if err != nil {
			return err
		}

		existing.TokenAddress = tokenAddress
		existing.MappedAt = mappedAt
		mapping = &existing
		return tx.Model(&existing).Updates(map[string]interface{}{
			"token_address": tokenAddress,
			"mapped_at":     mappedAt,
		}).Error
	})
	return mapping, err
}

// GetByVCA 查询VCA的当前映射，未找到返回nil
func (r *MappingRepository) GetByVCA(ctx context.Context, vcaAddress string) (*models.ContractMapping, error) {
	var mapping models.ContractMapping
	err := r.db.WithContext(ctx).
		Where("vca_address = ?", vcaAddress).
		First(&mapping).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}
