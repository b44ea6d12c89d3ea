package repository

import (
	"context"

	"github.com/KZEN17/token-ready-sub000/internal/models"

	"gorm.io/gorm"
)

// ActivityRepository 只追加的活动账本
// 不提供更新或删除方法
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, record *models.ActivityRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// GetAllByAddress 按时间正序返回完整活动历史，评分重算的输入
func (r *ActivityRepository) GetAllByAddress(ctx context.Context, vcaAddress string) ([]models.ActivityRecord, error) {
	var records []models.ActivityRecord
	err := r.db.WithContext(ctx).
		Where("vca_address = ?", vcaAddress).
		Order("timestamp ASC").
		Find(&records).Error
	return records, err
}

// ListByAddress 按时间倒序返回最近的活动记录
func (r *ActivityRepository) ListByAddress(ctx context.Context, vcaAddress string, limit int) ([]models.ActivityRecord, error) {
	var records []models.ActivityRecord
	query := r.db.WithContext(ctx).
		Where("vca_address = ?", vcaAddress).
		Order("timestamp DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&records).Error
	return records, err
}

// ListRecentByType 按类型返回时间窗口内的活动记录，分享核验任务使用
func (r *ActivityRepository) ListRecentByType(ctx context.Context, activityType models.ActivityType, limit int) ([]models.ActivityRecord, error) {
	var records []models.ActivityRecord
	if limit <= 0 {
		limit = 100
	}
	err := r.db.WithContext(ctx).
		Where("activity_type = ?", activityType).
		Order("timestamp DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (r *ActivityRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ActivityRecord{}).
		Count(&count).Error
	return count, err
}
