package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/KZEN17/token-ready-sub000/internal/models"

	"gorm.io/gorm"
)

// ActionRepository 积分发放的只追加账本
type ActionRepository struct {
	db *gorm.DB
}

func NewActionRepository(db *gorm.DB) *ActionRepository {
	return &ActionRepository{db: db}
}

func (r *ActionRepository) Create(ctx context.Context, action *models.BelieverAction) error {
	return r.db.WithContext(ctx).Create(action).Error
}

// Award 在单个事务中写入发放记录、累加用户积分并刷新等级
// 任一步失败整体回滚，不会留下携带dedup_hash或once_key的半写记录
func (r *ActionRepository) Award(ctx context.Context, action *models.BelieverAction, lastActiveAt time.Time, rankNameFor func(int64) string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(action).Error; err != nil {
			return err
		}

		result := tx.Model(&models.User{}).
			Where("user_id = ?", action.UserID).
			Update("cumulative_points", gorm.Expr("cumulative_points + ?", action.Points))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Where("user_id = ?", action.UserID).First(&user).Error; err != nil {
			return err
		}

		rankName := rankNameFor(user.CumulativePoints)
		if err := tx.Model(&models.User{}).
			Where("user_id = ?", action.UserID).
			Updates(map[string]interface{}{
				"rank_name":      rankName,
				"last_active_at": lastActiveAt,
			}).Error; err != nil {
			return err
		}

		user.RankName = rankName
		user.LastActiveAt = &lastActiveAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GenerateDedupHash 生成重试去重哈希
// 按分钟分桶，超时重试的重复调用落入同一桶被拒绝
func (r *ActionRepository) GenerateDedupHash(userID string, actionType models.ActionType, targetID string, at time.Time) string {
	bucket := at.UTC().Truncate(time.Minute).Unix()
	data := fmt.Sprintf("%s:%s:%s:%d", userID, actionType, targetID, bucket)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

func (r *ActionRepository) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BelieverAction{}).
		Where("dedup_hash = ?", hash).
		Count(&count).Error
	return count > 0, err
}

// ExistsByUserActionTarget 一次性动作的唯一性检查
func (r *ActionRepository) ExistsByUserActionTarget(ctx context.Context, userID string, actionType models.ActionType, targetID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BelieverAction{}).
		Where("user_id = ? AND action_type = ? AND target_id = ?", userID, actionType, targetID).
		Count(&count).Error
	return count > 0, err
}

// GetLastAction 返回用户指定动作的最近一条记录，未找到返回nil
func (r *ActionRepository) GetLastAction(ctx context.Context, userID string, actionType models.ActionType) (*models.BelieverAction, error) {
	var action models.BelieverAction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND action_type = ?", userID, actionType).
		Order("created_at DESC").
		First(&action).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &action, nil
}

// SumPointsSince 统计用户指定动作自某时刻起已得积分，日上限检查的输入
func (r *ActionRepository) SumPointsSince(ctx context.Context, userID string, actionType models.ActionType, since time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.BelieverAction{}).
		Select("COALESCE(SUM(points), 0)").
		Where("user_id = ? AND action_type = ? AND created_at >= ?", userID, actionType, since).
		Scan(&total).Error
	return total, err
}

// ListByUser 按时间倒序返回用户的发放记录
func (r *ActionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.BelieverAction, error) {
	var actions []models.BelieverAction
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&actions).Error
	return actions, err
}

func (r *ActionRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BelieverAction{}).
		Count(&count).Error
	return count, err
}
