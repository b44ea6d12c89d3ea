package service

import (
	"context"
	"time"

	"github.com/KZEN17/token-ready-sub000/internal/address"
	"github.com/KZEN17/token-ready-sub000/internal/models"
	"github.com/KZEN17/token-ready-sub000/pkg/errors"
	"github.com/KZEN17/token-ready-sub000/pkg/keylock"
	"github.com/KZEN17/token-ready-sub000/pkg/logger"
)

type LedgerService struct {
	vcaRepo      vcaStore
	activityRepo activityStore
	scorer       *ScorerService
	locks        *keylock.KeyLock
}

func NewLedgerService(
	vcaRepo vcaStore,
	activityRepo activityStore,
	scorer *ScorerService,
	locks *keylock.KeyLock,
) *LedgerService {
	return &LedgerService{
		vcaRepo:      vcaRepo,
		activityRepo: activityRepo,
		scorer:       scorer,
		locks:        locks,
	}
}

type AppendActivityInput struct {
	ActivityType models.ActivityType
	UserID       string
	Timestamp    *time.Time
	Details      models.JSONB
}

// Append 向VCA账本追加一条不可变活动记录并触发评分重算
// 同一地址的追加和重算持有键锁串行执行
// 记录落库后重算失败时返回已存储的记录和SCORE_RECOMPUTE_ERROR，不静默吞掉
func (s *LedgerService) Append(ctx context.Context, vcaAddress string, input AppendActivityInput) (*models.ActivityRecord, error) {
	if !address.Valid(vcaAddress) {
		return nil, errors.New(errors.ErrInvalidAddress, "VCA地址格式无效", nil)
	}
	if !input.ActivityType.Valid() {
		return nil, errors.New(errors.ErrInvalidInput, "未知活动类型", nil)
	}
	if input.UserID == "" {
		return nil, errors.New(errors.ErrInvalidInput, "用户ID不能为空", nil)
	}
	addr := address.Normalize(vcaAddress)

	var record *models.ActivityRecord
	err := s.locks.Do("vca:"+addr, func() error {
		vca, err := s.vcaRepo.GetByAddress(ctx, addr)
		if err != nil {
			return errors.New(errors.ErrPersistence, "查询VCA失败", err)
		}
		if vca == nil {
			return errors.New(errors.ErrNotFound, "VCA不存在", nil)
		}

		timestamp := time.Now().UTC()
		if input.Timestamp != nil {
			timestamp = input.Timestamp.UTC()
		}

		record = &models.ActivityRecord{
			VCAAddress:   addr,
			ActivityType: input.ActivityType,
			UserID:       input.UserID,
			Timestamp:    timestamp,
			Details:      input.Details,
		}

		if err := s.activityRepo.Create(ctx, record); err != nil {
			record = nil
			return errors.New(errors.ErrPersistence, "追加活动记录失败", err)
		}

		if _, err := s.scorer.Recompute(ctx, addr); err != nil {
			return errors.New(errors.ErrScoreRecompute, "活动已记录但评分重算失败", err)
		}
		return nil
	})
	if err != nil {
		return record, err
	}

	logger.WithFields(map[string]interface{}{
		"vca_address":   addr,
		"activity_type": record.ActivityType,
		"user_id":       record.UserID,
	}).Info("活动已追加")

	return record, nil
}

// ListByAddress 按时间倒序返回VCA最近的活动快照
func (s *LedgerService) ListByAddress(ctx context.Context, vcaAddress string, limit int) ([]models.ActivityRecord, error) {
	if !address.Valid(vcaAddress) {
		return nil, errors.New(errors.ErrInvalidAddress, "VCA地址格式无效", nil)
	}
	records, err := s.activityRepo.ListByAddress(ctx, address.Normalize(vcaAddress), limit)
	if err != nil {
		return nil, errors.New(errors.ErrPersistence, "查询活动记录失败", err)
	}
	return records, nil
}
