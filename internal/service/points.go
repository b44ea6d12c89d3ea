package service

import (
	"context"
	"fmt"
	"time"

	"github.com/KZEN17/token-ready-sub000/internal/models"
	"github.com/KZEN17/token-ready-sub000/internal/policy"
	"github.com/KZEN17/token-ready-sub000/internal/rank"
	"github.com/KZEN17/token-ready-sub000/pkg/errors"
	"github.com/KZEN17/token-ready-sub000/pkg/keylock"
	"github.com/KZEN17/token-ready-sub000/pkg/logger"
)

type PointsService struct {
	userRepo   userStore
	actionRepo actionStore
	locks      *keylock.KeyLock
	now        func() time.Time
}

func NewPointsService(
	userRepo userStore,
	actionRepo actionStore,
	locks *keylock.KeyLock,
) *PointsService {
	return &PointsService{
		userRepo:   userRepo,
		actionRepo: actionRepo,
		locks:      locks,
		now:        time.Now,
	}
}

type AwardResult struct {
	Points    int64                  `json:"points"`
	Action    *models.BelieverAction `json:"action,omitempty"`
	User      *models.User           `json:"user,omitempty"`
	Duplicate bool                   `json:"duplicate,omitempty"`
}

// AwardPoints 将一次用户动作转换为积分发放
// 同一用户的发放持有键锁串行执行；累计积分走数据库端原子加法
// 守卫顺序：规则→用户→一次性→重试去重→冷却/日上限，任一失败无副作用
func (s *PointsService) AwardPoints(ctx context.Context, userID string, actionType models.ActionType, targetID string, metadata models.JSONB) (*AwardResult, error) {
	rule, ok := policy.RuleFor(actionType)
	if !ok {
		return nil, errors.New(errors.ErrUnknownAction, "未知动作类型", nil)
	}
	if userID == "" {
		return nil, errors.New(errors.ErrInvalidInput, "用户ID不能为空", nil)
	}

	var result *AwardResult
	err := s.locks.Do("user:"+userID, func() error {
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return errors.New(errors.ErrPersistence, "查询用户失败", err)
		}
		if user == nil {
			return errors.New(errors.ErrUserNotFound, "用户不存在", nil)
		}

		now := s.now().UTC()

		if rule.OneTime {
			exists, err := s.actionRepo.ExistsByUserActionTarget(ctx, userID, actionType, targetID)
			if err != nil {
				return errors.New(errors.ErrPersistence, "一次性动作检查失败", err)
			}
			if exists {
				return errors.New(errors.ErrDuplicateAction, "一次性动作已执行过", nil)
			}
		}

		dedupHash := s.actionRepo.GenerateDedupHash(userID, actionType, targetID, now)
		replayed, err := s.actionRepo.ExistsByHash(ctx, dedupHash)
		if err != nil {
			return errors.New(errors.ErrPersistence, "重试去重检查失败", err)
		}
		if replayed {
			logger.WithFields(map[string]interface{}{
				"user_id":     userID,
				"action_type": actionType,
				"dedup_hash":  dedupHash,
			}).Debug("重复发放请求已忽略")
			result = &AwardResult{Points: 0, User: user, Duplicate: true}
			return nil
		}

		decision, err := s.decide(ctx, rule, userID, now)
		if err != nil {
			return err
		}
		if !decision.Allowed {
			if decision.Reason == policy.ReasonDailyCapReached {
				return errors.New(errors.ErrDailyCapReached, "已达当日积分上限", nil)
			}
			return errors.New(errors.ErrCooldownActive,
				"冷却中，结束于 "+decision.CooldownEndsAt.Format(time.RFC3339), nil)
		}

		points := policy.ComputePoints(rule, metadata)

		action := &models.BelieverAction{
			UserID:     userID,
			ActionType: actionType,
			Points:     points,
			TargetID:   targetID,
			Metadata:   metadata,
			DedupHash:  dedupHash,
		}
		if rule.OneTime {
			onceKey := fmt.Sprintf("%s:%s:%s", userID, actionType, targetID)
			action.OnceKey = &onceKey
		}

		// 发放记录、积分累加、等级刷新在一个事务内提交
		// 失败整体回滚，去重键不会被半写记录占用，重试仍可成功
		updated, err := s.actionRepo.Award(ctx, action, now, func(points int64) string {
			return rank.RankFor(points).Name
		})
		if err != nil {
			return errors.New(errors.ErrPersistence, "积分发放写入失败", err)
		}

		result = &AwardResult{Points: points, Action: action, User: updated}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Duplicate {
		logger.WithFields(map[string]interface{}{
			"user_id":     userID,
			"action_type": actionType,
			"points":      result.Points,
			"rank":        result.User.RankName,
		}).Info("积分已发放")
	}

	return result, nil
}

// EnsureUser 幂等的用户注册
// 已存在时直接返回，重复注册不是错误
func (s *PointsService) EnsureUser(ctx context.Context, userID, handle string) (*models.User, error) {
	if userID == "" {
		return nil, errors.New(errors.ErrInvalidInput, "用户ID不能为空", nil)
	}

	var user *models.User
	err := s.locks.Do("user:"+userID, func() error {
		existing, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return errors.New(errors.ErrPersistence, "查询用户失败", err)
		}
		if existing != nil {
			user = existing
			return nil
		}

		user = &models.User{
			UserID:   userID,
			Handle:   handle,
			RankName: rank.RankFor(0).Name,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			// 跨进程竞争时唯一索引兜底，回读已有记录
			fallback, getErr := s.userRepo.GetByID(ctx, userID)
			if getErr == nil && fallback != nil {
				user = fallback
				return nil
			}
			return errors.New(errors.ErrPersistence, "创建用户失败", err)
		}

		logger.WithFields(map[string]interface{}{
			"user_id": userID,
			"handle":  handle,
		}).Info("用户已注册")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CanPerform 从账本取最近动作时间和当日已得积分后委托纯函数判定
func (s *PointsService) CanPerform(ctx context.Context, userID string, actionType models.ActionType) (*policy.Decision, error) {
	rule, ok := policy.RuleFor(actionType)
	if !ok {
		return nil, errors.New(errors.ErrUnknownAction, "未知动作类型", nil)
	}
	decision, err := s.decide(ctx, rule, userID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	return decision, nil
}

func (s *PointsService) decide(ctx context.Context, rule policy.ActionRule, userID string, now time.Time) (*policy.Decision, error) {
	var lastAt *time.Time
	if rule.CooldownHours > 0 {
		last, err := s.actionRepo.GetLastAction(ctx, userID, rule.Type)
		if err != nil {
			return nil, errors.New(errors.ErrPersistence, "查询最近动作失败", err)
		}
		if last != nil {
			t := last.CreatedAt
			lastAt = &t
		}
	}

	var dailyPoints int64
	if rule.MaxDailyPoints > 0 {
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		sum, err := s.actionRepo.SumPointsSince(ctx, userID, rule.Type, dayStart)
		if err != nil {
			return nil, errors.New(errors.ErrPersistence, "统计当日积分失败", err)
		}
		dailyPoints = sum
	}

	decision := policy.CanPerform(rule, now, lastAt, dailyPoints)
	return &decision, nil
}

// GetUserPoints 返回用户积分聚合及下一等级信息
func (s *PointsService) GetUserPoints(ctx context.Context, userID string) (*models.User, *rank.NextRankInfo, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, errors.New(errors.ErrPersistence, "查询用户失败", err)
	}
	if user == nil {
		return nil, nil, errors.New(errors.ErrUserNotFound, "用户不存在", nil)
	}
	next, _ := rank.NextRank(user.CumulativePoints)
	return user, next, nil
}

// ListUserActions 按时间倒序返回用户的发放记录
func (s *PointsService) ListUserActions(ctx context.Context, userID string, limit int) ([]models.BelieverAction, error) {
	actions, err := s.actionRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, errors.New(errors.ErrPersistence, "查询发放记录失败", err)
	}
	return actions, nil
}

// HasAwarded 判断用户是否已因某目标获得过指定动作的发放
func (s *PointsService) HasAwarded(ctx context.Context, userID string, actionType models.ActionType, targetID string) (bool, error) {
	return s.actionRepo.ExistsByUserActionTarget(ctx, userID, actionType, targetID)
}
