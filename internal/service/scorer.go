package service

import (
	"context"
	"math"

	"github.com/KZEN17/token-ready-sub000/internal/models"
	"github.com/KZEN17/token-ready-sub000/pkg/errors"
	"github.com/KZEN17/token-ready-sub000/pkg/logger"
)

type ScoreSummary struct {
	UniqueBackers int64 `json:"unique_backers"`
	Reviews       int64 `json:"reviews"`
	Shares        int64 `json:"shares"`
	SignalScore   int64 `json:"signal_score"`
}

type ScorerService struct {
	activityRepo activityStore
	vcaRepo      vcaStore
}

func NewScorerService(
	activityRepo activityStore,
	vcaRepo vcaStore,
) *ScorerService {
	return &ScorerService{
		activityRepo: activityRepo,
		vcaRepo:      vcaRepo,
	}
}

// Tally 对完整活动历史做全量折叠统计
// uniqueBackers统计所有活动类型下的去重用户数，不只backing
func Tally(records []models.ActivityRecord) ScoreSummary {
	users := make(map[string]struct{}, len(records))
	var reviews, shares int64

	for _, r := range records {
		users[r.UserID] = struct{}{}
		switch r.ActivityType {
		case models.ActivityTypeReview:
			reviews++
		case models.ActivityTypeShare:
			shares++
		}
	}

	backers := int64(len(users))
	score := int64(math.Round(float64(backers)*1 + float64(shares)*0.5 + float64(reviews)*2))

	return ScoreSummary{
		UniqueBackers: backers,
		Reviews:       reviews,
		Shares:        shares,
		SignalScore:   score,
	}
}

// Recompute 从账本全量重算VCA的聚合计数并覆盖写回
// 每次追加活动后调用，代价O(账本长度)
func (s *ScorerService) Recompute(ctx context.Context, vcaAddress string) (*ScoreSummary, error) {
	records, err := s.activityRepo.GetAllByAddress(ctx, vcaAddress)
	if err != nil {
		return nil, errors.New(errors.ErrPersistence, "读取活动历史失败", err)
	}

	summary := Tally(records)

	if err := s.vcaRepo.UpdateCounters(ctx, vcaAddress, summary.UniqueBackers, summary.Reviews, summary.SignalScore); err != nil {
		return nil, errors.New(errors.ErrPersistence, "写回VCA计数失败", err)
	}

	logger.WithFields(map[string]interface{}{
		"vca_address":    vcaAddress,
		"unique_backers": summary.UniqueBackers,
		"reviews":        summary.Reviews,
		"shares":         summary.Shares,
		"signal_score":   summary.SignalScore,
	}).Debug("信念分已重算")

	return &summary, nil
}
