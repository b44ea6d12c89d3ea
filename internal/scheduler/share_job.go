package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/KZEN17/token-ready-sub000/internal/models"
	"github.com/KZEN17/token-ready-sub000/internal/repository"
	"github.com/KZEN17/token-ready-sub000/internal/service"
	"github.com/KZEN17/token-ready-sub000/pkg/errors"
	"github.com/KZEN17/token-ready-sub000/pkg/logger"
)

// ShareVerifier 外部分享核验协作方
// 核心只消费布尔信号：该分享是否应计分
type ShareVerifier interface {
	Verify(ctx context.Context, record models.ActivityRecord) (bool, error)
}

// NoopVerifier 默认核验器，一律不计分
type NoopVerifier struct{}

func (NoopVerifier) Verify(ctx context.Context, record models.ActivityRecord) (bool, error) {
	return false, nil
}

// ShareVerifyJob 周期性回扫未计分的分享活动
// 对核验通过的分享回调积分引擎发放create_tweet积分
type ShareVerifyJob struct {
	cron         *cron.Cron
	activityRepo *repository.ActivityRepository
	pointsSvc    *service.PointsService
	verifier     ShareVerifier
	cronExpr     string
	batchSize    int
}

func NewShareVerifyJob(
	activityRepo *repository.ActivityRepository,
	pointsSvc *service.PointsService,
	verifier ShareVerifier,
	cronExpr string,
	batchSize int,
) *ShareVerifyJob {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ShareVerifyJob{
		cron:         cron.New(cron.WithSeconds()),
		activityRepo: activityRepo,
		pointsSvc:    pointsSvc,
		verifier:     verifier,
		cronExpr:     cronExpr,
		batchSize:    batchSize,
	}
}

func (j *ShareVerifyJob) Start() error {
	_, err := j.cron.AddFunc(j.cronExpr, j.run)
	if err != nil {
		return err
	}

	j.cron.Start()
	logger.Info("Share verification job started")
	return nil
}

func (j *ShareVerifyJob) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
	logger.Info("Share verification job stopped")
}

func (j *ShareVerifyJob) run() {
	ctx := context.Background()

	records, err := j.activityRepo.ListRecentByType(ctx, models.ActivityTypeShare, j.batchSize)
	if err != nil {
		logger.Error("Failed to list share activity:", err)
		return
	}

	var awarded int
	for _, record := range records {
		done, err := j.pointsSvc.HasAwarded(ctx, record.UserID, models.ActionCreateTweet, record.VCAAddress)
		if err != nil {
			logger.Error("Failed to check existing award:", err)
			continue
		}
		if done {
			continue
		}

		verdict, err := j.verifier.Verify(ctx, record)
		if err != nil {
			logger.Error("Share verification failed:", err)
			continue
		}
		if !verdict {
			continue
		}

		if _, err := j.pointsSvc.AwardPoints(ctx, record.UserID, models.ActionCreateTweet, record.VCAAddress, record.Details); err != nil {
			// 冷却或重复发放不算失败，其余错误记录后继续下一条
			if errors.HasCode(err, errors.ErrCooldownActive) || errors.HasCode(err, errors.ErrDuplicateAction) {
				continue
			}
			logger.Error("Failed to award share points:", err)
			continue
		}
		awarded++
	}

	if awarded > 0 {
		logger.WithFields(map[string]interface{}{
			"scanned": len(records),
			"awarded": awarded,
		}).Info("分享核验完成")
	}
}
