package service

import (
	"context"
	"time"

	"github.com/KZEN17/token-ready-sub000/internal/models"
	"github.com/KZEN17/token-ready-sub000/internal/repository"
)

// 服务层依赖的存储接口，按消费方需要裁剪
// gorm仓库是生产实现，测试注入内存假实现

type vcaStore interface {
	GetByAddress(ctx context.Context, address string) (*models.VCA, error)
	GetByProjectID(ctx context.Context, projectID string) (*models.VCA, error)
	GetByTokenAddress(ctx context.Context, tokenAddress string) (*models.VCA, error)
	Create(ctx context.Context, vca *models.VCA) error
	List(ctx context.Context, limit, offset int) ([]models.VCA, error)
	Count(ctx context.Context) (int64, error)
	UpdateCounters(ctx context.Context, address string, uniqueBackers, reviews, signalScore int64) error
	SetTokenAddress(ctx context.Context, address, tokenAddress string) error
}

type mappingStore interface {
	Upsert(ctx context.Context, vcaAddress, tokenAddress string, mappedAt time.Time) (*models.ContractMapping, error)
	GetByVCA(ctx context.Context, vcaAddress string) (*models.ContractMapping, error)
}

type activityStore interface {
	Create(ctx context.Context, record *models.ActivityRecord) error
	GetAllByAddress(ctx context.Context, vcaAddress string) ([]models.ActivityRecord, error)
	ListByAddress(ctx context.Context, vcaAddress string, limit int) ([]models.ActivityRecord, error)
}

type actionStore interface {
	Award(ctx context.Context, action *models.BelieverAction, lastActiveAt time.Time, rankNameFor func(int64) string) (*models.User, error)
	GenerateDedupHash(userID string, actionType models.ActionType, targetID string, at time.Time) string
	ExistsByHash(ctx context.Context, hash string) (bool, error)
	ExistsByUserActionTarget(ctx context.Context, userID string, actionType models.ActionType, targetID string) (bool, error)
	GetLastAction(ctx context.Context, userID string, actionType models.ActionType) (*models.BelieverAction, error)
	SumPointsSince(ctx context.Context, userID string, actionType models.ActionType, since time.Time) (int64, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.BelieverAction, error)
}

type userStore interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

var (
	_ vcaStore      = (*repository.VCARepository)(nil)
	_ mappingStore  = (*repository.MappingRepository)(nil)
	_ activityStore = (*repository.ActivityRepository)(nil)
	_ actionStore   = (*repository.ActionRepository)(nil)
	_ userStore     = (*repository.UserRepository)(nil)
)
