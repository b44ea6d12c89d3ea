package service

import (
	"context"
	"strings"
	"time"

	"github.com/KZEN17/token-ready-sub000/internal/address"
	"github.com/KZEN17/token-ready-sub000/internal/models"
	"github.com/KZEN17/token-ready-sub000/pkg/errors"
	"github.com/KZEN17/token-ready-sub000/pkg/keylock"
	"github.com/KZEN17/token-ready-sub000/pkg/logger"

	"github.com/google/uuid"
)

type RegistryService struct {
	vcaRepo     vcaStore
	mappingRepo mappingStore
	locks       *keylock.KeyLock
}

func NewRegistryService(
	vcaRepo vcaStore,
	mappingRepo mappingStore,
	locks *keylock.KeyLock,
) *RegistryService {
	return &RegistryService{
		vcaRepo:     vcaRepo,
		mappingRepo: mappingRepo,
		locks:       locks,
	}
}

// NormalizeProjectID 项目ID归一化：去空白转小写
func NormalizeProjectID(projectID string) string {
	return strings.ToLower(strings.TrimSpace(projectID))
}

// CreateOrGet 幂等的创建或获取
// 同一项目重复调用返回同一VCA，重复创建不是错误
// 地址在首次创建时派生并缓存，盐取一次性UUID
func (s *RegistryService) CreateOrGet(ctx context.Context, projectID, owner string) (*models.VCA, error) {
	normalized := NormalizeProjectID(projectID)
	if normalized == "" {
		return nil, errors.New(errors.ErrInvalidInput, "项目ID不能为空", nil)
	}

	existing, err := s.vcaRepo.GetByProjectID(ctx, normalized)
	if err != nil {
		return nil, errors.New(errors.ErrPersistence, "查询VCA失败", err)
	}
	if existing != nil {
		return existing, nil
	}

	var vca *models.VCA
	lockErr := s.locks.Do("project:"+normalized, func() error {
		// 锁内复查，并发创建只会有一个写入者
		existing, err := s.vcaRepo.GetByProjectID(ctx, normalized)
		if err != nil {
			return errors.New(errors.ErrPersistence, "查询VCA失败", err)
		}
		if existing != nil {
			vca = existing
			return nil
		}

		salt := uuid.NewString()
		vca = &models.VCA{
			Address:   address.Generate(normalized, salt),
			ProjectID: normalized,
			Owner:     owner,
		}

		if err := s.vcaRepo.Create(ctx, vca); err != nil {
			// 跨进程竞争时唯一索引兜底，回读已有记录
			fallback, getErr := s.vcaRepo.GetByProjectID(ctx, normalized)
			if getErr == nil && fallback != nil {
				vca = fallback
				return nil
			}
			return errors.New(errors.ErrPersistence, "创建VCA失败", err)
		}

		logger.WithFields(map[string]interface{}{
			"project_id":  normalized,
			"vca_address": vca.Address,
			"owner":       owner,
		}).Info("VCA已创建")
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}
	return vca, nil
}

// Get 按地址获取VCA
func (s *RegistryService) Get(ctx context.Context, vcaAddress string) (*models.VCA, error) {
	if !address.Valid(vcaAddress) {
		return nil, errors.New(errors.ErrInvalidAddress, "VCA地址格式无效", nil)
	}
	vca, err := s.vcaRepo.GetByAddress(ctx, address.Normalize(vcaAddress))
	if err != nil {
		return nil, errors.New(errors.ErrPersistence, "查询VCA失败", err)
	}
	if vca == nil {
		return nil, errors.New(errors.ErrNotFound, "VCA不存在", nil)
	}
	return vca, nil
}

// GetByProjectID 按归一化项目ID获取VCA
func (s *RegistryService) GetByProjectID(ctx context.Context, projectID string) (*models.VCA, error) {
	normalized := NormalizeProjectID(projectID)
	if normalized == "" {
		return nil, errors.New(errors.ErrInvalidInput, "项目ID不能为空", nil)
	}
	vca, err := s.vcaRepo.GetByProjectID(ctx, normalized)
	if err != nil {
		return nil, errors.New(errors.ErrPersistence, "查询VCA失败", err)
	}
	if vca == nil {
		return nil, errors.New(errors.ErrNotFound, "VCA不存在", nil)
	}
	return vca, nil
}

// GetByTokenAddress 按已映射的代币合约地址获取VCA
func (s *RegistryService) GetByTokenAddress(ctx context.Context, tokenAddress string) (*models.VCA, error) {
	if !address.Valid(tokenAddress) {
		return nil, errors.New(errors.ErrInvalidAddress, "代币地址格式无效", nil)
	}
	vca, err := s.vcaRepo.GetByTokenAddress(ctx, address.Normalize(tokenAddress))
	if err != nil {
		return nil, errors.New(errors.ErrPersistence, "查询VCA失败", err)
	}
	if vca == nil {
		return nil, errors.New(errors.ErrNotFound, "VCA不存在", nil)
	}
	return vca, nil
}

// List 按创建时间倒序分页返回VCA
func (s *RegistryService) List(ctx context.Context, limit, offset int) ([]models.VCA, error) {
	if limit <= 0 {
		limit = 20
	}
	vcas, err := s.vcaRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, errors.New(errors.ErrPersistence, "查询VCA列表失败", err)
	}
	return vcas, nil
}

func (s *RegistryService) Count(ctx context.Context) (int64, error) {
	return s.vcaRepo.Count(ctx)
}

// MapToContract 项目发行后将VCA一次性映射到真实代币合约
// 两个地址都先做格式校验，任何写入之前失败即返回
// 重新映射会覆盖原映射
func (s *RegistryService) MapToContract(ctx context.Context, vcaAddress, tokenAddress string) (*models.ContractMapping, error) {
	if !address.Valid(vcaAddress) {
		return nil, errors.New(errors.ErrInvalidAddress, "VCA地址格式无效", nil)
	}
	if !address.Valid(tokenAddress) {
		return nil, errors.New(errors.ErrInvalidAddress, "代币地址格式无效", nil)
	}
	vcaAddr := address.Normalize(vcaAddress)
	tokenAddr := address.Normalize(tokenAddress)

	var mapping *models.ContractMapping
	err := s.locks.Do("vca:"+vcaAddr, func() error {
		vca, err := s.vcaRepo.GetByAddress(ctx, vcaAddr)
		if err != nil {
			return errors.New(errors.ErrPersistence, "查询VCA失败", err)
		}
		if vca == nil {
			return errors.New(errors.ErrNotFound, "VCA不存在", nil)
		}

		mappedAt := time.Now().UTC()
		mapping, err = s.mappingRepo.Upsert(ctx, vcaAddr, tokenAddr, mappedAt)
		if err != nil {
			return errors.New(errors.ErrPersistence, "写入映射失败", err)
		}

		if err := s.vcaRepo.SetTokenAddress(ctx, vcaAddr, tokenAddr); err != nil {
			return errors.New(errors.ErrPersistence, "更新VCA代币地址失败", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"vca_address":   vcaAddr,
		"token_address": tokenAddr,
	}).Info("VCA已映射到代币合约")

	return mapping, nil
}

// GetMapping 查询VCA的当前代币合约映射
func (s *RegistryService) GetMapping(ctx context.Context, vcaAddress string) (*models.ContractMapping, error) {
	if !address.Valid(vcaAddress) {
		return nil, errors.New(errors.ErrInvalidAddress, "VCA地址格式无效", nil)
	}
	mapping, err := s.mappingRepo.GetByVCA(ctx, address.Normalize(vcaAddress))
	if err != nil {
		return nil, errors.New(errors.ErrPersistence, "查询映射失败", err)
	}
	if mapping == nil {
		return nil, errors.New(errors.ErrNotFound, "映射不存在", nil)
	}
	return mapping, nil
}
