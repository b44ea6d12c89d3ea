package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/KZEN17/token-ready-sub000/internal/models"
)

// 内存假存储，只在测试中使用
// 写路径语义与gorm仓库一致：唯一约束冲突报错，事务失败不留半写记录

type fakeVCAStore struct {
	mu            sync.Mutex
	vcas          map[string]*models.VCA
	nextID        uint64
	createCalls   int
	setTokenCalls int
	failCounters  int
}

func newFakeVCAStore() *fakeVCAStore {
	return &fakeVCAStore{vcas: make(map[string]*models.VCA)}
}

func (f *fakeVCAStore) GetByAddress(_ context.Context, address string) (*models.VCA, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if vca, ok := f.vcas[address]; ok {
		copied := *vca
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeVCAStore) GetByProjectID(_ context.Context, projectID string) (*models.VCA, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, vca := range f.vcas {
		if vca.ProjectID == projectID {
			copied := *vca
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeVCAStore) GetByTokenAddress(_ context.Context, tokenAddress string) (*models.VCA, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, vca := range f.vcas {
		if vca.TokenAddress != nil && *vca.TokenAddress == tokenAddress {
			copied := *vca
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeVCAStore) Create(_ context.Context, vca *models.VCA) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	for _, existing := range f.vcas {
		if existing.ProjectID == vca.ProjectID || existing.Address == vca.Address {
			return fmt.Errorf("duplicate entry %q", vca.ProjectID)
		}
	}
	f.nextID++
	vca.ID = f.nextID
	vca.CreatedAt = time.Now().UTC()
	copied := *vca
	f.vcas[vca.Address] = &copied
	return nil
}

func (f *fakeVCAStore) List(_ context.Context, limit, offset int) ([]models.VCA, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.VCA
	for _, vca := range f.vcas {
		all = append(all, *vca)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (f *fakeVCAStore) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.vcas)), nil
}

func (f *fakeVCAStore) UpdateCounters(_ context.Context, address string, uniqueBackers, reviews, signalScore int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCounters > 0 {
		f.failCounters--
		return fmt.Errorf("update counters: connection reset")
	}
	vca, ok := f.vcas[address]
	if !ok {
		return nil
	}
	vca.UniqueBackers = uniqueBackers
	vca.Reviews = reviews
	vca.SignalScore = signalScore
	return nil
}

func (f *fakeVCAStore) SetTokenAddress(_ context.Context, address, tokenAddress string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setTokenCalls++
	if vca, ok := f.vcas[address]; ok {
		addr := tokenAddress
		vca.TokenAddress = &addr
	}
	return nil
}

type fakeMappingStore struct {
	mu          sync.Mutex
	mappings    map[string]*models.ContractMapping
	upsertCalls int
}

func newFakeMappingStore() *fakeMappingStore {
	return &fakeMappingStore{mappings: make(map[string]*models.ContractMapping)}
}

func (f *fakeMappingStore) Upsert(_ context.Context, vcaAddress, tokenAddress string, mappedAt time.Time) (*models.ContractMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	mapping, ok := f.mappings[vcaAddress]
	if !ok {
		mapping = &models.ContractMapping{VCAAddress: vcaAddress}
		f.mappings[vcaAddress] = mapping
	}
	mapping.TokenAddress = tokenAddress
	mapping.MappedAt = mappedAt
	copied := *mapping
	return &copied, nil
}

func (f *fakeMappingStore) GetByVCA(_ context.Context, vcaAddress string) (*models.ContractMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if mapping, ok := f.mappings[vcaAddress]; ok {
		copied := *mapping
		return &copied, nil
	}
	return nil, nil
}

type fakeActivityStore struct {
	mu      sync.Mutex
	records []models.ActivityRecord
	nextID  uint64
}

func newFakeActivityStore() *fakeActivityStore {
	return &fakeActivityStore{}
}

func (f *fakeActivityStore) Create(_ context.Context, record *models.ActivityRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	record.ID = f.nextID
	record.CreatedAt = time.Now().UTC()
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeActivityStore) GetAllByAddress(_ context.Context, vcaAddress string) ([]models.ActivityRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ActivityRecord
	for _, r := range f.records {
		if r.VCAAddress == vcaAddress {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (f *fakeActivityStore) ListByAddress(_ context.Context, vcaAddress string, limit int) ([]models.ActivityRecord, error) {
	all, _ := f.GetAllByAddress(context.Background(), vcaAddress)
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (f *fakeUserStore) GetByID(_ context.Context, userID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[userID]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeUserStore) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.UserID]; ok {
		return fmt.Errorf("duplicate entry %q", user.UserID)
	}
	copied := *user
	f.users[user.UserID] = &copied
	return nil
}

func (f *fakeUserStore) points(userID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[userID]; ok {
		return user.CumulativePoints
	}
	return 0
}

type fakeActionStore struct {
	mu         sync.Mutex
	actions    []models.BelieverAction
	users      *fakeUserStore
	nextID     uint64
	failAwards int
}

func newFakeActionStore(users *fakeUserStore) *fakeActionStore {
	return &fakeActionStore{users: users}
}

// Award 模拟事务语义：失败时不留任何记录
func (f *fakeActionStore) Award(_ context.Context, action *models.BelieverAction, lastActiveAt time.Time, rankNameFor func(int64) string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAwards > 0 {
		f.failAwards--
		return nil, fmt.Errorf("award tx: connection reset")
	}

	f.users.mu.Lock()
	defer f.users.mu.Unlock()
	user, ok := f.users.users[action.UserID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}

	f.nextID++
	action.ID = f.nextID
	action.CreatedAt = lastActiveAt
	f.actions = append(f.actions, *action)

	user.CumulativePoints += action.Points
	user.RankName = rankNameFor(user.CumulativePoints)
	active := lastActiveAt
	user.LastActiveAt = &active

	copied := *user
	return &copied, nil
}

func (f *fakeActionStore) GenerateDedupHash(userID string, actionType models.ActionType, targetID string, at time.Time) string {
	bucket := at.UTC().Truncate(time.Minute).Unix()
	return fmt.Sprintf("%s|%s|%s|%d", userID, actionType, targetID, bucket)
}

func (f *fakeActionStore) ExistsByHash(_ context.Context, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.actions {
		if a.DedupHash == hash {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeActionStore) ExistsByUserActionTarget(_ context.Context, userID string, actionType models.ActionType, targetID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.actions {
		if a.UserID == userID && a.ActionType == actionType && a.TargetID == targetID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeActionStore) GetLastAction(_ context.Context, userID string, actionType models.ActionType) (*models.BelieverAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last *models.BelieverAction
	for i := range f.actions {
		a := f.actions[i]
		if a.UserID != userID || a.ActionType != actionType {
			continue
		}
		if last == nil || a.CreatedAt.After(last.CreatedAt) {
			copied := a
			last = &copied
		}
	}
	return last, nil
}

func (f *fakeActionStore) SumPointsSince(_ context.Context, userID string, actionType models.ActionType, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, a := range f.actions {
		if a.UserID == userID && a.ActionType == actionType && !a.CreatedAt.Before(since) {
			total += a.Points
		}
	}
	return total, nil
}

func (f *fakeActionStore) ListByUser(_ context.Context, userID string, limit int) ([]models.BelieverAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.BelieverAction
	for i := len(f.actions) - 1; i >= 0; i-- {
		if f.actions[i].UserID == userID {
			out = append(out, f.actions[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeActionStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.actions)
}
