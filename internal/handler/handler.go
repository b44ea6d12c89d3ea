package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/KZEN17/token-ready-sub000/internal/models"
	"github.com/KZEN17/token-ready-sub000/internal/rank"
	"github.com/KZEN17/token-ready-sub000/internal/repository"
	"github.com/KZEN17/token-ready-sub000/internal/service"
	"github.com/KZEN17/token-ready-sub000/pkg/errors"
)

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeAppError 将错误分类映射到HTTP状态码
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.HasCode(err, errors.ErrInvalidAddress),
		errors.HasCode(err, errors.ErrInvalidInput),
		errors.HasCode(err, errors.ErrUnknownAction):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.HasCode(err, errors.ErrNotFound),
		errors.HasCode(err, errors.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.HasCode(err, errors.ErrCooldownActive),
		errors.HasCode(err, errors.ErrDailyCapReached),
		errors.HasCode(err, errors.ErrDuplicateAction):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

type VCAHandler struct {
	registry *service.RegistryService
	ledger   *service.LedgerService
}

func NewVCAHandler(registry *service.RegistryService, ledger *service.LedgerService) *VCAHandler {
	return &VCAHandler{registry: registry, ledger: ledger}
}

func (h *VCAHandler) CreateOrGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		ProjectID string `json:"project_id"`
		Owner     string `json:"owner"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ctx := r.Context()
	vca, err := h.registry.CreateOrGet(ctx, req.ProjectID, req.Owner)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, vca)
}

func (h *VCAHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	offset := (page - 1) * pageSize

	ctx := r.Context()
	vcas, err := h.registry.List(ctx, pageSize, offset)
	if err != nil {
		writeAppError(w, err)
		return
	}

	total, err := h.registry.Count(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count vcas: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":    vcas,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

func (h *VCAHandler) GetByProject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) < 4 {
		writeError(w, http.StatusBadRequest, "invalid path format, expected /api/vca/by-project/{project_id}")
		return
	}

	ctx := r.Context()
	vca, err := h.registry.GetByProjectID(ctx, pathParts[3])
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, vca)
}

func (h *VCAHandler) GetByToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) < 4 {
		writeError(w, http.StatusBadRequest, "invalid path format, expected /api/vca/by-token/{token_address}")
		return
	}

	ctx := r.Context()
	vca, err := h.registry.GetByTokenAddress(ctx, pathParts[3])
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, vca)
}

// Dispatch 处理 /api/vca/{address} 及其子路径
// GET  /api/vca/{address}            VCA详情
// POST /api/vca/{address}/map        映射到代币合约
// GET  /api/vca/{address}/mapping    当前映射
// POST /api/vca/{address}/activity   追加活动
// GET  /api/vca/{address}/activity   活动列表
func (h *VCAHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) < 3 {
		writeError(w, http.StatusBadRequest, "invalid path format, expected /api/vca/{address}")
		return
	}

	address := pathParts[2]

	if len(pathParts) == 3 {
		h.getVCA(w, r, address)
		return
	}

	switch pathParts[3] {
	case "map":
		h.mapToContract(w, r, address)
	case "mapping":
		h.getMapping(w, r, address)
	case "activity":
		switch r.Method {
		case http.MethodPost:
			h.appendActivity(w, r, address)
		case http.MethodGet:
			h.listActivity(w, r, address)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	default:
		writeError(w, http.StatusNotFound, "unknown path")
	}
}

func (h *VCAHandler) getVCA(w http.ResponseWriter, r *http.Request, address string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx := r.Context()
	vca, err := h.registry.Get(ctx, address)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, vca)
}

func (h *VCAHandler) mapToContract(w http.ResponseWriter, r *http.Request, address string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		TokenAddress string `json:"token_address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ctx := r.Context()
	mapping, err := h.registry.MapToContract(ctx, address, req.TokenAddress)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapping)
}

func (h *VCAHandler) getMapping(w http.ResponseWriter, r *http.Request, address string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx := r.Context()
	mapping, err := h.registry.GetMapping(ctx, address)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapping)
}

func (h *VCAHandler) appendActivity(w http.ResponseWriter, r *http.Request, address string) {
	var req struct {
		ActivityType string       `json:"activity_type"`
		UserID       string       `json:"user_id"`
		Timestamp    *time.Time   `json:"timestamp,omitempty"`
		Details      models.JSONB `json:"details,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ctx := r.Context()
	record, err := h.ledger.Append(ctx, address, service.AppendActivityInput{
		ActivityType: models.ActivityType(req.ActivityType),
		UserID:       req.UserID,
		Timestamp:    req.Timestamp,
		Details:      req.Details,
	})
	if err != nil {
		// 记录已落库但重算失败时把已存储的记录带回给调用方
		if errors.HasCode(err, errors.ErrScoreRecompute) && record != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"error":  err.Error(),
				"record": record,
			})
			return
		}
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

func (h *VCAHandler) listActivity(w http.ResponseWriter, r *http.Request, address string) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	ctx := r.Context()
	records, err := h.ledger.ListByAddress(ctx, address, limit)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

type PointsHandler struct {
	pointsSvc *service.PointsService
}

func NewPointsHandler(pointsSvc *service.PointsService) *PointsHandler {
	return &PointsHandler{pointsSvc: pointsSvc}
}

// RegisterUser 幂等注册用户，重复注册返回已有记录
func (h *PointsHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		UserID string `json:"user_id"`
		Handle string `json:"handle,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ctx := r.Context()
	user, err := h.pointsSvc.EnsureUser(ctx, req.UserID, req.Handle)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *PointsHandler) Award(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		UserID     string       `json:"user_id"`
		ActionType string       `json:"action_type"`
		TargetID   string       `json:"target_id,omitempty"`
		Metadata   models.JSONB `json:"metadata,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ctx := r.Context()
	result, err := h.pointsSvc.AwardPoints(ctx, req.UserID, models.ActionType(req.ActionType), req.TargetID, req.Metadata)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *PointsHandler) CanPerform(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := r.URL.Query().Get("user_id")
	action := r.URL.Query().Get("action")
	if userID == "" || action == "" {
		writeError(w, http.StatusBadRequest, "user_id and action are required")
		return
	}

	ctx := r.Context()
	decision, err := h.pointsSvc.CanPerform(ctx, userID, models.ActionType(action))
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, decision)
}

// Dispatch 处理 /api/points/{user_id} 和 /api/points/{user_id}/actions
func (h *PointsHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) < 3 {
		writeError(w, http.StatusBadRequest, "invalid path format, expected /api/points/{user_id}")
		return
	}

	userID := pathParts[2]
	ctx := r.Context()

	if len(pathParts) >= 4 && pathParts[3] == "actions" {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit < 1 || limit > 100 {
			limit = 20
		}
		actions, err := h.pointsSvc.ListUserActions(ctx, userID, limit)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, actions)
		return
	}

	user, next, err := h.pointsSvc.GetUserPoints(ctx, userID)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":           user.UserID,
		"handle":            user.Handle,
		"cumulative_points": user.CumulativePoints,
		"rank_name":         user.RankName,
		"last_active_at":    user.LastActiveAt,
		"next_rank":         next,
	})
}

func HandleRanks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, rank.All())
}

type StatsHandler struct {
	vcaRepo      *repository.VCARepository
	activityRepo *repository.ActivityRepository
	actionRepo   *repository.ActionRepository
	userRepo     *repository.UserRepository
}

func NewStatsHandler(
	vcaRepo *repository.VCARepository,
	activityRepo *repository.ActivityRepository,
	actionRepo *repository.ActionRepository,
	userRepo *repository.UserRepository,
) *StatsHandler {
	return &StatsHandler{
		vcaRepo:      vcaRepo,
		activityRepo: activityRepo,
		actionRepo:   actionRepo,
		userRepo:     userRepo,
	}
}

// GetStats 返回各实体总数
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx := r.Context()

	totalVCAs, _ := h.vcaRepo.Count(ctx)
	totalActivities, _ := h.activityRepo.CountAll(ctx)
	totalActions, _ := h.actionRepo.CountAll(ctx)
	totalBelievers, _ := h.userRepo.CountWithPoints(ctx)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"totalVCAs":       totalVCAs,
		"totalActivities": totalActivities,
		"totalActions":    totalActions,
		"totalBelievers":  totalBelievers,
	})
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
