package policy

import (
	"time"

	"github.com/KZEN17/token-ready-sub000/internal/models"
)

const (
	ReasonCooldownActive  = "cooldown_active"
	ReasonDailyCapReached = "daily_cap_reached"

	stakePointsPerTen = 5
	stakePointsCap    = 500
	reviewBonusPoints = 50
)

type ActionRule struct {
	Type           models.ActionType `json:"type"`
	BasePoints     int64             `json:"base_points"`
	CooldownHours  int               `json:"cooldown_hours,omitempty"`
	MaxDailyPoints int64             `json:"max_daily_points,omitempty"`
	OneTime        bool              `json:"one_time"`
}

// rules 静态动作积分表，进程启动后只读
// 周榜动作在表中定义但没有自动发放路径，由外部周任务调用
var rules = map[models.ActionType]ActionRule{
	models.ActionDailyCheckin:       {Type: models.ActionDailyCheckin, BasePoints: 50, CooldownHours: 24},
	models.ActionUpvoteProject:      {Type: models.ActionUpvoteProject, BasePoints: 75, OneTime: true},
	models.ActionWriteReview:        {Type: models.ActionWriteReview, BasePoints: 100},
	models.ActionCreateTweet:        {Type: models.ActionCreateTweet, BasePoints: 150},
	models.ActionSubmitProject:      {Type: models.ActionSubmitProject, BasePoints: 250},
	models.ActionStakeTokens:        {Type: models.ActionStakeTokens, BasePoints: 0},
	models.ActionReferFriend:        {Type: models.ActionReferFriend, BasePoints: 250, OneTime: true},
	models.ActionWeeklyTrueBeliever: {Type: models.ActionWeeklyTrueBeliever, BasePoints: 500},
	models.ActionWeeklyScoutMaster:  {Type: models.ActionWeeklyScoutMaster, BasePoints: 750},
}

// RuleFor 查找动作对应的积分规则
func RuleFor(actionType models.ActionType) (ActionRule, bool) {
	rule, ok := rules[actionType]
	return rule, ok
}

// ComputePoints 计算一次动作应得的积分
// stake_tokens按每10美元5分计算，上限500
// write_review满足评分>=8且投资>=1000时加50分
func ComputePoints(rule ActionRule, metadata models.JSONB) int64 {
	switch rule.Type {
	case models.ActionStakeTokens:
		staked := numberFrom(metadata, "stakedAmount")
		if staked <= 0 {
			return 0
		}
		// 达到封顶对应的质押额后直接返回上限，float64转int64在极大值时会溢出
		if staked >= float64(stakePointsCap/stakePointsPerTen)*10 {
			return stakePointsCap
		}
		return int64(staked/10) * stakePointsPerTen
	case models.ActionWriteReview:
		points := rule.BasePoints
		if numberFrom(metadata, "rating") >= 8 && numberFrom(metadata, "investmentAmount") >= 1000 {
			points += reviewBonusPoints
		}
		return points
	default:
		return rule.BasePoints
	}
}

type Decision struct {
	Allowed        bool       `json:"allowed"`
	Reason         string     `json:"reason,omitempty"`
	CooldownEndsAt *time.Time `json:"cooldown_ends_at,omitempty"`
}

// CanPerform 纯函数判定动作当前是否可执行
// 调用方从账本提供最近一次动作时间和当日已得积分
func CanPerform(rule ActionRule, now time.Time, lastActionAt *time.Time, dailyPoints int64) Decision {
	if rule.CooldownHours > 0 && lastActionAt != nil {
		endsAt := lastActionAt.Add(time.Duration(rule.CooldownHours) * time.Hour)
		if now.Before(endsAt) {
			return Decision{Allowed: false, Reason: ReasonCooldownActive, CooldownEndsAt: &endsAt}
		}
	}
	if rule.MaxDailyPoints > 0 && dailyPoints >= rule.MaxDailyPoints {
		return Decision{Allowed: false, Reason: ReasonDailyCapReached}
	}
	return Decision{Allowed: true}
}

func numberFrom(metadata models.JSONB, key string) float64 {
	if metadata == nil {
		return 0
	}
	switch v := metadata[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
