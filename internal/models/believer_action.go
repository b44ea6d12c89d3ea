package models

import (
	"time"
)

type ActionType string

const (
	ActionDailyCheckin       ActionType = "daily_checkin"
	ActionUpvoteProject      ActionType = "upvote_project"
	ActionWriteReview        ActionType = "write_review"
	ActionCreateTweet        ActionType = "create_tweet"
	ActionSubmitProject      ActionType = "submit_project"
	ActionStakeTokens        ActionType = "stake_tokens"
	ActionReferFriend        ActionType = "refer_friend"
	ActionWeeklyTrueBeliever ActionType = "weekly_true_believer"
	ActionWeeklyScoutMaster  ActionType = "weekly_scout_master"
)

// BelieverAction 一次积分发放的只追加账本记录
// dedup_hash用于重试去重
// once_key仅一次性动作写入，唯一索引兜底防止重复发放，NULL行不参与约束
type BelieverAction struct {
	ID         uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     string     `gorm:"size:100;not null;index:idx_user_action,priority:1" json:"user_id"`
	ActionType ActionType `gorm:"size:50;not null;index:idx_user_action,priority:2" json:"action_type"`
	Points     int64      `gorm:"not null" json:"points"`
	TargetID   string     `gorm:"size:100" json:"target_id,omitempty"`
	Metadata   JSONB      `gorm:"type:json" json:"metadata,omitempty"`
	DedupHash  string     `gorm:"size:64;not null;uniqueIndex:uk_dedup" json:"-"`
	OnceKey    *string    `gorm:"size:255;uniqueIndex:uk_once" json:"-"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index:idx_user_action,priority:3" json:"created_at"`
}

func (BelieverAction) TableName() string {
	return "believer_actions"
}
