package models

import (
	"time"
)

type ActivityType string

const (
	ActivityTypeBacking ActivityType = "backing"
	ActivityTypeReview  ActivityType = "review"
	ActivityTypeShare   ActivityType = "share"
)

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityTypeBacking, ActivityTypeReview, ActivityTypeShare:
		return true
	}
	return false
}

// ActivityRecord 只追加的活动记录，VCA评分的唯一输入
// 仓储层不提供任何更新或删除路径
type ActivityRecord struct {
	ID           uint64       `gorm:"primaryKey;autoIncrement" json:"id"`
	VCAAddress   string       `gorm:"size:42;not null;index:idx_vca_time" json:"vca_address"`
	ActivityType ActivityType `gorm:"type:enum('backing','review','share');not null" json:"activity_type"`
	UserID       string       `gorm:"size:100;not null;index" json:"user_id"`
	Timestamp    time.Time    `gorm:"not null;index:idx_vca_time" json:"timestamp"`
	Details      JSONB        `gorm:"type:json" json:"details,omitempty"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

func (ActivityRecord) TableName() string {
	return "activity_records"
}
