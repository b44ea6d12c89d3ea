package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID               uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           string         `gorm:"uniqueIndex:uk_user;size:100;not null" json:"user_id"`
	Handle           string         `gorm:"size:100" json:"handle"`
	CumulativePoints int64          `gorm:"not null;default:0" json:"cumulative_points"`
	RankName         string         `gorm:"size:50;not null;default:'Believer'" json:"rank_name"`
	LastActiveAt     *time.Time     `json:"last_active_at"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}
