package models

import (
	"time"
)

type VCA struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Address       string    `gorm:"uniqueIndex:uk_vca_address;size:42;not null" json:"address"`
	ProjectID     string    `gorm:"uniqueIndex:uk_vca_project;size:100;not null" json:"project_id"`
	Owner         string    `gorm:"size:100;not null" json:"owner"`
	SignalScore   int64     `gorm:"not null;default:0" json:"signal_score"`
	UniqueBackers int64     `gorm:"not null;default:0" json:"unique_backers"`
	Reviews       int64     `gorm:"not null;default:0" json:"reviews"`
	Followers     int64     `gorm:"not null;default:0" json:"followers"`
	TokenAddress  *string   `gorm:"size:42" json:"token_address,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (VCA) TableName() string {
	return "vcas"
}
