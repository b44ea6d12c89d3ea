package models

import (
	"time"
)

// ContractMapping VCA到已发行代币合约的一对一映射
// 重新映射时覆盖原记录
type ContractMapping struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	VCAAddress   string    `gorm:"uniqueIndex:uk_mapping_vca;size:42;not null" json:"vca_address"`
	TokenAddress string    `gorm:"size:42;not null;index" json:"token_address"`
	MappedAt     time.Time `gorm:"not null" json:"mapped_at"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ContractMapping) TableName() string {
	return "contract_mappings"
}
