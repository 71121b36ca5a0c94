// Package game_config 存放策划配置表实体（只读数据）。
package game_config

import (
	"time"

	"github.com/aarondl/null/v8"
)

// DungeonTemplate 秘境模板配置
type DungeonTemplate struct {
	ID          string      `boil:"id" json:"id"`
	DungeonType string      `boil:"dungeon_type" json:"dungeon_type"` // 秘境类型编码，如 frost_abyss
	Name        string      `boil:"name" json:"name"`
	MinRealm    int         `boil:"min_realm" json:"min_realm"`     // 最低境界要求
	MaxMembers  int         `boil:"max_members" json:"max_members"` // 成员上限（默认5）
	StageCount  int         `boil:"stage_count" json:"stage_count"` // 关卡数（固定3）
	BranchStage int         `boil:"branch_stage" json:"branch_stage"` // 分支选择所在关卡（固定2）
	IsActive    bool        `boil:"is_active" json:"is_active"`
	OpenAt      null.Time   `boil:"open_at" json:"open_at,omitempty"`   // 限时开放起点
	CloseAt     null.Time   `boil:"close_at" json:"close_at,omitempty"` // 限时开放终点
	// 结算基数，按通关关卡数缩放
	BaseSpiritStones int `boil:"base_spirit_stones" json:"base_spirit_stones"`
	BaseCultivation  int `boil:"base_cultivation" json:"base_cultivation"`
	BaseContribution int `boil:"base_contribution" json:"base_contribution"`

	CreatedAt time.Time `boil:"created_at" json:"created_at"`
	UpdatedAt time.Time `boil:"updated_at" json:"updated_at"`
}
