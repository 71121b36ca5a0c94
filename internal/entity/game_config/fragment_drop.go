package game_config

import (
	"time"

	"github.com/aarondl/sqlboiler/v4/types"
)

// FragmentDrop 稀有残片掉落配置：结算时按成员独立判定。
type FragmentDrop struct {
	ID          string        `boil:"id" json:"id"`
	DungeonType string        `boil:"dungeon_type" json:"dungeon_type"`
	FragmentID  string        `boil:"fragment_id" json:"fragment_id"`
	DropRate    types.Decimal `boil:"drop_rate" json:"drop_rate"`           // 0-1 固定概率
	FirstClearBonus types.Decimal `boil:"first_clear_bonus" json:"first_clear_bonus"` // 首通附加概率

	CreatedAt time.Time `boil:"created_at" json:"created_at"`
}
