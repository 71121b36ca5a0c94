package game_runtime

import (
	"time"

	"github.com/aarondl/sqlboiler/v4/types"
)

// DungeonRecord 房间级历史快照，房间进入终态时创建一次，之后不再修改。
type DungeonRecord struct {
	ID          string `boil:"id" json:"id"`
	RoomID      string `boil:"room_id" json:"room_id"`
	DungeonType string `boil:"dungeon_type" json:"dungeon_type"`
	Result      string `boil:"result" json:"result"` // completed / failed

	ClearedStages int        `boil:"cleared_stages" json:"cleared_stages"`
	Members       types.JSON `boil:"members" json:"members"` // 队伍构成快照

	CreatedAt time.Time `boil:"created_at" json:"created_at"`
}

// PlayerDungeonRecord 玩家级结算记录，与 DungeonRecord 一并落地。
type PlayerDungeonRecord struct {
	ID          string `boil:"id" json:"id"`
	RecordID    string `boil:"record_id" json:"record_id"`
	CharacterID string `boil:"character_id" json:"character_id"`
	DungeonType string `boil:"dungeon_type" json:"dungeon_type"`

	SpiritStones      int64      `boil:"spirit_stones" json:"spirit_stones"`
	CultivationPoints int64      `boil:"cultivation_points" json:"cultivation_points"`
	Contribution      int64      `boil:"contribution" json:"contribution"`
	Fragments         types.JSON `boil:"fragments" json:"fragments"` // 掉落残片ID数组

	IsFirstClear bool   `boil:"is_first_clear" json:"is_first_clear"`
	WeekBucket   string `boil:"week_bucket" json:"week_bucket"` // 服务器本地 ISO 周，如 2026-W36

	CreatedAt time.Time `boil:"created_at" json:"created_at"`
}

// BattleReport 战报落地，按 battle_id 幂等覆盖。
type BattleReport struct {
	ID       string `boil:"id" json:"id"`
	BattleID string `boil:"battle_id" json:"battle_id"`
	Kind     string `boil:"kind" json:"kind"` // dummy / tower / garden / pvp / stage

	AttackerID string `boil:"attacker_id" json:"attacker_id"`
	DefenderID string `boil:"defender_id" json:"defender_id"` // 角色ID或怪物编码

	Outcome    string     `boil:"outcome" json:"outcome"` // win / lose / draw
	Rounds     int        `boil:"rounds" json:"rounds"`
	RoundLog   types.JSON `boil:"round_log" json:"round_log"`
	PowerA     int64      `boil:"power_a" json:"power_a"`
	PowerB     int64      `boil:"power_b" json:"power_b"`

	CreatedAt time.Time `boil:"created_at" json:"created_at"`
}
