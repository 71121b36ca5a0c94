package game_config

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/aarondl/sqlboiler/v4/types"
)

// StageEncounter 关卡遭遇配置：每个秘境关卡对应的敌方属性。
// BranchPath 仅在分支关卡（冰/火道）时有值，其余关卡为 NULL。
type StageEncounter struct {
	ID          string      `boil:"id" json:"id"`
	DungeonType string      `boil:"dungeon_type" json:"dungeon_type"`
	StageIndex  int         `boil:"stage_index" json:"stage_index"` // 1-3
	BranchPath  null.String `boil:"branch_path" json:"branch_path,omitempty"` // ice / fire
	Name        string      `boil:"name" json:"name"`

	HP      int        `boil:"hp" json:"hp"`
	Attack  int        `boil:"attack" json:"attack"`
	Defense int        `boil:"defense" json:"defense"`
	Speed   int        `boil:"speed" json:"speed"`
	Luck    int        `boil:"luck" json:"luck"`
	Elements types.JSON `boil:"elements" json:"elements"` // 元素标签数组，如 ["water"]

	CreatedAt time.Time `boil:"created_at" json:"created_at"`
}

// Monster 脚本化对手配置（木人桩、闯塔层、药园魔物等）。
type Monster struct {
	ID   string `boil:"id" json:"id"`
	Code string `boil:"code" json:"code"` // 如 training_dummy / tower_floor_12
	Kind string `boil:"kind" json:"kind"` // dummy / tower / garden
	Name string `boil:"name" json:"name"`

	HP      int        `boil:"hp" json:"hp"`
	Attack  int        `boil:"attack" json:"attack"`
	Defense int        `boil:"defense" json:"defense"`
	Speed   int        `boil:"speed" json:"speed"`
	Luck    int        `boil:"luck" json:"luck"`
	Elements types.JSON `boil:"elements" json:"elements"`

	CreatedAt time.Time `boil:"created_at" json:"created_at"`
}
