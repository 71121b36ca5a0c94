package interfaces

import (
	"context"

	"xiuxian-server/internal/entity/game_config"
)

// StageEncounterRepository 关卡遭遇配置仓储接口（配置数据，只读）
type StageEncounterRepository interface {
	// GetEncounter 获取某秘境某关的遭遇配置。
	// branchPath 仅在分支关卡有意义，非分支关卡传空串。
	GetEncounter(ctx context.Context, dungeonType string, stageIndex int, branchPath string) (*game_config.StageEncounter, error)
}

// MonsterRepository 怪物配置仓储接口（配置数据，只读）
type MonsterRepository interface {
	// GetByCode 根据编码获取怪物
	GetByCode(ctx context.Context, code string) (*game_config.Monster, error)
}

// FragmentDropRepository 残片掉落配置仓储接口（配置数据，只读）
type FragmentDropRepository interface {
	// ListByDungeonType 列出某秘境的残片掉落配置
	ListByDungeonType(ctx context.Context, dungeonType string) ([]*game_config.FragmentDrop, error)
}
