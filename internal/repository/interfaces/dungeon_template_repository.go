package interfaces

import (
	"context"

	"xiuxian-server/internal/entity/game_config"
)

// DungeonTemplateRepository 秘境模板仓储接口（配置数据，只读）
type DungeonTemplateRepository interface {
	// GetByType 根据秘境类型获取模板
	GetByType(ctx context.Context, dungeonType string) (*game_config.DungeonTemplate, error)

	// ListActive 列出所有启用的秘境模板
	ListActive(ctx context.Context) ([]*game_config.DungeonTemplate, error)
}
