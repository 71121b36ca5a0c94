package interfaces

import (
	"context"

	"github.com/aarondl/sqlboiler/v4/boil"

	"xiuxian-server/internal/entity/game_runtime"
)

// DungeonRecordRepository 房间级开荒记录仓储接口
type DungeonRecordRepository interface {
	// Create 创建开荒记录（支持事务）
	Create(ctx context.Context, execer boil.ContextExecutor, record *game_runtime.DungeonRecord) error

	// GetByRoomID 根据房间ID获取记录
	GetByRoomID(ctx context.Context, roomID string) (*game_runtime.DungeonRecord, error)
}

// PlayerDungeonRecordRepository 玩家级结算记录仓储接口
type PlayerDungeonRecordRepository interface {
	// Create 创建玩家结算记录（支持事务）
	Create(ctx context.Context, execer boil.ContextExecutor, record *game_runtime.PlayerDungeonRecord) error

	// HasFirstClear 判断角色本周是否已在该秘境拿过首通
	HasFirstClear(ctx context.Context, execer boil.ContextExecutor, characterID, dungeonType, weekBucket string) (bool, error)

	// ListByCharacter 按时间倒序列出角色的结算记录
	ListByCharacter(ctx context.Context, characterID string, limit, offset int) ([]*game_runtime.PlayerDungeonRecord, error)
}
