package interfaces

import (
	"context"
	"database/sql"
	"time"

	"github.com/aarondl/sqlboiler/v4/boil"

	"xiuxian-server/internal/entity/game_runtime"
)

// RewardDelta 一次结算对角色资源的增量。
type RewardDelta struct {
	SpiritStones      int64
	CultivationPoints int64
	Contribution      int64
}

// CharacterRepository 角色仓储接口
type CharacterRepository interface {
	// Create 创建角色
	Create(ctx context.Context, character *game_runtime.Character) error

	// GetByID 根据ID获取角色
	GetByID(ctx context.Context, characterID string) (*game_runtime.Character, error)

	// GetByIDForUpdate 根据ID获取角色（带行锁）
	GetByIDForUpdate(ctx context.Context, tx *sql.Tx, characterID string) (*game_runtime.Character, error)

	// ListByIDs 批量获取角色
	ListByIDs(ctx context.Context, characterIDs []string) ([]*game_runtime.Character, error)

	// Update 更新角色（支持事务）
	Update(ctx context.Context, execer boil.ContextExecutor, character *game_runtime.Character) error

	// AddRewards 累加角色资源（灵石/修为/贡献）
	AddRewards(ctx context.Context, execer boil.ContextExecutor, characterID string, delta RewardDelta) error

	// SetCurrentRoom 设置角色当前所在房间；roomID 为空串时清空
	SetCurrentRoom(ctx context.Context, execer boil.ContextExecutor, characterID, roomID string) error

	// ClearExpiredFormations 批量清除已过期的阵法，返回清除条数
	ClearExpiredFormations(ctx context.Context, now time.Time) (int64, error)
}
