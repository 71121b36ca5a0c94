package interfaces

import (
	"context"
	"database/sql"
	"time"

	"github.com/aarondl/sqlboiler/v4/boil"

	"xiuxian-server/internal/entity/game_runtime"
)

// DungeonRoomRepository 秘境房间仓储接口
type DungeonRoomRepository interface {
	// Create 创建房间
	Create(ctx context.Context, execer boil.ContextExecutor, room *game_runtime.DungeonRoom) error

	// GetByID 根据ID获取房间
	GetByID(ctx context.Context, roomID string) (*game_runtime.DungeonRoom, error)

	// GetByIDForUpdate 根据ID获取房间（带行锁）
	GetByIDForUpdate(ctx context.Context, tx *sql.Tx, roomID string) (*game_runtime.DungeonRoom, error)

	// Update 更新房间（支持事务）
	Update(ctx context.Context, execer boil.ContextExecutor, room *game_runtime.DungeonRoom) error

	// ListWaitingBefore 查询创建时间早于 cutoff 且仍在等待中的房间（供清理任务使用）
	ListWaitingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*game_runtime.DungeonRoom, error)

	// ListByStatus 按状态查询房间（大厅列表）
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*game_runtime.DungeonRoom, int64, error)
}

// RoomMemberRepository 房间成员仓储接口
type RoomMemberRepository interface {
	// Add 添加成员
	Add(ctx context.Context, execer boil.ContextExecutor, member *game_runtime.RoomMember) error

	// Remove 移除成员
	Remove(ctx context.Context, execer boil.ContextExecutor, roomID, characterID string) error

	// Get 获取单个成员
	Get(ctx context.Context, execer boil.ContextExecutor, roomID, characterID string) (*game_runtime.RoomMember, error)

	// ListByRoom 按加入时间升序列出房间成员
	ListByRoom(ctx context.Context, execer boil.ContextExecutor, roomID string) ([]*game_runtime.RoomMember, error)

	// CountByRoom 统计房间成员数
	CountByRoom(ctx context.Context, execer boil.ContextExecutor, roomID string) (int, error)

	// RemoveAllByRoom 清空房间成员（解散时使用）
	RemoveAllByRoom(ctx context.Context, execer boil.ContextExecutor, roomID string) error
}
