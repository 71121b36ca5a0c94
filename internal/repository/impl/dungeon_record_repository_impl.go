package impl

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aarondl/sqlboiler/v4/boil"
	"github.com/google/uuid"

	"xiuxian-server/internal/entity/game_runtime"
	"xiuxian-server/internal/repository/interfaces"
)

type dungeonRecordRepositoryImpl struct {
	db *sql.DB
}

// NewDungeonRecordRepository 创建开荒记录仓储实例
func NewDungeonRecordRepository(db *sql.DB) interfaces.DungeonRecordRepository {
	return &dungeonRecordRepositoryImpl{db: db}
}

// Create 创建开荒记录
func (r *dungeonRecordRepositoryImpl) Create(ctx context.Context, execer boil.ContextExecutor, record *game_runtime.DungeonRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO game_runtime.dungeon_records (
			id, room_id, dungeon_type, result, cleared_stages, members, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`
	_, err := execer.ExecContext(ctx, query,
		record.ID, record.RoomID, record.DungeonType, record.Result,
		record.ClearedStages, nullJSON(record.Members), record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建开荒记录失败: %w", err)
	}
	return nil
}

// GetByRoomID 根据房间ID获取记录
func (r *dungeonRecordRepositoryImpl) GetByRoomID(ctx context.Context, roomID string) (*game_runtime.DungeonRecord, error) {
	query := `
		SELECT id, room_id, dungeon_type, result, cleared_stages, members, created_at
		FROM game_runtime.dungeon_records
		WHERE room_id = $1
	`
	var record game_runtime.DungeonRecord
	err := r.db.QueryRowContext(ctx, query, roomID).Scan(
		&record.ID, &record.RoomID, &record.DungeonType, &record.Result,
		&record.ClearedStages, &record.Members, &record.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, interfaces.ErrDungeonRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询开荒记录失败: %w", err)
	}
	return &record, nil
}
