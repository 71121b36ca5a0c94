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

type dungeonRoomRepositoryImpl struct {
	db *sql.DB
}

// NewDungeonRoomRepository 创建秘境房间仓储实例
func NewDungeonRoomRepository(db *sql.DB) interfaces.DungeonRoomRepository {
	return &dungeonRoomRepositoryImpl{db: db}
}

const roomColumns = `
	id, leader_id, dungeon_type, status,
	current_stage, branch_path, min_realm, password,
	stage_results, rewards_settled, failed_at_stage,
	started_at, finished_at, created_at, updated_at
`

func scanRoom(row interface{ Scan(...interface{}) error }) (*game_runtime.DungeonRoom, error) {
	var room game_runtime.DungeonRoom
	err := row.Scan(
		&room.ID, &room.LeaderID, &room.DungeonType, &room.Status,
		&room.CurrentStage, &room.BranchPath, &room.MinRealm, &room.Password,
		&room.StageResults, &room.RewardsSettled, &room.FailedAtStage,
		&room.StartedAt, &room.FinishedAt, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// Create 创建房间
func (r *dungeonRoomRepositoryImpl) Create(ctx context.Context, execer boil.ContextExecutor, room *game_runtime.DungeonRoom) error {
	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	now := time.Now()
	room.CreatedAt = now
	room.UpdatedAt = now

	query := `
		INSERT INTO game_runtime.dungeon_rooms (` + roomColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`
	_, err := execer.ExecContext(ctx, query,
		room.ID, room.LeaderID, room.DungeonType, room.Status,
		room.CurrentStage, room.BranchPath, room.MinRealm, room.Password,
		nullJSON(room.StageResults), room.RewardsSettled, room.FailedAtStage,
		room.StartedAt, room.FinishedAt, room.CreatedAt, room.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建房间失败: %w", err)
	}
	return nil
}

// GetByID 根据ID获取房间
func (r *dungeonRoomRepositoryImpl) GetByID(ctx context.Context, roomID string) (*game_runtime.DungeonRoom, error) {
	query := `SELECT ` + roomColumns + ` FROM game_runtime.dungeon_rooms WHERE id = $1`

	room, err := scanRoom(r.db.QueryRowContext(ctx, query, roomID))
	if err == sql.ErrNoRows {
		return nil, interfaces.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询房间失败: %w", err)
	}
	return room, nil
}

// GetByIDForUpdate 根据ID获取房间（带行锁）
func (r *dungeonRoomRepositoryImpl) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, roomID string) (*game_runtime.DungeonRoom, error) {
	query := `SELECT ` + roomColumns + ` FROM game_runtime.dungeon_rooms WHERE id = $1 FOR UPDATE`

	room, err := scanRoom(tx.QueryRowContext(ctx, query, roomID))
	if err == sql.ErrNoRows {
		return nil, interfaces.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询房间失败(加锁): %w", err)
	}
	return room, nil
}

// Update 更新房间
func (r *dungeonRoomRepositoryImpl) Update(ctx context.Context, execer boil.ContextExecutor, room *game_runtime.DungeonRoom) error {
	room.UpdatedAt = time.Now()

	query := `
		UPDATE game_runtime.dungeon_rooms SET
			leader_id = $2, status = $3,
			current_stage = $4, branch_path = $5,
			stage_results = $6, rewards_settled = $7, failed_at_stage = $8,
			started_at = $9, finished_at = $10, updated_at = $11
		WHERE id = $1
	`
	result, err := execer.ExecContext(ctx, query,
		room.ID, room.LeaderID, room.Status,
		room.CurrentStage, room.BranchPath,
		nullJSON(room.StageResults), room.RewardsSettled, room.FailedAtStage,
		room.StartedAt, room.FinishedAt, room.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新房间失败: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return interfaces.ErrRoomNotFound
	}
	return nil
}

// ListWaitingBefore 查询创建时间早于 cutoff 且仍在等待中的房间
func (r *dungeonRoomRepositoryImpl) ListWaitingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*game_runtime.DungeonRoom, error) {
	query := `
		SELECT ` + roomColumns + ` FROM game_runtime.dungeon_rooms
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, game_runtime.RoomStatusWaiting, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("查询过期等待房间失败: %w", err)
	}
	defer rows.Close()

	var rooms []*game_runtime.DungeonRoom
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("扫描房间记录失败: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历房间记录失败: %w", err)
	}
	return rooms, nil
}

// ListByStatus 按状态查询房间
func (r *dungeonRoomRepositoryImpl) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*game_runtime.DungeonRoom, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM game_runtime.dungeon_rooms WHERE status = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("统计房间数量失败: %w", err)
	}

	query := `
		SELECT ` + roomColumns + ` FROM game_runtime.dungeon_rooms
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("查询房间列表失败: %w", err)
	}
	defer rows.Close()

	var rooms []*game_runtime.DungeonRoom
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("扫描房间记录失败: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("遍历房间记录失败: %w", err)
	}
	return rooms, total, nil
}
