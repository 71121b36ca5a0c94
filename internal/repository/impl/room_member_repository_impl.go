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

type roomMemberRepositoryImpl struct {
	db *sql.DB
}

// NewRoomMemberRepository 创建房间成员仓储实例
func NewRoomMemberRepository(db *sql.DB) interfaces.RoomMemberRepository {
	return &roomMemberRepositoryImpl{db: db}
}

const memberColumns = `id, room_id, character_id, name, role, power, element, realm_tier, joined_at`

func scanMember(row interface{ Scan(...interface{}) error }) (*game_runtime.RoomMember, error) {
	var m game_runtime.RoomMember
	err := row.Scan(
		&m.ID, &m.RoomID, &m.CharacterID, &m.Name,
		&m.Role, &m.Power, &m.Element, &m.RealmTier, &m.JoinedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Add 添加成员
func (r *roomMemberRepositoryImpl) Add(ctx context.Context, execer boil.ContextExecutor, member *game_runtime.RoomMember) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now()
	}

	query := `
		INSERT INTO game_runtime.room_members (` + memberColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`
	_, err := execer.ExecContext(ctx, query,
		member.ID, member.RoomID, member.CharacterID, member.Name,
		member.Role, member.Power, member.Element, member.RealmTier, member.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("添加房间成员失败: %w", err)
	}
	return nil
}

// Remove 移除成员
func (r *roomMemberRepositoryImpl) Remove(ctx context.Context, execer boil.ContextExecutor, roomID, characterID string) error {
	query := `DELETE FROM game_runtime.room_members WHERE room_id = $1 AND character_id = $2`
	result, err := execer.ExecContext(ctx, query, roomID, characterID)
	if err != nil {
		return fmt.Errorf("移除房间成员失败: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return interfaces.ErrRoomMemberNotFound
	}
	return nil
}

// Get 获取单个成员
func (r *roomMemberRepositoryImpl) Get(ctx context.Context, execer boil.ContextExecutor, roomID, characterID string) (*game_runtime.RoomMember, error) {
	query := `SELECT ` + memberColumns + ` FROM game_runtime.room_members WHERE room_id = $1 AND character_id = $2`

	member, err := scanMember(execer.QueryRowContext(ctx, query, roomID, characterID))
	if err == sql.ErrNoRows {
		return nil, interfaces.ErrRoomMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询房间成员失败: %w", err)
	}
	return member, nil
}

// ListByRoom 按加入时间升序列出房间成员
func (r *roomMemberRepositoryImpl) ListByRoom(ctx context.Context, execer boil.ContextExecutor, roomID string) ([]*game_runtime.RoomMember, error) {
	query := `
		SELECT ` + memberColumns + ` FROM game_runtime.room_members
		WHERE room_id = $1
		ORDER BY joined_at ASC
	`
	rows, err := execer.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("查询房间成员列表失败: %w", err)
	}
	defer rows.Close()

	var members []*game_runtime.RoomMember
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("扫描房间成员失败: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历房间成员失败: %w", err)
	}
	return members, nil
}

// CountByRoom 统计房间成员数
func (r *roomMemberRepositoryImpl) CountByRoom(ctx context.Context, execer boil.ContextExecutor, roomID string) (int, error) {
	query := `SELECT COUNT(*) FROM game_runtime.room_members WHERE room_id = $1`

	var count int
	if err := execer.QueryRowContext(ctx, query, roomID).Scan(&count); err != nil {
		return 0, fmt.Errorf("统计房间成员数失败: %w", err)
	}
	return count, nil
}

// RemoveAllByRoom 清空房间成员
func (r *roomMemberRepositoryImpl) RemoveAllByRoom(ctx context.Context, execer boil.ContextExecutor, roomID string) error {
	query := `DELETE FROM game_runtime.room_members WHERE room_id = $1`
	if _, err := execer.ExecContext(ctx, query, roomID); err != nil {
		return fmt.Errorf("清空房间成员失败: %w", err)
	}
	return nil
}
