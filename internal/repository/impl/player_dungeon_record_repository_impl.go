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

type playerDungeonRecordRepositoryImpl struct {
	db *sql.DB
}

// NewPlayerDungeonRecordRepository 创建玩家结算记录仓储实例
func NewPlayerDungeonRecordRepository(db *sql.DB) interfaces.PlayerDungeonRecordRepository {
	return &playerDungeonRecordRepositoryImpl{db: db}
}

const playerRecordColumns = `
	id, record_id, character_id, dungeon_type,
	spirit_stones, cultivation_points, contribution, fragments,
	is_first_clear, week_bucket, created_at
`

// Create 创建玩家结算记录
func (r *playerDungeonRecordRepositoryImpl) Create(ctx context.Context, execer boil.ContextExecutor, record *game_runtime.PlayerDungeonRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO game_runtime.player_dungeon_records (` + playerRecordColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`
	_, err := execer.ExecContext(ctx, query,
		record.ID, record.RecordID, record.CharacterID, record.DungeonType,
		record.SpiritStones, record.CultivationPoints, record.Contribution, nullJSON(record.Fragments),
		record.IsFirstClear, record.WeekBucket, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建玩家结算记录失败: %w", err)
	}
	return nil
}

// HasFirstClear 判断角色本周是否已在该秘境拿过首通
func (r *playerDungeonRecordRepositoryImpl) HasFirstClear(ctx context.Context, execer boil.ContextExecutor, characterID, dungeonType, weekBucket string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM game_runtime.player_dungeon_records
			WHERE character_id = $1 AND dungeon_type = $2 AND week_bucket = $3 AND is_first_clear
		)
	`
	var exists bool
	if err := execer.QueryRowContext(ctx, query, characterID, dungeonType, weekBucket).Scan(&exists); err != nil {
		return false, fmt.Errorf("查询首通记录失败: %w", err)
	}
	return exists, nil
}

// ListByCharacter 按时间倒序列出角色的结算记录
func (r *playerDungeonRecordRepositoryImpl) ListByCharacter(ctx context.Context, characterID string, limit, offset int) ([]*game_runtime.PlayerDungeonRecord, error) {
	query := `
		SELECT ` + playerRecordColumns + ` FROM game_runtime.player_dungeon_records
		WHERE character_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, characterID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("查询玩家结算记录失败: %w", err)
	}
	defer rows.Close()

	var records []*game_runtime.PlayerDungeonRecord
	for rows.Next() {
		var record game_runtime.PlayerDungeonRecord
		err := rows.Scan(
			&record.ID, &record.RecordID, &record.CharacterID, &record.DungeonType,
			&record.SpiritStones, &record.CultivationPoints, &record.Contribution, &record.Fragments,
			&record.IsFirstClear, &record.WeekBucket, &record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("扫描玩家结算记录失败: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历玩家结算记录失败: %w", err)
	}
	return records, nil
}
