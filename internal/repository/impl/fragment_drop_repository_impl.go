package impl

import (
	"context"
	"database/sql"
	"fmt"

	"xiuxian-server/internal/entity/game_config"
	"xiuxian-server/internal/repository/interfaces"
)

type fragmentDropRepositoryImpl struct {
	db *sql.DB
}

// NewFragmentDropRepository 创建残片掉落配置仓储实例
func NewFragmentDropRepository(db *sql.DB) interfaces.FragmentDropRepository {
	return &fragmentDropRepositoryImpl{db: db}
}

// ListByDungeonType 列出某秘境的残片掉落配置
func (r *fragmentDropRepositoryImpl) ListByDungeonType(ctx context.Context, dungeonType string) ([]*game_config.FragmentDrop, error) {
	query := `
		SELECT id, dungeon_type, fragment_id, drop_rate, first_clear_bonus, created_at
		FROM game_config.fragment_drops
		WHERE dungeon_type = $1
		ORDER BY fragment_id
	`
	rows, err := r.db.QueryContext(ctx, query, dungeonType)
	if err != nil {
		return nil, fmt.Errorf("查询残片掉落配置失败: %w", err)
	}
	defer rows.Close()

	var drops []*game_config.FragmentDrop
	for rows.Next() {
		var d game_config.FragmentDrop
		err := rows.Scan(
			&d.ID, &d.DungeonType, &d.FragmentID,
			&d.DropRate, &d.FirstClearBonus,
			&d.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("扫描残片掉落配置失败: %w", err)
		}
		drops = append(drops, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历残片掉落配置失败: %w", err)
	}
	return drops, nil
}
