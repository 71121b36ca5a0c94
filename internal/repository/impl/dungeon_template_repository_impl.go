package impl

import (
	"context"
	"database/sql"
	"fmt"

	"xiuxian-server/internal/entity/game_config"
	"xiuxian-server/internal/repository/interfaces"
)

type dungeonTemplateRepositoryImpl struct {
	db *sql.DB
}

// NewDungeonTemplateRepository 创建秘境模板仓储实例
func NewDungeonTemplateRepository(db *sql.DB) interfaces.DungeonTemplateRepository {
	return &dungeonTemplateRepositoryImpl{db: db}
}

const templateColumns = `
	id, dungeon_type, name, min_realm, max_members,
	stage_count, branch_stage, is_active, open_at, close_at,
	base_spirit_stones, base_cultivation, base_contribution,
	created_at, updated_at
`

func scanTemplate(row interface{ Scan(...interface{}) error }) (*game_config.DungeonTemplate, error) {
	var t game_config.DungeonTemplate
	err := row.Scan(
		&t.ID, &t.DungeonType, &t.Name, &t.MinRealm, &t.MaxMembers,
		&t.StageCount, &t.BranchStage, &t.IsActive, &t.OpenAt, &t.CloseAt,
		&t.BaseSpiritStones, &t.BaseCultivation, &t.BaseContribution,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByType 根据秘境类型获取模板
func (r *dungeonTemplateRepositoryImpl) GetByType(ctx context.Context, dungeonType string) (*game_config.DungeonTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM game_config.dungeon_templates WHERE dungeon_type = $1`

	template, err := scanTemplate(r.db.QueryRowContext(ctx, query, dungeonType))
	if err == sql.ErrNoRows {
		return nil, interfaces.ErrDungeonTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询秘境模板失败: %w", err)
	}
	return template, nil
}

// ListActive 列出所有启用的秘境模板
func (r *dungeonTemplateRepositoryImpl) ListActive(ctx context.Context) ([]*game_config.DungeonTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM game_config.dungeon_templates WHERE is_active ORDER BY dungeon_type`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询秘境模板列表失败: %w", err)
	}
	defer rows.Close()

	var templates []*game_config.DungeonTemplate
	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("扫描秘境模板失败: %w", err)
		}
		templates = append(templates, template)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历秘境模板失败: %w", err)
	}
	return templates, nil
}
