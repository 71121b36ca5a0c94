package impl

import (
	"context"
	"database/sql"
	"fmt"

	"xiuxian-server/internal/entity/game_config"
	"xiuxian-server/internal/repository/interfaces"
)

type stageEncounterRepositoryImpl struct {
	db *sql.DB
}

// NewStageEncounterRepository 创建关卡遭遇配置仓储实例
func NewStageEncounterRepository(db *sql.DB) interfaces.StageEncounterRepository {
	return &stageEncounterRepositoryImpl{db: db}
}

const encounterColumns = `
	id, dungeon_type, stage_index, branch_path, name,
	hp, attack, defense, speed, luck, elements,
	created_at
`

func scanEncounter(row interface{ Scan(...interface{}) error }) (*game_config.StageEncounter, error) {
	var e game_config.StageEncounter
	err := row.Scan(
		&e.ID, &e.DungeonType, &e.StageIndex, &e.BranchPath, &e.Name,
		&e.HP, &e.Attack, &e.Defense, &e.Speed, &e.Luck, &e.Elements,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetEncounter 获取某秘境某关的遭遇配置
func (r *stageEncounterRepositoryImpl) GetEncounter(ctx context.Context, dungeonType string, stageIndex int, branchPath string) (*game_config.StageEncounter, error) {
	query := `
		SELECT ` + encounterColumns + ` FROM game_config.stage_encounters
		WHERE dungeon_type = $1 AND stage_index = $2
		  AND ($3 = '' OR branch_path = $3)
		LIMIT 1
	`
	encounter, err := scanEncounter(r.db.QueryRowContext(ctx, query, dungeonType, stageIndex, branchPath))
	if err == sql.ErrNoRows {
		return nil, interfaces.ErrEncounterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询关卡遭遇配置失败: %w", err)
	}
	return encounter, nil
}
