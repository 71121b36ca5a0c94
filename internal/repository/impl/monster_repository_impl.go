package impl

import (
	"context"
	"database/sql"
	"fmt"

	"xiuxian-server/internal/entity/game_config"
	"xiuxian-server/internal/repository/interfaces"
)

type monsterRepositoryImpl struct {
	db *sql.DB
}

// NewMonsterRepository 创建怪物配置仓储实例
func NewMonsterRepository(db *sql.DB) interfaces.MonsterRepository {
	return &monsterRepositoryImpl{db: db}
}

// GetByCode 根据编码获取怪物
func (r *monsterRepositoryImpl) GetByCode(ctx context.Context, code string) (*game_config.Monster, error) {
	query := `
		SELECT id, code, name, kind, hp, attack, defense, speed, luck, elements, created_at
		FROM game_config.monsters
		WHERE code = $1
	`
	var m game_config.Monster
	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&m.ID, &m.Code, &m.Name, &m.Kind,
		&m.HP, &m.Attack, &m.Defense, &m.Speed, &m.Luck, &m.Elements,
		&m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, interfaces.ErrMonsterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询怪物配置失败: %w", err)
	}
	return &m, nil
}
