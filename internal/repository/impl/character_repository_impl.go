package impl

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aarondl/sqlboiler/v4/boil"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"xiuxian-server/internal/entity/game_runtime"
	"xiuxian-server/internal/repository/interfaces"
)

type characterRepositoryImpl struct {
	db *sql.DB
}

// NewCharacterRepository 创建角色仓储实例
func NewCharacterRepository(db *sql.DB) interfaces.CharacterRepository {
	return &characterRepositoryImpl{db: db}
}

const characterColumns = `
	id, user_id, name, realm,
	hp, max_hp, attack, defense, speed, luck,
	spirit_stones, cultivation_points, contribution,
	affinity_tier, elements, formation, curse, current_room_id,
	created_at, updated_at
`

func scanCharacter(row interface{ Scan(...interface{}) error }) (*game_runtime.Character, error) {
	var c game_runtime.Character
	err := row.Scan(
		&c.ID, &c.UserID, &c.Name, &c.Realm,
		&c.HP, &c.MaxHP, &c.Attack, &c.Defense, &c.Speed, &c.Luck,
		&c.SpiritStones, &c.CultivationPoints, &c.Contribution,
		&c.AffinityTier, &c.Elements, &c.Formation, &c.Curse, &c.CurrentRoomID,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create 创建角色
func (r *characterRepositoryImpl) Create(ctx context.Context, character *game_runtime.Character) error {
	if character.ID == "" {
		character.ID = uuid.New().String()
	}
	now := time.Now()
	character.CreatedAt = now
	character.UpdatedAt = now

	query := `
		INSERT INTO game_runtime.characters (` + characterColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	`
	_, err := r.db.ExecContext(ctx, query,
		character.ID, character.UserID, character.Name, character.Realm,
		character.HP, character.MaxHP, character.Attack, character.Defense, character.Speed, character.Luck,
		character.SpiritStones, character.CultivationPoints, character.Contribution,
		character.AffinityTier, nullJSON(character.Elements), character.Formation, character.Curse, character.CurrentRoomID,
		character.CreatedAt, character.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建角色失败: %w", err)
	}
	return nil
}

// GetByID 根据ID获取角色
func (r *characterRepositoryImpl) GetByID(ctx context.Context, characterID string) (*game_runtime.Character, error) {
	query := `SELECT ` + characterColumns + ` FROM game_runtime.characters WHERE id = $1`

	character, err := scanCharacter(r.db.QueryRowContext(ctx, query, characterID))
	if err == sql.ErrNoRows {
		return nil, interfaces.ErrCharacterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询角色失败: %w", err)
	}
	return character, nil
}

// GetByIDForUpdate 根据ID获取角色（带行锁）
func (r *characterRepositoryImpl) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, characterID string) (*game_runtime.Character, error) {
	query := `SELECT ` + characterColumns + ` FROM game_runtime.characters WHERE id = $1 FOR UPDATE`

	character, err := scanCharacter(tx.QueryRowContext(ctx, query, characterID))
	if err == sql.ErrNoRows {
		return nil, interfaces.ErrCharacterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询角色失败(加锁): %w", err)
	}
	return character, nil
}

// ListByIDs 批量获取角色
func (r *characterRepositoryImpl) ListByIDs(ctx context.Context, characterIDs []string) ([]*game_runtime.Character, error) {
	if len(characterIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + characterColumns + ` FROM game_runtime.characters WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(characterIDs))
	if err != nil {
		return nil, fmt.Errorf("批量查询角色失败: %w", err)
	}
	defer rows.Close()

	var characters []*game_runtime.Character
	for rows.Next() {
		character, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("扫描角色记录失败: %w", err)
		}
		characters = append(characters, character)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历角色记录失败: %w", err)
	}
	return characters, nil
}

// Update 更新角色（支持事务）
func (r *characterRepositoryImpl) Update(ctx context.Context, execer boil.ContextExecutor, character *game_runtime.Character) error {
	character.UpdatedAt = time.Now()

	query := `
		UPDATE game_runtime.characters SET
			name = $2, realm = $3,
			hp = $4, max_hp = $5, attack = $6, defense = $7, speed = $8, luck = $9,
			spirit_stones = $10, cultivation_points = $11, contribution = $12,
			affinity_tier = $13, elements = $14, formation = $15, curse = $16, current_room_id = $17,
			updated_at = $18
		WHERE id = $1
	`
	result, err := execer.ExecContext(ctx, query,
		character.ID, character.Name, character.Realm,
		character.HP, character.MaxHP, character.Attack, character.Defense, character.Speed, character.Luck,
		character.SpiritStones, character.CultivationPoints, character.Contribution,
		character.AffinityTier, nullJSON(character.Elements), character.Formation, character.Curse, character.CurrentRoomID,
		character.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新角色失败: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return interfaces.ErrCharacterNotFound
	}
	return nil
}

// AddRewards 累加角色资源
func (r *characterRepositoryImpl) AddRewards(ctx context.Context, execer boil.ContextExecutor, characterID string, delta interfaces.RewardDelta) error {
	query := `
		UPDATE game_runtime.characters SET
			spirit_stones = spirit_stones + $2,
			cultivation_points = cultivation_points + $3,
			contribution = contribution + $4,
			updated_at = NOW()
		WHERE id = $1
	`
	result, err := execer.ExecContext(ctx, query, characterID,
		delta.SpiritStones, delta.CultivationPoints, delta.Contribution)
	if err != nil {
		return fmt.Errorf("累加角色资源失败: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return interfaces.ErrCharacterNotFound
	}
	return nil
}

// SetCurrentRoom 设置角色当前所在房间
func (r *characterRepositoryImpl) SetCurrentRoom(ctx context.Context, execer boil.ContextExecutor, characterID, roomID string) error {
	query := `
		UPDATE game_runtime.characters SET current_room_id = $2, updated_at = NOW()
		WHERE id = $1
	`
	result, err := execer.ExecContext(ctx, query, characterID, nullString(roomID))
	if err != nil {
		return fmt.Errorf("更新角色所在房间失败: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return interfaces.ErrCharacterNotFound
	}
	return nil
}

// ClearExpiredFormations 批量清除已过期的阵法
func (r *characterRepositoryImpl) ClearExpiredFormations(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE game_runtime.characters SET formation = NULL, updated_at = NOW()
		WHERE formation IS NOT NULL
		  AND (formation->>'expires_at')::timestamptz <= $1
	`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("清除过期阵法失败: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("读取清除条数失败: %w", err)
	}
	return affected, nil
}
