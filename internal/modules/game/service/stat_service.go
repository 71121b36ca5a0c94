package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"xiuxian-server/internal/entity/game_runtime"
	"xiuxian-server/internal/pkg/log"
	"xiuxian-server/internal/pkg/xerrors"
	"xiuxian-server/internal/repository/impl"
	"xiuxian-server/internal/repository/interfaces"
)

// CombatStatDependencies 注入 CombatStatService 所需依赖
type CombatStatDependencies struct {
	CharacterRepo interfaces.CharacterRepository
}

// CombatStatService 战斗属性快照服务。
// 把角色的持久化属性、灵根、阵法增益、诅咒减益合并为一份战斗用快照。
type CombatStatService struct {
	db            *sql.DB
	characterRepo interfaces.CharacterRepository

	// now 便于测试固定时间
	now func() time.Time
}

// NewCombatStatService 创建战斗属性快照服务
func NewCombatStatService(db *sql.DB, deps *CombatStatDependencies) *CombatStatService {
	if deps == nil {
		deps = &CombatStatDependencies{}
	}
	if deps.CharacterRepo == nil {
		deps.CharacterRepo = impl.NewCharacterRepository(db)
	}
	return &CombatStatService{
		db:            db,
		characterRepo: deps.CharacterRepo,
		now:           time.Now,
	}
}

// BuildStats 构建角色战斗属性快照。
// 过期的阵法/诅咒视为不存在并顺手清掉（幂等，重复执行安全）。
func (s *CombatStatService) BuildStats(ctx context.Context, characterID string) (*CombatantStats, error) {
	if characterID == "" {
		return nil, xerrors.New(xerrors.CodeInvalidParams, "角色ID不能为空")
	}

	character, err := s.characterRepo.GetByID(ctx, characterID)
	if err != nil {
		if errors.Is(err, interfaces.ErrCharacterNotFound) {
			return nil, xerrors.NewCharacterNotFoundError(characterID)
		}
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询角色失败")
	}

	return s.buildFromCharacter(ctx, character)
}

// buildFromCharacter 从角色记录构建快照；懒清理过期状态。
func (s *CombatStatService) buildFromCharacter(ctx context.Context, character *game_runtime.Character) (*CombatantStats, error) {
	if character.MaxHP <= 0 || character.Attack < 0 {
		return nil, xerrors.New(xerrors.CodeCombatInvalidStats, "角色战斗属性无效")
	}

	now := s.now()
	dirty := false

	// 1. 解析阵法，过期按不存在处理
	formation, err := character.DecodeFormation()
	if err != nil {
		return nil, xerrors.NewWithError(xerrors.CodeCombatInvalidStats, "阵法数据损坏", err)
	}
	if formation != nil && formation.Expired(now) {
		if err := character.SetFormation(nil); err != nil {
			return nil, xerrors.NewWithError(xerrors.CodeInternalError, "清理过期阵法失败", err)
		}
		formation = nil
		dirty = true
	}

	// 2. 解析诅咒，过期同样懒清理
	curse, err := character.DecodeCurse()
	if err != nil {
		return nil, xerrors.NewWithError(xerrors.CodeCombatInvalidStats, "诅咒数据损坏", err)
	}
	if curse != nil && curse.Expired(now) {
		if err := character.SetCurse(nil); err != nil {
			return nil, xerrors.NewWithError(xerrors.CodeInternalError, "清理过期诅咒失败", err)
		}
		curse = nil
		dirty = true
	}

	// 3. 回写懒清理结果。失败不阻塞本场战斗，下次构建会再清一次。
	if dirty {
		if err := s.characterRepo.Update(ctx, s.db, character); err != nil {
			log.Warn("回写过期状态清理失败", "character_id", character.ID, "error", err)
		}
	}

	// 4. 合并修正值
	stats := &CombatantStats{
		ID:       character.ID,
		Name:     character.Name,
		HP:       character.HP,
		MaxHP:    character.MaxHP,
		Attack:   character.Attack,
		Defense:  character.Defense,
		Speed:    character.Speed,
		Luck:     character.Luck,
		Elements: character.ElementList(),
		CanElementalCounter: character.AffinityTier == game_runtime.AffinityTierHeavenly ||
			character.AffinityTier == game_runtime.AffinityTierVariant,
	}

	if formation != nil {
		stats.DamageReduction = clampPercent(formation.DamageReduction)
		stats.Reflect = clampPercent(formation.Reflect)
		stats.Dodge = clampPercent(formation.Dodge)
		stats.Counter = clampPercent(formation.Counter)
		if formation.AttackBonus > 0 {
			stats.Attack += stats.Attack * formation.AttackBonus / 100
		}
	}

	if curse != nil {
		stats.Attack -= stats.Attack * clampPercent(curse.AttackPenalty) / 100
		stats.Defense -= stats.Defense * clampPercent(curse.DefensePenalty) / 100
	}

	return stats, nil
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
