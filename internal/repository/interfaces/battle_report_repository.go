package interfaces

import (
	"context"

	"xiuxian-server/internal/entity/game_runtime"
)

// BattleReportRepository 战报仓储接口。按 battle_id 幂等写入。
type BattleReportRepository interface {
	// Upsert 写入战报；battle_id 冲突时覆盖
	Upsert(ctx context.Context, report *game_runtime.BattleReport) error

	// GetByBattleID 根据战斗ID获取战报
	GetByBattleID(ctx context.Context, battleID string) (*game_runtime.BattleReport, error)

	// ListByAttacker 按时间倒序列出攻击方战报
	ListByAttacker(ctx context.Context, attackerID string, limit, offset int) ([]*game_runtime.BattleReport, error)
}
