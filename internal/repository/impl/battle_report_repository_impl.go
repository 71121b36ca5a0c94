package impl

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"xiuxian-server/internal/entity/game_runtime"
	"xiuxian-server/internal/repository/interfaces"
)

type battleReportRepositoryImpl struct {
	db *sql.DB
}

// NewBattleReportRepository 创建战报仓储实例
func NewBattleReportRepository(db *sql.DB) interfaces.BattleReportRepository {
	return &battleReportRepositoryImpl{db: db}
}

const battleReportColumns = `
	id, battle_id, kind, attacker_id, defender_id,
	outcome, rounds, round_log, power_a, power_b, created_at
`

// Upsert 写入战报；battle_id 冲突时覆盖
func (r *battleReportRepositoryImpl) Upsert(ctx context.Context, report *game_runtime.BattleReport) error {
	if report == nil {
		return fmt.Errorf("battle report is nil")
	}
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO game_runtime.battle_reports (` + battleReportColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (battle_id) DO UPDATE SET
			kind        = EXCLUDED.kind,
			attacker_id = EXCLUDED.attacker_id,
			defender_id = EXCLUDED.defender_id,
			outcome     = EXCLUDED.outcome,
			rounds      = EXCLUDED.rounds,
			round_log   = EXCLUDED.round_log,
			power_a     = EXCLUDED.power_a,
			power_b     = EXCLUDED.power_b
	`
	_, err := r.db.ExecContext(ctx, query,
		report.ID, report.BattleID, report.Kind, report.AttackerID, report.DefenderID,
		report.Outcome, report.Rounds, nullJSON(report.RoundLog), report.PowerA, report.PowerB,
		report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("写入战报失败: %w", err)
	}
	return nil
}

// GetByBattleID 根据战斗ID获取战报
func (r *battleReportRepositoryImpl) GetByBattleID(ctx context.Context, battleID string) (*game_runtime.BattleReport, error) {
	query := `SELECT ` + battleReportColumns + ` FROM game_runtime.battle_reports WHERE battle_id = $1`

	var report game_runtime.BattleReport
	err := r.db.QueryRowContext(ctx, query, battleID).Scan(
		&report.ID, &report.BattleID, &report.Kind, &report.AttackerID, &report.DefenderID,
		&report.Outcome, &report.Rounds, &report.RoundLog, &report.PowerA, &report.PowerB,
		&report.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, interfaces.ErrBattleReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询战报失败: %w", err)
	}
	return &report, nil
}

// ListByAttacker 按时间倒序列出攻击方战报
func (r *battleReportRepositoryImpl) ListByAttacker(ctx context.Context, attackerID string, limit, offset int) ([]*game_runtime.BattleReport, error) {
	query := `
		SELECT ` + battleReportColumns + ` FROM game_runtime.battle_reports
		WHERE attacker_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, attackerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("查询战报列表失败: %w", err)
	}
	defer rows.Close()

	var reports []*game_runtime.BattleReport
	for rows.Next() {
		var report game_runtime.BattleReport
		err := rows.Scan(
			&report.ID, &report.BattleID, &report.Kind, &report.AttackerID, &report.DefenderID,
			&report.Outcome, &report.Rounds, &report.RoundLog, &report.PowerA, &report.PowerB,
			&report.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("扫描战报失败: %w", err)
		}
		reports = append(reports, &report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历战报失败: %w", err)
	}
	return reports, nil
}
