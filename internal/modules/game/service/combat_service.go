package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/aarondl/sqlboiler/v4/types"
	"github.com/google/uuid"

	"xiuxian-server/internal/entity/game_runtime"
	"xiuxian-server/internal/pkg/log"
	"xiuxian-server/internal/pkg/metrics"
	"xiuxian-server/internal/pkg/notify"
	"xiuxian-server/internal/pkg/xerrors"
	"xiuxian-server/internal/repository/impl"
	"xiuxian-server/internal/repository/interfaces"
)

// 战斗结果（A 方视角）
const (
	OutcomeWin  = "win"
	OutcomeLose = "lose"
	OutcomeDraw = "draw"
)

// 战斗类型
const (
	BattleKindDummy  = "dummy"
	BattleKindTower  = "tower"
	BattleKindGarden = "garden"
	BattleKindPvP    = "pvp"
	BattleKindStage  = "stage"
)

// DefaultMaxRounds 回合上限，打满仍未分胜负判平局
const DefaultMaxRounds = 30

// 战斗事件标签
const (
	EventCrit       = "crit"
	EventDodge      = "dodge"
	EventCounter    = "counter"
	EventReflect    = "reflect"
	EventElemental  = "elemental_bonus"
	EventMutualKill = "mutual_kill"
)

// BattleRound 单回合记录
type BattleRound struct {
	Round      int      `json:"round"`
	DamageAToB int      `json:"damage_a_to_b"`
	DamageBToA int      `json:"damage_b_to_a"`
	HPA        int      `json:"hp_a"` // 回合结束后 A 剩余血量
	HPB        int      `json:"hp_b"` // 回合结束后 B 剩余血量
	Events     []string `json:"events,omitempty"`
}

// CombatResult 整场战斗结果
type CombatResult struct {
	Outcome     string        `json:"outcome"`
	Rounds      int           `json:"rounds"`
	TotalDealt  int           `json:"total_dealt"` // A 对 B 总伤害
	TotalTaken  int           `json:"total_taken"` // A 承受总伤害
	RoundLog    []BattleRound `json:"round_log"`
	PowerA      int64         `json:"power_a"`
	PowerB      int64         `json:"power_b"`
}

// CombatOptions 战斗参数
type CombatOptions struct {
	MaxRounds int
	Variance  *float64 // nil 用标准方差；显式 0 表示伤害完全固定
	Roller    Roller
}

// VarianceOf 指定伤害浮动幅度
func VarianceOf(v float64) *float64 {
	return &v
}

// resolvedOptions 填完默认值后的战斗参数
type resolvedOptions struct {
	maxRounds int
	variance  float64
	roller    Roller
}

func (o *CombatOptions) withDefaults() resolvedOptions {
	opts := resolvedOptions{maxRounds: DefaultMaxRounds, variance: StandardVariance}
	if o != nil {
		if o.MaxRounds > 0 {
			opts.maxRounds = o.MaxRounds
		}
		if o.Variance != nil {
			opts.variance = *o.Variance
		}
		opts.roller = o.Roller
	}
	if opts.roller == nil {
		opts.roller = NewRoller(time.Now().UnixNano())
	}
	return opts
}

// Simulate 推演一场战斗。纯内存计算，不触碰任何存储。
// 先手规则：速度高者先手，平速 A 方先手。
// 每回合双方各出手一次；先手击杀后手则后手不再还手。
func Simulate(sideA, sideB *CombatantStats, options *CombatOptions) *CombatResult {
	opts := options.withDefaults()

	result := &CombatResult{
		PowerA: sideA.PowerScore(),
		PowerB: sideB.PowerScore(),
	}

	hpA, hpB := sideA.HP, sideB.HP
	aFirst := sideA.Speed >= sideB.Speed

	for round := 1; round <= opts.maxRounds; round++ {
		entry := BattleRound{Round: round}

		if aFirst {
			exchangeAttack(opts.roller, sideA, sideB, opts.variance, &hpA, &hpB, &entry, true)
			if hpB > 0 {
				exchangeAttack(opts.roller, sideB, sideA, opts.variance, &hpB, &hpA, &entry, false)
			}
		} else {
			exchangeAttack(opts.roller, sideB, sideA, opts.variance, &hpB, &hpA, &entry, false)
			if hpA > 0 {
				exchangeAttack(opts.roller, sideA, sideB, opts.variance, &hpA, &hpB, &entry, true)
			}
		}

		entry.HPA, entry.HPB = hpA, hpB
		if hpA <= 0 && hpB <= 0 {
			entry.Events = append(entry.Events, EventMutualKill)
		}
		result.RoundLog = append(result.RoundLog, entry)
		result.Rounds = round

		if hpA <= 0 || hpB <= 0 {
			break
		}
	}

	switch {
	case hpA <= 0 && hpB <= 0:
		result.Outcome = OutcomeDraw // 同归于尽
	case hpB <= 0:
		result.Outcome = OutcomeWin
	case hpA <= 0:
		result.Outcome = OutcomeLose
	default:
		result.Outcome = OutcomeDraw // 回合打满
	}

	for _, r := range result.RoundLog {
		result.TotalDealt += r.DamageAToB
		result.TotalTaken += r.DamageBToA
	}
	return result
}

// exchangeAttack 结算一次出手并把伤害落到双方血量与回合记录上。
// attackerIsA 标记攻击方是否为 A，用于伤害归向。
func exchangeAttack(roller Roller, attacker, defender *CombatantStats, variance float64, attackerHP, defenderHP *int, entry *BattleRound, attackerIsA bool) {
	outcome := ResolveAttack(roller, attacker, defender, variance)

	*defenderHP -= outcome.Damage
	*attackerHP -= outcome.ReflectedDamage + outcome.CounterDamage

	if attackerIsA {
		entry.DamageAToB += outcome.Damage
		entry.DamageBToA += outcome.ReflectedDamage + outcome.CounterDamage
	} else {
		entry.DamageBToA += outcome.Damage
		entry.DamageAToB += outcome.ReflectedDamage + outcome.CounterDamage
	}

	if outcome.Dodged {
		entry.Events = append(entry.Events, EventDodge)
	}
	if outcome.Crit {
		entry.Events = append(entry.Events, EventCrit)
	}
	if outcome.ElementalBonus {
		entry.Events = append(entry.Events, EventElemental)
	}
	if outcome.ReflectedDamage > 0 {
		entry.Events = append(entry.Events, EventReflect)
	}
	if outcome.Countered {
		entry.Events = append(entry.Events, EventCounter)
	}
}

// CombatDependencies 注入 CombatService 所需依赖
type CombatDependencies struct {
	StatService      *CombatStatService
	CharacterRepo    interfaces.CharacterRepository
	MonsterRepo      interfaces.MonsterRepository
	BattleReportRepo interfaces.BattleReportRepository
}

// CombatService 战斗服务：对外提供木人桩/闯塔/药园/切磋等战斗入口，
// 负责构建双方快照、推演战斗、落地战报。
type CombatService struct {
	db               *sql.DB
	statService      *CombatStatService
	characterRepo    interfaces.CharacterRepository
	monsterRepo      interfaces.MonsterRepository
	battleReportRepo interfaces.BattleReportRepository
}

// NewCombatService 创建战斗服务
func NewCombatService(db *sql.DB, deps *CombatDependencies) *CombatService {
	if deps == nil {
		deps = &CombatDependencies{}
	}
	if deps.CharacterRepo == nil {
		deps.CharacterRepo = impl.NewCharacterRepository(db)
	}
	if deps.MonsterRepo == nil {
		deps.MonsterRepo = impl.NewMonsterRepository(db)
	}
	if deps.BattleReportRepo == nil {
		deps.BattleReportRepo = impl.NewBattleReportRepository(db)
	}
	if deps.StatService == nil {
		deps.StatService = NewCombatStatService(db, &CombatStatDependencies{CharacterRepo: deps.CharacterRepo})
	}
	return &CombatService{
		db:               db,
		statService:      deps.StatService,
		characterRepo:    deps.CharacterRepo,
		monsterRepo:      deps.MonsterRepo,
		battleReportRepo: deps.BattleReportRepo,
	}
}

// ChallengeMonsterRequest 挑战脚本化对手请求
type ChallengeMonsterRequest struct {
	CharacterID string
	MonsterCode string
	Seed        int64 // 0 表示随机
}

// ChallengeMonster 挑战木人桩/塔层/药园魔物。
func (s *CombatService) ChallengeMonster(ctx context.Context, req *ChallengeMonsterRequest) (*CombatResult, error) {
	if req == nil || req.CharacterID == "" || req.MonsterCode == "" {
		return nil, xerrors.New(xerrors.CodeInvalidParams, "参数不能为空")
	}

	statsA, err := s.statService.BuildStats(ctx, req.CharacterID)
	if err != nil {
		return nil, err
	}

	monster, err := s.monsterRepo.GetByCode(ctx, req.MonsterCode)
	if err != nil {
		if errors.Is(err, interfaces.ErrMonsterNotFound) {
			return nil, xerrors.FromCode(xerrors.CodeEncounterNotFound).WithMetadata("monster_code", req.MonsterCode)
		}
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询怪物配置失败")
	}
	statsB := statsFromMonster(monster)

	opts := &CombatOptions{Variance: VarianceOf(StandardVariance)}
	if req.Seed != 0 {
		opts.Roller = NewRoller(req.Seed)
	}
	result := Simulate(statsA, statsB, opts)

	if err := s.persistReport(ctx, monster.Kind, statsA.ID, statsB.ID, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ChallengePvPRequest 切磋请求
type ChallengePvPRequest struct {
	AttackerID string
	DefenderID string
	Seed       int64
}

// ChallengePvP 发起切磋。双方都用当前快照，结果只记战报不扣资源。
func (s *CombatService) ChallengePvP(ctx context.Context, req *ChallengePvPRequest) (*CombatResult, error) {
	if req == nil || req.AttackerID == "" || req.DefenderID == "" {
		return nil, xerrors.New(xerrors.CodeInvalidParams, "参数不能为空")
	}
	if req.AttackerID == req.DefenderID {
		return nil, xerrors.New(xerrors.CodeInvalidParams, "不能与自己切磋")
	}

	statsA, err := s.statService.BuildStats(ctx, req.AttackerID)
	if err != nil {
		return nil, err
	}
	statsB, err := s.statService.BuildStats(ctx, req.DefenderID)
	if err != nil {
		return nil, err
	}

	opts := &CombatOptions{Variance: VarianceOf(PvPVariance)}
	if req.Seed != 0 {
		opts.Roller = NewRoller(req.Seed)
	}
	result := Simulate(statsA, statsB, opts)

	if err := s.persistReport(ctx, BattleKindPvP, statsA.ID, statsB.ID, result); err != nil {
		return nil, err
	}
	return result, nil
}

// persistReport 落地战报并发布事件、打点。
func (s *CombatService) persistReport(ctx context.Context, kind, attackerID, defenderID string, result *CombatResult) error {
	roundLog, err := json.Marshal(result.RoundLog)
	if err != nil {
		return xerrors.NewWithError(xerrors.CodeInternalError, "序列化战斗日志失败", err)
	}

	report := &game_runtime.BattleReport{
		BattleID:   uuid.New().String(),
		Kind:       kind,
		AttackerID: attackerID,
		DefenderID: defenderID,
		Outcome:    result.Outcome,
		Rounds:     result.Rounds,
		RoundLog:   types.JSON(roundLog),
		PowerA:     result.PowerA,
		PowerB:     result.PowerB,
	}
	if err := s.battleReportRepo.Upsert(ctx, report); err != nil {
		return xerrors.Wrap(err, xerrors.CodeDatabaseError, "写入战报失败")
	}

	metrics.DefaultBusinessMetrics.RecordBattle(kind, result.Outcome, result.Rounds, "")

	if err := notify.PublishGameEvent(ctx, notify.SubjectBattleReported, notify.BattleReportedEvent{
		BattleID: report.BattleID,
		Kind:     kind,
		Outcome:  result.Outcome,
		Rounds:   result.Rounds,
	}); err != nil {
		// 事件发布失败只记日志，不影响战斗结果
		log.Warn("发布战报事件失败", "error", err)
	}
	return nil
}

// GetBattleReport 查询战报
func (s *CombatService) GetBattleReport(ctx context.Context, battleID string) (*game_runtime.BattleReport, error) {
	if battleID == "" {
		return nil, xerrors.New(xerrors.CodeInvalidParams, "战斗ID不能为空")
	}
	report, err := s.battleReportRepo.GetByBattleID(ctx, battleID)
	if err != nil {
		if errors.Is(err, interfaces.ErrBattleReportNotFound) {
			return nil, xerrors.NewNotFoundError("battle_report", battleID)
		}
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询战报失败")
	}
	return report, nil
}
