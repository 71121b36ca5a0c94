// File: internal/pkg/metrics/business_metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics 游戏业务指标收集器
type BusinessMetrics struct {
	// 战斗次数（按类型和结果分组：win/lose/draw）
	BattlesTotal *prometheus.CounterVec

	// 战斗回合数直方图
	BattleRounds *prometheus.HistogramVec

	// 秘境开荒次数（按结果分组：completed/failed/disbanded）
	DungeonRunsTotal *prometheus.CounterVec

	// 关卡挑战次数（按关卡与成败分组）
	StageChallengesTotal *prometheus.CounterVec

	// 奖励结算次数
	SettlementsTotal *prometheus.CounterVec

	// 首通次数
	FirstClearsTotal *prometheus.CounterVec

	// 当前活跃房间数（Gauge 类型，可增可减）
	RoomsActive *prometheus.GaugeVec
}

var (
	// DefaultBusinessMetrics 默认的业务指标实例
	DefaultBusinessMetrics *BusinessMetrics
)

// RoundBuckets 是针对战斗回合数优化的 buckets
// 战斗回合上限 30，超限判平局
var RoundBuckets = []float64{1, 2, 3, 5, 8, 12, 20, 30}

// init 初始化默认指标
func init() {
	DefaultBusinessMetrics = NewBusinessMetrics("xiuxian")
}

// NewBusinessMetrics 创建新的业务指标收集器
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	return NewBusinessMetricsWithRegistry(namespace, GetRegisterer())
}

// NewBusinessMetricsWithRegistry 创建新的业务指标收集器（使用自定义注册表）
func NewBusinessMetricsWithRegistry(namespace string, registerer prometheus.Registerer) *BusinessMetrics {
	factory := promauto.With(registerer)

	return &BusinessMetrics{
		BattlesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "game",
				Name:      "battles_total",
				Help:      "Total number of battles by kind and outcome (win/lose/draw)",
			},
			[]string{"kind", "outcome", "service"},
		),

		BattleRounds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "game",
				Name:      "battle_rounds",
				Help:      "Number of rounds per battle",
				Buckets:   RoundBuckets,
			},
			[]string{"kind", "service"},
		),

		DungeonRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "game",
				Name:      "dungeon_runs_total",
				Help:      "Total number of dungeon runs by result (completed/failed/disbanded)",
			},
			[]string{"dungeon_type", "result", "service"},
		),

		StageChallengesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "game",
				Name:      "stage_challenges_total",
				Help:      "Total number of stage challenges by stage index and success",
			},
			[]string{"dungeon_type", "stage", "success", "service"},
		),

		SettlementsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "game",
				Name:      "settlements_total",
				Help:      "Total number of reward settlements",
			},
			[]string{"dungeon_type", "service"},
		),

		FirstClearsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "game",
				Name:      "first_clears_total",
				Help:      "Total number of weekly first clears granted",
			},
			[]string{"dungeon_type", "service"},
		),

		RoomsActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "game",
				Name:      "rooms_active",
				Help:      "Current number of rooms not yet in a terminal state",
			},
			[]string{"service"},
		),
	}
}

// RecordBattle 记录一场战斗
//
// 参数:
//   - kind: 战斗类型 ("dummy", "tower", "garden", "pvp", "stage")
//   - outcome: 战斗结果 ("win", "lose", "draw")
//   - rounds: 实际进行的回合数
func (m *BusinessMetrics) RecordBattle(kind, outcome string, rounds int, service string) {
	service = normalizeServiceName(service)
	m.BattlesTotal.WithLabelValues(kind, outcome, service).Inc()
	m.BattleRounds.WithLabelValues(kind, service).Observe(float64(rounds))
}

// RecordDungeonRun 记录一次秘境开荒的终态
func (m *BusinessMetrics) RecordDungeonRun(dungeonType, result, service string) {
	service = normalizeServiceName(service)
	m.DungeonRunsTotal.WithLabelValues(dungeonType, result, service).Inc()
}

// RecordStageChallenge 记录一次关卡挑战
func (m *BusinessMetrics) RecordStageChallenge(dungeonType string, stage int, success bool, service string) {
	service = normalizeServiceName(service)
	m.StageChallengesTotal.WithLabelValues(dungeonType, stageLabel(stage), successLabel(success), service).Inc()
}

// RecordSettlement 记录一次奖励结算
func (m *BusinessMetrics) RecordSettlement(dungeonType, service string) {
	service = normalizeServiceName(service)
	m.SettlementsTotal.WithLabelValues(dungeonType, service).Inc()
}

// RecordFirstClear 记录一次周首通
func (m *BusinessMetrics) RecordFirstClear(dungeonType, service string) {
	service = normalizeServiceName(service)
	m.FirstClearsTotal.WithLabelValues(dungeonType, service).Inc()
}

// IncRoomsActive 活跃房间数 +1
func (m *BusinessMetrics) IncRoomsActive(service string) {
	m.RoomsActive.WithLabelValues(normalizeServiceName(service)).Inc()
}

// DecRoomsActive 活跃房间数 -1
func (m *BusinessMetrics) DecRoomsActive(service string) {
	m.RoomsActive.WithLabelValues(normalizeServiceName(service)).Dec()
}

func stageLabel(stage int) string {
	switch stage {
	case 1:
		return "1"
	case 2:
		return "2"
	case 3:
		return "3"
	default:
		return "unknown"
	}
}

func successLabel(success bool) string {
	if success {
		return "success"
	}
	return "fail"
}
