package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulate_AttackerWinsInThreeRounds(t *testing.T) {
	sideA := &CombatantStats{Name: "剑修", HP: 200, MaxHP: 200, Attack: 50, Defense: 10, Speed: 20}
	sideB := &CombatantStats{Name: "木人桩", HP: 100, MaxHP: 100, Attack: 15, Defense: 10, Speed: 12}

	result := Simulate(sideA, sideB, &CombatOptions{Roller: &fixedRoller{}})

	// 每回合 A 打 45，B 还手 10；第三回合 B 被击杀后不再还手
	require.Equal(t, OutcomeWin, result.Outcome)
	assert.Equal(t, 3, result.Rounds)
	assert.Equal(t, 135, result.TotalDealt)
	assert.Equal(t, 20, result.TotalTaken)
	require.Len(t, result.RoundLog, 3)
	assert.Equal(t, 55, result.RoundLog[0].HPB)
	assert.Equal(t, 10, result.RoundLog[1].HPB)
	assert.Equal(t, -35, result.RoundLog[2].HPB)
	assert.Equal(t, 180, result.RoundLog[2].HPA)
}

func TestSimulate_ExplicitZeroVariance(t *testing.T) {
	// 显式 0 方差不能被默认方差顶掉：不同种子下伤害完全一致
	base := func() (*CombatantStats, *CombatantStats) {
		return &CombatantStats{HP: 200, MaxHP: 200, Attack: 50, Defense: 10, Speed: 20},
			&CombatantStats{HP: 100, MaxHP: 100, Attack: 15, Defense: 10, Speed: 12}
	}

	a1, b1 := base()
	r1 := Simulate(a1, b1, &CombatOptions{Variance: VarianceOf(0), Roller: NewRoller(7)})
	a2, b2 := base()
	r2 := Simulate(a2, b2, &CombatOptions{Variance: VarianceOf(0), Roller: NewRoller(99)})

	require.Equal(t, OutcomeWin, r1.Outcome)
	assert.Equal(t, r1.Rounds, r2.Rounds)
	assert.Equal(t, r1.TotalDealt, r2.TotalDealt)
	assert.Equal(t, 45, r1.RoundLog[0].DamageAToB)
}

func TestSimulate_SlowerSideLosesWithoutActing(t *testing.T) {
	sideA := &CombatantStats{HP: 10, MaxHP: 10, Attack: 50, Speed: 5}
	sideB := &CombatantStats{HP: 100, MaxHP: 100, Attack: 100, Speed: 30}

	result := Simulate(sideA, sideB, &CombatOptions{Roller: &fixedRoller{}})

	// B 先手一击秒杀 A，A 没有出手机会
	require.Equal(t, OutcomeLose, result.Outcome)
	assert.Equal(t, 1, result.Rounds)
	assert.Equal(t, 0, result.TotalDealt)
}

func TestSimulate_SpeedTieGoesToSideA(t *testing.T) {
	sideA := &CombatantStats{HP: 100, MaxHP: 100, Attack: 200, Speed: 10}
	sideB := &CombatantStats{HP: 100, MaxHP: 100, Attack: 200, Speed: 10}

	result := Simulate(sideA, sideB, &CombatOptions{Roller: &fixedRoller{}})

	// 平速 A 先手，一击击杀后 B 不再还手
	require.Equal(t, OutcomeWin, result.Outcome)
	assert.Equal(t, 1, result.Rounds)
}

func TestSimulate_MutualKillIsDraw(t *testing.T) {
	sideA := &CombatantStats{HP: 10, MaxHP: 10, Attack: 30, Speed: 20}
	sideB := &CombatantStats{HP: 10, MaxHP: 10, Attack: 30, Speed: 5, Reflect: 100}

	result := Simulate(sideA, sideB, &CombatOptions{Roller: &fixedRoller{}})

	// A 打死 B 的同时被全额反弹打死，同归于尽判平局
	require.Equal(t, OutcomeDraw, result.Outcome)
	assert.Equal(t, 1, result.Rounds)
	assert.Contains(t, result.RoundLog[0].Events, EventMutualKill)
	assert.Contains(t, result.RoundLog[0].Events, EventReflect)
}

func TestSimulate_RoundCapIsDraw(t *testing.T) {
	sideA := &CombatantStats{HP: 1000, MaxHP: 1000, Attack: 1, Defense: 100, Speed: 10}
	sideB := &CombatantStats{HP: 1000, MaxHP: 1000, Attack: 1, Defense: 100, Speed: 5}

	result := Simulate(sideA, sideB, &CombatOptions{MaxRounds: 5, Roller: &fixedRoller{}})

	// 打满回合上限仍未分胜负
	require.Equal(t, OutcomeDraw, result.Outcome)
	assert.Equal(t, 5, result.Rounds)
	assert.Len(t, result.RoundLog, 5)
	// 双方都还活着
	assert.Greater(t, result.RoundLog[4].HPA, 0)
	assert.Greater(t, result.RoundLog[4].HPB, 0)
}

func TestSimulate_SameSeedSameResult(t *testing.T) {
	newSides := func() (*CombatantStats, *CombatantStats) {
		a := &CombatantStats{HP: 300, MaxHP: 300, Attack: 40, Defense: 15, Speed: 18, Luck: 20}
		b := &CombatantStats{HP: 280, MaxHP: 280, Attack: 35, Defense: 20, Speed: 15, Luck: 10}
		return a, b
	}

	a1, b1 := newSides()
	r1 := Simulate(a1, b1, &CombatOptions{Roller: NewRoller(42)})
	a2, b2 := newSides()
	r2 := Simulate(a2, b2, &CombatOptions{Roller: NewRoller(42)})

	assert.Equal(t, r1.Outcome, r2.Outcome)
	assert.Equal(t, r1.Rounds, r2.Rounds)
	assert.Equal(t, r1.TotalDealt, r2.TotalDealt)
	assert.Equal(t, r1.TotalTaken, r2.TotalTaken)
}

func TestSimulate_DoesNotMutateInputs(t *testing.T) {
	sideA := &CombatantStats{HP: 200, MaxHP: 200, Attack: 50, Defense: 10, Speed: 20}
	sideB := &CombatantStats{HP: 100, MaxHP: 100, Attack: 15, Defense: 10, Speed: 12}

	_ = Simulate(sideA, sideB, &CombatOptions{Roller: &fixedRoller{}})

	// 推演只在局部血量上进行，不回写快照
	assert.Equal(t, 200, sideA.HP)
	assert.Equal(t, 100, sideB.HP)
}
