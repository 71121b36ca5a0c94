package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fixedRoller 按预设序列返回百分比掷骰，浮动固定为 factor（0 视为 1）。
type fixedRoller struct {
	percents []float64
	idx      int
	factor   float64
}

func (r *fixedRoller) Percent() float64 {
	if r.idx >= len(r.percents) {
		return 100 // 耗尽后视为永不命中任何概率判定
	}
	v := r.percents[r.idx]
	r.idx++
	return v
}

func (r *fixedRoller) Factor(float64) float64 {
	if r.factor == 0 {
		return 1
	}
	return r.factor
}

func plainStats(attack, defense int) *CombatantStats {
	return &CombatantStats{HP: 100, MaxHP: 100, Attack: attack, Defense: defense}
}

func TestResolveAttack_BaseDamage(t *testing.T) {
	roller := &fixedRoller{}
	outcome := ResolveAttack(roller, plainStats(50, 0), plainStats(15, 10), StandardVariance)

	// 50 - 10/2 = 45，无浮动无暴击
	assert.Equal(t, 45, outcome.Damage)
	assert.False(t, outcome.Crit)
	assert.False(t, outcome.Dodged)
}

func TestResolveAttack_MinimumOneDamage(t *testing.T) {
	roller := &fixedRoller{}
	outcome := ResolveAttack(roller, plainStats(1, 0), plainStats(0, 500), StandardVariance)

	// 攻不破防也至少造成 1 点伤害
	assert.Equal(t, 1, outcome.Damage)
}

func TestResolveAttack_DodgeSkipsEverything(t *testing.T) {
	roller := &fixedRoller{percents: []float64{0}} // 闪避判定必中
	defender := plainStats(15, 10)
	defender.Dodge = 100
	defender.Reflect = 50
	defender.Counter = 100

	outcome := ResolveAttack(roller, plainStats(50, 0), defender, StandardVariance)

	assert.True(t, outcome.Dodged)
	assert.Equal(t, 0, outcome.Damage)
	assert.Equal(t, 0, outcome.ReflectedDamage)
	assert.False(t, outcome.Countered)
}

func TestResolveAttack_Crit(t *testing.T) {
	// 第一掷闪避不中，第二掷暴击必中
	roller := &fixedRoller{percents: []float64{100, 0}}
	attacker := plainStats(50, 0)
	attacker.Luck = 30

	outcome := ResolveAttack(roller, attacker, plainStats(15, 10), StandardVariance)

	assert.True(t, outcome.Crit)
	// 45 * 1.5 = 67.5，向下取整
	assert.Equal(t, 67, outcome.Damage)
}

func TestResolveAttack_ElementalBonusRequiresAffinity(t *testing.T) {
	attacker := plainStats(50, 0)
	attacker.Elements = []string{ElementFire}
	defender := plainStats(15, 10)
	defender.Elements = []string{ElementMetal}

	// 普通灵根吃不到克制加成
	outcome := ResolveAttack(&fixedRoller{}, attacker, defender, StandardVariance)
	assert.False(t, outcome.ElementalBonus)
	assert.Equal(t, 45, outcome.Damage)

	// 天灵根/变异灵根触发 +15%
	attacker.CanElementalCounter = true
	outcome = ResolveAttack(&fixedRoller{}, attacker, defender, StandardVariance)
	assert.True(t, outcome.ElementalBonus)
	assert.Equal(t, 51, outcome.Damage) // 45 * 1.15 = 51.75
}

func TestResolveAttack_DamageReductionAndReflect(t *testing.T) {
	defender := plainStats(15, 10)
	defender.DamageReduction = 50
	defender.Reflect = 50

	outcome := ResolveAttack(&fixedRoller{}, plainStats(50, 0), defender, StandardVariance)

	// 45 * 0.5 = 22.5，向下取整
	assert.Equal(t, 22, outcome.Damage)
	assert.Equal(t, 11, outcome.ReflectedDamage)
}

func TestResolveAttack_Counter(t *testing.T) {
	// 闪避不中、暴击不中、反击必中
	roller := &fixedRoller{percents: []float64{100, 100, 0}}
	attacker := plainStats(50, 20)
	defender := plainStats(30, 10)
	defender.Counter = 60

	outcome := ResolveAttack(roller, attacker, defender, StandardVariance)

	assert.True(t, outcome.Countered)
	// 反击走基础伤害公式：30 - 20/2 = 20
	assert.Equal(t, 20, outcome.CounterDamage)
}

func TestElementCounterCycle(t *testing.T) {
	cases := []struct {
		attacker string
		defender string
		counters bool
	}{
		{ElementMetal, ElementWood, true},
		{ElementWood, ElementEarth, true},
		{ElementEarth, ElementWater, true},
		{ElementWater, ElementFire, true},
		{ElementFire, ElementMetal, true},
		{ElementMetal, ElementFire, false}, // 反向不成立
		{ElementChaos, ElementChaos, true}, // 混沌克一切，包括自身
		{ElementChaos, ElementWind, true},
		{ElementWind, ElementMetal, false}, // 风不克任何
	}
	for _, tc := range cases {
		got := countersAny([]string{tc.attacker}, []string{tc.defender})
		assert.Equal(t, tc.counters, got, "%s vs %s", tc.attacker, tc.defender)
	}
}

func TestPowerScore(t *testing.T) {
	stats := &CombatantStats{MaxHP: 100, Attack: 50, Defense: 10, Speed: 20, Luck: 5}
	// 50*3 + 10*2 + 100/5 + 20*2 + 5 = 235
	assert.Equal(t, int64(235), stats.PowerScore())
}
