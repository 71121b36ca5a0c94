package service

import (
	"math"
	"math/rand"
)

// StandardVariance 普通遭遇战的伤害浮动幅度
const StandardVariance = 0.10

// PvPVariance 切磋/劫杀的伤害浮动幅度
const PvPVariance = 0.15

// CritMultiplier 暴击倍率
const CritMultiplier = 1.5

// Roller 提供战斗所需的随机数。拆成接口是为了单测注入固定序列。
type Roller interface {
	// Percent 返回 uniform [0,100)
	Percent() float64
	// Factor 返回 uniform [1-v, 1+v]
	Factor(v float64) float64
}

type randRoller struct {
	rng *rand.Rand
}

// NewRoller 创建基于 math/rand 的 Roller，seed 相同则序列相同。
func NewRoller(seed int64) Roller {
	return &randRoller{rng: rand.New(rand.NewSource(seed))}
}

func (r *randRoller) Percent() float64 {
	return r.rng.Float64() * 100
}

func (r *randRoller) Factor(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return 1 - v + r.rng.Float64()*2*v
}

// AttackOutcome 单次攻击的结算结果
type AttackOutcome struct {
	Damage          int  // 主伤害
	Crit            bool // 是否暴击
	Dodged          bool // 是否被闪避
	ElementalBonus  bool // 是否触发元素克制
	ReflectedDamage int  // 反弹给攻击方的伤害
	Countered       bool // 是否触发反击
	CounterDamage   int  // 反击伤害
}

// baseDamage 基础伤害公式
func baseDamage(attack, defense int) int {
	dmg := attack - defense/2
	if dmg < 1 {
		return 1
	}
	return dmg
}

// ResolveAttack 结算一次攻击。步骤固定，每步独立掷骰：
// 1. 闪避判定        2. 基础伤害
// 3. 伤害浮动        4. 元素克制 ×1.15
// 5. 暴击判定 ×1.5   6. 减伤
// 7. 反弹            8. 反击判定
// 闪避成功时后续步骤全部跳过，主伤害为 0。
func ResolveAttack(roller Roller, attacker, defender *CombatantStats, variance float64) AttackOutcome {
	var outcome AttackOutcome

	// 1. 闪避判定
	if roller.Percent() < float64(defender.Dodge) {
		outcome.Dodged = true
		return outcome
	}

	// 2. 基础伤害
	damage := float64(baseDamage(attacker.Attack, defender.Defense))

	// 3. 伤害浮动
	damage *= roller.Factor(variance)

	// 4. 元素克制
	if ElementalBonusTriggered(attacker, defender) {
		damage *= ElementalCounterBonus
		outcome.ElementalBonus = true
	}

	// 5. 暴击判定：裸 luck 值作为暴击率
	if roller.Percent() < float64(attacker.Luck) {
		damage *= CritMultiplier
		outcome.Crit = true
	}

	// 6. 减伤
	damage *= 1 - float64(defender.DamageReduction)/100

	finalDamage := int(math.Floor(damage))
	if finalDamage < 0 {
		finalDamage = 0
	}
	outcome.Damage = finalDamage

	// 7. 反弹
	if defender.Reflect > 0 {
		outcome.ReflectedDamage = finalDamage * defender.Reflect / 100
	}

	// 8. 反击判定：用基础伤害公式原样回敬一刀
	if roller.Percent() < float64(defender.Counter) {
		outcome.Countered = true
		outcome.CounterDamage = baseDamage(defender.Attack, attacker.Defense)
	}

	return outcome
}
