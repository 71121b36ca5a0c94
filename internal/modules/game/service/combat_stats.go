package service

import (
	"encoding/json"

	"xiuxian-server/internal/entity/game_config"
)

// 元素编码
const (
	ElementMetal = "metal"
	ElementWood  = "wood"
	ElementEarth = "earth"
	ElementWater = "water"
	ElementFire  = "fire"
	ElementChaos = "chaos" // 混沌，克一切
	ElementWind  = "wind"  // 风，不克任何元素
)

// elementCounters 元素相克关系：key 克 value 列表中的元素。
// 金克木、木克土、土克水、水克火、火克金；混沌克一切；风不克任何。
var elementCounters = map[string][]string{
	ElementMetal: {ElementWood},
	ElementWood:  {ElementEarth},
	ElementEarth: {ElementWater},
	ElementWater: {ElementFire},
	ElementFire:  {ElementMetal},
	ElementChaos: {ElementMetal, ElementWood, ElementEarth, ElementWater, ElementFire, ElementChaos, ElementWind},
}

// ElementalCounterBonus 元素克制加成（+15% 伤害）
const ElementalCounterBonus = 1.15

// CombatantStats 战斗属性快照。每次战斗前新建，战斗过程中不回写。
type CombatantStats struct {
	ID   string
	Name string

	HP      int
	MaxHP   int
	Attack  int
	Defense int
	Speed   int
	Luck    int

	Elements []string
	// 只有天灵根/变异灵根可以触发元素克制
	CanElementalCounter bool

	// 阵法等来源的百分比修正（0-100），进入战斗前已合并完毕
	DamageReduction int
	Reflect         int
	Dodge           int
	Counter         int
}

// PowerScore 战力评分，仅用于展示与匹配，不参与伤害计算。
func (s *CombatantStats) PowerScore() int64 {
	return int64(s.Attack)*3 + int64(s.Defense)*2 + int64(s.MaxHP)/5 + int64(s.Speed)*2 + int64(s.Luck)
}

// countersAny 判断 attacker 的任一元素是否克制 defender 的任一元素。
func countersAny(attackerElements, defenderElements []string) bool {
	for _, ae := range attackerElements {
		beats := elementCounters[ae]
		for _, de := range defenderElements {
			for _, b := range beats {
				if b == de {
					return true
				}
			}
		}
	}
	return false
}

// ElementalBonusTriggered 判断本场战斗攻击方是否吃到元素克制加成。
func ElementalBonusTriggered(attacker, defender *CombatantStats) bool {
	if !attacker.CanElementalCounter {
		return false
	}
	return countersAny(attacker.Elements, defender.Elements)
}

// statsFromEncounter 由关卡遭遇配置构建敌方属性块。
func statsFromEncounter(e *game_config.StageEncounter) *CombatantStats {
	return &CombatantStats{
		ID:       e.ID,
		Name:     e.Name,
		HP:       e.HP,
		MaxHP:    e.HP,
		Attack:   e.Attack,
		Defense:  e.Defense,
		Speed:    e.Speed,
		Luck:     e.Luck,
		Elements: decodeElements(e.Elements),
	}
}

// statsFromMonster 由怪物配置构建敌方属性块。
func statsFromMonster(m *game_config.Monster) *CombatantStats {
	return &CombatantStats{
		ID:       m.Code,
		Name:     m.Name,
		HP:       m.HP,
		MaxHP:    m.HP,
		Attack:   m.Attack,
		Defense:  m.Defense,
		Speed:    m.Speed,
		Luck:     m.Luck,
		Elements: decodeElements(m.Elements),
	}
}

// decodeElements 解析元素标签数组；解析失败按无元素处理。
func decodeElements(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var elements []string
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil
	}
	return elements
}
