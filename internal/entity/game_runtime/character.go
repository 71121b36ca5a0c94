// Package game_runtime 存放运行时实体（随玩法变化的数据）。
package game_runtime

import (
	"encoding/json"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/aarondl/sqlboiler/v4/types"
)

// 灵根品阶
const (
	AffinityTierWaste    = "waste"    // 废灵根
	AffinityTierPseudo   = "pseudo"   // 伪灵根
	AffinityTierTrue     = "true"     // 真灵根
	AffinityTierHeavenly = "heavenly" // 天灵根
	AffinityTierVariant  = "variant"  // 变异灵根
)

// Character 角色运行时记录
type Character struct {
	ID     string `boil:"id" json:"id"`
	UserID string `boil:"user_id" json:"user_id"`
	Name   string `boil:"name" json:"name"`

	Realm int `boil:"realm" json:"realm"` // 境界层级，门槛校验用

	HP      int `boil:"hp" json:"hp"`
	MaxHP   int `boil:"max_hp" json:"max_hp"`
	Attack  int `boil:"attack" json:"attack"`
	Defense int `boil:"defense" json:"defense"`
	Speed   int `boil:"speed" json:"speed"`
	Luck    int `boil:"luck" json:"luck"`

	SpiritStones      int64 `boil:"spirit_stones" json:"spirit_stones"`
	CultivationPoints int64 `boil:"cultivation_points" json:"cultivation_points"`
	Contribution      int64 `boil:"contribution" json:"contribution"`

	AffinityTier string     `boil:"affinity_tier" json:"affinity_tier"`
	Elements     types.JSON `boil:"elements" json:"elements"` // 元素标签数组

	// 阵法增益（带过期时间），NULL 表示未开启
	Formation null.JSON `boil:"formation" json:"formation,omitempty"`
	// 诅咒减益，NULL 表示无
	Curse null.JSON `boil:"curse" json:"curse,omitempty"`

	CurrentRoomID null.String `boil:"current_room_id" json:"current_room_id,omitempty"`

	CreatedAt time.Time `boil:"created_at" json:"created_at"`
	UpdatedAt time.Time `boil:"updated_at" json:"updated_at"`
}

// FormationEffect 阵法效果，百分比均为 0-100。
type FormationEffect struct {
	DamageReduction int       `json:"damage_reduction"`
	Reflect         int       `json:"reflect"`
	Dodge           int       `json:"dodge"`
	Counter         int       `json:"counter"`
	AttackBonus     int       `json:"attack_bonus"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// Expired 判断阵法是否已过期。
func (f *FormationEffect) Expired(now time.Time) bool {
	return !f.ExpiresAt.After(now)
}

// CurseEffect 诅咒减益，按百分比削弱战斗属性。
type CurseEffect struct {
	AttackPenalty  int       `json:"attack_penalty"`  // 0-100
	DefensePenalty int       `json:"defense_penalty"` // 0-100
	ExpiresAt      time.Time `json:"expires_at"`
}

// Expired 判断诅咒是否已过期。
func (c *CurseEffect) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// DecodeFormation 解析阵法字段；未开启返回 (nil, nil)。
// 实体层统一解码，避免各调用点各自解析 JSON。
func (c *Character) DecodeFormation() (*FormationEffect, error) {
	if !c.Formation.Valid || len(c.Formation.JSON) == 0 {
		return nil, nil
	}
	var effect FormationEffect
	if err := json.Unmarshal(c.Formation.JSON, &effect); err != nil {
		return nil, err
	}
	return &effect, nil
}

// SetFormation 序列化并写回阵法字段；传 nil 则清空。
func (c *Character) SetFormation(effect *FormationEffect) error {
	if effect == nil {
		c.Formation = null.JSON{}
		return nil
	}
	raw, err := json.Marshal(effect)
	if err != nil {
		return err
	}
	c.Formation = null.JSONFrom(raw)
	return nil
}

// DecodeCurse 解析诅咒字段；无诅咒返回 (nil, nil)。
func (c *Character) DecodeCurse() (*CurseEffect, error) {
	if !c.Curse.Valid || len(c.Curse.JSON) == 0 {
		return nil, nil
	}
	var effect CurseEffect
	if err := json.Unmarshal(c.Curse.JSON, &effect); err != nil {
		return nil, err
	}
	return &effect, nil
}

// SetCurse 序列化并写回诅咒字段；传 nil 则清空。
func (c *Character) SetCurse(effect *CurseEffect) error {
	if effect == nil {
		c.Curse = null.JSON{}
		return nil
	}
	raw, err := json.Marshal(effect)
	if err != nil {
		return err
	}
	c.Curse = null.JSONFrom(raw)
	return nil
}

// ElementList 解析元素标签数组；解析失败按无元素处理。
func (c *Character) ElementList() []string {
	if len(c.Elements) == 0 {
		return nil
	}
	var elements []string
	if err := json.Unmarshal(c.Elements, &elements); err != nil {
		return nil
	}
	return elements
}
