package validator

import (
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gameRulePayload struct {
	DungeonType string `validate:"omitempty,dungeon_code"`
	Password    string `validate:"omitempty,room_password"`
	MinRealm    int    `validate:"omitempty,realm_tier"`
	Choice      string `validate:"omitempty,branch_path"`
}

func newRulesForTest() *validator.Validate {
	v := validator.New()
	registerGameRules(v)
	return v
}

func TestGameRules_ValidValues(t *testing.T) {
	v := newRulesForTest()

	cases := []gameRulePayload{
		{DungeonType: "frost_abyss"},
		{DungeonType: "tower_floor_9"},
		{Password: "mima1234"},
		{MinRealm: 5},
		{Choice: "ice"},
		{Choice: "fire"},
	}
	for _, p := range cases {
		assert.NoError(t, v.Struct(p), "%+v", p)
	}
}

func TestGameRules_InvalidValues(t *testing.T) {
	v := newRulesForTest()

	cases := []gameRulePayload{
		{DungeonType: "Frost-Abyss"}, // 大写和连字符
		{DungeonType: "x"},           // 太短
		{DungeonType: "frost_"},      // 下划线结尾
		{Password: "abc"},            // 不足4位
		{Password: "with space"},     // 含空格
		{MinRealm: 10},               // 超出境界上限
		{Choice: "water"},            // 不存在的分支
	}
	for _, p := range cases {
		assert.Error(t, v.Struct(p), "%+v", p)
	}
}

func TestTranslateValidationErrors(t *testing.T) {
	v := newRulesForTest()

	type req struct {
		RoomID string `validate:"required"`
		Choice string `validate:"omitempty,branch_path"`
	}

	err := v.Struct(req{Choice: "water"})
	require.Error(t, err)

	msgs := TranslateValidationErrors(err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "房间ID不能为空", msgs[0].Message)
	assert.Equal(t, "分支路线只能是 ice 或 fire", msgs[1].Message)
	assert.Equal(t, "branch_path", msgs[1].Tag)
}

func TestCustomValidator_EchoBadRequest(t *testing.T) {
	cv := New()

	type req struct {
		DungeonType string `validate:"required,dungeon_code"`
	}

	err := cv.Validate(&req{DungeonType: "BAD"})
	require.Error(t, err)

	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, 400, httpErr.Code)
	assert.Contains(t, fmt.Sprintf("%v", httpErr.Message), "小写字母")
}
