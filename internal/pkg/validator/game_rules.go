package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// 游戏侧自定义验证规则，请求结构体通过 validate tag 引用，
// 如 `validate:"required,dungeon_code"`。

var (
	dungeonCodePattern  = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$`)
	roomPasswordPattern = regexp.MustCompile(`^[A-Za-z0-9]{4,16}$`)
)

// registerGameRules 把业务规则挂到 validator 实例上
func registerGameRules(v *validator.Validate) {
	v.RegisterValidation("dungeon_code", validateDungeonCode)
	v.RegisterValidation("realm_tier", validateRealmTier)
	v.RegisterValidation("branch_path", validateBranchPath)
	v.RegisterValidation("room_password", validateRoomPassword)
}

// validateDungeonCode 秘境/怪物类型代码：小写 snake_case，2-32 字符
func validateDungeonCode(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if len(code) < 2 || len(code) > 32 {
		return false
	}
	return dungeonCodePattern.MatchString(code)
}

// validateRealmTier 境界层级 1-9
func validateRealmTier(fl validator.FieldLevel) bool {
	tier := fl.Field().Int()
	return tier >= 1 && tier <= 9
}

// validateBranchPath 分支路线只有冰道/火道两条
func validateBranchPath(fl validator.FieldLevel) bool {
	path := fl.Field().String()
	return path == "ice" || path == "fire"
}

// validateRoomPassword 房间口令：4-16 位字母或数字
func validateRoomPassword(fl validator.FieldLevel) bool {
	return roomPasswordPattern.MatchString(fl.Field().String())
}
