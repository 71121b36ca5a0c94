package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError 验证错误详情
type ValidationError struct {
	Field   string `json:"field"`   // 字段名
	Message string `json:"message"` // 错误消息
	Tag     string `json:"tag"`     // 验证标签（如：required, dungeon_code）
	Value   string `json:"value"`   // 实际值（截断后）
}

// TranslateValidationErrors 翻译所有验证错误（返回详细列表）
func TranslateValidationErrors(err error) []ValidationError {
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// 非 validator 错误，返回通用错误
		return []ValidationError{
			{
				Field:   "request",
				Message: err.Error(),
				Tag:     "unknown",
			},
		}
	}

	result := make([]ValidationError, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		result = append(result, ValidationError{
			Field:   fieldErr.Field(),
			Message: translateFieldError(fieldErr),
			Tag:     fieldErr.Tag(),
			Value:   sanitizeValue(fieldErr.Value()),
		})
	}

	return result
}

// TranslateValidationError 将 validator 验证错误转换为用户友好的中文消息（返回第一个错误）
func TranslateValidationError(err error) string {
	if err == nil {
		return ""
	}

	errors := TranslateValidationErrors(err)
	if len(errors) > 0 {
		return errors[0].Message
	}

	return err.Error()
}

// sanitizeValue 截断过长的值（避免在错误消息中回显大段请求体）
func sanitizeValue(value interface{}) string {
	if value == nil {
		return ""
	}

	strValue := fmt.Sprintf("%v", value)

	if len(strValue) > 50 {
		return strValue[:50] + "..."
	}

	return strValue
}

// translateFieldError 翻译单个字段验证错误
func translateFieldError(fe validator.FieldError) string {
	field := getFieldName(fe.Field())
	tag := fe.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s不能为空", field)
	case "min":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s长度不能少于%s个字符", field, fe.Param())
		}
		return fmt.Sprintf("%s不能小于%s", field, fe.Param())
	case "max":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s长度不能超过%s个字符", field, fe.Param())
		}
		return fmt.Sprintf("%s不能大于%s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s必须大于或等于%s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s必须小于或等于%s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s必须大于%s", field, fe.Param())
	case "lt":
		return fmt.Sprintf("%s必须小于%s", field, fe.Param())
	case "uuid":
		return fmt.Sprintf("%s格式不正确,请输入有效的UUID", field)
	case "oneof":
		return fmt.Sprintf("%s的值必须是以下之一: %s", field, fe.Param())
	case "dungeon_code":
		return fmt.Sprintf("%s格式不正确:2-32位小写字母、数字或下划线,以字母开头", field)
	case "realm_tier":
		return fmt.Sprintf("%s必须在1-9之间", field)
	case "branch_path":
		return fmt.Sprintf("%s只能是 ice 或 fire", field)
	case "room_password":
		return fmt.Sprintf("%s必须是4-16位字母或数字", field)
	default:
		// 未知的验证规则,返回通用错误
		return fmt.Sprintf("%s验证失败: %s", field, tag)
	}
}

// getFieldName 将字段名转换为中文友好名称
func getFieldName(field string) string {
	fieldNames := map[string]string{
		"RoomID":      "房间ID",
		"CharacterID": "角色ID",
		"LeaderID":    "队长ID",
		"TargetID":    "目标角色ID",
		"AttackerID":  "攻击方ID",
		"DefenderID":  "防守方ID",
		"BattleID":    "战报ID",
		"MonsterCode": "怪物代码",
		"DungeonType": "秘境类型",
		"Choice":      "分支路线",
		"Password":    "房间口令",
		"MinRealm":    "最低境界",
		"Seed":        "随机种子",

		"ID":     "ID",
		"Name":   "名称",
		"Status": "状态",
		"Limit":  "页大小",
		"Offset": "偏移",
	}

	if name, ok := fieldNames[field]; ok {
		return name
	}

	return smartConvertFieldName(field)
}

// smartConvertFieldName 没有映射的字段按驼峰拆词返回
func smartConvertFieldName(field string) string {
	var result strings.Builder
	for i, r := range field {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune(' ')
		}
		result.WriteRune(r)
	}
	return result.String()
}
