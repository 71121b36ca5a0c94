// File: internal/pkg/i18n/error_messages.go
package i18n

import (
	"xiuxian-server/internal/pkg/xerrors"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrorMessages 错误消息的多语言映射
var ErrorMessages = map[xerrors.ErrorCode]map[language.Tag]string{
	// 1xxxxx: 通用错误码
	xerrors.CodeSuccess:           {language.Chinese: "操作成功", language.English: "Operation successful"},
	xerrors.CodeInternalError:     {language.Chinese: "内部服务错误", language.English: "Internal server error"},
	xerrors.CodeInvalidParams:     {language.Chinese: "参数错误", language.English: "Invalid parameters"},
	xerrors.CodeInvalidRequest:    {language.Chinese: "请求格式错误", language.English: "Invalid request format"},
	xerrors.CodeResourceNotFound:  {language.Chinese: "资源不存在", language.English: "Resource not found"},
	xerrors.CodeDuplicateResource: {language.Chinese: "资源已存在", language.English: "Resource already exists"},
	xerrors.CodeRateLimitExceeded: {language.Chinese: "请求频率限制", language.English: "Rate limit exceeded"},

	// 3xxxxx: 权限相关错误码
	xerrors.CodePermissionDenied: {language.Chinese: "权限不足", language.English: "Permission denied"},

	// 6xxxxx: 业务逻辑错误码
	xerrors.CodeBusinessLogicError:  {language.Chinese: "业务逻辑错误", language.English: "Business logic error"},
	xerrors.CodeOperationNotAllowed: {language.Chinese: "操作不被允许", language.English: "Operation not allowed"},
	xerrors.CodeResourceLocked:      {language.Chinese: "资源被锁定", language.English: "Resource locked"},
	xerrors.CodeQuotaExceeded:       {language.Chinese: "配额超限", language.English: "Quota exceeded"},

	// 7xxxxx: 外部服务错误码
	xerrors.CodeExternalServiceError: {language.Chinese: "外部服务错误", language.English: "External service error"},
	xerrors.CodeDatabaseError:        {language.Chinese: "数据库错误", language.English: "Database error"},
	xerrors.CodeCacheError:           {language.Chinese: "缓存服务错误", language.English: "Cache service error"},
	xerrors.CodeMessageQueueError:    {language.Chinese: "消息队列错误", language.English: "Message queue error"},

	// 8xxxxx: 角色相关错误码
	xerrors.CodeCharacterNotFound:    {language.Chinese: "角色不存在", language.English: "Character not found"},
	xerrors.CodeRealmTooLow:          {language.Chinese: "境界不足", language.English: "Realm too low"},
	xerrors.CodeInsufficientResource: {language.Chinese: "灵石不足", language.English: "Insufficient spirit stones"},
	xerrors.CodeCooldownNotElapsed:   {language.Chinese: "冷却未结束", language.English: "Cooldown not elapsed"},
	xerrors.CodeCharacterStatInvalid: {language.Chinese: "角色属性无效", language.English: "Invalid character stat"},

	// 9xxxxx: 秘境/战斗错误码
	xerrors.CodeRoomNotFound:         {language.Chinese: "房间不存在", language.English: "Room not found"},
	xerrors.CodeRoomFull:             {language.Chinese: "房间已满员", language.English: "Room is full"},
	xerrors.CodeAlreadyInRoom:        {language.Chinese: "已在其他房间中", language.English: "Already in another room"},
	xerrors.CodeNotInRoom:            {language.Chinese: "您不是该房间成员", language.English: "Not a member of this room"},
	xerrors.CodeRoomWrongStatus:      {language.Chinese: "房间状态不允许该操作", language.English: "Room status does not allow this operation"},
	xerrors.CodeNotRoomLeader:        {language.Chinese: "只有队长可以执行该操作", language.English: "Only the leader may do this"},
	xerrors.CodePathAlreadySelected:  {language.Chinese: "分支路线已选择", language.English: "Branch path already selected"},
	xerrors.CodePathNotSelectable:    {language.Chinese: "当前关卡不可选择分支", language.English: "Branch not selectable at current stage"},
	xerrors.CodeRoomAlreadySettled:   {language.Chinese: "房间奖励已结算", language.English: "Room rewards already settled"},
	xerrors.CodeRoomPasswordMismatch: {language.Chinese: "房间口令错误", language.English: "Wrong room password"},
	xerrors.CodeDungeonNotOpen:       {language.Chinese: "秘境未开放", language.English: "Dungeon not open"},

	xerrors.CodeCombatInvalidStats: {language.Chinese: "战斗属性无效", language.English: "Invalid combat stats"},
	xerrors.CodeEncounterNotFound:  {language.Chinese: "遭遇配置不存在", language.English: "Encounter config not found"},
}

// GetErrorMessage 获取错误码对应语言的消息
func GetErrorMessage(code xerrors.ErrorCode, lang language.Tag) string {
	if messages, ok := ErrorMessages[code]; ok {
		if msg, ok := messages[lang]; ok {
			return msg
		}
		// 如果指定语言没有翻译，返回中文（默认）
		if msg, ok := messages[language.Chinese]; ok {
			return msg
		}
	}
	// 如果完全没有定义，返回通用错误消息
	if lang == language.English {
		return "Unknown error"
	}
	return "未知错误"
}

// init 初始化消息目录
func init() {
	// 为每个错误码注册翻译
	for code, messages := range ErrorMessages {
		codeInt := code.ToInt()
		for lang, msg := range messages {
			message.SetString(lang, string(rune(codeInt)), msg)
		}
	}
}
