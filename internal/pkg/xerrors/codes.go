// File: internal/pkg/xerrors/codes.go
package xerrors

import "fmt"

// ErrorCode 错误码类型（类型安全）
type ErrorCode int

// IsValid 检查错误码是否在预定义列表中
func (c ErrorCode) IsValid() bool {
	_, exists := codeMessages[c]
	return exists
}

// String 返回错误码的字符串表示
func (c ErrorCode) String() string {
	if msg, ok := codeMessages[c]; ok {
		return fmt.Sprintf("%d (%s)", c, msg)
	}
	return fmt.Sprintf("%d (未定义的错误码)", c)
}

// Message 返回错误码对应的消息
func (c ErrorCode) Message() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return "未知错误"
}

// ToInt 转换为 int（用于 JSON 序列化等场景）
func (c ErrorCode) ToInt() int {
	return int(c)
}

// -----------------------------------------------------------------------------
// 业务错误码统一定义
// 按模块或领域对错误码进行分段，便于管理。
// -----------------------------------------------------------------------------
const (
	// 1xxxxx: 通用错误码
	CodeSuccess           ErrorCode = 100000 // 操作成功
	CodeInternalError     ErrorCode = 100001 // 内部服务错误
	CodeInvalidParams     ErrorCode = 100002 // 参数错误
	CodeInvalidRequest    ErrorCode = 100003 // 请求格式错误
	CodeResourceNotFound  ErrorCode = 100404 // 资源不存在
	CodeDuplicateResource ErrorCode = 100409 // 资源已存在
	CodeRateLimitExceeded ErrorCode = 100429 // 请求频率限制

	// 3xxxxx: 权限相关错误码
	CodePermissionDenied ErrorCode = 300001 // 权限不足

	// 6xxxxx: 业务逻辑错误码
	CodeBusinessLogicError  ErrorCode = 600001 // 业务逻辑错误
	CodeOperationNotAllowed ErrorCode = 600003 // 操作不被允许
	CodeResourceLocked      ErrorCode = 600004 // 资源被锁定（并发冲突，调用方应整体重试）
	CodeQuotaExceeded       ErrorCode = 600005 // 配额超限

	// 7xxxxx: 外部服务错误码
	CodeExternalServiceError ErrorCode = 700001 // 外部服务错误
	CodeDatabaseError        ErrorCode = 700003 // 数据库错误
	CodeCacheError           ErrorCode = 700004 // 缓存服务错误
	CodeMessageQueueError    ErrorCode = 700005 // 消息队列错误

	// 8xxxxx: 角色相关错误码
	CodeCharacterNotFound    ErrorCode = 800001 // 角色不存在
	CodeRealmTooLow          ErrorCode = 800002 // 境界不足
	CodeInsufficientResource ErrorCode = 800006 // 灵石不足
	CodeCooldownNotElapsed   ErrorCode = 800007 // 冷却未结束
	CodeCharacterStatInvalid ErrorCode = 800008 // 角色属性无效

	// 9xxxxx: 秘境/战斗错误码
	// 房间相关 (90xxxx)
	CodeRoomNotFound         ErrorCode = 900001 // 房间不存在
	CodeRoomFull             ErrorCode = 900002 // 房间已满员
	CodeAlreadyInRoom        ErrorCode = 900003 // 已在其他房间中
	CodeNotInRoom            ErrorCode = 900004 // 不是房间成员
	CodeRoomWrongStatus      ErrorCode = 900005 // 房间状态不允许该操作
	CodeNotRoomLeader        ErrorCode = 900006 // 只有队长可以执行该操作
	CodePathAlreadySelected  ErrorCode = 900007 // 分支路线已选择
	CodePathNotSelectable    ErrorCode = 900008 // 当前关卡不可选择分支
	CodeRoomAlreadySettled   ErrorCode = 900009 // 房间奖励已结算
	CodeRoomPasswordMismatch ErrorCode = 900010 // 房间口令错误
	CodeDungeonNotOpen       ErrorCode = 900011 // 秘境未开放

	// 战斗相关 (91xxxx)
	CodeCombatInvalidStats ErrorCode = 910001 // 战斗属性无效
	CodeEncounterNotFound  ErrorCode = 910002 // 遭遇配置不存在
)

// -----------------------------------------------------------------------------
// HTTP 状态码常量定义
// -----------------------------------------------------------------------------
const (
	HTTPStatusOK = 200 // 请求成功

	HTTPStatusBadRequest      = 400 // 错误请求
	HTTPStatusUnauthorized    = 401 // 未经授权
	HTTPStatusForbidden       = 403 // 禁止访问
	HTTPStatusNotFound        = 404 // 资源未找到
	HTTPStatusConflict        = 409 // 资源冲突
	HTTPStatusTooManyRequests = 429 // 请求过多

	HTTPStatusInternalServerError = 500 // 内部服务器错误
	HTTPStatusServiceUnavailable  = 503 // 服务不可用
)

// -----------------------------------------------------------------------------
// 错误消息映射
// -----------------------------------------------------------------------------
var codeMessages = map[ErrorCode]string{
	CodeSuccess:           "操作成功",
	CodeInternalError:     "内部服务错误",
	CodeInvalidParams:     "参数错误",
	CodeInvalidRequest:    "请求格式错误",
	CodeResourceNotFound:  "资源不存在",
	CodeDuplicateResource: "资源已存在",
	CodeRateLimitExceeded: "请求频率限制",

	CodePermissionDenied: "权限不足",

	CodeBusinessLogicError:  "业务逻辑错误",
	CodeOperationNotAllowed: "操作不被允许",
	CodeResourceLocked:      "资源被锁定",
	CodeQuotaExceeded:       "配额超限",

	CodeExternalServiceError: "外部服务错误",
	CodeDatabaseError:        "数据库错误",
	CodeCacheError:           "缓存服务错误",
	CodeMessageQueueError:    "消息队列错误",

	CodeCharacterNotFound:    "角色不存在",
	CodeRealmTooLow:          "境界不足",
	CodeInsufficientResource: "灵石不足",
	CodeCooldownNotElapsed:   "冷却未结束",
	CodeCharacterStatInvalid: "角色属性无效",

	CodeRoomNotFound:         "房间不存在",
	CodeRoomFull:             "房间已满员",
	CodeAlreadyInRoom:        "已在其他房间中",
	CodeNotInRoom:            "您不是该房间成员",
	CodeRoomWrongStatus:      "房间状态不允许该操作",
	CodeNotRoomLeader:        "只有队长可以执行该操作",
	CodePathAlreadySelected:  "分支路线已选择",
	CodePathNotSelectable:    "当前关卡不可选择分支",
	CodeRoomAlreadySettled:   "房间奖励已结算",
	CodeRoomPasswordMismatch: "房间口令错误",
	CodeDungeonNotOpen:       "秘境未开放",

	CodeCombatInvalidStats: "战斗属性无效",
	CodeEncounterNotFound:  "遭遇配置不存在",
}

// GetHTTPStatus 根据业务错误码获取HTTP状态码
func GetHTTPStatus(code ErrorCode) int {
	switch {
	case code == CodeSuccess:
		return HTTPStatusOK
	case code >= 300000 && code < 400000:
		return HTTPStatusForbidden
	case code == CodeResourceNotFound || code == CodeCharacterNotFound ||
		code == CodeRoomNotFound || code == CodeEncounterNotFound:
		return HTTPStatusNotFound
	case code == CodeDuplicateResource || code == CodeResourceLocked:
		return HTTPStatusConflict
	case code == CodeInvalidParams || code == CodeInvalidRequest:
		return HTTPStatusBadRequest
	case code == CodeRateLimitExceeded:
		return HTTPStatusTooManyRequests
	case code == CodeNotRoomLeader:
		return HTTPStatusForbidden
	case code >= 600000 && code < 700000:
		return HTTPStatusBadRequest
	case code >= 800000:
		return HTTPStatusBadRequest
	case code >= 700000 && code < 800000:
		return HTTPStatusServiceUnavailable
	default:
		return HTTPStatusInternalServerError
	}
}

// 辅助函数
// getCategoryByCode 根据错误码获取分类
func getCategoryByCode(code ErrorCode) string {
	switch {
	case code >= 100000 && code < 200000:
		return "system"
	case code >= 300000 && code < 400000:
		return "authorization"
	case code >= 600000 && code < 700000:
		return "business"
	case code >= 700000 && code < 800000:
		return "external"
	case code >= 800000 && code < 900000:
		return "character"
	case code >= 900000 && code < 910000:
		return "dungeon"
	case code >= 910000 && code < 920000:
		return "combat"
	default:
		return "unknown"
	}
}

// getLevelByCode 根据错误码获取级别
func getLevelByCode(code ErrorCode) ErrorLevel {
	switch {
	case code == CodeSuccess:
		return LevelInfo
	case code >= 100001 && code <= 100003: // 参数错误等
		return LevelWarn
	case code >= 700001 && code < 800000: // 外部服务错误
		return LevelCritical
	default:
		return LevelError
	}
}

// isRetryableByCode 根据错误码判断是否可重试
func isRetryableByCode(code ErrorCode) bool {
	retryableCodes := map[ErrorCode]bool{
		CodeInternalError:        true,
		CodeExternalServiceError: true,
		CodeDatabaseError:        true,
		CodeCacheError:           true,
		CodeMessageQueueError:    true,
		CodeRateLimitExceeded:    true,
		CodeResourceLocked:       true,
	}
	return retryableCodes[code]
}
