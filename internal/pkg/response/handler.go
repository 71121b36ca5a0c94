package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/text/language"

	"xiuxian-server/internal/pkg/i18n"
	"xiuxian-server/internal/pkg/log"
	"xiuxian-server/internal/pkg/trace"
	"xiuxian-server/internal/pkg/xerrors"
)

// Writer 统一响应写入接口。Handler 与中间件只依赖这个抽象，
// 便于单测替换和响应格式的集中演进。
type Writer interface {
	WriteSuccess(ctx context.Context, w http.ResponseWriter, data any) error
	WriteError(ctx context.Context, w http.ResponseWriter, err error) error
	WriteJSON(ctx context.Context, w http.ResponseWriter, data any, statusCode int) error
}

// responseHandler Writer 默认实现。
// environment 为 production 时不向客户端回传底层错误详情。
type responseHandler struct {
	logger      log.Logger
	environment string
}

// NewResponseHandler 创建响应处理器
func NewResponseHandler(logger log.Logger, environment string) Writer {
	if logger == nil {
		logger = log.GetLogger()
	}
	return &responseHandler{
		logger:      logger,
		environment: environment,
	}
}

// WriteSuccess 写入标准成功响应（HTTP 200 + 业务成功码）
func (h *responseHandler) WriteSuccess(ctx context.Context, w http.ResponseWriter, data any) error {
	resp := Success(&data)
	resp.TraceId = trace.GetTraceID(ctx)
	JSON(w, http.StatusOK, resp)
	return nil
}

// WriteError 写入标准错误响应。
// 非 AppError 一律视为内部错误；HTTP 状态码由业务错误码推导。
func (h *responseHandler) WriteError(ctx context.Context, w http.ResponseWriter, err error) error {
	var appErr *xerrors.AppError
	if !errors.As(err, &appErr) {
		appErr = xerrors.NewWithError(xerrors.CodeInternalError, "内部服务错误", err)
	}

	status := xerrors.GetHTTPStatus(appErr.Code)

	message := appErr.Message
	if message == "" {
		message = appErr.Code.Message()
	}
	// 非中文请求走 i18n 消息目录，目录没有的保留服务端原始消息
	if lang := i18n.GetLanguage(ctx); lang != language.Chinese {
		if _, ok := i18n.ErrorMessages[appErr.Code]; ok {
			message = i18n.GetErrorMessage(appErr.Code, lang)
		}
	}

	detail := ""
	if h.environment != "production" && appErr.Err != nil {
		detail = appErr.Err.Error()
	}

	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "请求处理失败", "error", appErr, "status", status)
	}

	resp := Error[EmptyData](appErr.Code.ToInt(), message, detail)
	resp.TraceId = trace.GetTraceID(ctx)
	JSON(w, status, resp)
	return nil
}

// WriteJSON 直接写入 JSON 响应，跳过统一包装
func (h *responseHandler) WriteJSON(_ context.Context, w http.ResponseWriter, data any, statusCode int) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}
