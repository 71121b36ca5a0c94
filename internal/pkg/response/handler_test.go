package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xiuxian-server/internal/pkg/xerrors"
)

func TestWriteSuccess(t *testing.T) {
	h := NewResponseHandler(nil, "development")
	rec := httptest.NewRecorder()

	require.NoError(t, h.WriteSuccess(context.Background(), rec, map[string]int{"hp": 200}))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body ResponseResult[map[string]int]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, xerrors.CodeSuccess.ToInt(), body.Code)
	require.NotNil(t, body.Data)
	assert.Equal(t, 200, (*body.Data)["hp"])
}

func TestWriteError_AppErrorStatusMapping(t *testing.T) {
	h := NewResponseHandler(nil, "development")

	cases := []struct {
		code       xerrors.ErrorCode
		wantStatus int
	}{
		{xerrors.CodeResourceNotFound, http.StatusNotFound},
		{xerrors.CodeInvalidParams, http.StatusBadRequest},
		{xerrors.CodePermissionDenied, http.StatusForbidden},
		{xerrors.CodeRateLimitExceeded, http.StatusTooManyRequests},
		{xerrors.CodeInternalError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		require.NoError(t, h.WriteError(context.Background(), rec, xerrors.FromCode(tc.code)))

		assert.Equal(t, tc.wantStatus, rec.Code, "code=%d", tc.code)
		var body ResponseResult[EmptyData]
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.code.ToInt(), body.Code)
		assert.NotEmpty(t, body.Message)
	}
}

func TestWriteError_PlainErrorDetailHiddenInProduction(t *testing.T) {
	raw := errors.New("pq: connection refused")

	devRec := httptest.NewRecorder()
	require.NoError(t, NewResponseHandler(nil, "development").WriteError(context.Background(), devRec, raw))
	assert.Equal(t, http.StatusInternalServerError, devRec.Code)
	assert.Contains(t, devRec.Body.String(), "connection refused")

	prodRec := httptest.NewRecorder()
	require.NoError(t, NewResponseHandler(nil, "production").WriteError(context.Background(), prodRec, raw))
	assert.Equal(t, http.StatusInternalServerError, prodRec.Code)
	assert.NotContains(t, prodRec.Body.String(), "connection refused")

	var body ResponseResult[EmptyData]
	require.NoError(t, json.Unmarshal(prodRec.Body.Bytes(), &body))
	assert.Equal(t, xerrors.CodeInternalError.ToInt(), body.Code)
}

func TestWriteJSON_RawPayload(t *testing.T) {
	h := NewResponseHandler(nil, "development")
	rec := httptest.NewRecorder()

	require.NoError(t, h.WriteJSON(context.Background(), rec, map[string]string{"status": "ok"}, http.StatusAccepted))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
