package handler

import (
	"context"
	"database/sql"
	"encoding/json"

	"xiuxian-server/internal/modules/game/service"
	"xiuxian-server/internal/pkg/xerrors"
)

// RoomRPCHandler 秘境房间 RPC 处理器
// 提供给运营后台调用的房间管理接口，载荷为 JSON。
type RoomRPCHandler struct {
	db          *sql.DB
	roomService *service.DungeonRoomService
}

// NewRoomRPCHandler 创建房间 RPC Handler
func NewRoomRPCHandler(serviceContainer *service.ServiceContainer, db *sql.DB) *RoomRPCHandler {
	return &RoomRPCHandler{
		db:          db,
		roomService: serviceContainer.GetDungeonRoomService(),
	}
}

// ==================== RPC Methods ====================

type roomListRPCRequest struct {
	Status string `json:"status"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

type roomListRPCResponse struct {
	Rooms interface{} `json:"rooms"`
	Total int64       `json:"total"`
}

// GetRoomList 获取房间列表（分页）
func (h *RoomRPCHandler) GetRoomList(data []byte) ([]byte, error) {
	var req roomListRPCRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, xerrors.New(xerrors.CodeInvalidRequest, "请求载荷不是合法 JSON")
		}
	}

	rooms, total, err := h.roomService.ListRooms(context.Background(), req.Status, req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}

	return json.Marshal(roomListRPCResponse{Rooms: rooms, Total: total})
}

type roomDetailRPCRequest struct {
	RoomID string `json:"room_id"`
}

// GetRoomDetail 获取房间详情（含成员）
func (h *RoomRPCHandler) GetRoomDetail(data []byte) ([]byte, error) {
	var req roomDetailRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, xerrors.New(xerrors.CodeInvalidRequest, "请求载荷不是合法 JSON")
	}

	detail, err := h.roomService.GetRoom(context.Background(), req.RoomID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(detail)
}

type forceDisbandRPCRequest struct {
	RoomID string `json:"room_id"`
	Reason string `json:"reason"`
}

// ForceDisbandRoom 强制解散房间（运营操作，绕过队长校验）
func (h *RoomRPCHandler) ForceDisbandRoom(data []byte) ([]byte, error) {
	var req forceDisbandRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, xerrors.New(xerrors.CodeInvalidRequest, "请求载荷不是合法 JSON")
	}

	if err := h.roomService.ForceDisband(context.Background(), req.RoomID, req.Reason); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"room_id": req.RoomID, "status": "disbanded"})
}
