package handler

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"xiuxian-server/internal/modules/game/service"
	"xiuxian-server/internal/pkg/redis"
	"xiuxian-server/internal/pkg/response"
)

// lobbyCacheTTL 大厅房间列表的缓存时长
const lobbyCacheTTL = 3 * time.Second

// DungeonRoomHandler 秘境房间 HTTP Handler
type DungeonRoomHandler struct {
	roomService   *service.DungeonRoomService
	rewardService *service.RewardService
	cache         *redis.Client // 可为 nil，降级为直查数据库
	respWriter    response.Writer
}

// NewDungeonRoomHandler 创建 Handler
func NewDungeonRoomHandler(serviceContainer *service.ServiceContainer, cache *redis.Client, respWriter response.Writer) *DungeonRoomHandler {
	return &DungeonRoomHandler{
		roomService:   serviceContainer.GetDungeonRoomService(),
		rewardService: serviceContainer.GetRewardService(),
		cache:         cache,
		respWriter:    respWriter,
	}
}

// ==================== 请求/响应模型 ====================

type createRoomRequest struct {
	LeaderID    string `json:"leader_id" validate:"required"`
	DungeonType string `json:"dungeon_type" validate:"required,dungeon_code"`
	Password    string `json:"password,omitempty" validate:"omitempty,room_password"`
	MinRealm    int    `json:"min_realm,omitempty" validate:"omitempty,realm_tier"`
}

type joinRoomRequest struct {
	CharacterID string `json:"character_id" validate:"required"`
	Password    string `json:"password,omitempty" validate:"omitempty,room_password"`
}

type memberActionRequest struct {
	CharacterID string `json:"character_id" validate:"required"`
}

type kickMemberRequest struct {
	LeaderID string `json:"leader_id" validate:"required"`
	TargetID string `json:"target_id" validate:"required"`
}

type leaderActionRequest struct {
	LeaderID string `json:"leader_id" validate:"required"`
}

type selectPathRequest struct {
	LeaderID string `json:"leader_id" validate:"required"`
	Choice   string `json:"choice" validate:"required,branch_path"`
}

type challengeStageRequest struct {
	CharacterID string `json:"character_id" validate:"required"`
	Seed        int64  `json:"seed,omitempty"`
}

type roomListResponse struct {
	Rooms interface{} `json:"rooms"`
	Total int64       `json:"total"`
}

// ==================== Handlers ====================

// CreateRoom 创建房间
// @Summary 创建秘境房间
// @Description 创建者即队长，同时成为首位成员
// @Tags 秘境
// @Accept json
// @Produce json
// @Param request body createRoomRequest true "创建房间请求"
// @Success 200 {object} response.Response{data=service.RoomDetail}
// @Router /game/rooms [post]
func (h *DungeonRoomHandler) CreateRoom(c echo.Context) error {
	var req createRoomRequest
	if err := c.Bind(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, "请求格式错误")
	}
	if err := c.Validate(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, err.Error())
	}

	detail, err := h.roomService.CreateRoom(c.Request().Context(), &service.CreateRoomRequest{
		LeaderID:    req.LeaderID,
		DungeonType: req.DungeonType,
		Password:    req.Password,
		MinRealm:    req.MinRealm,
	})
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	h.invalidateLobbyCache(c.Request().Context())
	return response.EchoOK(c, h.respWriter, detail)
}

// JoinRoom 加入房间
// @Summary 加入秘境房间
// @Tags 秘境
// @Accept json
// @Produce json
// @Param room_id path string true "房间ID"
// @Param request body joinRoomRequest true "加入请求"
// @Success 200 {object} response.Response{data=service.RoomDetail}
// @Router /game/rooms/{room_id}/join [post]
func (h *DungeonRoomHandler) JoinRoom(c echo.Context) error {
	roomID := c.Param("room_id")
	var req joinRoomRequest
	if err := c.Bind(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, "请求格式错误")
	}
	if err := c.Validate(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, err.Error())
	}

	detail, err := h.roomService.JoinRoom(c.Request().Context(), &service.JoinRoomRequest{
		RoomID:      roomID,
		CharacterID: req.CharacterID,
		Password:    req.Password,
	})
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, detail)
}

// LeaveRoom 离开房间
// @Summary 离开秘境房间
// @Tags 秘境
// @Accept json
// @Produce json
// @Param room_id path string true "房间ID"
// @Param request body memberActionRequest true "离开请求"
// @Success 200 {object} response.Response
// @Router /game/rooms/{room_id}/leave [post]
func (h *DungeonRoomHandler) LeaveRoom(c echo.Context) error {
	roomID := c.Param("room_id")
	var req memberActionRequest
	if err := c.Bind(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, "请求格式错误")
	}
	if err := c.Validate(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, err.Error())
	}

	if err := h.roomService.LeaveRoom(c.Request().Context(), roomID, req.CharacterID); err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, map[string]string{"room_id": roomID})
}

// KickMember 踢出成员
// @Summary 踢出房间成员
// @Description 仅队长可操作，只能在等待阶段踢人
// @Tags 秘境
// @Accept json
// @Produce json
// @Param room_id path string true "房间ID"
// @Param request body kickMemberRequest true "踢人请求"
// @Success 200 {object} response.Response
// @Router /game/rooms/{room_id}/kick [post]
func (h *DungeonRoomHandler) KickMember(c echo.Context) error {
	roomID := c.Param("room_id")
	var req kickMemberRequest
	if err := c.Bind(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, "请求格式错误")
	}
	if err := c.Validate(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, err.Error())
	}

	if err := h.roomService.KickMember(c.Request().Context(), roomID, req.LeaderID, req.TargetID); err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, map[string]string{"room_id": roomID, "kicked": req.TargetID})
}

// StartDungeon 开启开荒
// @Summary 开启开荒
// @Description 队长操作，房间由等待转为进行中
// @Tags 秘境
// @Accept json
// @Produce json
// @Param room_id path string true "房间ID"
// @Param request body leaderActionRequest true "开启请求"
// @Success 200 {object} response.Response
// @Router /game/rooms/{room_id}/start [post]
func (h *DungeonRoomHandler) StartDungeon(c echo.Context) error {
	roomID := c.Param("room_id")
	var req leaderActionRequest
	if err := c.Bind(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, "请求格式错误")
	}
	if err := c.Validate(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, err.Error())
	}

	room, err := h.roomService.StartDungeon(c.Request().Context(), roomID, req.LeaderID)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	h.invalidateLobbyCache(c.Request().Context())
	return response.EchoOK(c, h.respWriter, room)
}

// SelectPath 选择分支路线
// @Summary 选择分支路线
// @Description 第二关分支：冰道或火道，只能选一次
// @Tags 秘境
// @Accept json
// @Produce json
// @Param room_id path string true "房间ID"
// @Param request body selectPathRequest true "选路请求"
// @Success 200 {object} response.Response
// @Router /game/rooms/{room_id}/path [post]
func (h *DungeonRoomHandler) SelectPath(c echo.Context) error {
	roomID := c.Param("room_id")
	var req selectPathRequest
	if err := c.Bind(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, "请求格式错误")
	}
	if err := c.Validate(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, err.Error())
	}

	room, err := h.roomService.SelectPath(c.Request().Context(), roomID, req.LeaderID, req.Choice)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, room)
}

// ChallengeStage 挑战当前关卡
// @Summary 挑战当前关卡
// @Description 全队属性合成一个挑战属性块与关卡遭遇对战；胜利推进，失败终局并结算
// @Tags 秘境
// @Accept json
// @Produce json
// @Param room_id path string true "房间ID"
// @Param request body challengeStageRequest true "挑战请求"
// @Success 200 {object} response.Response{data=service.ChallengeStageResult}
// @Router /game/rooms/{room_id}/challenge [post]
func (h *DungeonRoomHandler) ChallengeStage(c echo.Context) error {
	roomID := c.Param("room_id")
	var req challengeStageRequest
	if err := c.Bind(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, "请求格式错误")
	}
	if err := c.Validate(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, err.Error())
	}

	result, err := h.roomService.ChallengeStage(c.Request().Context(), &service.ChallengeStageRequest{
		RoomID:      roomID,
		CharacterID: req.CharacterID,
		Seed:        req.Seed,
	})
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, result)
}

// DisbandRoom 解散房间
// @Summary 解散房间
// @Description 队长操作，终态房间不可解散
// @Tags 秘境
// @Accept json
// @Produce json
// @Param room_id path string true "房间ID"
// @Param request body leaderActionRequest true "解散请求"
// @Success 200 {object} response.Response
// @Router /game/rooms/{room_id}/disband [post]
func (h *DungeonRoomHandler) DisbandRoom(c echo.Context) error {
	roomID := c.Param("room_id")
	var req leaderActionRequest
	if err := c.Bind(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, "请求格式错误")
	}
	if err := c.Validate(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, err.Error())
	}

	if err := h.roomService.DisbandRoom(c.Request().Context(), roomID, req.LeaderID); err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	h.invalidateLobbyCache(c.Request().Context())
	return response.EchoOK(c, h.respWriter, map[string]string{"room_id": roomID})
}

// GetRoom 查询房间详情
// @Summary 查询房间详情
// @Tags 秘境
// @Produce json
// @Param room_id path string true "房间ID"
// @Success 200 {object} response.Response{data=service.RoomDetail}
// @Router /game/rooms/{room_id} [get]
func (h *DungeonRoomHandler) GetRoom(c echo.Context) error {
	roomID := c.Param("room_id")

	detail, err := h.roomService.GetRoom(c.Request().Context(), roomID)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, detail)
}

// GetRoomRecord 房间开荒记录
// @Summary 房间开荒记录
// @Description 查询房间结算后生成的开荒记录
// @Tags 秘境
// @Produce json
// @Param room_id path string true "房间ID"
// @Success 200 {object} response.Response{data=game_runtime.DungeonRecord}
// @Router /game/rooms/{room_id}/record [get]
func (h *DungeonRoomHandler) GetRoomRecord(c echo.Context) error {
	roomID := c.Param("room_id")

	record, err := h.rewardService.GetRoomRecord(c.Request().Context(), roomID)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, record)
}

// ListRooms 大厅房间列表
// @Summary 大厅房间列表
// @Description 默认列出等待中的房间；Redis 短缓存，写操作会主动失效
// @Tags 秘境
// @Produce json
// @Param status query string false "房间状态" default(waiting)
// @Param limit query int false "页大小" default(20)
// @Param offset query int false "偏移" default(0)
// @Success 200 {object} response.Response{data=roomListResponse}
// @Router /game/rooms [get]
func (h *DungeonRoomHandler) ListRooms(c echo.Context) error {
	status := c.QueryParam("status")
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	ctx := c.Request().Context()
	cacheKey := h.lobbyCacheKey(status, limit, offset)

	if h.cache != nil {
		if cached, err := h.cache.GetString(ctx, cacheKey); err == nil && cached != "" {
			var resp roomListResponse
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return response.EchoOK(c, h.respWriter, resp)
			}
		}
	}

	rooms, total, err := h.roomService.ListRooms(ctx, status, limit, offset)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	resp := roomListResponse{Rooms: rooms, Total: total}
	if h.cache != nil {
		if payload, err := json.Marshal(resp); err == nil {
			_ = h.cache.SetWithTTL(ctx, cacheKey, string(payload), lobbyCacheTTL)
		}
	}
	return response.EchoOK(c, h.respWriter, resp)
}

// ListSettlements 角色开荒结算历史
// @Summary 角色开荒结算历史
// @Description 按时间倒序列出角色的秘境结算记录
// @Tags 秘境
// @Produce json
// @Param character_id path string true "角色ID"
// @Param limit query int false "页大小" default(20)
// @Param offset query int false "偏移" default(0)
// @Success 200 {object} response.Response{data=[]game_runtime.PlayerDungeonRecord}
// @Router /game/characters/{character_id}/records [get]
func (h *DungeonRoomHandler) ListSettlements(c echo.Context) error {
	characterID := c.Param("character_id")
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	records, err := h.rewardService.ListSettlements(c.Request().Context(), characterID, limit, offset)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, records)
}

func (h *DungeonRoomHandler) lobbyCacheKey(status string, limit, offset int) string {
	if status == "" {
		status = "waiting"
	}
	return "lobby:rooms:" + status + ":" + strconv.Itoa(limit) + ":" + strconv.Itoa(offset)
}

// invalidateLobbyCache 大厅首页缓存失效（只清默认页，其余页靠 TTL 过期）
func (h *DungeonRoomHandler) invalidateLobbyCache(ctx context.Context) {
	if h.cache == nil {
		return
	}
	_ = h.cache.DeleteKey(ctx, h.lobbyCacheKey("waiting", 0, 0), h.lobbyCacheKey("waiting", 20, 0))
}
