package handler

import (
	"github.com/labstack/echo/v4"

	"xiuxian-server/internal/modules/game/service"
	"xiuxian-server/internal/pkg/response"
)

// CombatHandler 战斗 HTTP Handler
type CombatHandler struct {
	combatService *service.CombatService
	respWriter    response.Writer
}

// NewCombatHandler 创建 Handler
func NewCombatHandler(serviceContainer *service.ServiceContainer, respWriter response.Writer) *CombatHandler {
	return &CombatHandler{
		combatService: serviceContainer.GetCombatService(),
		respWriter:    respWriter,
	}
}

// ==================== 请求/响应模型 ====================

type challengeMonsterRequest struct {
	CharacterID string `json:"character_id" validate:"required"`
	MonsterCode string `json:"monster_code" validate:"required,dungeon_code"`
	Seed        int64  `json:"seed,omitempty"`
}

type challengePvPRequest struct {
	AttackerID string `json:"attacker_id" validate:"required"`
	DefenderID string `json:"defender_id" validate:"required"`
	Seed       int64  `json:"seed,omitempty"`
}

// ==================== Handlers ====================

// ChallengeMonster 挑战木人桩/塔层/药园魔物
// @Summary 挑战脚本化对手
// @Description 角色以当前属性快照挑战指定编码的怪物，返回完整战斗推演
// @Tags 战斗
// @Accept json
// @Produce json
// @Param request body challengeMonsterRequest true "挑战请求"
// @Success 200 {object} response.Response{data=service.CombatResult}
// @Router /game/combat/monster [post]
func (h *CombatHandler) ChallengeMonster(c echo.Context) error {
	var req challengeMonsterRequest
	if err := c.Bind(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, "请求格式错误")
	}
	if err := c.Validate(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, err.Error())
	}

	result, err := h.combatService.ChallengeMonster(c.Request().Context(), &service.ChallengeMonsterRequest{
		CharacterID: req.CharacterID,
		MonsterCode: req.MonsterCode,
		Seed:        req.Seed,
	})
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, result)
}

// ChallengePvP 发起切磋
// @Summary 发起切磋
// @Description 双方以当前属性快照对战，只记战报不影响资源
// @Tags 战斗
// @Accept json
// @Produce json
// @Param request body challengePvPRequest true "切磋请求"
// @Success 200 {object} response.Response{data=service.CombatResult}
// @Router /game/combat/pvp [post]
func (h *CombatHandler) ChallengePvP(c echo.Context) error {
	var req challengePvPRequest
	if err := c.Bind(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, "请求格式错误")
	}
	if err := c.Validate(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, err.Error())
	}

	result, err := h.combatService.ChallengePvP(c.Request().Context(), &service.ChallengePvPRequest{
		AttackerID: req.AttackerID,
		DefenderID: req.DefenderID,
		Seed:       req.Seed,
	})
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, result)
}

// GetBattleReport 查询战报
// @Summary 查询战报
// @Tags 战斗
// @Produce json
// @Param battle_id path string true "战斗ID"
// @Success 200 {object} response.Response
// @Router /game/combat/reports/{battle_id} [get]
func (h *CombatHandler) GetBattleReport(c echo.Context) error {
	battleID := c.Param("battle_id")

	report, err := h.combatService.GetBattleReport(c.Request().Context(), battleID)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}
	return response.EchoOK(c, h.respWriter, report)
}
