package game_runtime

import (
	"encoding/json"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/aarondl/sqlboiler/v4/types"
)

// 房间状态
const (
	RoomStatusWaiting    = "waiting"
	RoomStatusInProgress = "in_progress"
	RoomStatusCompleted  = "completed"
	RoomStatusFailed     = "failed"
	RoomStatusDisbanded  = "disbanded"
)

// 分支路线
const (
	BranchPathIce  = "ice"
	BranchPathFire = "fire"
)

// RoomMaxMembers 房间成员上限
const RoomMaxMembers = 5

// DungeonRoom 协作秘境房间
type DungeonRoom struct {
	ID          string `boil:"id" json:"id"`
	LeaderID    string `boil:"leader_id" json:"leader_id"`
	DungeonType string `boil:"dungeon_type" json:"dungeon_type"`
	Status      string `boil:"status" json:"status"`

	CurrentStage int         `boil:"current_stage" json:"current_stage"` // 0=未开始, 1-3=进行中
	BranchPath   null.String `boil:"branch_path" json:"branch_path,omitempty"`
	MinRealm     int         `boil:"min_realm" json:"min_realm"`
	Password     null.String `boil:"password" json:"-"`

	// 每关最近一次挑战结果，进度推进只看最新一条
	StageResults types.JSON `boil:"stage_results" json:"stage_results"`

	RewardsSettled bool     `boil:"rewards_settled" json:"rewards_settled"`
	FailedAtStage  null.Int `boil:"failed_at_stage" json:"failed_at_stage,omitempty"`

	StartedAt  null.Time `boil:"started_at" json:"started_at,omitempty"`
	FinishedAt null.Time `boil:"finished_at" json:"finished_at,omitempty"`
	CreatedAt  time.Time `boil:"created_at" json:"created_at"`
	UpdatedAt  time.Time `boil:"updated_at" json:"updated_at"`
}

// Terminal 房间是否已到终态。
func (r *DungeonRoom) Terminal() bool {
	switch r.Status {
	case RoomStatusCompleted, RoomStatusFailed, RoomStatusDisbanded:
		return true
	}
	return false
}

// StageResult 单关挑战结果
type StageResult struct {
	StageIndex int       `json:"stage_index"`
	Name       string    `json:"name"`
	Success    bool      `json:"success"`
	Events     []string  `json:"events,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// DecodeStageResults 解析关卡结果列表。
func (r *DungeonRoom) DecodeStageResults() ([]StageResult, error) {
	if len(r.StageResults) == 0 {
		return nil, nil
	}
	var results []StageResult
	if err := json.Unmarshal(r.StageResults, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// AppendStageResult 写入某关结果；同一关重复挑战只保留最新一条。
func (r *DungeonRoom) AppendStageResult(result StageResult) error {
	results, err := r.DecodeStageResults()
	if err != nil {
		return err
	}
	replaced := false
	for i := range results {
		if results[i].StageIndex == result.StageIndex {
			results[i] = result
			replaced = true
			break
		}
	}
	if !replaced {
		results = append(results, result)
	}
	raw, err := json.Marshal(results)
	if err != nil {
		return err
	}
	r.StageResults = types.JSON(raw)
	return nil
}

// RoomMember 房间成员。入队时快照战力与境界，开荒途中不再重算。
type RoomMember struct {
	ID          string `boil:"id" json:"id"`
	RoomID      string `boil:"room_id" json:"room_id"`
	CharacterID string `boil:"character_id" json:"character_id"`
	Name        string `boil:"name" json:"name"`

	Role      string `boil:"role" json:"role"` // 元素定位（metal/wood/earth/water/fire）
	Power     int64  `boil:"power" json:"power"`
	Element   string `boil:"element" json:"element"` // 主元素
	RealmTier int    `boil:"realm_tier" json:"realm_tier"`

	JoinedAt time.Time `boil:"joined_at" json:"joined_at"`
}
