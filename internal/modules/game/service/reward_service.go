package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/aarondl/sqlboiler/v4/types"

	"xiuxian-server/internal/entity/game_config"
	"xiuxian-server/internal/entity/game_runtime"
	"xiuxian-server/internal/pkg/metrics"
	"xiuxian-server/internal/pkg/notify"
	"xiuxian-server/internal/pkg/xerrors"
	"xiuxian-server/internal/repository/impl"
	"xiuxian-server/internal/repository/interfaces"
)

// FirstClearMultiplier 周首通奖励倍率
const FirstClearMultiplier = 2

// RewardDependencies 注入 RewardService 所需依赖
type RewardDependencies struct {
	RoomRepo         interfaces.DungeonRoomRepository
	MemberRepo       interfaces.RoomMemberRepository
	CharacterRepo    interfaces.CharacterRepository
	TemplateRepo     interfaces.DungeonTemplateRepository
	FragmentDropRepo interfaces.FragmentDropRepository
	RecordRepo       interfaces.DungeonRecordRepository
	PlayerRecordRepo interfaces.PlayerDungeonRecordRepository
}

// RewardService 奖励结算服务。
// 房间进入终态（completed/failed）时结算一次；以房间级 rewards_settled
// 标记保证幂等，重复调用不会二次发奖。
type RewardService struct {
	db               *sql.DB
	roomRepo         interfaces.DungeonRoomRepository
	memberRepo       interfaces.RoomMemberRepository
	characterRepo    interfaces.CharacterRepository
	templateRepo     interfaces.DungeonTemplateRepository
	fragmentDropRepo interfaces.FragmentDropRepository
	recordRepo       interfaces.DungeonRecordRepository
	playerRecordRepo interfaces.PlayerDungeonRecordRepository

	now  func() time.Time
	roll func() float64 // uniform [0,1)，残片掉落判定用
}

// NewRewardService 创建奖励结算服务
func NewRewardService(db *sql.DB, deps *RewardDependencies) *RewardService {
	if deps == nil {
		deps = &RewardDependencies{}
	}
	if deps.RoomRepo == nil {
		deps.RoomRepo = impl.NewDungeonRoomRepository(db)
	}
	if deps.MemberRepo == nil {
		deps.MemberRepo = impl.NewRoomMemberRepository(db)
	}
	if deps.CharacterRepo == nil {
		deps.CharacterRepo = impl.NewCharacterRepository(db)
	}
	if deps.TemplateRepo == nil {
		deps.TemplateRepo = impl.NewDungeonTemplateRepository(db)
	}
	if deps.FragmentDropRepo == nil {
		deps.FragmentDropRepo = impl.NewFragmentDropRepository(db)
	}
	if deps.RecordRepo == nil {
		deps.RecordRepo = impl.NewDungeonRecordRepository(db)
	}
	if deps.PlayerRecordRepo == nil {
		deps.PlayerRecordRepo = impl.NewPlayerDungeonRecordRepository(db)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &RewardService{
		db:               db,
		roomRepo:         deps.RoomRepo,
		memberRepo:       deps.MemberRepo,
		characterRepo:    deps.CharacterRepo,
		templateRepo:     deps.TemplateRepo,
		fragmentDropRepo: deps.FragmentDropRepo,
		recordRepo:       deps.RecordRepo,
		playerRecordRepo: deps.PlayerRecordRepo,
		now:              time.Now,
		roll:             rng.Float64,
	}
}

// MemberReward 单个成员的结算明细
type MemberReward struct {
	CharacterID       string   `json:"character_id"`
	SpiritStones      int64    `json:"spirit_stones"`
	CultivationPoints int64    `json:"cultivation_points"`
	Contribution      int64    `json:"contribution"`
	Fragments         []string `json:"fragments,omitempty"`
	IsFirstClear      bool     `json:"is_first_clear"`
}

// RewardSet 整个房间的结算结果
type RewardSet struct {
	RoomID        string          `json:"room_id"`
	DungeonType   string          `json:"dungeon_type"`
	Result        string          `json:"result"`
	ClearedStages int             `json:"cleared_stages"`
	Members       []*MemberReward `json:"members"`
}

// SettleRoom 对终态房间做一次结算（独立事务入口）。
// 已结算过的房间返回 CodeRoomAlreadySettled。
func (s *RewardService) SettleRoom(ctx context.Context, roomID string) (*RewardSet, error) {
	if roomID == "" {
		return nil, xerrors.New(xerrors.CodeInvalidParams, "房间ID不能为空")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeInternalError, "开启事务失败")
	}
	defer tx.Rollback()

	room, err := s.roomRepo.GetByIDForUpdate(ctx, tx, roomID)
	if err != nil {
		if errors.Is(err, interfaces.ErrRoomNotFound) {
			return nil, xerrors.NewRoomNotFoundError(roomID)
		}
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询房间失败")
	}

	rewardSet, err := s.SettleInTx(ctx, tx, room)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeInternalError, "提交事务失败")
	}

	s.publishSettled(ctx, room, rewardSet)
	return rewardSet, nil
}

// SettleInTx 在调用方事务内完成结算。调用方必须已对房间行加锁。
// 事件发布与打点由调用方在提交后触发（或调用 PublishSettled）。
func (s *RewardService) SettleInTx(ctx context.Context, tx *sql.Tx, room *game_runtime.DungeonRoom) (*RewardSet, error) {
	if room.Status != game_runtime.RoomStatusCompleted && room.Status != game_runtime.RoomStatusFailed {
		return nil, xerrors.New(xerrors.CodeRoomWrongStatus, "只有通关或失败的房间才能结算")
	}
	if room.RewardsSettled {
		return nil, xerrors.FromCode(xerrors.CodeRoomAlreadySettled).WithMetadata("room_id", room.ID)
	}

	template, err := s.templateRepo.GetByType(ctx, room.DungeonType)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询秘境模板失败")
	}

	members, err := s.memberRepo.ListByRoom(ctx, tx, room.ID)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询房间成员失败")
	}

	drops, err := s.fragmentDropRepo.ListByDungeonType(ctx, room.DungeonType)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询残片掉落配置失败")
	}

	cleared := clearedStages(room, template)
	completed := room.Status == game_runtime.RoomStatusCompleted
	weekBucket := weekBucketOf(s.now())

	// 1. 房间级记录
	memberSnapshot, err := json.Marshal(members)
	if err != nil {
		return nil, xerrors.NewWithError(xerrors.CodeInternalError, "序列化成员快照失败", err)
	}
	record := &game_runtime.DungeonRecord{
		RoomID:        room.ID,
		DungeonType:   room.DungeonType,
		Result:        room.Status,
		ClearedStages: cleared,
		Members:       types.JSON(memberSnapshot),
	}
	if err := s.recordRepo.Create(ctx, tx, record); err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "创建开荒记录失败")
	}

	rewardSet := &RewardSet{
		RoomID:        room.ID,
		DungeonType:   room.DungeonType,
		Result:        room.Status,
		ClearedStages: cleared,
	}

	// 2. 逐成员结算
	for _, member := range members {
		reward, err := s.settleMember(ctx, tx, room, template, member, record.ID, cleared, completed, weekBucket, drops)
		if err != nil {
			return nil, err
		}
		rewardSet.Members = append(rewardSet.Members, reward)
	}

	// 3. 置幂等标记
	room.RewardsSettled = true
	if err := s.roomRepo.Update(ctx, tx, room); err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "更新房间结算标记失败")
	}

	return rewardSet, nil
}

// settleMember 结算单个成员：发资源、掷残片、落玩家记录。
func (s *RewardService) settleMember(
	ctx context.Context,
	tx *sql.Tx,
	room *game_runtime.DungeonRoom,
	template *game_config.DungeonTemplate,
	member *game_runtime.RoomMember,
	recordID string,
	cleared int,
	completed bool,
	weekBucket string,
	drops []*game_config.FragmentDrop,
) (*MemberReward, error) {
	reward := &MemberReward{CharacterID: member.CharacterID}

	reward.SpiritStones = int64(template.BaseSpiritStones * cleared)
	reward.CultivationPoints = int64(template.BaseCultivation * cleared)
	reward.Contribution = int64(template.BaseContribution * cleared)
	if !completed {
		// 失败按通过关卡数折半给安慰奖
		reward.SpiritStones /= 2
		reward.CultivationPoints /= 2
		reward.Contribution /= 2
	}

	// 周首通判定：只有通关才有资格
	if completed {
		has, err := s.playerRecordRepo.HasFirstClear(ctx, tx, member.CharacterID, room.DungeonType, weekBucket)
		if err != nil {
			return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询首通记录失败")
		}
		if !has {
			reward.IsFirstClear = true
			reward.SpiritStones *= FirstClearMultiplier
			reward.CultivationPoints *= FirstClearMultiplier
			reward.Contribution *= FirstClearMultiplier
		}
	}

	// 残片独立判定，逐成员逐配置掷骰
	if completed {
		for _, drop := range drops {
			rate, _ := drop.DropRate.Float64()
			if reward.IsFirstClear {
				bonus, _ := drop.FirstClearBonus.Float64()
				rate += bonus
			}
			if s.roll() < rate {
				reward.Fragments = append(reward.Fragments, drop.FragmentID)
			}
		}
	}

	if err := s.characterRepo.AddRewards(ctx, tx, member.CharacterID, interfaces.RewardDelta{
		SpiritStones:      reward.SpiritStones,
		CultivationPoints: reward.CultivationPoints,
		Contribution:      reward.Contribution,
	}); err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "发放成员奖励失败")
	}

	fragments, err := json.Marshal(reward.Fragments)
	if err != nil {
		return nil, xerrors.NewWithError(xerrors.CodeInternalError, "序列化残片列表失败", err)
	}
	playerRecord := &game_runtime.PlayerDungeonRecord{
		RecordID:          recordID,
		CharacterID:       member.CharacterID,
		DungeonType:       room.DungeonType,
		SpiritStones:      reward.SpiritStones,
		CultivationPoints: reward.CultivationPoints,
		Contribution:      reward.Contribution,
		Fragments:         types.JSON(fragments),
		IsFirstClear:      reward.IsFirstClear,
		WeekBucket:        weekBucket,
	}
	if err := s.playerRecordRepo.Create(ctx, tx, playerRecord); err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "创建玩家结算记录失败")
	}

	return reward, nil
}

// PublishSettled 结算完成后的事件发布与打点（提交事务后调用）。
func (s *RewardService) PublishSettled(ctx context.Context, room *game_runtime.DungeonRoom, rewardSet *RewardSet) {
	s.publishSettled(ctx, room, rewardSet)
}

func (s *RewardService) publishSettled(ctx context.Context, room *game_runtime.DungeonRoom, rewardSet *RewardSet) {
	metrics.DefaultBusinessMetrics.RecordSettlement(room.DungeonType, "")

	event := notify.RoomSettledEvent{
		RoomID:      room.ID,
		DungeonType: room.DungeonType,
		Result:      room.Status,
	}
	for _, m := range rewardSet.Members {
		event.MemberIDs = append(event.MemberIDs, m.CharacterID)
		if m.IsFirstClear {
			event.FirstClears = append(event.FirstClears, m.CharacterID)
			metrics.DefaultBusinessMetrics.RecordFirstClear(room.DungeonType, "")
		}
	}
	_ = notify.PublishGameEvent(ctx, notify.SubjectRoomSettled, event)
}

// clearedStages 计算已通过的关卡数。
func clearedStages(room *game_runtime.DungeonRoom, template *game_config.DungeonTemplate) int {
	if room.Status == game_runtime.RoomStatusCompleted {
		return template.StageCount
	}
	if room.FailedAtStage.Valid {
		return room.FailedAtStage.Int - 1
	}
	return 0
}

// weekBucketOf 返回服务器本地时间所在的 ISO 周标识，如 2026-W36。
func weekBucketOf(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// ListSettlements 按时间倒序列出角色的结算记录（开荒历史）。
func (s *RewardService) ListSettlements(ctx context.Context, characterID string, limit, offset int) ([]*game_runtime.PlayerDungeonRecord, error) {
	if characterID == "" {
		return nil, xerrors.New(xerrors.CodeInvalidParams, "角色ID不能为空")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	records, err := s.playerRecordRepo.ListByCharacter(ctx, characterID, limit, offset)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询结算记录失败")
	}
	return records, nil
}

// GetRoomRecord 查询房间的开荒记录（结算后生成）。
func (s *RewardService) GetRoomRecord(ctx context.Context, roomID string) (*game_runtime.DungeonRecord, error) {
	if roomID == "" {
		return nil, xerrors.New(xerrors.CodeInvalidParams, "房间ID不能为空")
	}

	record, err := s.recordRepo.GetByRoomID(ctx, roomID)
	if err != nil {
		if errors.Is(err, interfaces.ErrDungeonRecordNotFound) {
			return nil, xerrors.FromCode(xerrors.CodeResourceNotFound).WithMetadata("room_id", roomID)
		}
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询开荒记录失败")
	}
	return record, nil
}
