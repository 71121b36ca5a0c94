package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aarondl/null/v8"

	"xiuxian-server/internal/entity/game_config"
	"xiuxian-server/internal/entity/game_runtime"
	"xiuxian-server/internal/pkg/locker"
	"xiuxian-server/internal/pkg/log"
	"xiuxian-server/internal/pkg/metrics"
	"xiuxian-server/internal/pkg/notify"
	"xiuxian-server/internal/pkg/xerrors"
	"xiuxian-server/internal/repository/impl"
	"xiuxian-server/internal/repository/interfaces"
)

// TeamCompositionBonus 五行齐备时的攻击加成倍率
const TeamCompositionBonus = 1.10

// baseElements 判定五行齐备用的元素集合
var baseElements = []string{ElementMetal, ElementWood, ElementEarth, ElementWater, ElementFire}

// DungeonRoomDependencies 注入 DungeonRoomService 所需依赖
type DungeonRoomDependencies struct {
	RoomRepo         interfaces.DungeonRoomRepository
	MemberRepo       interfaces.RoomMemberRepository
	CharacterRepo    interfaces.CharacterRepository
	TemplateRepo     interfaces.DungeonTemplateRepository
	EncounterRepo    interfaces.StageEncounterRepository
	BattleReportRepo interfaces.BattleReportRepository
	StatService      *CombatStatService
	RewardService    *RewardService
	Locks            *locker.KeyedLocker

	// RetryFailedStage 为 true 时关卡失败只记结果、允许重打；
	// 默认 false：任一关失败整场开荒终止。
	RetryFailedStage bool
}

// DungeonRoomService 协作秘境房间服务。
// 房间生命周期: waiting → in_progress → completed/failed；
// 终态前任意状态可被队长解散（disbanded）。
// 所有写操作按房间串行：进程内 KeyedLocker + 行锁双重保护。
type DungeonRoomService struct {
	db               *sql.DB
	roomRepo         interfaces.DungeonRoomRepository
	memberRepo       interfaces.RoomMemberRepository
	characterRepo    interfaces.CharacterRepository
	templateRepo     interfaces.DungeonTemplateRepository
	encounterRepo    interfaces.StageEncounterRepository
	battleReportRepo interfaces.BattleReportRepository
	statService      *CombatStatService
	rewardService    *RewardService
	locks            *locker.KeyedLocker
	retryFailedStage bool

	now func() time.Time
}

// NewDungeonRoomService 创建秘境房间服务
func NewDungeonRoomService(db *sql.DB, deps *DungeonRoomDependencies) *DungeonRoomService {
	if deps == nil {
		deps = &DungeonRoomDependencies{}
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
	if deps.EncounterRepo == nil {
		deps.EncounterRepo = impl.NewStageEncounterRepository(db)
	}
	if deps.BattleReportRepo == nil {
		deps.BattleReportRepo = impl.NewBattleReportRepository(db)
	}
	if deps.StatService == nil {
		deps.StatService = NewCombatStatService(db, &CombatStatDependencies{CharacterRepo: deps.CharacterRepo})
	}
	if deps.RewardService == nil {
		deps.RewardService = NewRewardService(db, &RewardDependencies{
			RoomRepo:      deps.RoomRepo,
			MemberRepo:    deps.MemberRepo,
			CharacterRepo: deps.CharacterRepo,
			TemplateRepo:  deps.TemplateRepo,
		})
	}
	if deps.Locks == nil {
		deps.Locks = locker.New()
	}

	return &DungeonRoomService{
		db:               db,
		roomRepo:         deps.RoomRepo,
		memberRepo:       deps.MemberRepo,
		characterRepo:    deps.CharacterRepo,
		templateRepo:     deps.TemplateRepo,
		encounterRepo:    deps.EncounterRepo,
		battleReportRepo: deps.BattleReportRepo,
		statService:      deps.StatService,
		rewardService:    deps.RewardService,
		locks:            deps.Locks,
		retryFailedStage: deps.RetryFailedStage,
		now:              time.Now,
	}
}

// CreateRoomRequest 创建房间请求
type CreateRoomRequest struct {
	LeaderID    string
	DungeonType string
	Password    string // 可选口令
	MinRealm    int    // 可高于模板门槛，不能低于
}

// RoomDetail 房间及成员视图
type RoomDetail struct {
	Room    *game_runtime.DungeonRoom  `json:"room"`
	Members []*game_runtime.RoomMember `json:"members"`
}

// runInTx 写路径的事务模板：开启、回滚兜底、提交。
// 状态迁移的主体逻辑放在各自的 xxxInTx 方法里，便于用假仓储直接驱动。
func (s *DungeonRoomService) runInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return xerrors.Wrap(err, xerrors.CodeInternalError, "开启事务失败")
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return xerrors.Wrap(err, xerrors.CodeInternalError, "提交事务失败")
	}
	return nil
}

// CreateRoom 创建房间。创建者即队长，同时成为首位成员。
func (s *DungeonRoomService) CreateRoom(ctx context.Context, req *CreateRoomRequest) (*RoomDetail, error) {
	if req == nil || req.LeaderID == "" || req.DungeonType == "" {
		return nil, xerrors.New(xerrors.CodeInvalidParams, "参数不能为空")
	}

	template, err := s.getOpenTemplate(ctx, req.DungeonType)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock("character:" + req.LeaderID)
	defer unlock()

	var detail *RoomDetail
	if err := s.runInTx(ctx, func(tx *sql.Tx) error {
		detail, err = s.createRoomInTx(ctx, tx, req, template)
		return err
	}); err != nil {
		return nil, err
	}

	metrics.DefaultBusinessMetrics.IncRoomsActive("")
	return detail, nil
}

func (s *DungeonRoomService) createRoomInTx(ctx context.Context, tx *sql.Tx, req *CreateRoomRequest, template *game_config.DungeonTemplate) (*RoomDetail, error) {
	minRealm := template.MinRealm
	if req.MinRealm > minRealm {
		minRealm = req.MinRealm
	}

	leader, err := s.characterRepo.GetByIDForUpdate(ctx, tx, req.LeaderID)
	if err != nil {
		if errors.Is(err, interfaces.ErrCharacterNotFound) {
			return nil, xerrors.NewCharacterNotFoundError(req.LeaderID)
		}
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询角色失败")
	}
	if leader.CurrentRoomID.Valid {
		return nil, xerrors.FromCode(xerrors.CodeAlreadyInRoom).WithMetadata("room_id", leader.CurrentRoomID.String)
	}
	if leader.Realm < minRealm {
		return nil, xerrors.FromCode(xerrors.CodeRealmTooLow).
			WithMetadata("required", minRealm).
			WithMetadata("actual", leader.Realm)
	}

	room := &game_runtime.DungeonRoom{
		LeaderID:    leader.ID,
		DungeonType: req.DungeonType,
		Status:      game_runtime.RoomStatusWaiting,
		MinRealm:    minRealm,
	}
	if req.Password != "" {
		room.Password = null.StringFrom(req.Password)
	}
	if err := s.roomRepo.Create(ctx, tx, room); err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "创建房间失败")
	}

	member, err := s.memberFromCharacter(ctx, room.ID, leader)
	if err != nil {
		return nil, err
	}
	if err := s.memberRepo.Add(ctx, tx, member); err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "添加队长成员失败")
	}
	if err := s.characterRepo.SetCurrentRoom(ctx, tx, leader.ID, room.ID); err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "更新角色所在房间失败")
	}

	return &RoomDetail{Room: room, Members: []*game_runtime.RoomMember{member}}, nil
}

// JoinRoomRequest 加入房间请求
type JoinRoomRequest struct {
	RoomID      string
	CharacterID string
	Password    string
}

// JoinRoom 加入等待中的房间。满员、已开荒、境界不足、口令不符均失败。
func (s *DungeonRoomService) JoinRoom(ctx context.Context, req *JoinRoomRequest) (*RoomDetail, error) {
	if req == nil || req.RoomID == "" || req.CharacterID == "" {
		return nil, xerrors.New(xerrors.CodeInvalidParams, "参数不能为空")
	}

	unlock := s.locks.Lock("room:" + req.RoomID)
	defer unlock()

	var detail *RoomDetail
	if err := s.runInTx(ctx, func(tx *sql.Tx) error {
		var err error
		detail, err = s.joinRoomInTx(ctx, tx, req)
		return err
	}); err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *DungeonRoomService) joinRoomInTx(ctx context.Context, tx *sql.Tx, req *JoinRoomRequest) (*RoomDetail, error) {
	room, err := s.getRoomForUpdate(ctx, tx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if room.Status != game_runtime.RoomStatusWaiting {
		return nil, xerrors.New(xerrors.CodeRoomWrongStatus, "房间已开始或已结束，无法加入")
	}
	if room.Password.Valid && room.Password.String != req.Password {
		return nil, xerrors.FromCode(xerrors.CodeRoomPasswordMismatch)
	}

	count, err := s.memberRepo.CountByRoom(ctx, tx, room.ID)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "统计房间成员失败")
	}
	if count >= game_runtime.RoomMaxMembers {
		return nil, xerrors.FromCode(xerrors.CodeRoomFull)
	}

	character, err := s.characterRepo.GetByIDForUpdate(ctx, tx, req.CharacterID)
	if err != nil {
		if errors.Is(err, interfaces.ErrCharacterNotFound) {
			return nil, xerrors.NewCharacterNotFoundError(req.CharacterID)
		}
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询角色失败")
	}
	if character.CurrentRoomID.Valid {
		return nil, xerrors.FromCode(xerrors.CodeAlreadyInRoom).WithMetadata("room_id", character.CurrentRoomID.String)
	}
	if character.Realm < room.MinRealm {
		return nil, xerrors.FromCode(xerrors.CodeRealmTooLow).
			WithMetadata("required", room.MinRealm).
			WithMetadata("actual", character.Realm)
	}

	member, err := s.memberFromCharacter(ctx, room.ID, character)
	if err != nil {
		return nil, err
	}
	if err := s.memberRepo.Add(ctx, tx, member); err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "添加房间成员失败")
	}
	if err := s.characterRepo.SetCurrentRoom(ctx, tx, character.ID, room.ID); err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "更新角色所在房间失败")
	}

	members, err := s.memberRepo.ListByRoom(ctx, tx, room.ID)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询房间成员失败")
	}
	return &RoomDetail{Room: room, Members: members}, nil
}

// LeaveRoom 离开等待中的房间。
// 队长离开时队伍转交给最早加入的剩余成员；队长是最后一人则房间解散。
// 开荒已开始后成员冻结，不允许离开。
func (s *DungeonRoomService) LeaveRoom(ctx context.Context, roomID, characterID string) error {
	if roomID == "" || characterID == "" {
		return xerrors.New(xerrors.CodeInvalidParams, "参数不能为空")
	}

	unlock := s.locks.Lock("room:" + roomID)
	defer unlock()

	var room *game_runtime.DungeonRoom
	var disbanded bool
	if err := s.runInTx(ctx, func(tx *sql.Tx) error {
		var err error
		room, disbanded, err = s.leaveRoomInTx(ctx, tx, roomID, characterID)
		return err
	}); err != nil {
		return err
	}

	if disbanded {
		metrics.DefaultBusinessMetrics.DecRoomsActive("")
		metrics.DefaultBusinessMetrics.RecordDungeonRun(room.DungeonType, game_runtime.RoomStatusDisbanded, "")
	}
	return nil
}

func (s *DungeonRoomService) leaveRoomInTx(ctx context.Context, tx *sql.Tx, roomID, characterID string) (*game_runtime.DungeonRoom, bool, error) {
	room, err := s.getRoomForUpdate(ctx, tx, roomID)
	if err != nil {
		return nil, false, err
	}
	if room.Status != game_runtime.RoomStatusWaiting {
		return nil, false, xerrors.New(xerrors.CodeRoomWrongStatus, "开荒已开始，成员无法离开")
	}

	if _, err := s.memberRepo.Get(ctx, tx, roomID, characterID); err != nil {
		if errors.Is(err, interfaces.ErrRoomMemberNotFound) {
			return nil, false, xerrors.FromCode(xerrors.CodeNotInRoom)
		}
		return nil, false, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询房间成员失败")
	}

	if err := s.memberRepo.Remove(ctx, tx, roomID, characterID); err != nil {
		return nil, false, xerrors.Wrap(err, xerrors.CodeDatabaseError, "移除房间成员失败")
	}
	if err := s.characterRepo.SetCurrentRoom(ctx, tx, characterID, ""); err != nil {
		return nil, false, xerrors.Wrap(err, xerrors.CodeDatabaseError, "清空角色所在房间失败")
	}

	disbanded := false
	if room.LeaderID == characterID {
		remaining, err := s.memberRepo.ListByRoom(ctx, tx, roomID)
		if err != nil {
			return nil, false, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询剩余成员失败")
		}
		if len(remaining) == 0 {
			// 最后一人离开，房间随之解散
			room.Status = game_runtime.RoomStatusDisbanded
			room.FinishedAt = null.TimeFrom(s.now())
			disbanded = true
		} else {
			// 队长转交给最早加入的成员
			room.LeaderID = remaining[0].CharacterID
		}
		if err := s.roomRepo.Update(ctx, tx, room); err != nil {
			return nil, false, xerrors.Wrap(err, xerrors.CodeDatabaseError, "更新房间失败")
		}
	}

	return room, disbanded, nil
}

// KickMember 队长将成员踢出等待中的房间。
func (s *DungeonRoomService) KickMember(ctx context.Context, roomID, kickerID, targetID string) error {
	if roomID == "" || kickerID == "" || targetID == "" {
		return xerrors.New(xerrors.CodeInvalidParams, "参数不能为空")
	}
	if kickerID == targetID {
		return xerrors.New(xerrors.CodeInvalidParams, "不能踢出自己，请使用离开")
	}

	unlock := s.locks.Lock("room:" + roomID)
	defer unlock()

	return s.runInTx(ctx, func(tx *sql.Tx) error {
		return s.kickMemberInTx(ctx, tx, roomID, kickerID, targetID)
	})
}

func (s *DungeonRoomService) kickMemberInTx(ctx context.Context, tx *sql.Tx, roomID, kickerID, targetID string) error {
	room, err := s.getRoomForUpdate(ctx, tx, roomID)
	if err != nil {
		return err
	}
	if room.Status != game_runtime.RoomStatusWaiting {
		return xerrors.New(xerrors.CodeRoomWrongStatus, "开荒已开始，无法踢人")
	}
	if room.LeaderID != kickerID {
		return xerrors.FromCode(xerrors.CodeNotRoomLeader)
	}

	if _, err := s.memberRepo.Get(ctx, tx, roomID, targetID); err != nil {
		if errors.Is(err, interfaces.ErrRoomMemberNotFound) {
			return xerrors.FromCode(xerrors.CodeNotInRoom)
		}
		return xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询房间成员失败")
	}

	if err := s.memberRepo.Remove(ctx, tx, roomID, targetID); err != nil {
		return xerrors.Wrap(err, xerrors.CodeDatabaseError, "移除房间成员失败")
	}
	if err := s.characterRepo.SetCurrentRoom(ctx, tx, targetID, ""); err != nil {
		return xerrors.Wrap(err, xerrors.CodeDatabaseError, "清空角色所在房间失败")
	}
	return nil
}

// StartDungeon 队长开启开荒：waiting → in_progress，关卡推进到 1，成员随即冻结。
func (s *DungeonRoomService) StartDungeon(ctx context.Context, roomID, leaderID string) (*game_runtime.DungeonRoom, error) {
	if roomID == "" || leaderID == "" {
		return nil, xerrors.New(xerrors.CodeInvalidParams, "参数不能为空")
	}

	unlock := s.locks.Lock("room:" + roomID)
	defer unlock()

	var room *game_runtime.DungeonRoom
	if err := s.runInTx(ctx, func(tx *sql.Tx) error {
		var err error
		room, err = s.startDungeonInTx(ctx, tx, roomID, leaderID)
		return err
	}); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *DungeonRoomService) startDungeonInTx(ctx context.Context, tx *sql.Tx, roomID, leaderID string) (*game_runtime.DungeonRoom, error) {
	room, err := s.getRoomForUpdate(ctx, tx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != game_runtime.RoomStatusWaiting {
		return nil, xerrors.New(xerrors.CodeRoomWrongStatus, "房间不在等待状态")
	}
	if room.LeaderID != leaderID {
		return nil, xerrors.FromCode(xerrors.CodeNotRoomLeader)
	}

	count, err := s.memberRepo.CountByRoom(ctx, tx, roomID)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "统计房间成员失败")
	}
	if count < 1 {
		return nil, xerrors.New(xerrors.CodeRoomWrongStatus, "房间没有成员")
	}

	room.Status = game_runtime.RoomStatusInProgress
	room.CurrentStage = 1
	room.StartedAt = null.TimeFrom(s.now())
	if err := s.roomRepo.Update(ctx, tx, room); err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "更新房间失败")
	}
	return room, nil
}

// SelectPath 在分支关卡选择冰道/火道。只能选一次，选后不可更改。
func (s *DungeonRoomService) SelectPath(ctx context.Context, roomID, leaderID, choice string) (*game_runtime.DungeonRoom, error) {
	if roomID == "" || leaderID == "" {
		return nil, xerrors.New(xerrors.CodeInvalidParams, "参数不能为空")
	}
	if choice != game_runtime.BranchPathIce && choice != game_runtime.BranchPathFire {
		return nil, xerrors.New(xerrors.CodeInvalidParams, "分支路线只能是 ice 或 fire")
	}

	unlock := s.locks.Lock("room:" + roomID)
	defer unlock()

	var room *game_runtime.DungeonRoom
	if err := s.runInTx(ctx, func(tx *sql.Tx) error {
		var err error
		room, err = s.selectPathInTx(ctx, tx, roomID, leaderID, choice)
		return err
	}); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *DungeonRoomService) selectPathInTx(ctx context.Context, tx *sql.Tx, roomID, leaderID, choice string) (*game_runtime.DungeonRoom, error) {
	room, err := s.getRoomForUpdate(ctx, tx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != game_runtime.RoomStatusInProgress {
		return nil, xerrors.New(xerrors.CodeRoomWrongStatus, "房间不在开荒中")
	}
	if room.LeaderID != leaderID {
		return nil, xerrors.FromCode(xerrors.CodeNotRoomLeader)
	}

	template, err := s.templateRepo.GetByType(ctx, room.DungeonType)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询秘境模板失败")
	}
	if room.CurrentStage != template.BranchStage {
		return nil, xerrors.FromCode(xerrors.CodePathNotSelectable).WithMetadata("current_stage", room.CurrentStage)
	}
	if room.BranchPath.Valid {
		return nil, xerrors.FromCode(xerrors.CodePathAlreadySelected).WithMetadata("branch_path", room.BranchPath.String)
	}

	room.BranchPath = null.StringFrom(choice)
	if err := s.roomRepo.Update(ctx, tx, room); err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "更新房间失败")
	}
	return room, nil
}

// ChallengeStageRequest 挑战当前关卡请求
type ChallengeStageRequest struct {
	RoomID      string
	CharacterID string // 发起人，须为房间成员
	Seed        int64  // 0 表示随机
}

// ChallengeStageResult 关卡挑战结果
type ChallengeStageResult struct {
	Room    *game_runtime.DungeonRoom `json:"room"`
	Combat  *CombatResult             `json:"combat"`
	Rewards *RewardSet                `json:"rewards,omitempty"` // 进入终态时附带结算结果
}

// ChallengeStage 挑战当前关卡。
// 胜利推进关卡，通关第三关整场完成并结算；
// 失败默认整场终止（failed）并按已过关数结算安慰奖。
func (s *DungeonRoomService) ChallengeStage(ctx context.Context, req *ChallengeStageRequest) (*ChallengeStageResult, error) {
	if req == nil || req.RoomID == "" || req.CharacterID == "" {
		return nil, xerrors.New(xerrors.CodeInvalidParams, "参数不能为空")
	}

	unlock := s.locks.Lock("room:" + req.RoomID)
	defer unlock()

	var result *ChallengeStageResult
	var stage int
	var success, terminal bool
	if err := s.runInTx(ctx, func(tx *sql.Tx) error {
		var err error
		result, stage, success, terminal, err = s.challengeStageInTx(ctx, tx, req)
		return err
	}); err != nil {
		return nil, err
	}

	s.afterStageChallenge(ctx, result.Room, result.Combat, stage, success, terminal, result.Rewards)
	return result, nil
}

func (s *DungeonRoomService) challengeStageInTx(ctx context.Context, tx *sql.Tx, req *ChallengeStageRequest) (*ChallengeStageResult, int, bool, bool, error) {
	room, err := s.getRoomForUpdate(ctx, tx, req.RoomID)
	if err != nil {
		return nil, 0, false, false, err
	}
	if room.Status != game_runtime.RoomStatusInProgress {
		return nil, 0, false, false, xerrors.New(xerrors.CodeRoomWrongStatus, "房间不在开荒中")
	}

	if _, err := s.memberRepo.Get(ctx, tx, room.ID, req.CharacterID); err != nil {
		if errors.Is(err, interfaces.ErrRoomMemberNotFound) {
			return nil, 0, false, false, xerrors.FromCode(xerrors.CodeNotInRoom)
		}
		return nil, 0, false, false, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询房间成员失败")
	}

	template, err := s.templateRepo.GetByType(ctx, room.DungeonType)
	if err != nil {
		return nil, 0, false, false, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询秘境模板失败")
	}

	branch := ""
	if room.CurrentStage == template.BranchStage {
		if !room.BranchPath.Valid {
			return nil, 0, false, false, xerrors.New(xerrors.CodePathNotSelectable, "请先选择分支路线")
		}
		branch = room.BranchPath.String
	}

	encounter, err := s.encounterRepo.GetEncounter(ctx, room.DungeonType, room.CurrentStage, branch)
	if err != nil {
		if errors.Is(err, interfaces.ErrEncounterNotFound) {
			return nil, 0, false, false, xerrors.FromCode(xerrors.CodeEncounterNotFound).
				WithMetadata("dungeon_type", room.DungeonType).
				WithMetadata("stage", room.CurrentStage)
		}
		return nil, 0, false, false, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询关卡遭遇配置失败")
	}

	members, err := s.memberRepo.ListByRoom(ctx, tx, room.ID)
	if err != nil {
		return nil, 0, false, false, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询房间成员失败")
	}

	teamStats, err := s.buildTeamStats(ctx, room, members)
	if err != nil {
		return nil, 0, false, false, err
	}

	opts := &CombatOptions{Variance: VarianceOf(StandardVariance)}
	if req.Seed != 0 {
		opts.Roller = NewRoller(req.Seed)
	}
	combat := Simulate(teamStats, statsFromEncounter(encounter), opts)
	success := combat.Outcome == OutcomeWin

	stageResult := game_runtime.StageResult{
		StageIndex: room.CurrentStage,
		Name:       encounter.Name,
		Success:    success,
		FinishedAt: s.now(),
	}
	if len(combat.RoundLog) > 0 {
		stageResult.Events = combat.RoundLog[len(combat.RoundLog)-1].Events
	}
	if err := room.AppendStageResult(stageResult); err != nil {
		return nil, 0, false, false, xerrors.NewWithError(xerrors.CodeInternalError, "写入关卡结果失败", err)
	}

	challengedStage := room.CurrentStage
	terminal := false
	var rewards *RewardSet

	switch {
	case success && room.CurrentStage >= template.StageCount:
		// 通关最后一关，整场完成
		room.Status = game_runtime.RoomStatusCompleted
		room.FinishedAt = null.TimeFrom(s.now())
		terminal = true
	case success:
		room.CurrentStage++
	case !s.retryFailedStage:
		// 任一关失败即终局
		room.Status = game_runtime.RoomStatusFailed
		room.FailedAtStage = null.IntFrom(room.CurrentStage)
		room.FinishedAt = null.TimeFrom(s.now())
		terminal = true
	default:
		// 允许重试：只记录失败结果，关卡停留原地
	}

	if err := s.roomRepo.Update(ctx, tx, room); err != nil {
		return nil, 0, false, false, xerrors.Wrap(err, xerrors.CodeDatabaseError, "更新房间失败")
	}

	if terminal {
		rewards, err = s.rewardService.SettleInTx(ctx, tx, room)
		if err != nil {
			return nil, 0, false, false, err
		}
		// 终态释放成员的所在房间引用
		for _, member := range members {
			if err := s.characterRepo.SetCurrentRoom(ctx, tx, member.CharacterID, ""); err != nil {
				return nil, 0, false, false, xerrors.Wrap(err, xerrors.CodeDatabaseError, "清空角色所在房间失败")
			}
		}
	}

	result := &ChallengeStageResult{Room: room, Combat: combat, Rewards: rewards}
	return result, challengedStage, success, terminal, nil
}

// afterStageChallenge 提交后的战报落地、事件发布与打点。
func (s *DungeonRoomService) afterStageChallenge(ctx context.Context, room *game_runtime.DungeonRoom, combat *CombatResult, stage int, success, terminal bool, rewards *RewardSet) {
	metrics.DefaultBusinessMetrics.RecordStageChallenge(room.DungeonType, stage, success, "")
	metrics.DefaultBusinessMetrics.RecordBattle(BattleKindStage, combat.Outcome, combat.Rounds, "")

	if terminal {
		metrics.DefaultBusinessMetrics.DecRoomsActive("")
		metrics.DefaultBusinessMetrics.RecordDungeonRun(room.DungeonType, room.Status, "")
		_ = notify.PublishGameEvent(ctx, notify.SubjectRoomFinished, notify.RoomSettledEvent{
			RoomID:      room.ID,
			DungeonType: room.DungeonType,
			Result:      room.Status,
		})
		if rewards != nil {
			s.rewardService.PublishSettled(ctx, room, rewards)
		}
	}
}

// DisbandRoom 队长解散房间。终态房间不可解散。
func (s *DungeonRoomService) DisbandRoom(ctx context.Context, roomID, leaderID string) error {
	if roomID == "" || leaderID == "" {
		return xerrors.New(xerrors.CodeInvalidParams, "参数不能为空")
	}

	unlock := s.locks.Lock("room:" + roomID)
	defer unlock()

	var room *game_runtime.DungeonRoom
	if err := s.runInTx(ctx, func(tx *sql.Tx) error {
		var err error
		room, err = s.disbandInTx(ctx, tx, roomID, leaderID)
		return err
	}); err != nil {
		return err
	}

	metrics.DefaultBusinessMetrics.DecRoomsActive("")
	metrics.DefaultBusinessMetrics.RecordDungeonRun(room.DungeonType, game_runtime.RoomStatusDisbanded, "")
	return nil
}

// ForceDisband 强制解散房间，绕过队长校验。
// 供运营后台与过期房间清理任务使用。
func (s *DungeonRoomService) ForceDisband(ctx context.Context, roomID, reason string) error {
	if roomID == "" {
		return xerrors.New(xerrors.CodeInvalidParams, "房间ID不能为空")
	}

	unlock := s.locks.Lock("room:" + roomID)
	defer unlock()

	var room *game_runtime.DungeonRoom
	if err := s.runInTx(ctx, func(tx *sql.Tx) error {
		var err error
		room, err = s.disbandInTx(ctx, tx, roomID, "")
		return err
	}); err != nil {
		return err
	}

	log.Info("房间被强制解散", "room_id", roomID, "reason", reason)
	metrics.DefaultBusinessMetrics.DecRoomsActive("")
	metrics.DefaultBusinessMetrics.RecordDungeonRun(room.DungeonType, game_runtime.RoomStatusDisbanded, "")
	return nil
}

// disbandInTx 解散房间并释放全体成员。leaderID 为空表示强制解散，跳过队长校验。
func (s *DungeonRoomService) disbandInTx(ctx context.Context, tx *sql.Tx, roomID, leaderID string) (*game_runtime.DungeonRoom, error) {
	room, err := s.getRoomForUpdate(ctx, tx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Terminal() {
		return nil, xerrors.New(xerrors.CodeRoomWrongStatus, "房间已结束，无法解散")
	}
	if leaderID != "" && room.LeaderID != leaderID {
		return nil, xerrors.FromCode(xerrors.CodeNotRoomLeader)
	}

	members, err := s.memberRepo.ListByRoom(ctx, tx, roomID)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询房间成员失败")
	}
	for _, member := range members {
		if err := s.characterRepo.SetCurrentRoom(ctx, tx, member.CharacterID, ""); err != nil {
			return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "清空角色所在房间失败")
		}
	}

	room.Status = game_runtime.RoomStatusDisbanded
	room.FinishedAt = null.TimeFrom(s.now())
	if err := s.roomRepo.Update(ctx, tx, room); err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "更新房间失败")
	}
	return room, nil
}

// GetRoom 查询房间详情（无锁只读）。
func (s *DungeonRoomService) GetRoom(ctx context.Context, roomID string) (*RoomDetail, error) {
	if roomID == "" {
		return nil, xerrors.New(xerrors.CodeInvalidParams, "房间ID不能为空")
	}

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, interfaces.ErrRoomNotFound) {
			return nil, xerrors.NewRoomNotFoundError(roomID)
		}
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询房间失败")
	}

	members, err := s.memberRepo.ListByRoom(ctx, s.db, roomID)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询房间成员失败")
	}
	return &RoomDetail{Room: room, Members: members}, nil
}

// ListRooms 大厅房间列表。
func (s *DungeonRoomService) ListRooms(ctx context.Context, status string, limit, offset int) ([]*game_runtime.DungeonRoom, int64, error) {
	if status == "" {
		status = game_runtime.RoomStatusWaiting
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rooms, total, err := s.roomRepo.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询房间列表失败")
	}
	return rooms, total, nil
}

// getOpenTemplate 获取启用且在开放窗口内的秘境模板。
func (s *DungeonRoomService) getOpenTemplate(ctx context.Context, dungeonType string) (*game_config.DungeonTemplate, error) {
	template, err := s.templateRepo.GetByType(ctx, dungeonType)
	if err != nil {
		if errors.Is(err, interfaces.ErrDungeonTemplateNotFound) {
			return nil, xerrors.NewNotFoundError("dungeon_template", dungeonType)
		}
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询秘境模板失败")
	}
	if !template.IsActive {
		return nil, xerrors.FromCode(xerrors.CodeDungeonNotOpen)
	}
	now := s.now()
	if template.OpenAt.Valid && now.Before(template.OpenAt.Time) {
		return nil, xerrors.New(xerrors.CodeDungeonNotOpen, "秘境尚未到开放时间")
	}
	if template.CloseAt.Valid && now.After(template.CloseAt.Time) {
		return nil, xerrors.New(xerrors.CodeDungeonNotOpen, "秘境开放时间已结束")
	}
	return template, nil
}

// getRoomForUpdate 带行锁取房间，统一错误转换。
func (s *DungeonRoomService) getRoomForUpdate(ctx context.Context, tx *sql.Tx, roomID string) (*game_runtime.DungeonRoom, error) {
	room, err := s.roomRepo.GetByIDForUpdate(ctx, tx, roomID)
	if err != nil {
		if errors.Is(err, interfaces.ErrRoomNotFound) {
			return nil, xerrors.NewRoomNotFoundError(roomID)
		}
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询房间失败")
	}
	return room, nil
}

// memberFromCharacter 入队快照：战力、主元素、境界在此时定格。
func (s *DungeonRoomService) memberFromCharacter(ctx context.Context, roomID string, character *game_runtime.Character) (*game_runtime.RoomMember, error) {
	stats, err := s.statService.buildFromCharacter(ctx, character)
	if err != nil {
		return nil, err
	}

	element := ""
	if elements := character.ElementList(); len(elements) > 0 {
		element = elements[0]
	}

	return &game_runtime.RoomMember{
		RoomID:      roomID,
		CharacterID: character.ID,
		Name:        character.Name,
		Role:        element,
		Power:       stats.PowerScore(),
		Element:     element,
		RealmTier:   character.Realm,
		JoinedAt:    s.now(),
	}, nil
}

// buildTeamStats 把全队快照合成一个关卡挑战属性块：
// 血量/攻击累加，防御取平均，速度/气运/阵法修正取最大。
// 五行齐备的队伍获得攻击加成。
func (s *DungeonRoomService) buildTeamStats(ctx context.Context, room *game_runtime.DungeonRoom, members []*game_runtime.RoomMember) (*CombatantStats, error) {
	if len(members) == 0 {
		return nil, xerrors.New(xerrors.CodeRoomWrongStatus, "房间没有成员")
	}

	team := &CombatantStats{
		ID:   room.ID,
		Name: "开荒小队",
	}
	elementSet := make(map[string]bool)

	for _, member := range members {
		stats, err := s.statService.BuildStats(ctx, member.CharacterID)
		if err != nil {
			return nil, err
		}

		team.HP += stats.HP
		team.MaxHP += stats.MaxHP
		team.Attack += stats.Attack
		team.Defense += stats.Defense
		if stats.Speed > team.Speed {
			team.Speed = stats.Speed
		}
		if stats.Luck > team.Luck {
			team.Luck = stats.Luck
		}
		if stats.DamageReduction > team.DamageReduction {
			team.DamageReduction = stats.DamageReduction
		}
		if stats.Reflect > team.Reflect {
			team.Reflect = stats.Reflect
		}
		if stats.Dodge > team.Dodge {
			team.Dodge = stats.Dodge
		}
		if stats.Counter > team.Counter {
			team.Counter = stats.Counter
		}
		if stats.CanElementalCounter {
			team.CanElementalCounter = true
		}
		for _, e := range stats.Elements {
			if !elementSet[e] {
				elementSet[e] = true
				team.Elements = append(team.Elements, e)
			}
		}
	}
	team.Defense /= len(members)

	// 五行齐备加成：金木水火土全覆盖
	covered := true
	for _, e := range baseElements {
		if !elementSet[e] {
			covered = false
			break
		}
	}
	if covered {
		team.Attack = int(float64(team.Attack) * TeamCompositionBonus)
	}

	return team, nil
}
