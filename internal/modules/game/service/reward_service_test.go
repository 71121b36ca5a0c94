package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/aarondl/sqlboiler/v4/boil"
	"github.com/aarondl/sqlboiler/v4/types"
	"github.com/ericlagergren/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xiuxian-server/internal/entity/game_config"
	"xiuxian-server/internal/entity/game_runtime"
	"xiuxian-server/internal/pkg/xerrors"
	"xiuxian-server/internal/repository/interfaces"
)

type fakeRoomRepo struct {
	rooms map[string]*game_runtime.DungeonRoom
}

func newFakeRoomRepo(rooms ...*game_runtime.DungeonRoom) *fakeRoomRepo {
	f := &fakeRoomRepo{rooms: make(map[string]*game_runtime.DungeonRoom)}
	for _, r := range rooms {
		f.rooms[r.ID] = r
	}
	return f
}

func (f *fakeRoomRepo) Create(_ context.Context, _ boil.ContextExecutor, room *game_runtime.DungeonRoom) error {
	if room.ID == "" {
		room.ID = "room-" + time.Now().Format("150405.000000")
	}
	f.rooms[room.ID] = room
	return nil
}

func (f *fakeRoomRepo) GetByID(_ context.Context, roomID string) (*game_runtime.DungeonRoom, error) {
	r, ok := f.rooms[roomID]
	if !ok {
		return nil, interfaces.ErrRoomNotFound
	}
	return r, nil
}

func (f *fakeRoomRepo) GetByIDForUpdate(ctx context.Context, _ *sql.Tx, roomID string) (*game_runtime.DungeonRoom, error) {
	return f.GetByID(ctx, roomID)
}

func (f *fakeRoomRepo) Update(_ context.Context, _ boil.ContextExecutor, room *game_runtime.DungeonRoom) error {
	f.rooms[room.ID] = room
	return nil
}

func (f *fakeRoomRepo) ListWaitingBefore(_ context.Context, cutoff time.Time, limit int) ([]*game_runtime.DungeonRoom, error) {
	var out []*game_runtime.DungeonRoom
	for _, r := range f.rooms {
		if r.Status == game_runtime.RoomStatusWaiting && r.CreatedAt.Before(cutoff) {
			out = append(out, r)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRoomRepo) ListByStatus(_ context.Context, status string, limit, offset int) ([]*game_runtime.DungeonRoom, int64, error) {
	var out []*game_runtime.DungeonRoom
	for _, r := range f.rooms {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out, int64(len(out)), nil
}

type fakeMemberRepo struct {
	members map[string][]*game_runtime.RoomMember // roomID -> members
}

func newFakeMemberRepo() *fakeMemberRepo {
	return &fakeMemberRepo{members: make(map[string][]*game_runtime.RoomMember)}
}

func (f *fakeMemberRepo) Add(_ context.Context, _ boil.ContextExecutor, member *game_runtime.RoomMember) error {
	f.members[member.RoomID] = append(f.members[member.RoomID], member)
	return nil
}

func (f *fakeMemberRepo) Remove(_ context.Context, _ boil.ContextExecutor, roomID, characterID string) error {
	list := f.members[roomID]
	for i, m := range list {
		if m.CharacterID == characterID {
			f.members[roomID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return interfaces.ErrRoomMemberNotFound
}

func (f *fakeMemberRepo) Get(_ context.Context, _ boil.ContextExecutor, roomID, characterID string) (*game_runtime.RoomMember, error) {
	for _, m := range f.members[roomID] {
		if m.CharacterID == characterID {
			return m, nil
		}
	}
	return nil, interfaces.ErrRoomMemberNotFound
}

func (f *fakeMemberRepo) ListByRoom(_ context.Context, _ boil.ContextExecutor, roomID string) ([]*game_runtime.RoomMember, error) {
	return f.members[roomID], nil
}

func (f *fakeMemberRepo) CountByRoom(_ context.Context, _ boil.ContextExecutor, roomID string) (int, error) {
	return len(f.members[roomID]), nil
}

func (f *fakeMemberRepo) RemoveAllByRoom(_ context.Context, _ boil.ContextExecutor, roomID string) error {
	delete(f.members, roomID)
	return nil
}

type fakeTemplateRepo struct {
	templates map[string]*game_config.DungeonTemplate
}

func newFakeTemplateRepo(templates ...*game_config.DungeonTemplate) *fakeTemplateRepo {
	f := &fakeTemplateRepo{templates: make(map[string]*game_config.DungeonTemplate)}
	for _, tpl := range templates {
		f.templates[tpl.DungeonType] = tpl
	}
	return f
}

func (f *fakeTemplateRepo) GetByType(_ context.Context, dungeonType string) (*game_config.DungeonTemplate, error) {
	tpl, ok := f.templates[dungeonType]
	if !ok {
		return nil, interfaces.ErrDungeonTemplateNotFound
	}
	return tpl, nil
}

func (f *fakeTemplateRepo) ListActive(_ context.Context) ([]*game_config.DungeonTemplate, error) {
	var out []*game_config.DungeonTemplate
	for _, tpl := range f.templates {
		if tpl.IsActive {
			out = append(out, tpl)
		}
	}
	return out, nil
}

type fakeFragmentDropRepo struct {
	drops map[string][]*game_config.FragmentDrop
}

func (f *fakeFragmentDropRepo) ListByDungeonType(_ context.Context, dungeonType string) ([]*game_config.FragmentDrop, error) {
	if f.drops == nil {
		return nil, nil
	}
	return f.drops[dungeonType], nil
}

type fakeRecordRepo struct {
	records []*game_runtime.DungeonRecord
}

func (f *fakeRecordRepo) Create(_ context.Context, _ boil.ContextExecutor, record *game_runtime.DungeonRecord) error {
	record.ID = "record-1"
	f.records = append(f.records, record)
	return nil
}

func (f *fakeRecordRepo) GetByRoomID(_ context.Context, roomID string) (*game_runtime.DungeonRecord, error) {
	for _, r := range f.records {
		if r.RoomID == roomID {
			return r, nil
		}
	}
	return nil, interfaces.ErrDungeonRecordNotFound
}

type fakePlayerRecordRepo struct {
	records []*game_runtime.PlayerDungeonRecord
}

func (f *fakePlayerRecordRepo) Create(_ context.Context, _ boil.ContextExecutor, record *game_runtime.PlayerDungeonRecord) error {
	f.records = append(f.records, record)
	return nil
}

func (f *fakePlayerRecordRepo) HasFirstClear(_ context.Context, _ boil.ContextExecutor, characterID, dungeonType, weekBucket string) (bool, error) {
	for _, r := range f.records {
		if r.CharacterID == characterID && r.DungeonType == dungeonType && r.WeekBucket == weekBucket && r.IsFirstClear {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePlayerRecordRepo) ListByCharacter(_ context.Context, characterID string, limit, offset int) ([]*game_runtime.PlayerDungeonRecord, error) {
	var out []*game_runtime.PlayerDungeonRecord
	for _, r := range f.records {
		if r.CharacterID == characterID {
			out = append(out, r)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------

type rewardFixture struct {
	svc        *RewardService
	roomRepo   *fakeRoomRepo
	memberRepo *fakeMemberRepo
	charRepo   *fakeCharacterRepo
	recordRepo *fakeRecordRepo
	playerRepo *fakePlayerRecordRepo
	dropRepo   *fakeFragmentDropRepo
}

func newRewardFixture(t *testing.T) *rewardFixture {
	t.Helper()

	fx := &rewardFixture{
		roomRepo:   newFakeRoomRepo(),
		memberRepo: newFakeMemberRepo(),
		charRepo:   newFakeCharacterRepo(),
		recordRepo: &fakeRecordRepo{},
		playerRepo: &fakePlayerRecordRepo{},
		dropRepo:   &fakeFragmentDropRepo{},
	}
	fx.svc = NewRewardService(nil, &RewardDependencies{
		RoomRepo:         fx.roomRepo,
		MemberRepo:       fx.memberRepo,
		CharacterRepo:    fx.charRepo,
		TemplateRepo:     newFakeTemplateRepo(testTemplate()),
		FragmentDropRepo: fx.dropRepo,
		RecordRepo:       fx.recordRepo,
		PlayerRecordRepo: fx.playerRepo,
	})
	fx.svc.now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }
	fx.svc.roll = func() float64 { return 0.5 }
	return fx
}

func testTemplate() *game_config.DungeonTemplate {
	return &game_config.DungeonTemplate{
		ID:               "tpl-1",
		DungeonType:      "frost_abyss",
		Name:             "寒渊秘境",
		MinRealm:         3,
		MaxMembers:       5,
		StageCount:       3,
		BranchStage:      2,
		IsActive:         true,
		BaseSpiritStones: 100,
		BaseCultivation:  50,
		BaseContribution: 10,
	}
}

func (fx *rewardFixture) addRoom(id, status string, failedAt int) *game_runtime.DungeonRoom {
	room := &game_runtime.DungeonRoom{
		ID:          id,
		LeaderID:    "c1",
		DungeonType: "frost_abyss",
		Status:      status,
	}
	if failedAt > 0 {
		room.FailedAtStage = null.IntFrom(failedAt)
	}
	fx.roomRepo.rooms[id] = room
	return room
}

func (fx *rewardFixture) addMember(roomID, characterID string) {
	fx.memberRepo.members[roomID] = append(fx.memberRepo.members[roomID], &game_runtime.RoomMember{
		RoomID:      roomID,
		CharacterID: characterID,
		JoinedAt:    time.Now(),
	})
}

func TestSettleInTx_CompletedWithFirstClear(t *testing.T) {
	fx := newRewardFixture(t)
	room := fx.addRoom("room-1", game_runtime.RoomStatusCompleted, 0)
	fx.addMember("room-1", "c1")
	fx.addMember("room-1", "c2")

	rewardSet, err := fx.svc.SettleInTx(context.Background(), nil, room)

	require.NoError(t, err)
	require.Len(t, rewardSet.Members, 2)
	assert.Equal(t, 3, rewardSet.ClearedStages)

	for _, reward := range rewardSet.Members {
		// 3 关基础奖励 × 周首通翻倍
		assert.True(t, reward.IsFirstClear)
		assert.Equal(t, int64(600), reward.SpiritStones)
		assert.Equal(t, int64(300), reward.CultivationPoints)
		assert.Equal(t, int64(60), reward.Contribution)
	}
	assert.True(t, room.RewardsSettled)
	assert.Equal(t, int64(600), fx.charRepo.addedDeltas["c1"].SpiritStones)
	assert.Len(t, fx.playerRepo.records, 2)
}

func TestSettleInTx_SecondSettleRejected(t *testing.T) {
	fx := newRewardFixture(t)
	room := fx.addRoom("room-1", game_runtime.RoomStatusCompleted, 0)
	fx.addMember("room-1", "c1")

	_, err := fx.svc.SettleInTx(context.Background(), nil, room)
	require.NoError(t, err)

	// 幂等：同一房间重复结算直接拒绝，不会二次发奖
	_, err = fx.svc.SettleInTx(context.Background(), nil, room)
	require.Error(t, err)
	assert.True(t, xerrors.IsCode(err, xerrors.CodeRoomAlreadySettled))
	assert.Equal(t, int64(600), fx.charRepo.addedDeltas["c1"].SpiritStones)
}

func TestSettleInTx_FirstClearOncePerWeek(t *testing.T) {
	fx := newRewardFixture(t)
	roomA := fx.addRoom("room-a", game_runtime.RoomStatusCompleted, 0)
	fx.addMember("room-a", "c1")
	roomB := fx.addRoom("room-b", game_runtime.RoomStatusCompleted, 0)
	fx.addMember("room-b", "c1")

	setA, err := fx.svc.SettleInTx(context.Background(), nil, roomA)
	require.NoError(t, err)
	setB, err := fx.svc.SettleInTx(context.Background(), nil, roomB)
	require.NoError(t, err)

	// 同一周第二次通关只有基础奖励
	assert.True(t, setA.Members[0].IsFirstClear)
	assert.Equal(t, int64(600), setA.Members[0].SpiritStones)
	assert.False(t, setB.Members[0].IsFirstClear)
	assert.Equal(t, int64(300), setB.Members[0].SpiritStones)
}

func TestSettleInTx_FirstClearResetsNextWeek(t *testing.T) {
	fx := newRewardFixture(t)
	roomA := fx.addRoom("room-a", game_runtime.RoomStatusCompleted, 0)
	fx.addMember("room-a", "c1")
	roomB := fx.addRoom("room-b", game_runtime.RoomStatusCompleted, 0)
	fx.addMember("room-b", "c1")

	_, err := fx.svc.SettleInTx(context.Background(), nil, roomA)
	require.NoError(t, err)

	// 跨到下一个 ISO 周，首通资格刷新
	fx.svc.now = func() time.Time { return time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC) }
	setB, err := fx.svc.SettleInTx(context.Background(), nil, roomB)
	require.NoError(t, err)
	assert.True(t, setB.Members[0].IsFirstClear)
}

func TestSettleInTx_FailedRunHalvedByClearedStages(t *testing.T) {
	fx := newRewardFixture(t)
	room := fx.addRoom("room-1", game_runtime.RoomStatusFailed, 3) // 第三关失败，过了 2 关
	fx.addMember("room-1", "c1")

	rewardSet, err := fx.svc.SettleInTx(context.Background(), nil, room)

	require.NoError(t, err)
	assert.Equal(t, 2, rewardSet.ClearedStages)
	reward := rewardSet.Members[0]
	// 2 关基础奖励折半，失败没有首通也没有残片
	assert.Equal(t, int64(100), reward.SpiritStones)
	assert.Equal(t, int64(50), reward.CultivationPoints)
	assert.Equal(t, int64(10), reward.Contribution)
	assert.False(t, reward.IsFirstClear)
	assert.Empty(t, reward.Fragments)
}

func TestSettleInTx_NonTerminalRoomRejected(t *testing.T) {
	fx := newRewardFixture(t)
	room := fx.addRoom("room-1", game_runtime.RoomStatusInProgress, 0)

	_, err := fx.svc.SettleInTx(context.Background(), nil, room)

	require.Error(t, err)
	assert.True(t, xerrors.IsCode(err, xerrors.CodeRoomWrongStatus))
}

func TestSettleInTx_FragmentDrops(t *testing.T) {
	fx := newRewardFixture(t)
	fx.dropRepo.drops = map[string][]*game_config.FragmentDrop{
		"frost_abyss": {
			{
				ID:              "drop-1",
				DungeonType:     "frost_abyss",
				FragmentID:      "frag-sword",
				DropRate:        types.NewDecimal(decimal.New(8, 1)), // 0.8
				FirstClearBonus: types.NewDecimal(decimal.New(1, 1)), // 0.1
			},
			{
				ID:              "drop-2",
				DungeonType:     "frost_abyss",
				FragmentID:      "frag-armor",
				DropRate:        types.NewDecimal(decimal.New(1, 1)), // 0.1
				FirstClearBonus: types.NewDecimal(decimal.New(0, 0)),
			},
		},
	}
	room := fx.addRoom("room-1", game_runtime.RoomStatusCompleted, 0)
	fx.addMember("room-1", "c1")
	fx.svc.roll = func() float64 { return 0.5 }

	rewardSet, err := fx.svc.SettleInTx(context.Background(), nil, room)

	require.NoError(t, err)
	reward := rewardSet.Members[0]
	// 0.5 < 0.8+0.1 命中，0.5 >= 0.1 未命中
	assert.Equal(t, []string{"frag-sword"}, reward.Fragments)
}

func TestWeekBucketOf(t *testing.T) {
	// 2026-01-01 是周四，属于 2026 年第 1 周
	assert.Equal(t, "2026-W01", weekBucketOf(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	// 2026-08-31 周一，第 36 周
	assert.Equal(t, "2026-W36", weekBucketOf(time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)))
	// 2027-01-01 是周五，仍属于 2026 年第 53 周
	assert.Equal(t, "2026-W53", weekBucketOf(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestListSettlements(t *testing.T) {
	fx := newRewardFixture(t)
	fx.playerRepo.records = []*game_runtime.PlayerDungeonRecord{
		{ID: "pr-1", CharacterID: "c1", DungeonType: "frost_abyss", SpiritStones: 600},
		{ID: "pr-2", CharacterID: "c2", DungeonType: "frost_abyss", SpiritStones: 300},
	}

	records, err := fx.svc.ListSettlements(context.Background(), "c1", 20, 0)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "pr-1", records[0].ID)

	_, err = fx.svc.ListSettlements(context.Background(), "", 20, 0)
	require.Error(t, err)
	assert.True(t, xerrors.IsCode(err, xerrors.CodeInvalidParams))
}

func TestGetRoomRecord(t *testing.T) {
	fx := newRewardFixture(t)
	fx.recordRepo.records = []*game_runtime.DungeonRecord{
		{ID: "record-1", RoomID: "room-1", DungeonType: "frost_abyss", Result: "success"},
	}

	record, err := fx.svc.GetRoomRecord(context.Background(), "room-1")

	require.NoError(t, err)
	assert.Equal(t, "record-1", record.ID)

	_, err = fx.svc.GetRoomRecord(context.Background(), "room-2")
	require.Error(t, err)
	assert.True(t, xerrors.IsCode(err, xerrors.CodeResourceNotFound))
}
