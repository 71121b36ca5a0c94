package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aarondl/sqlboiler/v4/boil"
	"github.com/aarondl/sqlboiler/v4/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xiuxian-server/internal/entity/game_runtime"
	"xiuxian-server/internal/pkg/xerrors"
	"xiuxian-server/internal/repository/interfaces"
)

// fakeCharacterRepo 内存版角色仓储，供同包单测复用。
type fakeCharacterRepo struct {
	characters  map[string]*game_runtime.Character
	updateCalls int
	updateErr   error
	addedDeltas map[string]interfaces.RewardDelta
}

func newFakeCharacterRepo(characters ...*game_runtime.Character) *fakeCharacterRepo {
	f := &fakeCharacterRepo{
		characters:  make(map[string]*game_runtime.Character),
		addedDeltas: make(map[string]interfaces.RewardDelta),
	}
	for _, c := range characters {
		f.characters[c.ID] = c
	}
	return f
}

func (f *fakeCharacterRepo) Create(_ context.Context, character *game_runtime.Character) error {
	f.characters[character.ID] = character
	return nil
}

func (f *fakeCharacterRepo) GetByID(_ context.Context, characterID string) (*game_runtime.Character, error) {
	c, ok := f.characters[characterID]
	if !ok {
		return nil, interfaces.ErrCharacterNotFound
	}
	return c, nil
}

func (f *fakeCharacterRepo) GetByIDForUpdate(ctx context.Context, _ *sql.Tx, characterID string) (*game_runtime.Character, error) {
	return f.GetByID(ctx, characterID)
}

func (f *fakeCharacterRepo) ListByIDs(_ context.Context, characterIDs []string) ([]*game_runtime.Character, error) {
	var out []*game_runtime.Character
	for _, id := range characterIDs {
		if c, ok := f.characters[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCharacterRepo) Update(_ context.Context, _ boil.ContextExecutor, character *game_runtime.Character) error {
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	f.characters[character.ID] = character
	return nil
}

func (f *fakeCharacterRepo) AddRewards(_ context.Context, _ boil.ContextExecutor, characterID string, delta interfaces.RewardDelta) error {
	prev := f.addedDeltas[characterID]
	prev.SpiritStones += delta.SpiritStones
	prev.CultivationPoints += delta.CultivationPoints
	prev.Contribution += delta.Contribution
	f.addedDeltas[characterID] = prev
	return nil
}

func (f *fakeCharacterRepo) SetCurrentRoom(_ context.Context, _ boil.ContextExecutor, characterID, roomID string) error {
	c, ok := f.characters[characterID]
	if !ok {
		return interfaces.ErrCharacterNotFound
	}
	if roomID == "" {
		c.CurrentRoomID.Valid = false
		c.CurrentRoomID.String = ""
	} else {
		c.CurrentRoomID.Valid = true
		c.CurrentRoomID.String = roomID
	}
	return nil
}

func (f *fakeCharacterRepo) ClearExpiredFormations(_ context.Context, now time.Time) (int64, error) {
	var cleared int64
	for _, c := range f.characters {
		effect, err := c.DecodeFormation()
		if err != nil || effect == nil {
			continue
		}
		if effect.Expired(now) {
			_ = c.SetFormation(nil)
			cleared++
		}
	}
	return cleared, nil
}

func testCharacter(id string) *game_runtime.Character {
	elements, _ := json.Marshal([]string{ElementFire})
	return &game_runtime.Character{
		ID:           id,
		Name:         "测试角色" + id,
		Realm:        5,
		HP:           200,
		MaxHP:        200,
		Attack:       100,
		Defense:      80,
		Speed:        20,
		Luck:         10,
		AffinityTier: game_runtime.AffinityTierTrue,
		Elements:     types.JSON(elements),
	}
}

func newStatServiceForTest(repo *fakeCharacterRepo, now time.Time) *CombatStatService {
	svc := NewCombatStatService(nil, &CombatStatDependencies{CharacterRepo: repo})
	svc.now = func() time.Time { return now }
	return svc
}

func TestBuildStats_CharacterNotFound(t *testing.T) {
	svc := newStatServiceForTest(newFakeCharacterRepo(), time.Now())

	_, err := svc.BuildStats(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, xerrors.IsCode(err, xerrors.CodeCharacterNotFound))
}

func TestBuildStats_InvalidStats(t *testing.T) {
	broken := testCharacter("c1")
	broken.MaxHP = 0
	svc := newStatServiceForTest(newFakeCharacterRepo(broken), time.Now())

	_, err := svc.BuildStats(context.Background(), "c1")

	require.Error(t, err)
	assert.True(t, xerrors.IsCode(err, xerrors.CodeCombatInvalidStats))
}

func TestBuildStats_FormationApplied(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	character := testCharacter("c1")
	require.NoError(t, character.SetFormation(&game_runtime.FormationEffect{
		DamageReduction: 30,
		Reflect:         10,
		Dodge:           5,
		Counter:         15,
		AttackBonus:     50,
		ExpiresAt:       now.Add(time.Hour),
	}))
	repo := newFakeCharacterRepo(character)
	svc := newStatServiceForTest(repo, now)

	stats, err := svc.BuildStats(context.Background(), "c1")

	require.NoError(t, err)
	assert.Equal(t, 30, stats.DamageReduction)
	assert.Equal(t, 10, stats.Reflect)
	assert.Equal(t, 5, stats.Dodge)
	assert.Equal(t, 15, stats.Counter)
	assert.Equal(t, 150, stats.Attack) // 100 + 50%
	assert.Zero(t, repo.updateCalls)   // 未过期不回写
}

func TestBuildStats_ExpiredFormationLazilyCleared(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	character := testCharacter("c1")
	require.NoError(t, character.SetFormation(&game_runtime.FormationEffect{
		DamageReduction: 30,
		AttackBonus:     50,
		ExpiresAt:       now.Add(-time.Minute),
	}))
	repo := newFakeCharacterRepo(character)
	svc := newStatServiceForTest(repo, now)

	stats, err := svc.BuildStats(context.Background(), "c1")

	require.NoError(t, err)
	assert.Zero(t, stats.DamageReduction)
	assert.Equal(t, 100, stats.Attack)
	assert.Equal(t, 1, repo.updateCalls) // 过期状态被顺手清掉

	formation, err := character.DecodeFormation()
	require.NoError(t, err)
	assert.Nil(t, formation)
}

func TestBuildStats_WritebackFailureNonFatal(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	character := testCharacter("c1")
	require.NoError(t, character.SetFormation(&game_runtime.FormationEffect{
		DamageReduction: 30,
		ExpiresAt:       now.Add(-time.Minute),
	}))
	repo := newFakeCharacterRepo(character)
	repo.updateErr = errors.New("connection reset")
	svc := newStatServiceForTest(repo, now)

	stats, err := svc.BuildStats(context.Background(), "c1")

	// 回写失败只降级，不影响本场快照
	require.NoError(t, err)
	assert.Zero(t, stats.DamageReduction)
	assert.Equal(t, 1, repo.updateCalls)
}

func TestBuildStats_CursePenalties(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	character := testCharacter("c1")
	require.NoError(t, character.SetCurse(&game_runtime.CurseEffect{
		AttackPenalty:  50,
		DefensePenalty: 25,
		ExpiresAt:      now.Add(time.Hour),
	}))
	svc := newStatServiceForTest(newFakeCharacterRepo(character), now)

	stats, err := svc.BuildStats(context.Background(), "c1")

	require.NoError(t, err)
	assert.Equal(t, 50, stats.Attack)  // 100 - 50%
	assert.Equal(t, 60, stats.Defense) // 80 - 25%
}

func TestBuildStats_ExpiredCurseIgnored(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	character := testCharacter("c1")
	require.NoError(t, character.SetCurse(&game_runtime.CurseEffect{
		AttackPenalty: 50,
		ExpiresAt:     now.Add(-time.Minute),
	}))
	repo := newFakeCharacterRepo(character)
	svc := newStatServiceForTest(repo, now)

	stats, err := svc.BuildStats(context.Background(), "c1")

	require.NoError(t, err)
	assert.Equal(t, 100, stats.Attack)
	assert.Equal(t, 1, repo.updateCalls)
}

func TestBuildStats_ElementalCounterGatedByAffinity(t *testing.T) {
	cases := []struct {
		tier string
		want bool
	}{
		{game_runtime.AffinityTierWaste, false},
		{game_runtime.AffinityTierPseudo, false},
		{game_runtime.AffinityTierTrue, false},
		{game_runtime.AffinityTierHeavenly, true},
		{game_runtime.AffinityTierVariant, true},
	}
	for _, tc := range cases {
		character := testCharacter("c1")
		character.AffinityTier = tc.tier
		svc := newStatServiceForTest(newFakeCharacterRepo(character), time.Now())

		stats, err := svc.BuildStats(context.Background(), "c1")

		require.NoError(t, err)
		assert.Equal(t, tc.want, stats.CanElementalCounter, "affinity=%s", tc.tier)
	}
}
