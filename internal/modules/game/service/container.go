package service

import (
	"database/sql"

	"xiuxian-server/internal/pkg/locker"
	"xiuxian-server/internal/repository/impl"
	"xiuxian-server/internal/repository/interfaces"
)

// ServiceContainer 游戏服务容器 - 统一管理所有 Repository 和 Service
// 目的：避免重复创建 Repository，简化依赖注入
type ServiceContainer struct {
	// 所有 Repository（共享实例）
	characterRepo    interfaces.CharacterRepository
	roomRepo         interfaces.DungeonRoomRepository
	memberRepo       interfaces.RoomMemberRepository
	templateRepo     interfaces.DungeonTemplateRepository
	encounterRepo    interfaces.StageEncounterRepository
	monsterRepo      interfaces.MonsterRepository
	fragmentDropRepo interfaces.FragmentDropRepository
	recordRepo       interfaces.DungeonRecordRepository
	playerRecordRepo interfaces.PlayerDungeonRecordRepository
	battleReportRepo interfaces.BattleReportRepository

	// 进程内房间/角色互斥锁（与数据库行锁配合使用）
	locks *locker.KeyedLocker

	// 所有 Service（共享实例）
	StatService       *CombatStatService
	CombatService     *CombatService
	RewardService     *RewardService
	DungeonRoomService *DungeonRoomService
}

// NewServiceContainer 创建服务容器
func NewServiceContainer(db *sql.DB) *ServiceContainer {
	c := &ServiceContainer{}

	// 初始化所有 Repository
	c.characterRepo = impl.NewCharacterRepository(db)
	c.roomRepo = impl.NewDungeonRoomRepository(db)
	c.memberRepo = impl.NewRoomMemberRepository(db)
	c.templateRepo = impl.NewDungeonTemplateRepository(db)
	c.encounterRepo = impl.NewStageEncounterRepository(db)
	c.monsterRepo = impl.NewMonsterRepository(db)
	c.fragmentDropRepo = impl.NewFragmentDropRepository(db)
	c.recordRepo = impl.NewDungeonRecordRepository(db)
	c.playerRecordRepo = impl.NewPlayerDungeonRecordRepository(db)
	c.battleReportRepo = impl.NewBattleReportRepository(db)

	c.locks = locker.New()

	// 初始化 StatService（依赖 repository）
	c.StatService = NewCombatStatService(db, &CombatStatDependencies{
		CharacterRepo: c.characterRepo,
	})

	// 初始化 CombatService（依赖 repository 和 StatService）
	c.CombatService = NewCombatService(db, &CombatDependencies{
		StatService:      c.StatService,
		CharacterRepo:    c.characterRepo,
		MonsterRepo:      c.monsterRepo,
		BattleReportRepo: c.battleReportRepo,
	})

	// 初始化 RewardService（依赖 repository）
	c.RewardService = NewRewardService(db, &RewardDependencies{
		RoomRepo:         c.roomRepo,
		MemberRepo:       c.memberRepo,
		CharacterRepo:    c.characterRepo,
		TemplateRepo:     c.templateRepo,
		FragmentDropRepo: c.fragmentDropRepo,
		RecordRepo:       c.recordRepo,
		PlayerRecordRepo: c.playerRecordRepo,
	})

	// 初始化 DungeonRoomService（依赖 repository、StatService、RewardService）
	c.DungeonRoomService = NewDungeonRoomService(db, &DungeonRoomDependencies{
		RoomRepo:         c.roomRepo,
		MemberRepo:       c.memberRepo,
		CharacterRepo:    c.characterRepo,
		TemplateRepo:     c.templateRepo,
		EncounterRepo:    c.encounterRepo,
		BattleReportRepo: c.battleReportRepo,
		StatService:      c.StatService,
		RewardService:    c.RewardService,
		Locks:            c.locks,
	})

	return c
}

// GetStatService 获取战斗属性快照服务
func (c *ServiceContainer) GetStatService() *CombatStatService {
	return c.StatService
}

// GetCombatService 获取战斗服务
func (c *ServiceContainer) GetCombatService() *CombatService {
	return c.CombatService
}

// GetRewardService 获取奖励结算服务
func (c *ServiceContainer) GetRewardService() *RewardService {
	return c.RewardService
}

// GetDungeonRoomService 获取秘境房间服务
func (c *ServiceContainer) GetDungeonRoomService() *DungeonRoomService {
	return c.DungeonRoomService
}

// GetDungeonRoomRepo 获取房间仓储（定时任务清理过期房间用）
func (c *ServiceContainer) GetDungeonRoomRepo() interfaces.DungeonRoomRepository {
	return c.roomRepo
}

// GetCharacterRepo 获取角色仓储（定时任务清扫过期阵法用）
func (c *ServiceContainer) GetCharacterRepo() interfaces.CharacterRepository {
	return c.characterRepo
}
