package tasks

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"xiuxian-server/internal/pkg/log"
	"xiuxian-server/internal/repository/interfaces"
)

// FormationSweepTask 过期阵法清扫任务。
// 阵法在读取时已经惰性清理，这里兜底清掉长期不上线角色身上的过期阵法，
// 避免排行榜等离线读取路径拿到过期加成。
type FormationSweepTask struct {
	characterRepo interfaces.CharacterRepository
	logger        log.Logger
	cron          *cron.Cron
}

// NewFormationSweepTask 创建过期阵法清扫任务实例
func NewFormationSweepTask(characterRepo interfaces.CharacterRepository, logger log.Logger) *FormationSweepTask {
	return &FormationSweepTask{
		characterRepo: characterRepo,
		logger:        logger,
	}
}

// Start 启动定时任务
func (t *FormationSweepTask) Start() {
	t.cron = cron.New(cron.WithSeconds())

	// 每30分钟清扫一次过期阵法
	_, err := t.cron.AddFunc("0 */30 * * * *", func() {
		t.sweepExpiredFormations()
	})
	if err != nil {
		t.logger.Error("【定时任务】添加过期阵法清扫任务失败", err)
		return
	}

	t.cron.Start()
	t.logger.Info("【定时任务】已启动 - 每30分钟清扫过期阵法")
}

// sweepExpiredFormations 批量清除已过期的阵法
func (t *FormationSweepTask) sweepExpiredFormations() {
	ctx := context.Background()

	cleared, err := t.characterRepo.ClearExpiredFormations(ctx, time.Now())
	if err != nil {
		t.logger.Error("【定时任务】清扫过期阵法失败", err)
		return
	}
	if cleared > 0 {
		t.logger.Info("【定时任务】过期阵法清扫完成", "cleared", cleared)
	}
}

// Stop 停止定时任务
func (t *FormationSweepTask) Stop() {
	if t.cron != nil {
		t.cron.Stop()
	}
}
