package tasks

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"xiuxian-server/internal/modules/game/service"
	"xiuxian-server/internal/pkg/log"
	"xiuxian-server/internal/repository/interfaces"
)

// 等待房间的默认存活时长，超时未开荒自动解散
const defaultRoomIdleTTLHours = 2

// 单次清理最多处理的房间数
const cleanupBatchSize = 100

// RoomCleanupTask 过期房间清理任务。
// 等待中的房间超过存活时长仍未开荒，视为弃置并强制解散，
// 释放成员身上的所在房间引用。
type RoomCleanupTask struct {
	roomRepo    interfaces.DungeonRoomRepository
	roomService *service.DungeonRoomService
	logger      log.Logger
	cron        *cron.Cron
	idleTTL     time.Duration
}

// NewRoomCleanupTask 创建过期房间清理任务实例
func NewRoomCleanupTask(roomRepo interfaces.DungeonRoomRepository, roomService *service.DungeonRoomService, logger log.Logger) *RoomCleanupTask {
	ttlHours := defaultRoomIdleTTLHours
	if v := os.Getenv("ROOM_IDLE_TTL_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttlHours = n
		}
	}
	return &RoomCleanupTask{
		roomRepo:    roomRepo,
		roomService: roomService,
		logger:      logger,
		idleTTL:     time.Duration(ttlHours) * time.Hour,
	}
}

// Start 启动定时任务
func (t *RoomCleanupTask) Start() {
	t.cron = cron.New(cron.WithSeconds())

	// 每10分钟扫一次等待超时的房间
	_, err := t.cron.AddFunc("0 */10 * * * *", func() {
		t.cleanupExpiredRooms()
	})
	if err != nil {
		t.logger.Error("【定时任务】添加过期房间清理任务失败", err)
		return
	}

	t.cron.Start()
	t.logger.Info("【定时任务】已启动 - 每10分钟清理超时未开荒的房间", "idle_ttl", t.idleTTL.String())
}

// cleanupExpiredRooms 扫描并解散超时的等待房间
func (t *RoomCleanupTask) cleanupExpiredRooms() {
	ctx := context.Background()
	cutoff := time.Now().Add(-t.idleTTL)

	rooms, err := t.roomRepo.ListWaitingBefore(ctx, cutoff, cleanupBatchSize)
	if err != nil {
		t.logger.Error("【定时任务】查询超时房间失败", err)
		return
	}
	if len(rooms) == 0 {
		return
	}

	disbanded := 0
	for _, room := range rooms {
		if err := t.roomService.ForceDisband(ctx, room.ID, "等待超时自动解散"); err != nil {
			// 并发下房间可能刚被开荒或解散，跳过即可
			t.logger.Warn("【定时任务】解散超时房间失败", "room_id", room.ID, "error", err)
			continue
		}
		disbanded++
	}

	t.logger.Info("【定时任务】超时房间清理完成", "scanned", len(rooms), "disbanded", disbanded)
}

// Stop 停止定时任务
func (t *RoomCleanupTask) Stop() {
	if t.cron != nil {
		t.cron.Stop()
	}
}
