package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
)

var (
	ncMu sync.RWMutex
	nc   *nats.Conn
)

// SetNatsConn 设置全局 NATS 连接（由 main 提供）
func SetNatsConn(conn *nats.Conn) {
	ncMu.Lock()
	defer ncMu.Unlock()
	nc = conn
}

// NatsConn 返回全局 NATS 连接，未设置时为 nil。
func NatsConn() *nats.Conn {
	ncMu.RLock()
	defer ncMu.RUnlock()
	return nc
}

// PublishGameEvent 发布游戏事件
func PublishGameEvent(ctx context.Context, subject string, payload interface{}) error {
	ncMu.RLock()
	conn := nc
	ncMu.RUnlock()
	if conn == nil {
		return nil // 没有连接时静默降级
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal game event failed: %w", err)
	}
	return conn.Publish(subject, data)
}

// Default subjects
const (
	SubjectRoomSettled    = "dungeon.room.settled"
	SubjectRoomFinished   = "dungeon.room.finished"
	SubjectBattleReported = "combat.battle.reported"
)

// RoomSettledEvent 房间结算完成事件载荷
type RoomSettledEvent struct {
	RoomID      string   `json:"room_id"`
	DungeonType string   `json:"dungeon_type"`
	Result      string   `json:"result"`
	MemberIDs   []string `json:"member_ids"`
	FirstClears []string `json:"first_clears,omitempty"`
}

// BattleReportedEvent 战报落地事件载荷
type BattleReportedEvent struct {
	BattleID string `json:"battle_id"`
	Kind     string `json:"kind"`
	Outcome  string `json:"outcome"`
	Rounds   int    `json:"rounds"`
}
