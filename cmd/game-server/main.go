package main

import (
	"fmt"
	"os"
	"time"

	"xiuxian-server/internal/modules/game"
	"xiuxian-server/internal/pkg/notify"

	"github.com/liangdas/mqant"
	"github.com/liangdas/mqant/module"
	"github.com/liangdas/mqant/registry"
	"github.com/liangdas/mqant/registry/consul"
	"github.com/nats-io/nats.go"
)

func main() {
	fmt.Println("==============================================")
	fmt.Println("  Xiuxian Game Server")
	fmt.Println("  Version: 1.0.0")
	fmt.Println("==============================================")
	fmt.Println()

	// Consul address
	consulAddr := os.Getenv("CONSUL_ADDRESS")
	if consulAddr == "" {
		consulAddr = "localhost:8500"
	}
	fmt.Printf("[Main] Consul address: %s\n", consulAddr)

	// NATS address
	natsAddr := os.Getenv("NATS_ADDRESS")
	if natsAddr == "" {
		natsAddr = "localhost:4222"
	}
	fmt.Printf("[Main] NATS address: %s\n", natsAddr)

	// Connect to NATS
	nc, err := nats.Connect("nats://"+natsAddr,
		nats.MaxReconnects(10),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		fmt.Printf("[Main] Failed to connect to NATS: %v\n", err)
		return
	}
	fmt.Println("[Main] Connected to NATS successfully")
	// 设置全局通知通道（战报与结算事件广播）
	notify.SetNatsConn(nc)

	// Create Consul registry
	rs := consul.NewRegistry(func(options *registry.Options) {
		options.Addrs = []string{consulAddr}
	})

	// Create mqant app with configuration
	// 注意：RegisterTTL 和 RegisterInterval 应该在各个模块的 OnInit 中配置
	// 而不是在全局 app 配置中设置（参考 mqant 官方文档）
	app := mqant.CreateApp(
		module.Configure("./configs/server/game-server.json"),
		module.Debug(false),
		module.Nats(nc),
		module.Registry(rs),
	)

	fmt.Println("[Main] Configuration loaded")

	app.Run(
		game.Module(),
	)
}
