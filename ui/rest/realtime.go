package rest

import (
	"time"

	coreconfig "github.com/AzielCF/az-chat/core/config"
	domainPresence "github.com/AzielCF/az-chat/domains/presence"
	domainTopic "github.com/AzielCF/az-chat/domains/topic"
	"github.com/AzielCF/az-chat/pkg/msgworker"
	"github.com/AzielCF/az-chat/pkg/utils"
	"github.com/AzielCF/az-chat/ui/websocket"
	"github.com/gofiber/fiber/v2"
)

type HubStatsProvider interface {
	Stats() websocket.HubStats
}

type RealtimeStats struct {
	ServerID string                       `json:"serverId"`
	Uptime   string                       `json:"uptime"`
	Router   domainTopic.RouterStats      `json:"router"`
	Presence domainPresence.RegistryStats `json:"presence"`
	Hub      websocket.HubStats           `json:"hub"`
	Pool     *msgworker.PoolStats         `json:"notificationPool,omitempty"`
}

type Realtime struct {
	Router    domainTopic.ITopicRouter
	Registry  domainPresence.IPresenceRegistry
	Hub       HubStatsProvider
	ServerID  string
	StartedAt time.Time
}

func InitRestRealtime(app fiber.Router, router domainTopic.ITopicRouter, registry domainPresence.IPresenceRegistry, hub HubStatsProvider, serverID string) Realtime {
	rest := Realtime{
		Router:    router,
		Registry:  registry,
		Hub:       hub,
		ServerID:  serverID,
		StartedAt: time.Now(),
	}
	app.Get("/realtime/stats", rest.GetStats)
	app.Get("/health", rest.GetHealth)

	return rest
}

func (handler *Realtime) GetStats(c *fiber.Ctx) error {
	stats := RealtimeStats{
		ServerID: handler.ServerID,
		Uptime:   time.Since(handler.StartedAt).Round(time.Second).String(),
		Router:   handler.Router.Stats(),
		Presence: handler.Registry.Stats(),
		Hub:      handler.Hub.Stats(),
	}
	if notificationPool != nil {
		poolStats := notificationPool.GetStats()
		stats.Pool = &poolStats
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Realtime stats retrieved",
		Results: stats,
	})
}

func (handler *Realtime) GetHealth(c *fiber.Ctx) error {
	results := fiber.Map{"serverId": handler.ServerID}
	if coreconfig.Global != nil {
		results["version"] = coreconfig.Global.App.Version
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "OK",
		Results: results,
	})
}
