package rest

import (
	"github.com/AzielCF/az-chat/pkg/msgworker"
	"github.com/gofiber/fiber/v2"
)

var notificationPool *msgworker.MessageWorkerPool

// GetNotificationPoolStats returns real-time statistics of the pool that
// fans out CRUD notifications.
func GetNotificationPoolStats(c *fiber.Ctx) error {
	if notificationPool == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Notification worker pool not initialized",
		})
	}

	return c.JSON(notificationPool.GetStats())
}
