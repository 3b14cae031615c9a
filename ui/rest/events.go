package rest

import (
	"context"

	domainFanout "github.com/AzielCF/az-chat/domains/fanout"
	pkgError "github.com/AzielCF/az-chat/pkg/error"
	"github.com/AzielCF/az-chat/pkg/msgworker"
	"github.com/AzielCF/az-chat/pkg/utils"
	"github.com/AzielCF/az-chat/validations"
	"github.com/gofiber/fiber/v2"
)

// Events receives notifications from the CRUD layer after it has stored a change.
type Events struct {
	Service domainFanout.IFanoutUsecase
	Pool    *msgworker.MessageWorkerPool
}

func InitRestEvents(app fiber.Router, service domainFanout.IFanoutUsecase, pool *msgworker.MessageWorkerPool) Events {
	rest := Events{Service: service, Pool: pool}
	notificationPool = pool

	app.Post("/channels/:channelId/events/messages", rest.PublishMessageEvent)
	app.Get("/realtime/notification-pool/stats", GetNotificationPoolStats)

	return rest
}

func (handler *Events) PublishMessageEvent(c *fiber.Ctx) error {
	var request domainFanout.MessageEventRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}
	request.ChannelID = c.Params("channelId")

	err := validations.ValidateMessageEvent(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	queued := handler.Pool.TryDispatch(msgworker.MessageJob{
		ChannelID: request.ChannelID,
		Kind:      string(request.Type),
		Handler: func(ctx context.Context) error {
			_, err := handler.Service.NotifyMessage(ctx, request)
			return err
		},
	})
	if !queued {
		utils.PanicIfNeeded(pkgError.ServiceUnavailableError("notification queue is full, retry later"))
	}

	return c.Status(fiber.StatusAccepted).JSON(utils.ResponseData{
		Status:  fiber.StatusAccepted,
		Code:    "ACCEPTED",
		Message: "Message event queued",
	})
}
