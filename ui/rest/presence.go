package rest

import (
	domainFanout "github.com/AzielCF/az-chat/domains/fanout"
	"github.com/AzielCF/az-chat/pkg/utils"
	"github.com/AzielCF/az-chat/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
)

type Presence struct {
	Service domainFanout.IFanoutUsecase
}

func InitRestPresence(app fiber.Router, service domainFanout.IFanoutUsecase, identityHeader string) Presence {
	rest := Presence{Service: service}

	group := app.Group("/presence", middleware.Identity(identityHeader))
	group.Post("/", rest.SetPresence)
	group.Get("/", rest.GetOnlineUsers)
	group.Get("/users/:userId", rest.GetUserPresence)

	return rest
}

func (handler *Presence) SetPresence(c *fiber.Ctx) error {
	var request domainFanout.SetPresenceRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}
	request.UserID = middleware.CurrentUserID(c)

	err := handler.Service.SetPresence(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Presence updated",
	})
}

func (handler *Presence) GetOnlineUsers(c *fiber.Ctx) error {
	online, err := handler.Service.GetOnlineUsers(c.UserContext(), c.Query("channelId"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Online users retrieved",
		Results: online,
	})
}

func (handler *Presence) GetUserPresence(c *fiber.Ctx) error {
	presence, err := handler.Service.GetUserPresence(c.UserContext(), c.Params("userId"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "User presence retrieved",
		Results: presence,
	})
}
