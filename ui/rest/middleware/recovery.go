package middleware

import (
	"fmt"

	pkgError "github.com/AzielCF/az-chat/pkg/error"
	"github.com/AzielCF/az-chat/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Recovery renders panics raised through utils.PanicIfNeeded. Known errors
// keep their status and code; anything else becomes a 500.
func Recovery() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		defer func() {
			err := recover()
			if err == nil {
				return
			}

			res := utils.ResponseData{
				Status:  fiber.StatusInternalServerError,
				Code:    "INTERNAL_SERVER_ERROR",
				Message: fmt.Sprintf("%v", err),
			}

			if known, ok := err.(pkgError.GenericError); ok {
				res.Status = known.StatusCode()
				res.Code = known.ErrCode()
				res.Message = known.Error()
				logrus.Debugf("[REST] %s %s -> %d %s", ctx.Method(), ctx.Path(), res.Status, res.Message)
			} else {
				logrus.Errorf("[REST] Panic recovered on %s %s: %v", ctx.Method(), ctx.Path(), err)
			}

			_ = ctx.Status(res.Status).JSON(res)
		}()

		return ctx.Next()
	}
}
