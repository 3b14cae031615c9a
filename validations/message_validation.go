package validations

import (
	"context"

	domainFanout "github.com/AzielCF/az-chat/domains/fanout"
	pkgError "github.com/AzielCF/az-chat/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func ValidateMessageEvent(ctx context.Context, request domainFanout.MessageEventRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.ChannelID, validation.Required, validation.Length(1, maxIDLength)),
		validation.Field(&request.Type, validation.Required, validation.In(
			domainFanout.MessageCreated,
			domainFanout.MessageEdited,
			domainFanout.MessageDeleted,
		)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	msg := request.Message
	err = validation.ValidateStructWithContext(ctx, &msg,
		validation.Field(&msg.ID, validation.Required, validation.Length(1, maxIDLength)),
		validation.Field(&msg.ChannelID, validation.In(request.ChannelID).Error("must match the channel in the path")),
	)
	if err != nil {
		return pkgError.ValidationError("message: " + err.Error())
	}

	return nil
}
