package validations

import (
	"context"

	domainFanout "github.com/AzielCF/az-chat/domains/fanout"
	domainPresence "github.com/AzielCF/az-chat/domains/presence"
	pkgError "github.com/AzielCF/az-chat/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const maxIDLength = 128

func ValidateSetPresence(ctx context.Context, request domainFanout.SetPresenceRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.UserID, validation.Required, validation.Length(1, maxIDLength)),
		validation.Field(&request.ChannelID, validation.Length(0, maxIDLength)),
		validation.Field(&request.Status, validation.Required, validation.In(domainPresence.StatusOnline, domainPresence.StatusOffline)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateUserID(ctx context.Context, userID string) error {
	err := validation.ValidateWithContext(ctx, userID, validation.Required, validation.Length(1, maxIDLength))
	if err != nil {
		return pkgError.ValidationError("userId: " + err.Error())
	}
	return nil
}

func ValidateChannelQuery(ctx context.Context, channelID string) error {
	err := validation.ValidateWithContext(ctx, channelID, validation.Length(0, maxIDLength))
	if err != nil {
		return pkgError.ValidationError("channelId: " + err.Error())
	}
	return nil
}
