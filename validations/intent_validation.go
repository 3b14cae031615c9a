package validations

import (
	"context"

	domainSession "github.com/AzielCF/az-chat/domains/session"
	pkgError "github.com/AzielCF/az-chat/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ValidateIntent checks the fields each intent kind needs before it reaches a session.
func ValidateIntent(ctx context.Context, intent domainSession.Intent) error {
	needsChannel := false
	needsUser := false

	switch intent.Kind {
	case domainSession.IntentJoinChannel, domainSession.IntentLeaveChannel:
		needsChannel = true
	case domainSession.IntentUserOnline, domainSession.IntentUserOffline:
		needsUser = true
	case domainSession.IntentTypingStart, domainSession.IntentTypingStop:
		needsChannel = true
		needsUser = true
	default:
		return pkgError.ValidationError("event: unsupported intent " + intent.Kind)
	}

	err := validation.ValidateStructWithContext(ctx, &intent,
		validation.Field(&intent.ChannelID,
			validation.When(needsChannel, validation.Required),
			validation.Length(0, maxIDLength)),
		validation.Field(&intent.UserID,
			validation.When(needsUser, validation.Required),
			validation.Length(0, maxIDLength)),
		validation.Field(&intent.Username, validation.Length(0, 64)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
