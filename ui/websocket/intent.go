package websocket

import (
	"bytes"
	"encoding/json"

	domainSession "github.com/AzielCF/az-chat/domains/session"
	pkgError "github.com/AzielCF/az-chat/pkg/error"
)

const EventError = "error"

type ErrorPayload struct {
	Event   string `json:"event,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ParseIntent decodes a client frame. data may be a bare id string
// ("join-channel", "42") or an object with channelId, userId and username.
func ParseIntent(raw []byte) (domainSession.Intent, error) {
	var frame domainSession.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return domainSession.Intent{}, pkgError.ValidationError("malformed frame: " + err.Error())
	}

	intent := domainSession.Intent{Kind: frame.Event}
	data := bytes.TrimSpace(frame.Data)

	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
	case data[0] == '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return intent, pkgError.ValidationError("malformed data: " + err.Error())
		}
		switch frame.Event {
		case domainSession.IntentJoinChannel, domainSession.IntentLeaveChannel:
			intent.ChannelID = id
		case domainSession.IntentUserOnline, domainSession.IntentUserOffline:
			intent.UserID = id
		default:
			return intent, pkgError.ValidationError("data: " + frame.Event + " expects an object")
		}
	case data[0] == '{':
		if err := json.Unmarshal(data, &intent); err != nil {
			return intent, pkgError.ValidationError("malformed data: " + err.Error())
		}
	default:
		return intent, pkgError.ValidationError("data: must be a string or an object")
	}

	return intent, nil
}

func errorPayload(kind string, err error) ErrorPayload {
	p := ErrorPayload{Event: kind, Code: "INTERNAL_SERVER_ERROR", Message: err.Error()}
	if generic, ok := err.(pkgError.GenericError); ok {
		p.Code = generic.ErrCode()
	} else {
		switch err {
		case domainSession.ErrSessionNotOpen, domainSession.ErrUnknownIntent:
			p.Code = "BAD_REQUEST"
		case domainSession.ErrIdentityMismatch:
			p.Code = "FORBIDDEN"
		}
	}
	return p
}
