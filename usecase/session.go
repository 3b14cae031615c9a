package usecase

import (
	"sync"

	domainFanout "github.com/AzielCF/az-chat/domains/fanout"
	domainPresence "github.com/AzielCF/az-chat/domains/presence"
	domainSession "github.com/AzielCF/az-chat/domains/session"
	domainTopic "github.com/AzielCF/az-chat/domains/topic"
	"github.com/sirupsen/logrus"
)

// connectionSession serializes the intents of one live connection. Closing
// it removes the connection from every topic and leaves presence untouched;
// presence follows heartbeats only.
type connectionSession struct {
	id     string
	router domainTopic.ITopicRouter
	fanout domainFanout.IFanoutUsecase

	mu     sync.Mutex
	state  domainSession.State
	userID string
}

// NewConnectionSession starts in Connecting. userID may be empty when the
// upgrade request carried no identity; user-online binds it later.
func NewConnectionSession(id, userID string, router domainTopic.ITopicRouter, fanout domainFanout.IFanoutUsecase) domainSession.ISession {
	return &connectionSession{
		id:     id,
		router: router,
		fanout: fanout,
		state:  domainSession.StateConnecting,
		userID: userID,
	}
}

func (s *connectionSession) ID() string {
	return s.id
}

func (s *connectionSession) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *connectionSession) State() domainSession.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *connectionSession) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domainSession.StateConnecting {
		return domainSession.ErrSessionNotOpen
	}
	s.state = domainSession.StateOpen
	logrus.Debugf("[SESSION] %s open (user %q)", s.id, s.userID)
	return nil
}

func (s *connectionSession) HandleIntent(intent domainSession.Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domainSession.StateOpen {
		return domainSession.ErrSessionNotOpen
	}

	switch intent.Kind {
	case domainSession.IntentJoinChannel:
		s.router.Subscribe(domainTopic.ChannelTopic(intent.ChannelID), s.id)

	case domainSession.IntentLeaveChannel:
		s.router.Unsubscribe(domainTopic.ChannelTopic(intent.ChannelID), s.id)

	case domainSession.IntentUserOnline:
		if err := s.bindUser(intent.UserID); err != nil {
			return err
		}
		s.router.Subscribe(domainTopic.UserTopic(intent.UserID), s.id)
		s.fanout.NotifyPresenceChanged(intent.UserID, domainPresence.StatusOnline)

	case domainSession.IntentUserOffline:
		if err := s.checkUser(intent.UserID); err != nil {
			return err
		}
		s.router.Unsubscribe(domainTopic.UserTopic(intent.UserID), s.id)
		s.fanout.NotifyPresenceChanged(intent.UserID, domainPresence.StatusOffline)

	case domainSession.IntentTypingStart:
		if err := s.checkUser(intent.UserID); err != nil {
			return err
		}
		s.fanout.NotifyTypingStart(intent.ChannelID, intent.UserID, intent.Username, s.id)

	case domainSession.IntentTypingStop:
		if err := s.checkUser(intent.UserID); err != nil {
			return err
		}
		s.fanout.NotifyTypingStop(intent.ChannelID, intent.UserID, s.id)

	default:
		return domainSession.ErrUnknownIntent
	}

	return nil
}

// caller holds s.mu
func (s *connectionSession) bindUser(userID string) error {
	if err := s.checkUser(userID); err != nil {
		return err
	}
	s.userID = userID
	return nil
}

// caller holds s.mu
func (s *connectionSession) checkUser(userID string) error {
	if s.userID != "" && s.userID != userID {
		return domainSession.ErrIdentityMismatch
	}
	return nil
}

func (s *connectionSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domainSession.StateClosed {
		return
	}
	s.state = domainSession.StateClosed
	s.router.UnsubscribeAll(s.id)
	logrus.Debugf("[SESSION] %s closed", s.id)
}
