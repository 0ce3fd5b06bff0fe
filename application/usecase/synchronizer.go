package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/fixora/sessionkit/application/port/outbound"
	"github.com/fixora/sessionkit/domain/valueobject"
	"github.com/fixora/sessionkit/infrastructure/service/logger"
)

// crossTabSynchronizer reconciles independent session state machines across
// processes of the same user session. Each process generates a random origin
// ID at startup and ignores its own echoes.
type crossTabSynchronizer struct {
	originID    string
	port        outbound.BroadcastPort
	logger      logger.Logger
	applyTokens func(*valueobject.TokenPair)
	applyLogout func()
}

func newCrossTabSynchronizer(port outbound.BroadcastPort, log logger.Logger, applyTokens func(*valueobject.TokenPair), applyLogout func()) *crossTabSynchronizer {
	return &crossTabSynchronizer{
		originID:    uuid.New().String(),
		port:        port,
		logger:      log,
		applyTokens: applyTokens,
		applyLogout: applyLogout,
	}
}

func (s *crossTabSynchronizer) Start() {
	s.port.Subscribe(s.handle)
}

func (s *crossTabSynchronizer) Close() error {
	return s.port.Close()
}

func (s *crossTabSynchronizer) BroadcastTokens(ctx context.Context, pair *valueobject.TokenPair) {
	s.publish(ctx, outbound.Envelope{
		Kind:      outbound.KindTokens,
		OriginID:  s.originID,
		TokenPair: pair,
	})
}

func (s *crossTabSynchronizer) BroadcastLogout(ctx context.Context) {
	s.publish(ctx, outbound.Envelope{
		Kind:     outbound.KindLogout,
		OriginID: s.originID,
	})
}

func (s *crossTabSynchronizer) publish(ctx context.Context, env outbound.Envelope) {
	// best-effort: a failed publish costs peers nothing they cannot recover
	// at their next scheduled renewal
	if err := s.port.Publish(ctx, env); err != nil {
		s.logger.Warn(ctx, "Failed to publish broadcast envelope", map[string]interface{}{
			"kind":  string(env.Kind),
			"error": err.Error(),
		})
		return
	}
	logger.LogBroadcastEvent(ctx, s.logger, "published", string(env.Kind), s.originID, nil)
}

func (s *crossTabSynchronizer) handle(env outbound.Envelope) {
	if env.OriginID == s.originID {
		// own echo
		return
	}

	ctx := context.Background()
	logger.LogBroadcastEvent(ctx, s.logger, "received", string(env.Kind), env.OriginID, nil)

	switch env.Kind {
	case outbound.KindTokens:
		if env.TokenPair == nil || !env.TokenPair.Complete() {
			s.logger.Warn(ctx, "Ignoring broadcast with incomplete token pair", map[string]interface{}{
				"origin_id": env.OriginID,
			})
			return
		}
		s.applyTokens(env.TokenPair)
	case outbound.KindLogout:
		s.applyLogout()
	default:
		s.logger.Warn(ctx, "Ignoring broadcast with unknown kind", map[string]interface{}{
			"kind": string(env.Kind),
		})
	}
}
