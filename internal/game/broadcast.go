package game

import "go.uber.org/zap"

// Broadcaster delivers game status lines to an audience, usually the chat
// room of the table the game is played at.
type Broadcaster interface {
	Broadcast(audience, message string) error
}

func (g *Game) broadcast(msg string) {
	if g.broadcaster == nil || g.replay != nil {
		return
	}
	if err := g.broadcaster.Broadcast(g.audience, msg); err != nil {
		g.logger.Debug("broadcast failed",
			zap.String("audience", g.audience),
			zap.Error(err))
	}
}
