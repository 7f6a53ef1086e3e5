package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/hikari-games/guildwar/server/cache"
	"go.uber.org/zap"
)

// Pub/sub channel names.
const (
	ChannelGuildPrefix  = "notify:guild:"  // + guildID
	ChannelPlayerPrefix = "notify:player:" // + playerID
	ChannelEffects      = "effects"
)

const publishTimeout = 2 * time.Second

// Gateway publishes notifications and effect events as JSON messages on the
// pub/sub layer. Delivery is fire-and-forget: a failed publish is logged and
// never fails the command that produced it.
type Gateway struct {
	ps     cache.PubSub
	logger *zap.Logger
}

// NewGateway creates a pub/sub backed notification gateway.
func NewGateway(ps cache.PubSub, logger *zap.Logger) *Gateway {
	return &Gateway{ps: ps, logger: logger}
}

type broadcastMsg struct {
	GuildID string `json:"guild_id"`
	Title   string `json:"title"`
	Body    string `json:"body"`
}

type playerMsg struct {
	PlayerID int64  `json:"player_id"`
	Message  string `json:"message"`
}

type effectMsg struct {
	Op        string  `json:"op"` // apply | remove
	PlayerID  int64   `json:"player_id"`
	GuildID   string  `json:"guild_id"`
	Type      string  `json:"type"`
	Magnitude float64 `json:"magnitude,omitempty"`
}

func (g *Gateway) GuildBroadcast(guildID, title, body string) {
	payload, _ := json.Marshal(&broadcastMsg{GuildID: guildID, Title: title, Body: body})
	g.publish(ChannelGuildPrefix+guildID, payload)
}

func (g *Gateway) PlayerNotify(playerID int64, message string) {
	payload, _ := json.Marshal(&playerMsg{PlayerID: playerID, Message: message})
	g.publish(playerChannel(playerID), payload)
}

func (g *Gateway) ApplyEffect(playerID int64, guildID, effectType string, magnitude float64) {
	payload, _ := json.Marshal(&effectMsg{
		Op: "apply", PlayerID: playerID, GuildID: guildID,
		Type: effectType, Magnitude: magnitude,
	})
	g.publish(ChannelEffects, payload)
}

func (g *Gateway) RemoveEffect(playerID int64, guildID, effectType string) {
	payload, _ := json.Marshal(&effectMsg{
		Op: "remove", PlayerID: playerID, GuildID: guildID, Type: effectType,
	})
	g.publish(ChannelEffects, payload)
}

func (g *Gateway) publish(channel string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := g.ps.Publish(ctx, channel, string(payload)); err != nil {
		g.logger.Warn("notification publish failed",
			zap.String("channel", channel), zap.Error(err))
	}
}

func playerChannel(playerID int64) string {
	return ChannelPlayerPrefix + strconv.FormatInt(playerID, 10)
}
