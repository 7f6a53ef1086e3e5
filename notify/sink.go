// Package notify carries domain events out of the engine: guild broadcasts,
// direct player notifications, and perk effect application events consumed
// by the player's runtime stat system.
package notify

// Sink receives player-facing notifications.
type Sink interface {
	// GuildBroadcast delivers a message to every member of a guild.
	GuildBroadcast(guildID, title, body string)
	// PlayerNotify delivers a direct message to one player.
	PlayerNotify(playerID int64, message string)
}

// EffectSink receives perk effect apply/remove events.
type EffectSink interface {
	ApplyEffect(playerID int64, guildID, effectType string, magnitude float64)
	RemoveEffect(playerID int64, guildID, effectType string)
}
