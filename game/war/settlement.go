package war

import (
	"context"
	"time"

	"github.com/hikari-games/guildwar/server/game/guild"
	"github.com/hikari-games/guildwar/server/game/quest"
	"go.uber.org/zap"
)

const settleLockTTL = 30 * time.Second

// settle compares scores, distributes rewards, writes a WarRecord into both
// guilds' histories (one store transaction), and discards the live war.
// A SetNX lock keeps two processes sharing a store from settling the same
// war twice. Equal scores go to the defender: the attacker must win
// outright.
func (c *Coordinator) settle(warID string) {
	e, ok := c.lookup(warID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	lockKey := "lock:war-settle:" + warID
	got, err := c.locks.SetNX(ctx, lockKey, "1", settleLockTTL)
	if err != nil || !got {
		c.logger.Warn("war settlement already in progress",
			zap.String("war_id", warID), zap.Error(err))
		return
	}
	defer func() { _ = c.locks.Del(ctx, lockKey) }()

	e.mu.Lock()
	w := e.w
	attackerWins := w.Score.Attacking > w.Score.Defending

	winnerID, loserID := w.DefenderID, w.AttackerID
	if attackerWins {
		winnerID, loserID = w.AttackerID, w.DefenderID
	}
	mvpID := mvp(w)
	date := c.sched.Now()

	attOutcome := guild.WarOutcome{
		Record: &guild.WarRecord{
			WarID:          w.ID,
			OpponentName:   w.DefenderName,
			Result:         resultFor(w.AttackerID, winnerID),
			ScoreAttacking: w.Score.Attacking,
			ScoreDefending: w.Score.Defending,
			Date:           date,
			MVPPlayerID:    mvpID,
		},
	}
	defOutcome := guild.WarOutcome{
		Record: &guild.WarRecord{
			WarID:          w.ID,
			OpponentName:   w.AttackerName,
			Result:         resultFor(w.DefenderID, winnerID),
			ScoreAttacking: w.Score.Attacking,
			ScoreDefending: w.Score.Defending,
			Date:           date,
			MVPPlayerID:    mvpID,
		},
	}
	if attackerWins {
		attOutcome.RewardCurrency = cloneCurrency(w.Rewards.Winner.Currency)
		attOutcome.RewardXP = w.Rewards.Winner.XP
		defOutcome.RewardCurrency = cloneCurrency(w.Rewards.Loser.Currency)
		defOutcome.RewardXP = w.Rewards.Loser.XP
	} else {
		defOutcome.RewardCurrency = cloneCurrency(w.Rewards.Winner.Currency)
		defOutcome.RewardXP = w.Rewards.Winner.XP
		attOutcome.RewardCurrency = cloneCurrency(w.Rewards.Loser.Currency)
		attOutcome.RewardXP = w.Rewards.Loser.XP
	}
	// The MVP bonus lands in the MVP's guild treasury, attributed to the
	// player in the notification.
	mvpBonus := w.Rewards.MVPBonus
	if mvpID != 0 && mvpBonus > 0 {
		if p, ok := w.Participants[mvpID]; ok {
			switch p.GuildID {
			case w.AttackerID:
				attOutcome.RewardCurrency[guild.CurrencyGold] += mvpBonus
			case w.DefenderID:
				defOutcome.RewardCurrency[guild.CurrencyGold] += mvpBonus
			}
		}
	}
	wcp := w.Clone()
	e.mu.Unlock()

	// Both histories commit together or not at all.
	err = c.guilds.RecordWarOutcome(ctx, wcp.AttackerID, wcp.DefenderID, attOutcome, defOutcome,
		func(pctx context.Context, attacker, defender *guild.Guild) error {
			return c.store.SettleWar(pctx, wcp.ID, attacker, defender)
		})
	if err != nil {
		c.logger.Error("war settlement failed",
			zap.String("war_id", warID), zap.Error(err))
		return
	}

	// The live war is discarded; lookups now return not-found.
	c.mu.Lock()
	delete(c.wars, warID)
	if c.byGuild[wcp.AttackerID] == warID {
		delete(c.byGuild, wcp.AttackerID)
	}
	if c.byGuild[wcp.DefenderID] == warID {
		delete(c.byGuild, wcp.DefenderID)
	}
	c.mu.Unlock()

	c.sink.GuildBroadcast(winnerID, "War Won",
		"Your guild is victorious! Spoils have been added to the treasury.")
	c.sink.GuildBroadcast(loserID, "War Lost",
		"The war is over. A participation reward has been added to the treasury.")
	if mvpID != 0 {
		c.sink.PlayerNotify(mvpID, "You were the war MVP and earned a bonus reward!")
	}
	c.reportQuest(ctx, winnerID, quest.KindWarWin, 1)

	c.logger.Info("war settled",
		zap.String("war_id", warID),
		zap.String("winner_id", winnerID),
		zap.Int("score_attacking", wcp.Score.Attacking),
		zap.Int("score_defending", wcp.Score.Defending),
		zap.Int64("mvp_player_id", mvpID),
		zap.Int64("mvp_bonus", mvpBonus))
}

// mvp returns the single participant with the highest individual score
// across both sides; ties go to the lowest player id so the result is
// deterministic. Zero when nobody participated.
func mvp(w *War) int64 {
	var best *Participant
	for _, p := range w.Participants {
		if best == nil ||
			p.Score > best.Score ||
			(p.Score == best.Score && p.PlayerID < best.PlayerID) {
			best = p
		}
	}
	if best == nil {
		return 0
	}
	return best.PlayerID
}

func resultFor(guildID, winnerID string) string {
	if guildID == winnerID {
		return "win"
	}
	return "loss"
}
