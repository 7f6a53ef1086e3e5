package guild

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Contribution validation failures.
var (
	ErrInvalidContribution = errors.New("contribution amount must be positive")
	ErrContributionTooLow  = errors.New("contribution below guild minimum")
)

// ContributeResult reports the effect of one contribution.
type ContributeResult struct {
	XPAwarded    int   `json:"xp_awarded"`
	LevelsGained int   `json:"levels_gained"`
	GuildLevel   int   `json:"guild_level"`
	GuildXP      int   `json:"guild_xp"`
	Balance      int64 `json:"balance"`
}

// Contribute adds to the guild treasury, bumps the member's contribution
// counters, and awards guild XP equal to amount / xp_per_contribution.
// Amounts below the guild's configured minimum are rejected.
func (s *Service) Contribute(ctx context.Context, guildID string, playerID int64, kind string, amount int64) (ContributeResult, error) {
	if amount <= 0 {
		return ContributeResult{}, ErrInvalidContribution
	}
	var res ContributeResult
	err := s.reg.With(guildID, func(g *Guild) error {
		m := g.Member(playerID)
		if m == nil {
			return ErrNotGuildMember
		}
		if amount < g.Settings.MinContribution {
			return ErrContributionTooLow
		}

		balance := func() int64 { return g.Treasury.Items[kind] }
		if IsCurrency(kind) {
			g.Treasury.Currency[kind] += amount
			balance = func() int64 { return g.Treasury.Currency[kind] }
		} else {
			g.Treasury.Items[kind] += amount
		}
		m.WeeklyContribution += amount
		m.TotalContribution += amount
		m.LastActiveAt = s.clock.Now()
		g.WeeklyContribution += amount

		xp := int(amount / int64(s.cfg.XPPerContribution))
		res = ContributeResult{
			XPAwarded:    xp,
			LevelsGained: s.applyXP(g, xp),
			GuildLevel:   g.Level,
			GuildXP:      g.XP,
			Balance:      balance(),
		}
		s.flush(g)
		return nil
	})
	return res, err
}

// AwardXP grants guild XP from outside the contribution path (quest
// completion, war rewards) and runs the level-up loop.
func (s *Service) AwardXP(ctx context.Context, guildID string, xp int, reason string) error {
	if xp <= 0 {
		return nil
	}
	return s.reg.With(guildID, func(g *Guild) error {
		s.applyXP(g, xp)
		s.flush(g)
		s.logger.Info("guild xp awarded",
			zap.String("guild_id", guildID),
			zap.Int("xp", xp),
			zap.String("reason", reason))
		return nil
	})
}

// CreditCurrency adds currency to the treasury without a contributing
// member (quest payouts, system grants).
func (s *Service) CreditCurrency(ctx context.Context, guildID, currency string, amount int64) error {
	if amount <= 0 || !IsCurrency(currency) {
		return ErrInvalidContribution
	}
	return s.reg.With(guildID, func(g *Guild) error {
		g.Treasury.Currency[currency] += amount
		s.flush(g)
		return nil
	})
}

// applyXP adds XP and runs the level-up loop. Each level gained raises the
// member cap, re-evaluates perk eligibility, and emits a broadcast.
// Caller holds the guild lock.
func (s *Service) applyXP(g *Guild, xp int) int {
	g.XP += xp
	levels := 0
	for g.XP >= g.XPToNextLevel {
		g.XP -= g.XPToNextLevel
		g.Level++
		levels++
		g.XPToNextLevel = s.xpThreshold(g.Level)
		g.MaxMembers = s.maxMembersFor(g.Level)

		s.sink.GuildBroadcast(g.ID, "Guild Level Up",
			fmt.Sprintf("The guild has reached level %d!", g.Level))
		for _, d := range s.catalog {
			if d.RequiredLevel == g.Level {
				s.sink.GuildBroadcast(g.ID, "Perk Unlocked",
					fmt.Sprintf("%s can now be upgraded.", d.Name))
			}
		}
	}
	return levels
}

// xpThreshold computes the XP needed to clear the given level:
// base * level * 1.5^(level-1). Strictly increasing in level.
func (s *Service) xpThreshold(level int) int {
	base := float64(s.cfg.BaseXPThreshold * level)
	return int(base * math.Pow(1.5, float64(level-1)))
}

// ResetWeeklyContributions zeroes every member's weekly counter. Run by the
// weekly scheduler tick.
func (s *Service) ResetWeeklyContributions(ctx context.Context) {
	for _, id := range s.reg.IDs() {
		_ = s.reg.With(id, func(g *Guild) error {
			g.WeeklyContribution = 0
			for _, m := range g.Members {
				m.WeeklyContribution = 0
			}
			s.flush(g)
			return nil
		})
	}
}
