package guild

import (
	"context"

	"go.uber.org/zap"
)

// WarOutcome is one side's share of a settled war.
type WarOutcome struct {
	Record         *WarRecord
	RewardCurrency map[string]int64
	RewardXP       int
}

// RecordWarOutcome applies a settled war to both guilds under their locks
// (taken in id order): the WarRecord is pushed to the front of each
// history, reward bundles are credited, and reward XP runs the level-up
// loop. persist is then invoked with both updated guilds so the store can
// commit the cross-guild settlement as a single transaction; a persistence
// failure is logged, not propagated; in-memory state stays authoritative.
func (s *Service) RecordWarOutcome(ctx context.Context, attackerID, defenderID string, att, def WarOutcome, persist func(ctx context.Context, attacker, defender *Guild) error) error {
	return s.reg.WithPair(attackerID, defenderID, func(a, d *Guild) error {
		s.applyOutcome(a, att)
		s.applyOutcome(d, def)
		if persist != nil {
			if err := persist(ctx, a, d); err != nil {
				s.logger.Warn("war settlement persist failed",
					zap.String("attacker_id", attackerID),
					zap.String("defender_id", defenderID),
					zap.Error(err))
			}
		}
		return nil
	})
}

func (s *Service) applyOutcome(g *Guild, o WarOutcome) {
	g.WarHistory = append([]*WarRecord{o.Record}, g.WarHistory...)
	if len(g.WarHistory) > s.cfg.WarHistoryCap {
		g.WarHistory = g.WarHistory[:s.cfg.WarHistoryCap]
	}
	for cur, amt := range o.RewardCurrency {
		g.Treasury.Currency[cur] += amt
	}
	s.applyXP(g, o.RewardXP)
}
