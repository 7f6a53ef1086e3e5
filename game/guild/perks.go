package guild

import (
	"context"
	"fmt"
)

// UpgradePerk purchases the next level of a perk from the treasury and
// re-applies the effect to every current member. Only the leader or an
// officer may spend treasury.
func (s *Service) UpgradePerk(ctx context.Context, guildID string, requesterID int64, perkID string) (PerkState, error) {
	def, ok := s.catalog[perkID]
	if !ok {
		return PerkState{}, ErrPerkNotFound
	}
	var out PerkState
	err := s.reg.With(guildID, func(g *Guild) error {
		req := g.Member(requesterID)
		if req == nil {
			return ErrNotGuildMember
		}
		if req.Role != RoleLeader && req.Role != RoleOfficer {
			return ErrInsufficientRank
		}

		state := g.Perk(perkID)
		next := 1
		if state != nil {
			next = state.Level + 1
		}
		if next > def.MaxLevel {
			return ErrPerkMaxLevel
		}
		if g.Level < def.RequiredLevel {
			return ErrPerkRequirementUnmet
		}
		cost := def.CostAt(next)
		if g.Treasury.Currency[def.Currency] < cost {
			return ErrInsufficientTreasury
		}

		g.Treasury.Currency[def.Currency] -= cost
		if state == nil {
			state = &PerkState{ID: def.ID, EffectType: def.EffectType}
			g.Perks = append(g.Perks, state)
		}
		state.Level = next
		state.Magnitude = def.MagnitudeAt(next)

		for _, m := range g.Members {
			s.effects.ApplyEffect(m.PlayerID, g.ID, state.EffectType, state.Magnitude)
		}
		s.sink.GuildBroadcast(g.ID, "Perk Upgraded",
			fmt.Sprintf("%s is now level %d.", def.Name, state.Level))
		s.flush(g)
		out = *state
		return nil
	})
	return out, err
}
