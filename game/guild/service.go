package guild

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hikari-games/guildwar/server/config"
	"github.com/hikari-games/guildwar/server/notify"
	"github.com/hikari-games/guildwar/server/scheduler"
	"go.uber.org/zap"
)

// tagLength is the normalized guild tag length.
const tagLength = 4

const flushTimeout = 5 * time.Second

// ErrInvalidTag is returned when a guild tag is shorter than 3 characters.
var ErrInvalidTag = errors.New("guild tag must be at least 3 characters")

// Store is the persistence collaborator for guild aggregates. The engine
// treats in-memory state as authoritative; a failed save is retried by the
// store layer, not by the engine.
type Store interface {
	SaveGuild(ctx context.Context, g *Guild) error
	DeleteGuild(ctx context.Context, guildID string) error
}

// Service owns all guild aggregates and serializes commands per guild.
type Service struct {
	cfg     config.GuildConfig
	reg     *Registry
	catalog Catalog
	store   Store
	sink    notify.Sink
	effects notify.EffectSink
	clock   scheduler.Clock
	logger  *zap.Logger
}

// NewService creates a guild Service with the default perk catalog.
func NewService(cfg config.GuildConfig, store Store, sink notify.Sink, effects notify.EffectSink, clock scheduler.Clock, logger *zap.Logger) *Service {
	if clock == nil {
		clock = scheduler.NewRealClock()
	}
	return &Service{
		cfg:     cfg,
		reg:     NewRegistry(),
		catalog: DefaultCatalog(),
		store:   store,
		sink:    sink,
		effects: effects,
		clock:   clock,
		logger:  logger,
	}
}

// Catalog returns the perk catalog.
func (s *Service) Catalog() Catalog { return s.catalog }

// GuildOf returns the guild id the player belongs to, or "".
func (s *Service) GuildOf(playerID int64) string { return s.reg.GuildOf(playerID) }

// Snapshot returns a deep copy of one guild.
func (s *Service) Snapshot(guildID string) (*Guild, error) { return s.reg.Snapshot(guildID) }

// Search returns guild summaries matching q.
func (s *Service) Search(q string) []Summary { return s.reg.Search(q) }

// Count returns the number of registered guilds.
func (s *Service) Count() int { return s.reg.Count() }

// CreateGuild creates a new guild with the creator as sole leader member.
// The tag is upper-cased and truncated to 4 characters.
func (s *Service) CreateGuild(ctx context.Context, name, tag string, leaderID int64) (*Guild, error) {
	tag = strings.ToUpper(strings.TrimSpace(tag))
	if len(tag) < 3 {
		return nil, ErrInvalidTag
	}
	if len(tag) > tagLength {
		tag = tag[:tagLength]
	}

	now := s.clock.Now()
	g := &Guild{
		ID:            uuid.New().String(),
		Name:          strings.TrimSpace(name),
		Tag:           tag,
		Level:         1,
		XPToNextLevel: s.xpThreshold(1),
		MaxMembers:    s.maxMembersFor(1),
		Treasury: Treasury{
			Currency: map[string]int64{CurrencyGold: s.cfg.InitialGold},
			Items:    map[string]int64{},
		},
		Perks:      []*PerkState{},
		WarHistory: []*WarRecord{},
		LeaderID:   leaderID,
		OfficerIDs: []int64{},
		Settings:   Settings{JoinPolicy: JoinPolicyOpen},
		CreatedAt:  now,
		Members: []*Member{{
			PlayerID:     leaderID,
			Role:         RoleLeader,
			JoinedAt:     now,
			LastActiveAt: now,
		}},
	}
	if !s.reg.claimMember(leaderID, g.ID) {
		return nil, ErrAlreadyInGuild
	}
	if err := s.reg.Add(g); err != nil {
		s.reg.unclaimMember(leaderID, g.ID)
		return nil, err
	}
	s.flush(g)
	s.logger.Info("guild created",
		zap.String("guild_id", g.ID),
		zap.String("name", g.Name),
		zap.Int64("leader_id", leaderID))
	return g.Clone(), nil
}

// JoinGuild appends a member-role entry and applies active perk effects to
// the joining player. Fails with ErrGuildNotOpen for invite-only guilds and
// ErrGuildFull at capacity.
func (s *Service) JoinGuild(ctx context.Context, guildID string, playerID int64) error {
	// Claim the membership slot up front so two concurrent joins by the
	// same player cannot both pass the already-in-guild check.
	if !s.reg.claimMember(playerID, guildID) {
		return ErrAlreadyInGuild
	}
	err := s.reg.With(guildID, func(g *Guild) error {
		if g.Settings.JoinPolicy == JoinPolicyInviteOnly {
			return ErrGuildNotOpen
		}
		if len(g.Members) >= g.MaxMembers {
			return ErrGuildFull
		}
		now := s.clock.Now()
		g.Members = append(g.Members, &Member{
			PlayerID:     playerID,
			Role:         RoleMember,
			JoinedAt:     now,
			LastActiveAt: now,
		})
		for _, p := range g.Perks {
			s.effects.ApplyEffect(playerID, g.ID, p.EffectType, p.Magnitude)
		}
		s.sink.GuildBroadcast(g.ID, "Member Joined", "A new member has joined the guild.")
		s.flush(g)
		return nil
	})
	if err != nil {
		s.reg.unclaimMember(playerID, guildID)
	}
	return err
}

// LeaveResult reports the outcome of a leave or kick.
type LeaveResult struct {
	// Disbanded is set when the last member left and the guild was released.
	// Disbandment is a valid terminal outcome, not an error.
	Disbanded   bool  `json:"disbanded"`
	NewLeaderID int64 `json:"new_leader_id,omitempty"`
}

// LeaveGuild removes the player from their guild. If the leader leaves,
// succession promotes an officer (join order), else the member with the
// highest total contribution (ties by join order). An empty guild disbands.
func (s *Service) LeaveGuild(ctx context.Context, playerID int64) (LeaveResult, error) {
	guildID := s.reg.GuildOf(playerID)
	if guildID == "" {
		return LeaveResult{}, ErrNotGuildMember
	}
	return s.removeFromGuild(ctx, guildID, playerID)
}

// KickMember removes a target member. Only the leader or an officer may
// kick, and the leader cannot be kicked.
func (s *Service) KickMember(ctx context.Context, guildID string, requesterID, targetID int64) (LeaveResult, error) {
	var allowed bool
	err := s.reg.With(guildID, func(g *Guild) error {
		req := g.Member(requesterID)
		if req == nil {
			return ErrNotGuildMember
		}
		if req.Role != RoleLeader && req.Role != RoleOfficer {
			return ErrInsufficientRank
		}
		if targetID == g.LeaderID {
			return ErrInsufficientRank
		}
		if g.Member(targetID) == nil {
			return ErrNotGuildMember
		}
		allowed = true
		return nil
	})
	if err != nil || !allowed {
		return LeaveResult{}, err
	}
	return s.removeFromGuild(ctx, guildID, targetID)
}

// UpdateSettings replaces the guild's settings. Leader or officer only.
// MinContribution below zero is clamped to zero.
func (s *Service) UpdateSettings(ctx context.Context, guildID string, requesterID int64, settings Settings) error {
	if settings.JoinPolicy != JoinPolicyOpen && settings.JoinPolicy != JoinPolicyInviteOnly {
		return ErrInvalidJoinPolicy
	}
	if settings.MinContribution < 0 {
		settings.MinContribution = 0
	}
	return s.reg.With(guildID, func(g *Guild) error {
		req := g.Member(requesterID)
		if req == nil {
			return ErrNotGuildMember
		}
		if req.Role != RoleLeader && req.Role != RoleOfficer {
			return ErrInsufficientRank
		}
		g.Settings = settings
		s.flush(g)
		return nil
	})
}

// PromoteOfficer raises a member to officer rank. Leader only.
func (s *Service) PromoteOfficer(ctx context.Context, guildID string, requesterID, targetID int64) error {
	return s.reg.With(guildID, func(g *Guild) error {
		if requesterID != g.LeaderID {
			return ErrInsufficientRank
		}
		m := g.Member(targetID)
		if m == nil {
			return ErrNotGuildMember
		}
		if m.Role != RoleMember {
			return nil // already officer or leader
		}
		m.Role = RoleOfficer
		g.OfficerIDs = append(g.OfficerIDs, targetID)
		s.flush(g)
		return nil
	})
}

func (s *Service) removeFromGuild(ctx context.Context, guildID string, playerID int64) (LeaveResult, error) {
	var res LeaveResult
	var disbandedGuild *Guild
	err := s.reg.With(guildID, func(g *Guild) error {
		m := g.Member(playerID)
		if m == nil {
			return ErrNotGuildMember
		}

		wasLeader := m.Role == RoleLeader
		s.spliceMember(g, playerID)
		s.reg.unindexMember(playerID)
		for _, p := range g.Perks {
			s.effects.RemoveEffect(playerID, g.ID, p.EffectType)
		}

		if len(g.Members) == 0 {
			res.Disbanded = true
			disbandedGuild = g
			return nil
		}
		if wasLeader {
			succ := successor(g)
			succ.Role = RoleLeader
			g.LeaderID = succ.PlayerID
			s.removeOfficerID(g, succ.PlayerID)
			res.NewLeaderID = succ.PlayerID
			s.sink.GuildBroadcast(g.ID, "New Leader",
				"Leadership of the guild has changed hands.")
		}
		s.flush(g)
		return nil
	})
	if err != nil {
		return LeaveResult{}, err
	}

	if res.Disbanded {
		s.reg.Remove(guildID)
		s.sink.PlayerNotify(playerID, "Your guild has been disbanded.")
		cctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if derr := s.store.DeleteGuild(cctx, guildID); derr != nil {
			s.logger.Warn("guild delete failed",
				zap.String("guild_id", guildID), zap.Error(derr))
		}
		s.logger.Info("guild disbanded",
			zap.String("guild_id", disbandedGuild.ID),
			zap.String("name", disbandedGuild.Name))
	}
	return res, nil
}

// successor picks the next leader deterministically: the earliest-joined
// officer, else the member with the highest total contribution, ties broken
// by join order. Members is ordered by join, so slice order is the tie-break.
func successor(g *Guild) *Member {
	for _, m := range g.Members {
		if m.Role == RoleOfficer {
			return m
		}
	}
	best := g.Members[0]
	for _, m := range g.Members[1:] {
		if m.TotalContribution > best.TotalContribution {
			best = m
		}
	}
	return best
}

func (s *Service) spliceMember(g *Guild, playerID int64) {
	for i, m := range g.Members {
		if m.PlayerID == playerID {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			break
		}
	}
	s.removeOfficerID(g, playerID)
}

func (s *Service) removeOfficerID(g *Guild, playerID int64) {
	for i, id := range g.OfficerIDs {
		if id == playerID {
			g.OfficerIDs = append(g.OfficerIDs[:i], g.OfficerIDs[i+1:]...)
			break
		}
	}
}

// flush persists a snapshot of the guild asynchronously. In-memory state is
// authoritative until the next successful save.
func (s *Service) flush(g *Guild) {
	cp := g.Clone()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if err := s.store.SaveGuild(ctx, cp); err != nil {
			s.logger.Warn("guild save failed",
				zap.String("guild_id", cp.ID), zap.Error(err))
		}
	}()
}

// Restore loads a persisted guild back into the registry at boot.
func (s *Service) Restore(g *Guild) error {
	return s.reg.Add(g)
}

func (s *Service) maxMembersFor(level int) int {
	n := s.cfg.BaseMaxMembers + s.cfg.MembersPerLevel*(level-1)
	if n > s.cfg.MaxMembersCap {
		n = s.cfg.MaxMembersCap
	}
	return n
}
