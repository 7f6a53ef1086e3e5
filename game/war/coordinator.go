package war

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hikari-games/guildwar/server/cache"
	"github.com/hikari-games/guildwar/server/config"
	"github.com/hikari-games/guildwar/server/game/guild"
	"github.com/hikari-games/guildwar/server/notify"
	"github.com/hikari-games/guildwar/server/scheduler"
	"go.uber.org/zap"
)

const flushTimeout = 5 * time.Second

// Store is the persistence collaborator for war aggregates. SettleWar must
// commit the war deletion and both guild documents in one transaction so
// the two histories can never diverge.
type Store interface {
	SaveWar(ctx context.Context, w *War) error
	DeleteWar(ctx context.Context, warID string) error
	SettleWar(ctx context.Context, warID string, attacker, defender *guild.Guild) error
}

// entry pairs a war with its own mutex; all participant actions and phase
// transitions for one war serialize on it.
type entry struct {
	mu sync.Mutex
	w  *War
}

// Coordinator owns every live guild-war and drives each through
// preparation → active → ended.
type Coordinator struct {
	cfg    config.WarConfig
	guilds *guild.Service
	store  Store
	sched  *scheduler.Scheduler
	locks  cache.Cache
	sink   notify.Sink
	quests QuestProgress
	logger *zap.Logger

	mu      sync.RWMutex
	wars    map[string]*entry // warID → entry
	byGuild map[string]string // guildID → warID of its non-ended war
}

// NewCoordinator creates a war Coordinator.
func NewCoordinator(cfg config.WarConfig, guilds *guild.Service, store Store, sched *scheduler.Scheduler, locks cache.Cache, sink notify.Sink, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		cfg:     cfg,
		guilds:  guilds,
		store:   store,
		sched:   sched,
		locks:   locks,
		sink:    sink,
		logger:  logger,
		wars:    make(map[string]*entry),
		byGuild: make(map[string]string),
	}
}

// StartWar declares a war between two guilds. The war opens in preparation
// and transitions are scheduled against the coordinator's clock. Both
// guilds are checked for an unfinished war and for the post-war cooldown.
func (c *Coordinator) StartWar(ctx context.Context, attackerID, defenderID string) (*War, error) {
	attacker, err := c.guilds.Snapshot(attackerID)
	if err != nil {
		return nil, err
	}
	defender, err := c.guilds.Snapshot(defenderID)
	if err != nil {
		return nil, err
	}

	now := c.sched.Now()
	if c.onCooldown(attacker, now) || c.onCooldown(defender, now) {
		return nil, ErrWarOnCooldown
	}

	c.mu.Lock()
	if _, busy := c.byGuild[attackerID]; busy {
		c.mu.Unlock()
		return nil, ErrWarAlreadyActive
	}
	if _, busy := c.byGuild[defenderID]; busy {
		c.mu.Unlock()
		return nil, ErrWarAlreadyActive
	}

	w := &War{
		ID:           uuid.New().String(),
		AttackerID:   attackerID,
		DefenderID:   defenderID,
		AttackerName: attacker.Name,
		DefenderName: defender.Name,
		Status:       StatusPreparation,
		StartTime:    now.Add(c.cfg.PrepDelay),
		EndTime:      now.Add(c.cfg.PrepDelay + c.cfg.Duration),
		Participants: make(map[int64]*Participant),
		Objectives:   generateObjectives(),
		Rewards:      precomputeRewards(attacker.Level, defender.Level),
		CreatedAt:    now,
	}
	c.wars[w.ID] = &entry{w: w}
	c.byGuild[attackerID] = w.ID
	c.byGuild[defenderID] = w.ID
	c.mu.Unlock()

	c.armTimers(w, now)
	c.flush(w)

	c.sink.GuildBroadcast(attackerID, "War Declared",
		"War against "+defender.Name+" begins in "+c.cfg.PrepDelay.String()+".")
	c.sink.GuildBroadcast(defenderID, "War Declared",
		attacker.Name+" has declared war on your guild!")
	c.logger.Info("war declared",
		zap.String("war_id", w.ID),
		zap.String("attacker_id", attackerID),
		zap.String("defender_id", defenderID),
		zap.Time("start", w.StartTime),
		zap.Time("end", w.EndTime))
	return w.Clone(), nil
}

// Get returns a deep copy of a live war. Settled wars are discarded, so
// looking one up returns ErrWarNotFound.
func (c *Coordinator) Get(warID string) (*War, error) {
	e, ok := c.lookup(warID)
	if !ok {
		return nil, ErrWarNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.w.Clone(), nil
}

// WarOf returns the id of the guild's non-ended war, or "".
func (c *Coordinator) WarOf(guildID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byGuild[guildID]
}

// InvalidateGuild cancels the guild's live war, if any: its timers are
// stopped so a stale transition cannot resurrect it, and the war row is
// removed. Called when a guild disbands.
func (c *Coordinator) InvalidateGuild(ctx context.Context, guildID string) {
	c.mu.Lock()
	warID, ok := c.byGuild[guildID]
	if !ok {
		c.mu.Unlock()
		return
	}
	e := c.wars[warID]
	delete(c.wars, warID)
	delete(c.byGuild, e.w.AttackerID)
	delete(c.byGuild, e.w.DefenderID)
	c.mu.Unlock()

	c.sched.Cancel(timerName(warID, "start"))
	c.sched.Cancel(timerName(warID, "end"))
	if err := c.store.DeleteWar(ctx, warID); err != nil {
		c.logger.Warn("war delete failed", zap.String("war_id", warID), zap.Error(err))
	}
	c.logger.Info("war invalidated",
		zap.String("war_id", warID), zap.String("guild_id", guildID))
}

// Recover re-registers a persisted war after a restart and re-arms only the
// callbacks appropriate to its status. A war persisted as ended is residue
// of a settlement that did not commit; it is settled immediately.
func (c *Coordinator) Recover(ctx context.Context, w *War) {
	c.mu.Lock()
	c.wars[w.ID] = &entry{w: w}
	if w.Status != StatusEnded {
		c.byGuild[w.AttackerID] = w.ID
		c.byGuild[w.DefenderID] = w.ID
	}
	c.mu.Unlock()

	now := c.sched.Now()
	switch w.Status {
	case StatusPreparation:
		c.armTimers(w, now)
	case StatusActive:
		c.sched.After(timerName(w.ID, "end"), delayUntil(w.EndTime, now), func() { c.endWar(w.ID) })
	case StatusEnded:
		c.settle(w.ID)
	}
	c.logger.Info("war recovered",
		zap.String("war_id", w.ID), zap.String("status", string(w.Status)))
}

// ---- phase transitions ----

func (c *Coordinator) armTimers(w *War, now time.Time) {
	c.sched.After(timerName(w.ID, "start"), delayUntil(w.StartTime, now), func() { c.activateWar(w.ID) })
	c.sched.After(timerName(w.ID, "end"), delayUntil(w.EndTime, now), func() { c.endWar(w.ID) })
}

// activateWar flips preparation → active. Guarded by a status check so a
// duplicate or stale invocation is a no-op.
func (c *Coordinator) activateWar(warID string) {
	e, ok := c.lookup(warID)
	if !ok {
		return
	}
	e.mu.Lock()
	if e.w.Status != StatusPreparation {
		e.mu.Unlock()
		return
	}
	e.w.Status = StatusActive
	for _, o := range e.w.Objectives {
		o.Active = true
	}
	w := e.w.Clone()
	e.mu.Unlock()

	c.flush(w)
	c.sink.GuildBroadcast(w.AttackerID, "War Started", "The war against "+w.DefenderName+" is now active!")
	c.sink.GuildBroadcast(w.DefenderID, "War Started", "The war against "+w.AttackerName+" is now active!")
	c.logger.Info("war active", zap.String("war_id", warID))
}

// endWar flips active → ended and runs settlement. Idempotent on status.
func (c *Coordinator) endWar(warID string) {
	e, ok := c.lookup(warID)
	if !ok {
		return
	}
	e.mu.Lock()
	if e.w.Status != StatusActive {
		e.mu.Unlock()
		return
	}
	e.w.Status = StatusEnded
	e.mu.Unlock()

	c.logger.Info("war ended", zap.String("war_id", warID))
	c.settle(warID)
}

func (c *Coordinator) lookup(warID string) (*entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.wars[warID]
	return e, ok
}

// flush persists a war snapshot asynchronously.
func (c *Coordinator) flush(w *War) {
	cp := w.Clone()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if err := c.store.SaveWar(ctx, cp); err != nil {
			c.logger.Warn("war save failed", zap.String("war_id", cp.ID), zap.Error(err))
		}
	}()
}

func (c *Coordinator) onCooldown(g *guild.Guild, now time.Time) bool {
	if len(g.WarHistory) == 0 {
		return false
	}
	return now.Sub(g.WarHistory[0].Date) < c.cfg.Cooldown
}

func timerName(warID, phase string) string {
	return "war:" + warID + ":" + phase
}

func delayUntil(t, now time.Time) time.Duration {
	d := t.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
