package quest

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hikari-games/guildwar/server/config"
	"github.com/hikari-games/guildwar/server/game/guild"
	"github.com/hikari-games/guildwar/server/notify"
	"github.com/hikari-games/guildwar/server/scheduler"
	"go.uber.org/zap"
)

// ErrQuestNotFound is returned when a quest id is not in the guild's
// active set.
var ErrQuestNotFound = errors.New("quest not found")

const flushTimeout = 5 * time.Second

// Quest is one active guild quest. Progress never exceeds Target; reaching
// Target completes the quest, pays its rewards, and removes it from the set.
type Quest struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       Type      `json:"type"`
	Descr      string    `json:"description"`
	Kind       string    `json:"kind"`
	Progress   int       `json:"progress"`
	Target     int       `json:"target"`
	RewardXP   int       `json:"reward_xp"`
	RewardGold int64     `json:"reward_gold"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Store persists quest sets.
type Store interface {
	SaveQuests(ctx context.Context, guildID string, quests []*Quest) error
	DeleteQuests(ctx context.Context, guildID string) error
}

type guildSet struct {
	mu     sync.Mutex
	quests []*Quest
}

// Generator issues and expires guild quests. Each guild carries up to
// cfg.DailySlots daily quests refreshed from a template pool without
// replacement, one weekly quest, and one seasonal quest.
type Generator struct {
	cfg    config.QuestConfig
	guilds *guild.Service
	store  Store
	clock  scheduler.Clock
	sink   notify.Sink
	logger *zap.Logger

	mu   sync.RWMutex
	sets map[string]*guildSet

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewGenerator creates a quest Generator. rng may be nil, in which case a
// time-seeded source is used; tests pass a fixed seed for determinism.
func NewGenerator(cfg config.QuestConfig, guilds *guild.Service, store Store, clock scheduler.Clock, sink notify.Sink, rng *rand.Rand, logger *zap.Logger) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if clock == nil {
		clock = scheduler.NewRealClock()
	}
	return &Generator{
		cfg:    cfg,
		guilds: guilds,
		store:  store,
		clock:  clock,
		sink:   sink,
		logger: logger,
		sets:   make(map[string]*guildSet),
		rng:    rng,
	}
}

// EnsureGuild seeds a full quest set for a guild that has none yet. Called
// on guild creation and lazily by progress updates.
func (gen *Generator) EnsureGuild(guildID string) []*Quest {
	set := gen.setFor(guildID)
	set.mu.Lock()
	defer set.mu.Unlock()
	gen.refillLocked(guildID, set, gen.clock.Now())
	return cloneQuests(set.quests)
}

// QuestsFor returns a copy of the guild's active quests.
func (gen *Generator) QuestsFor(guildID string) []*Quest {
	gen.mu.RLock()
	set, ok := gen.sets[guildID]
	gen.mu.RUnlock()
	if !ok {
		return nil
	}
	set.mu.Lock()
	defer set.mu.Unlock()
	return cloneQuests(set.quests)
}

// Get returns one quest by id.
func (gen *Generator) Get(guildID, questID string) (*Quest, error) {
	gen.mu.RLock()
	set, ok := gen.sets[guildID]
	gen.mu.RUnlock()
	if !ok {
		return nil, ErrQuestNotFound
	}
	set.mu.Lock()
	defer set.mu.Unlock()
	for _, q := range set.quests {
		if q.ID == questID {
			qc := *q
			return &qc, nil
		}
	}
	return nil, ErrQuestNotFound
}

// UpdateQuestProgress advances every active quest whose kind matches by
// amount, capped at the quest's target. Completed quests pay XP through the
// progression ledger, credit gold to the treasury, and leave the active set
// immediately.
func (gen *Generator) UpdateQuestProgress(ctx context.Context, guildID, kind string, amount int) {
	if amount <= 0 {
		return
	}
	set := gen.setFor(guildID)
	set.mu.Lock()

	var completed []*Quest
	now := gen.clock.Now()
	kept := set.quests[:0]
	for _, q := range set.quests {
		if !q.ExpiresAt.After(now) {
			continue // swept on next pass anyway
		}
		if q.Kind == kind {
			q.Progress += amount
			if q.Progress >= q.Target {
				q.Progress = q.Target
				completed = append(completed, q)
				continue
			}
		}
		kept = append(kept, q)
	}
	set.quests = kept
	if len(completed) > 0 {
		gen.refillLocked(guildID, set, now)
	}
	snapshot := cloneQuests(set.quests)
	set.mu.Unlock()

	for _, q := range completed {
		gen.logger.Info("guild quest completed",
			zap.String("guild_id", guildID),
			zap.String("quest_id", q.ID),
			zap.String("name", q.Name))
		if err := gen.guilds.AwardXP(ctx, guildID, q.RewardXP, "quest:"+q.Name); err != nil {
			gen.logger.Warn("quest xp award failed",
				zap.String("guild_id", guildID), zap.Error(err))
		}
		if q.RewardGold > 0 {
			if err := gen.guilds.CreditCurrency(ctx, guildID, guild.CurrencyGold, q.RewardGold); err != nil {
				gen.logger.Warn("quest gold award failed",
					zap.String("guild_id", guildID), zap.Error(err))
			}
		}
		gen.sink.GuildBroadcast(guildID, "Quest Complete", q.Name+" has been completed!")
	}
	if len(completed) > 0 {
		gen.flush(guildID, snapshot)
	}
}

// Sweep evicts expired quests for every guild and backfills daily and
// weekly slots. Wired to a scheduler ticker.
func (gen *Generator) Sweep(ctx context.Context) {
	gen.mu.RLock()
	ids := make([]string, 0, len(gen.sets))
	for id := range gen.sets {
		ids = append(ids, id)
	}
	gen.mu.RUnlock()

	now := gen.clock.Now()
	for _, guildID := range ids {
		gen.mu.RLock()
		set, ok := gen.sets[guildID]
		gen.mu.RUnlock()
		if !ok {
			continue
		}
		set.mu.Lock()
		before := len(set.quests)
		kept := set.quests[:0]
		for _, q := range set.quests {
			if q.ExpiresAt.After(now) {
				kept = append(kept, q)
			}
		}
		set.quests = kept
		evicted := before - len(set.quests)
		gen.refillLocked(guildID, set, now)
		changed := evicted > 0 || len(set.quests) != before-evicted
		snapshot := cloneQuests(set.quests)
		set.mu.Unlock()

		if changed {
			gen.logger.Debug("quest sweep",
				zap.String("guild_id", guildID),
				zap.Int("evicted", evicted),
				zap.Int("active", len(snapshot)))
			gen.flush(guildID, snapshot)
		}
	}
}

// InvalidateGuild drops a disbanded guild's quest set.
func (gen *Generator) InvalidateGuild(ctx context.Context, guildID string) {
	gen.mu.Lock()
	delete(gen.sets, guildID)
	gen.mu.Unlock()
	if err := gen.store.DeleteQuests(ctx, guildID); err != nil {
		gen.logger.Warn("quest set delete failed",
			zap.String("guild_id", guildID), zap.Error(err))
	}
}

// Restore installs a persisted quest set at boot. Expired entries are
// dropped on the first sweep.
func (gen *Generator) Restore(guildID string, quests []*Quest) {
	set := gen.setFor(guildID)
	set.mu.Lock()
	set.quests = quests
	set.mu.Unlock()
}

func (gen *Generator) setFor(guildID string) *guildSet {
	gen.mu.RLock()
	set, ok := gen.sets[guildID]
	gen.mu.RUnlock()
	if ok {
		return set
	}
	gen.mu.Lock()
	defer gen.mu.Unlock()
	if set, ok = gen.sets[guildID]; ok {
		return set
	}
	set = &guildSet{}
	gen.sets[guildID] = set
	return set
}

// refillLocked tops the set back up under set.mu: daily slots are drawn
// from the daily pool without replacement (no duplicate template among the
// live dailies), and a missing weekly quest is re-issued. Seasonal quests
// run once per window and are not backfilled here.
func (gen *Generator) refillLocked(guildID string, set *guildSet, now time.Time) {
	fresh := len(set.quests) == 0
	active := make(map[string]bool, len(set.quests))
	dailies, weeklies, seasonals := 0, 0, 0
	for _, q := range set.quests {
		active[q.Name] = true
		switch q.Type {
		case TypeDaily:
			dailies++
		case TypeWeekly:
			weeklies++
		case TypeSeasonal:
			seasonals++
		}
	}

	for dailies < gen.cfg.DailySlots {
		t := gen.pick(dailyTemplates, active)
		if t == nil {
			break // pool exhausted
		}
		set.quests = append(set.quests, gen.issue(*t, TypeDaily, nextMidnight(now)))
		active[t.Name] = true
		dailies++
	}
	if weeklies == 0 {
		if t := gen.pick(weeklyTemplates, active); t != nil {
			set.quests = append(set.quests, gen.issue(*t, TypeWeekly, now.Add(gen.cfg.WeeklyWindow)))
			active[t.Name] = true
		}
	}
	if seasonals == 0 && fresh {
		// Fresh set (guild creation): seed the seasonal quest too.
		if t := gen.pick(seasonalTemplates, active); t != nil {
			set.quests = append(set.quests, gen.issue(*t, TypeSeasonal, now.Add(gen.cfg.SeasonalWindow)))
		}
	}
}

func (gen *Generator) issue(t Template, typ Type, expires time.Time) *Quest {
	return &Quest{
		ID:         uuid.NewString(),
		Name:       t.Name,
		Type:       typ,
		Descr:      t.Descr,
		Kind:       t.Kind,
		Target:     t.Target,
		RewardXP:   t.RewardXP,
		RewardGold: t.RewardGold,
		ExpiresAt:  expires,
	}
}

// pick draws a random template whose name is not already active.
func (gen *Generator) pick(pool []Template, active map[string]bool) *Template {
	candidates := make([]*Template, 0, len(pool))
	for i := range pool {
		if !active[pool[i].Name] {
			candidates = append(candidates, &pool[i])
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	gen.rngMu.Lock()
	t := candidates[gen.rng.Intn(len(candidates))]
	gen.rngMu.Unlock()
	return t
}

func (gen *Generator) flush(guildID string, quests []*Quest) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if err := gen.store.SaveQuests(ctx, guildID, quests); err != nil {
			gen.logger.Warn("quest set flush failed",
				zap.String("guild_id", guildID), zap.Error(err))
		}
	}()
}

func cloneQuests(qs []*Quest) []*Quest {
	out := make([]*Quest, len(qs))
	for i, q := range qs {
		qc := *q
		out[i] = &qc
	}
	return out
}

// nextMidnight returns the next local-day boundary after t.
func nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
