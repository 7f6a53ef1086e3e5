package store

import (
	"context"
	"testing"
	"time"

	"github.com/hikari-games/guildwar/server/game/guild"
	"github.com/hikari-games/guildwar/server/game/quest"
	"github.com/hikari-games/guildwar/server/game/war"
	"github.com/hikari-games/guildwar/server/model"
	"github.com/hikari-games/guildwar/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	return New(testutil.SetupTestDB(t), logger)
}

func sampleGuild(id, name string) *guild.Guild {
	return &guild.Guild{
		ID: id, Name: name, Tag: "TEST", Level: 3, XP: 450,
		XPToNextLevel: 6750, MaxMembers: 30,
		Treasury: guild.Treasury{
			Currency: map[string]int64{guild.CurrencyGold: 1200},
			Items:    map[string]int64{"iron_ore": 5},
		},
		LeaderID: 1,
		Members: []*guild.Member{
			{PlayerID: 1, Role: guild.RoleLeader, TotalContribution: 900},
			{PlayerID: 2, Role: guild.RoleMember},
		},
		CreatedAt: time.Unix(1_700_000_000, 0).UTC(),
	}
}

func sampleWar(id, attID, defID string) *war.War {
	now := time.Unix(1_700_000_000, 0).UTC()
	return &war.War{
		ID: id, AttackerID: attID, DefenderID: defID,
		AttackerName: "Alpha", DefenderName: "Beta",
		Status: war.StatusActive, StartTime: now, EndTime: now.Add(time.Hour),
		Score: war.Score{Attacking: 150, Defending: 60},
		Participants: map[int64]*war.Participant{
			1: {PlayerID: 1, GuildID: attID, Score: 150, Kills: 1},
		},
		Objectives: []*war.Objective{
			{ID: "obj-1", Type: war.ObjectiveCapturePoint, Points: 100, Bonus: 50, Active: true},
		},
		CreatedAt: now,
	}
}

func TestGuildRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	g := sampleGuild("g-1", "Roundtrip")
	require.NoError(t, st.SaveGuild(ctx, g))

	// Upsert: a second save replaces, not duplicates.
	g.Level = 4
	g.Treasury.Currency[guild.CurrencyGold] = 2000
	require.NoError(t, st.SaveGuild(ctx, g))

	var loaded []*guild.Guild
	require.NoError(t, st.LoadGuilds(ctx, func(g *guild.Guild) {
		loaded = append(loaded, g)
	}))
	require.Len(t, loaded, 1)
	assert.Equal(t, 4, loaded[0].Level)
	assert.Equal(t, int64(2000), loaded[0].Treasury.Currency[guild.CurrencyGold])
	require.Len(t, loaded[0].Members, 2)
	assert.Equal(t, int64(900), loaded[0].Members[0].TotalContribution)

	require.NoError(t, st.DeleteGuild(ctx, "g-1"))
	loaded = nil
	require.NoError(t, st.LoadGuilds(ctx, func(g *guild.Guild) {
		loaded = append(loaded, g)
	}))
	assert.Empty(t, loaded)
}

func TestWarRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	w := sampleWar("w-1", "g-a", "g-b")
	require.NoError(t, st.SaveWar(ctx, w))

	w.Status = war.StatusEnded
	w.Score.Attacking = 300
	require.NoError(t, st.SaveWar(ctx, w))

	var loaded []*war.War
	require.NoError(t, st.LoadWars(ctx, func(w *war.War) {
		loaded = append(loaded, w)
	}))
	require.Len(t, loaded, 1)
	assert.Equal(t, war.StatusEnded, loaded[0].Status)
	assert.Equal(t, 300, loaded[0].Score.Attacking)
	require.NotNil(t, loaded[0].Participants[1])
	assert.Equal(t, 1, loaded[0].Participants[1].Kills)

	require.NoError(t, st.DeleteWar(ctx, "w-1"))
	loaded = nil
	require.NoError(t, st.LoadWars(ctx, func(w *war.War) {
		loaded = append(loaded, w)
	}))
	assert.Empty(t, loaded)
}

func TestQuestRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	qs := []*quest.Quest{
		{ID: "q-1", Name: "War Effort", Type: quest.TypeWeekly,
			Kind: quest.KindWarScore, Progress: 400, Target: 1000},
		{ID: "q-2", Name: "Daily Tithe", Type: quest.TypeDaily,
			Kind: quest.KindContribution, Target: 500},
	}
	require.NoError(t, st.SaveQuests(ctx, "g-1", qs))

	qs[0].Progress = 700
	require.NoError(t, st.SaveQuests(ctx, "g-1", qs))

	sets := map[string][]*quest.Quest{}
	require.NoError(t, st.LoadQuests(ctx, func(guildID string, quests []*quest.Quest) {
		sets[guildID] = quests
	}))
	require.Len(t, sets, 1)
	require.Len(t, sets["g-1"], 2)
	assert.Equal(t, 700, sets["g-1"][0].Progress)

	require.NoError(t, st.DeleteQuests(ctx, "g-1"))
	sets = map[string][]*quest.Quest{}
	require.NoError(t, st.LoadQuests(ctx, func(guildID string, quests []*quest.Quest) {
		sets[guildID] = quests
	}))
	assert.Empty(t, sets)
}

func TestSettleWar(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	att := sampleGuild("g-a", "Attackers")
	def := sampleGuild("g-b", "Defenders")
	require.NoError(t, st.SaveGuild(ctx, att))
	require.NoError(t, st.SaveGuild(ctx, def))
	require.NoError(t, st.SaveWar(ctx, sampleWar("w-1", "g-a", "g-b")))

	att.WarHistory = []*guild.WarRecord{{WarID: "w-1", Result: "win"}}
	def.WarHistory = []*guild.WarRecord{{WarID: "w-1", Result: "loss"}}
	require.NoError(t, st.SettleWar(ctx, "w-1", att, def))

	// The war row is gone and both histories landed.
	var wars []*war.War
	require.NoError(t, st.LoadWars(ctx, func(w *war.War) { wars = append(wars, w) }))
	assert.Empty(t, wars)

	results := map[string]string{}
	require.NoError(t, st.LoadGuilds(ctx, func(g *guild.Guild) {
		if len(g.WarHistory) > 0 {
			results[g.ID] = g.WarHistory[0].Result
		}
	}))
	assert.Equal(t, map[string]string{"g-a": "win", "g-b": "loss"}, results)
}

func TestLoadGuilds_SkipsCorruptDocument(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveGuild(ctx, sampleGuild("g-ok", "Healthy")))
	require.NoError(t, st.db.Create(&model.GuildDoc{
		ID: "g-bad", Name: "Mangled", Tag: "BAD",
		Doc: datatypes.JSON([]byte("{not json")),
	}).Error)

	var ids []string
	require.NoError(t, st.LoadGuilds(ctx, func(g *guild.Guild) {
		ids = append(ids, g.ID)
	}))
	assert.Equal(t, []string{"g-ok"}, ids)
}

func TestGuildName(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveGuild(ctx, sampleGuild("g-1", "Named")))

	name, err := st.GuildName(ctx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, "Named", name)

	_, err = st.GuildName(ctx, "missing")
	assert.ErrorIs(t, err, guild.ErrGuildNotFound)
}
