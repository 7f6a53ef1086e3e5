package guild

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fundGuild(t *testing.T, svc *Service, guildID string, playerID, amount int64) {
	t.Helper()
	_, err := svc.Contribute(context.Background(), guildID, playerID, CurrencyGold, amount)
	require.NoError(t, err)
}

func TestUpgradePerk(t *testing.T) {
	svc, rec, _, _ := newTestService(t, testGuildConfig())
	g := mustCreate(t, svc, "Trainers", "TRN", 1)
	require.NoError(t, svc.JoinGuild(context.Background(), g.ID, 2))
	fundGuild(t, svc, g.ID, 1, 500)

	state, err := svc.UpgradePerk(context.Background(), g.ID, 1, "training_grounds")
	require.NoError(t, err)
	assert.Equal(t, 1, state.Level)
	assert.Equal(t, 5.0, state.Magnitude)
	assert.Equal(t, "xp_boost", state.EffectType)

	snap, _ := svc.Snapshot(g.ID)
	assert.Equal(t, int64(0), snap.Treasury.Currency[CurrencyGold])
	require.NotNil(t, snap.Perk("training_grounds"))

	// Effect fans out to every current member.
	assert.Len(t, rec.EffectsFor(1), 1)
	assert.Len(t, rec.EffectsFor(2), 1)
}

func TestUpgradePerk_SecondLevel(t *testing.T) {
	svc, rec, _, _ := newTestService(t, testGuildConfig())
	g := mustCreate(t, svc, "Veterans", "VET", 1)
	fundGuild(t, svc, g.ID, 1, 1500)

	_, err := svc.UpgradePerk(context.Background(), g.ID, 1, "training_grounds")
	require.NoError(t, err)
	state, err := svc.UpgradePerk(context.Background(), g.ID, 1, "training_grounds")
	require.NoError(t, err)
	assert.Equal(t, 2, state.Level)
	assert.Equal(t, 10.0, state.Magnitude)

	snap, _ := svc.Snapshot(g.ID)
	assert.Equal(t, int64(0), snap.Treasury.Currency[CurrencyGold], "500 + 1000 spent")
	assert.Len(t, snap.Perks, 1, "re-upgrade mutates the same state entry")

	effects := rec.EffectsFor(1)
	require.Len(t, effects, 2)
	assert.Equal(t, 10.0, effects[1].Magnitude, "re-apply carries the new magnitude")
}

func TestUpgradePerk_RequirementUnmet(t *testing.T) {
	svc, _, _, _ := newTestService(t, testGuildConfig())
	g := mustCreate(t, svc, "Eager", "EGR", 1)
	// Plenty of gold, but the guild is still level 1.
	require.NoError(t, svc.CreditCurrency(context.Background(), g.ID, CurrencyGold, 100000))

	snap, _ := svc.Snapshot(g.ID)
	require.Equal(t, 1, snap.Level)

	_, err := svc.UpgradePerk(context.Background(), g.ID, 1, "treasure_hold")
	assert.ErrorIs(t, err, ErrPerkRequirementUnmet)
}

func TestUpgradePerk_MaxLevel(t *testing.T) {
	svc, _, _, _ := newTestService(t, testGuildConfig())
	g := mustCreate(t, svc, "Capped", "CAP", 1)
	// Costs 500+1000+1500+2000+2500 = 7500 for all five levels.
	require.NoError(t, svc.CreditCurrency(context.Background(), g.ID, CurrencyGold, 10000))

	for i := 0; i < 5; i++ {
		_, err := svc.UpgradePerk(context.Background(), g.ID, 1, "training_grounds")
		require.NoError(t, err)
	}
	_, err := svc.UpgradePerk(context.Background(), g.ID, 1, "training_grounds")
	assert.ErrorIs(t, err, ErrPerkMaxLevel)

	snap, _ := svc.Snapshot(g.ID)
	assert.Equal(t, int64(2500), snap.Treasury.Currency[CurrencyGold])
	assert.Equal(t, 25.0, snap.Perk("training_grounds").Magnitude)
}

func TestUpgradePerk_InsufficientTreasury(t *testing.T) {
	svc, _, _, _ := newTestService(t, testGuildConfig())
	g := mustCreate(t, svc, "Broke", "BRK", 1)
	fundGuild(t, svc, g.ID, 1, 499)

	_, err := svc.UpgradePerk(context.Background(), g.ID, 1, "training_grounds")
	assert.ErrorIs(t, err, ErrInsufficientTreasury)
}

func TestUpgradePerk_RankRequired(t *testing.T) {
	svc, _, _, _ := newTestService(t, testGuildConfig())
	g := mustCreate(t, svc, "Hierarchy", "HRY", 1)
	require.NoError(t, svc.JoinGuild(context.Background(), g.ID, 2))
	fundGuild(t, svc, g.ID, 2, 1000)

	_, err := svc.UpgradePerk(context.Background(), g.ID, 2, "training_grounds")
	assert.ErrorIs(t, err, ErrInsufficientRank)

	// Officers may spend treasury.
	require.NoError(t, svc.PromoteOfficer(context.Background(), g.ID, 1, 2))
	_, err = svc.UpgradePerk(context.Background(), g.ID, 2, "training_grounds")
	assert.NoError(t, err)
}

func TestUpgradePerk_Unknown(t *testing.T) {
	svc, _, _, _ := newTestService(t, testGuildConfig())
	g := mustCreate(t, svc, "Curious", "CUR", 1)
	_, err := svc.UpgradePerk(context.Background(), g.ID, 1, "dragon_stable")
	assert.ErrorIs(t, err, ErrPerkNotFound)
}

func TestCatalog_Scaling(t *testing.T) {
	c := DefaultCatalog()
	tg := c["training_grounds"]
	require.NotNil(t, tg)
	assert.Equal(t, 5.0, tg.MagnitudeAt(1))
	assert.Equal(t, 25.0, tg.MagnitudeAt(5))
	assert.Equal(t, int64(500), tg.CostAt(1))
	assert.Equal(t, int64(2500), tg.CostAt(5))

	mn := c["merchant_network"]
	require.NotNil(t, mn)
	assert.Equal(t, 5, mn.RequiredLevel)
	assert.Equal(t, 7.0, mn.MagnitudeAt(4))
}
