package guild

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func regGuild(id, name, tag string, memberIDs ...int64) *Guild {
	g := &Guild{
		ID: id, Name: name, Tag: tag, Level: 1, MaxMembers: 20,
		Treasury: Treasury{
			Currency: map[string]int64{},
			Items:    map[string]int64{},
		},
		CreatedAt: time.Now(),
	}
	for _, pid := range memberIDs {
		g.Members = append(g.Members, &Member{PlayerID: pid, Role: RoleMember})
	}
	return g
}

func TestRegistry_AddAndLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(regGuild("g-1", "Alpha", "ALPH", 1, 2)))

	assert.Equal(t, "g-1", r.GuildOf(1))
	assert.Equal(t, "g-1", r.GuildOf(2))
	assert.Empty(t, r.GuildOf(3))
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_NameTaken(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(regGuild("g-1", "Alpha", "ALPH")))
	assert.ErrorIs(t, r.Add(regGuild("g-2", "ALPHA", "ALPH")), ErrNameTaken)
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(regGuild("g-1", "Alpha", "ALPH", 1)))
	r.Remove("g-1")

	assert.Empty(t, r.GuildOf(1))
	assert.Zero(t, r.Count())
	assert.ErrorIs(t, r.With("g-1", func(*Guild) error { return nil }), ErrGuildNotFound)

	// The name is free again.
	assert.NoError(t, r.Add(regGuild("g-2", "alpha", "ALPH")))
}

func TestRegistry_Search(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(regGuild("g-1", "Iron Vanguard", "IRON")))
	require.NoError(t, r.Add(regGuild("g-2", "Silver Hand", "SLVR")))
	require.NoError(t, r.Add(regGuild("g-3", "Ironwood Pact", "WOOD")))

	got := r.Search("iron")
	require.Len(t, got, 2)
	assert.Equal(t, "g-1", got[0].ID, "results follow insertion order")
	assert.Equal(t, "g-3", got[1].ID)

	byTag := r.Search("slvr")
	require.Len(t, byTag, 1)
	assert.Equal(t, "Silver Hand", byTag[0].Name)

	assert.Len(t, r.Search(""), 3, "empty query lists everything")
	assert.Empty(t, r.Search("dragon"))
}

func TestRegistry_WithPair_NoDeadlock(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(regGuild("g-a", "左", "AAA")))
	require.NoError(t, r.Add(regGuild("g-b", "右", "BBB")))

	// Hammer the pair from both directions; lock ordering by id must keep
	// this free of deadlock.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = r.WithPair("g-a", "g-b", func(a, b *Guild) error {
				a.XP++
				b.XP++
				return nil
			})
		}()
		go func() {
			defer wg.Done()
			_ = r.WithPair("g-b", "g-a", func(b, a *Guild) error {
				a.XP++
				b.XP++
				return nil
			})
		}()
	}
	wg.Wait()

	snap, err := r.Snapshot("g-a")
	require.NoError(t, err)
	assert.Equal(t, 100, snap.XP)
}

func TestRegistry_WithPair_ArgumentOrderKept(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(regGuild("g-z", "Zulu", "ZZZ")))
	require.NoError(t, r.Add(regGuild("g-a", "Anvil", "AAA")))

	err := r.WithPair("g-z", "g-a", func(first, second *Guild) error {
		assert.Equal(t, "g-z", first.ID, "callback args match call order, not lock order")
		assert.Equal(t, "g-a", second.ID)
		return nil
	})
	require.NoError(t, err)

	assert.ErrorIs(t, r.WithPair("g-z", "missing", func(a, b *Guild) error { return nil }), ErrGuildNotFound)
}

func TestRegistry_SnapshotIsDeepCopy(t *testing.T) {
	r := NewRegistry()
	g := regGuild("g-1", "Original", "ORIG", 1)
	g.Treasury.Currency[CurrencyGold] = 100
	require.NoError(t, r.Add(g))

	snap, err := r.Snapshot("g-1")
	require.NoError(t, err)
	snap.Treasury.Currency[CurrencyGold] = 999
	snap.Members[0].TotalContribution = 777

	again, err := r.Snapshot("g-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), again.Treasury.Currency[CurrencyGold])
	assert.Zero(t, again.Members[0].TotalContribution)
}
