package guild

import (
	"strings"
	"sync"
)

// entry pairs a guild with its own mutex. Every mutating command locks
// exactly one entry, giving each guild a strict sequential command history.
type entry struct {
	mu sync.Mutex
	g  *Guild
}

// Registry indexes all live guilds by id, by member, and by lowercased name
// for uniqueness checks. Iteration order is insertion order, so searches and
// tie-breaks are deterministic.
type Registry struct {
	mu       sync.RWMutex
	byID     map[string]*entry
	byPlayer map[int64]string  // playerID → guildID
	byName   map[string]string // lowercased name → guildID
	order    []string          // guild ids in insertion order
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[string]*entry),
		byPlayer: make(map[int64]string),
		byName:   make(map[string]string),
	}
}

// Add registers a new guild and indexes its members.
// Returns ErrNameTaken if another guild holds the name.
func (r *Registry) Add(g *Guild) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(g.Name)
	if _, ok := r.byName[key]; ok {
		return ErrNameTaken
	}
	r.byID[g.ID] = &entry{g: g}
	r.byName[key] = g.ID
	r.order = append(r.order, g.ID)
	for _, m := range g.Members {
		r.byPlayer[m.PlayerID] = g.ID
	}
	return nil
}

// Remove deletes a guild and all its member index entries.
func (r *Registry) Remove(guildID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[guildID]
	if !ok {
		return
	}
	delete(r.byID, guildID)
	delete(r.byName, strings.ToLower(e.g.Name))
	for _, m := range e.g.Members {
		if r.byPlayer[m.PlayerID] == guildID {
			delete(r.byPlayer, m.PlayerID)
		}
	}
	for i, id := range r.order {
		if id == guildID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// GuildOf returns the guild id a player belongs to, or "".
func (r *Registry) GuildOf(playerID int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byPlayer[playerID]
}

// claimMember atomically records player→guild membership if the player is
// not already in a guild. Reports whether the claim succeeded. The claim
// must be released with unclaimMember if the join is later rejected.
func (r *Registry) claimMember(playerID int64, guildID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byPlayer[playerID]; ok {
		return false
	}
	r.byPlayer[playerID] = guildID
	return true
}

// unclaimMember releases a claim that did not become a membership.
func (r *Registry) unclaimMember(playerID int64, guildID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byPlayer[playerID] == guildID {
		delete(r.byPlayer, playerID)
	}
}

// unindexMember drops a player's membership index entry.
func (r *Registry) unindexMember(playerID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byPlayer, playerID)
}

// With runs fn with exclusive access to the guild. Returns ErrGuildNotFound
// if the id is unknown. fn must not call back into the registry for the
// same guild.
func (r *Registry) With(guildID string, fn func(g *Guild) error) error {
	r.mu.RLock()
	e, ok := r.byID[guildID]
	r.mu.RUnlock()
	if !ok {
		return ErrGuildNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.g)
}

// WithPair runs fn with exclusive access to two guilds. Locks are taken in
// ascending id order so concurrent pair operations cannot deadlock.
func (r *Registry) WithPair(idA, idB string, fn func(a, b *Guild) error) error {
	r.mu.RLock()
	ea, okA := r.byID[idA]
	eb, okB := r.byID[idB]
	r.mu.RUnlock()
	if !okA || !okB {
		return ErrGuildNotFound
	}
	first, second := ea, eb
	if idB < idA {
		first, second = eb, ea
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()
	return fn(ea.g, eb.g)
}

// Snapshot returns a deep copy of one guild.
func (r *Registry) Snapshot(guildID string) (*Guild, error) {
	var cp *Guild
	err := r.With(guildID, func(g *Guild) error {
		cp = g.Clone()
		return nil
	})
	return cp, err
}

// Summary is a search result row.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Tag         string `json:"tag"`
	Level       int    `json:"level"`
	MemberCount int    `json:"member_count"`
	MaxMembers  int    `json:"max_members"`
}

// Search returns guilds whose name or tag contains q (case-insensitive),
// in insertion order. An empty query lists all guilds.
func (r *Registry) Search(q string) []Summary {
	q = strings.ToLower(q)
	r.mu.RLock()
	ids := append([]string(nil), r.order...)
	r.mu.RUnlock()

	var out []Summary
	for _, id := range ids {
		r.mu.RLock()
		e, ok := r.byID[id]
		r.mu.RUnlock()
		if !ok {
			continue
		}
		e.mu.Lock()
		g := e.g
		if q == "" ||
			strings.Contains(strings.ToLower(g.Name), q) ||
			strings.Contains(strings.ToLower(g.Tag), q) {
			out = append(out, Summary{
				ID: g.ID, Name: g.Name, Tag: g.Tag, Level: g.Level,
				MemberCount: len(g.Members), MaxMembers: g.MaxMembers,
			})
		}
		e.mu.Unlock()
	}
	return out
}

// Count returns the number of registered guilds.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// IDs returns all guild ids in insertion order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
