package guild

import "time"

// Role is a member's role within the guild.
type Role string

const (
	RoleLeader  Role = "leader"
	RoleOfficer Role = "officer"
	RoleMember  Role = "member"
)

// Member links a player to a guild with a role and contribution totals.
type Member struct {
	PlayerID           int64     `json:"player_id"`
	Role               Role      `json:"role"`
	JoinedAt           time.Time `json:"joined_at"`
	LastActiveAt       time.Time `json:"last_active_at"`
	WeeklyContribution int64     `json:"weekly_contribution"`
	TotalContribution  int64     `json:"total_contribution"`
}

// Treasury holds the guild's shared currency balances and item counts.
// Balances never go negative.
type Treasury struct {
	Currency map[string]int64 `json:"currency"`
	Items    map[string]int64 `json:"items"`
}

// PerkState is one unlocked guild perk at its current level.
type PerkState struct {
	ID         string  `json:"id"`
	Level      int     `json:"level"`
	EffectType string  `json:"effect_type"`
	Magnitude  float64 `json:"magnitude"`
}

// Join policies. An invite_only guild rejects unsolicited joins.
const (
	JoinPolicyOpen       = "open"
	JoinPolicyInviteOnly = "invite_only"
)

// Settings holds guild-configurable behavior. JoinPolicy gates JoinGuild;
// MinContribution is the smallest contribution amount the guild accepts.
type Settings struct {
	JoinPolicy      string `json:"join_policy"` // open | invite_only
	MinContribution int64  `json:"min_contribution"`
	Motd            string `json:"motd"`
}

// WarRecord is the summarized result of a settled war, kept in warHistory.
type WarRecord struct {
	WarID          string    `json:"war_id"`
	OpponentName   string    `json:"opponent_name"`
	Result         string    `json:"result"` // win | loss
	ScoreAttacking int       `json:"score_attacking"`
	ScoreDefending int       `json:"score_defending"`
	Date           time.Time `json:"date"`
	MVPPlayerID    int64     `json:"mvp_player_id"`
}

// Guild is the aggregate root for one player collective. All mutation goes
// through the Service, which serializes commands per guild.
type Guild struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	Tag                string       `json:"tag"`
	Level              int          `json:"level"`
	XP                 int          `json:"xp"`
	XPToNextLevel      int          `json:"xp_to_next_level"`
	Members            []*Member    `json:"members"`
	MaxMembers         int          `json:"max_members"`
	Treasury           Treasury     `json:"treasury"`
	Perks              []*PerkState `json:"perks"`
	WarHistory         []*WarRecord `json:"war_history"`
	LeaderID           int64        `json:"leader_id"`
	OfficerIDs         []int64      `json:"officer_ids"`
	Settings           Settings     `json:"settings"`
	WeeklyContribution int64        `json:"weekly_contribution"`
	CreatedAt          time.Time    `json:"created_at"`
}

// Member returns the member entry for playerID, or nil.
func (g *Guild) Member(playerID int64) *Member {
	for _, m := range g.Members {
		if m.PlayerID == playerID {
			return m
		}
	}
	return nil
}

// Perk returns the unlocked perk state for perkID, or nil.
func (g *Guild) Perk(perkID string) *PerkState {
	for _, p := range g.Perks {
		if p.ID == perkID {
			return p
		}
	}
	return nil
}

// Balance returns the treasury balance for one currency.
func (g *Guild) Balance(currency string) int64 {
	return g.Treasury.Currency[currency]
}

// Clone returns a deep copy, safe to hand out after the guild lock is released.
func (g *Guild) Clone() *Guild {
	cp := *g
	cp.Members = make([]*Member, len(g.Members))
	for i, m := range g.Members {
		mc := *m
		cp.Members[i] = &mc
	}
	cp.Perks = make([]*PerkState, len(g.Perks))
	for i, p := range g.Perks {
		pc := *p
		cp.Perks[i] = &pc
	}
	cp.WarHistory = make([]*WarRecord, len(g.WarHistory))
	for i, r := range g.WarHistory {
		rc := *r
		cp.WarHistory[i] = &rc
	}
	cp.OfficerIDs = append([]int64(nil), g.OfficerIDs...)
	cp.Treasury = Treasury{
		Currency: make(map[string]int64, len(g.Treasury.Currency)),
		Items:    make(map[string]int64, len(g.Treasury.Items)),
	}
	for k, v := range g.Treasury.Currency {
		cp.Treasury.Currency[k] = v
	}
	for k, v := range g.Treasury.Items {
		cp.Treasury.Items[k] = v
	}
	return &cp
}
