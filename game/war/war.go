package war

import "time"

// Status is the war lifecycle phase.
type Status string

const (
	StatusPreparation Status = "preparation"
	StatusActive      Status = "active"
	StatusEnded       Status = "ended"
)

// ObjectiveType categorizes a capturable war objective.
type ObjectiveType string

const (
	ObjectiveCapturePoint ObjectiveType = "capture_point"
	ObjectiveResourceNode ObjectiveType = "resource_node"
	ObjectiveBossDefeat   ObjectiveType = "boss_defeat"
)

// Action is a participant action kind.
type Action string

const (
	ActionCapture Action = "capture"
	ActionDefend  Action = "defend"
	ActionCollect Action = "collect"
	ActionDefeat  Action = "defeat"
)

// Objective is one capturable point within a war. CaptureProgress runs
// 0..100; reaching 100 transfers ownership and resets progress to 0.
type Objective struct {
	ID              string        `json:"id"`
	Type            ObjectiveType `json:"type"`
	Points          int           `json:"points"`
	Bonus           int           `json:"bonus"` // extra guild score on capture
	ControlledBy    string        `json:"controlled_by,omitempty"`
	CaptureProgress int           `json:"capture_progress"`
	Active          bool          `json:"active"`
}

// Participant tracks one player's standing in a war. Created lazily on
// first participation.
type Participant struct {
	PlayerID           int64  `json:"player_id"`
	GuildID            string `json:"guild_id"`
	Score              int    `json:"score"`
	Kills              int    `json:"kills"`
	ObjectivesCaptured int    `json:"objectives_captured"`
	Contribution       int    `json:"contribution"`
}

// Score is the running per-side tally.
type Score struct {
	Attacking int `json:"attacking"`
	Defending int `json:"defending"`
}

// RewardBundle is an opaque reward descriptor applied at settlement.
type RewardBundle struct {
	Currency map[string]int64 `json:"currency"`
	XP       int              `json:"xp"`
}

// Rewards holds the bundles precomputed at war creation.
type Rewards struct {
	Winner   RewardBundle `json:"winner"`
	Loser    RewardBundle `json:"loser"`
	MVPBonus int64        `json:"mvp_bonus"`
}

// Event is one append-only event log entry, kept for auditability and MVP
// determination.
type Event struct {
	At          time.Time `json:"at"`
	PlayerID    int64     `json:"player_id"`
	GuildID     string    `json:"guild_id"`
	Action      Action    `json:"action"`
	ObjectiveID string    `json:"objective_id,omitempty"`
	Value       int       `json:"value"`
	Score       int       `json:"score"` // score credited by this event
}

// War is one guild-war aggregate, owned by the Coordinator for its
// lifetime. On settlement it is summarized into each guild's history and
// discarded.
type War struct {
	ID           string                 `json:"id"`
	AttackerID   string                 `json:"attacker_id"`
	DefenderID   string                 `json:"defender_id"`
	AttackerName string                 `json:"attacker_name"`
	DefenderName string                 `json:"defender_name"`
	Status       Status                 `json:"status"`
	StartTime    time.Time              `json:"start_time"`
	EndTime      time.Time              `json:"end_time"`
	Score        Score                  `json:"score"`
	Participants map[int64]*Participant `json:"participants"`
	Objectives   []*Objective           `json:"objectives"`
	Rewards      Rewards                `json:"rewards"`
	EventLog     []Event                `json:"event_log"`
	CreatedAt    time.Time              `json:"created_at"`
}

// Objective returns the objective with the given id, or nil.
func (w *War) Objective(id string) *Objective {
	for _, o := range w.Objectives {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// SideOf returns which side a guild fights on: +1 attacker, -1 defender,
// 0 not a belligerent.
func (w *War) SideOf(guildID string) int {
	switch guildID {
	case w.AttackerID:
		return 1
	case w.DefenderID:
		return -1
	}
	return 0
}

// addScore credits points to the side guildID fights on.
func (w *War) addScore(guildID string, points int) {
	switch w.SideOf(guildID) {
	case 1:
		w.Score.Attacking += points
	case -1:
		w.Score.Defending += points
	}
}

// Clone returns a deep copy, safe to hand out after the war lock is released.
func (w *War) Clone() *War {
	cp := *w
	cp.Participants = make(map[int64]*Participant, len(w.Participants))
	for id, p := range w.Participants {
		pc := *p
		cp.Participants[id] = &pc
	}
	cp.Objectives = make([]*Objective, len(w.Objectives))
	for i, o := range w.Objectives {
		oc := *o
		cp.Objectives[i] = &oc
	}
	cp.EventLog = append([]Event(nil), w.EventLog...)
	cp.Rewards.Winner.Currency = cloneCurrency(w.Rewards.Winner.Currency)
	cp.Rewards.Loser.Currency = cloneCurrency(w.Rewards.Loser.Currency)
	return &cp
}

func cloneCurrency(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
