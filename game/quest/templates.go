package quest

// Type is the quest refresh cadence.
type Type string

const (
	TypeDaily    Type = "daily"
	TypeWeekly   Type = "weekly"
	TypeSeasonal Type = "seasonal"
)

// Progress kinds reported by the rest of the engine. A quest advances when
// the reported kind matches its template's Kind.
const (
	KindContribution     = "contribution"
	KindMemberJoin       = "member_join"
	KindPerkUpgrade      = "perk_upgrade"
	KindWarAction        = "war_action"
	KindWarKill          = "war_kill"
	KindWarScore         = "war_score"
	KindWarWin           = "war_win"
	KindObjectiveCapture = "objective_capture"
)

// KnownKind reports whether kind is a progress kind quests can track.
func KnownKind(kind string) bool {
	switch kind {
	case KindContribution, KindMemberJoin, KindPerkUpgrade, KindWarAction,
		KindWarKill, KindWarScore, KindWarWin, KindObjectiveCapture:
		return true
	}
	return false
}

// Template is a quest blueprint. Target is the progress amount required to
// complete; Kind selects which progress reports count toward it.
type Template struct {
	Name       string `json:"name"`
	Descr      string `json:"description"`
	Kind       string `json:"kind"`
	Target     int    `json:"target"`
	RewardXP   int    `json:"reward_xp"`
	RewardGold int64  `json:"reward_gold"`
}

var dailyTemplates = []Template{
	{Name: "Daily Tithe", Descr: "Contribute 500 gold to the guild treasury", Kind: KindContribution, Target: 500, RewardXP: 200, RewardGold: 100},
	{Name: "Fresh Blood", Descr: "Welcome a new member into the guild", Kind: KindMemberJoin, Target: 1, RewardXP: 150, RewardGold: 50},
	{Name: "Call to Arms", Descr: "Perform 5 actions in an active guild war", Kind: KindWarAction, Target: 5, RewardXP: 250, RewardGold: 100},
	{Name: "Sharpened Steel", Descr: "Defeat 10 enemies during a guild war", Kind: KindWarKill, Target: 10, RewardXP: 300, RewardGold: 150},
	{Name: "Point Taken", Descr: "Capture 2 objectives in a guild war", Kind: KindObjectiveCapture, Target: 2, RewardXP: 300, RewardGold: 150},
	{Name: "Patron of Progress", Descr: "Upgrade a guild perk", Kind: KindPerkUpgrade, Target: 1, RewardXP: 200, RewardGold: 0},
}

var weeklyTemplates = []Template{
	{Name: "War Effort", Descr: "Earn 1000 war score for the guild", Kind: KindWarScore, Target: 1000, RewardXP: 1500, RewardGold: 800},
	{Name: "Full Coffers", Descr: "Contribute 5000 gold to the guild treasury", Kind: KindContribution, Target: 5000, RewardXP: 1200, RewardGold: 500},
	{Name: "Conquerors", Descr: "Win 2 guild wars", Kind: KindWarWin, Target: 2, RewardXP: 2000, RewardGold: 1000},
}

var seasonalTemplates = []Template{
	{Name: "Dominion", Descr: "Win 10 guild wars this season", Kind: KindWarWin, Target: 10, RewardXP: 10000, RewardGold: 5000},
	{Name: "Golden Age", Descr: "Contribute 100000 gold this season", Kind: KindContribution, Target: 100000, RewardXP: 8000, RewardGold: 4000},
	{Name: "Siege Masters", Descr: "Capture 50 war objectives this season", Kind: KindObjectiveCapture, Target: 50, RewardXP: 9000, RewardGold: 4500},
}
