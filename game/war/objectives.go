package war

import (
	"fmt"

	"github.com/hikari-games/guildwar/server/game/guild"
)

// captureComplete is the progress value at which ownership transfers.
const captureComplete = 100

// generateObjectives builds the fixed objective set for a new war: two
// capture points, two resource nodes, and one boss.
func generateObjectives() []*Objective {
	specs := []struct {
		typ    ObjectiveType
		points int
		count  int
	}{
		{ObjectiveCapturePoint, 100, 2},
		{ObjectiveResourceNode, 60, 2},
		{ObjectiveBossDefeat, 200, 1},
	}
	var out []*Objective
	n := 1
	for _, sp := range specs {
		for i := 0; i < sp.count; i++ {
			out = append(out, &Objective{
				ID:     fmt.Sprintf("obj-%d", n),
				Type:   sp.typ,
				Points: sp.points,
				Bonus:  sp.points / 2,
			})
			n++
		}
	}
	return out
}

// precomputeRewards fixes both reward bundles at war creation; they are
// applied untouched at settlement. Stakes scale with the stronger guild's
// level.
func precomputeRewards(attackerLevel, defenderLevel int) Rewards {
	level := attackerLevel
	if defenderLevel > level {
		level = defenderLevel
	}
	scale := int64(level)
	return Rewards{
		Winner: RewardBundle{
			Currency: map[string]int64{
				guild.CurrencyGold:    1000 * scale,
				guild.CurrencyCrystal: 10 * scale,
			},
			XP: 500 * level,
		},
		Loser: RewardBundle{
			Currency: map[string]int64{
				guild.CurrencyGold: 250 * scale,
			},
			XP: 100 * level,
		},
		MVPBonus: 200 * scale,
	}
}
