package war

import "context"

// QuestProgress receives progress reports for guild quests. Satisfied by
// the quest generator; optional, wired after construction.
type QuestProgress interface {
	UpdateQuestProgress(ctx context.Context, guildID, kind string, amount int)
}

// SetQuestProgress wires quest progress reporting. Not safe to call after
// the coordinator starts serving requests.
func (c *Coordinator) SetQuestProgress(qp QuestProgress) {
	c.quests = qp
}

func (c *Coordinator) reportQuest(ctx context.Context, guildID, kind string, amount int) {
	if c.quests == nil {
		return
	}
	c.quests.UpdateQuestProgress(ctx, guildID, kind, amount)
}
