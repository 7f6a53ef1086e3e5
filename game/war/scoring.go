package war

import (
	"context"

	"github.com/hikari-games/guildwar/server/game/quest"
	"go.uber.org/zap"
)

// ParticipateResult reports the effect of one war action.
type ParticipateResult struct {
	Participant Participant `json:"participant"`
	Objective   *Objective  `json:"objective,omitempty"`
	Captured    bool        `json:"captured"`
	Score       Score       `json:"score"`
}

// Participate applies one participant action to a war. Rejected with
// ErrWarNotActive outside the active phase. The named objective, the
// participant record and the per-side score are all mutated under the
// war's lock, so concurrent actions observe a strict sequential history.
func (c *Coordinator) Participate(ctx context.Context, warID string, playerID int64, action Action, objectiveID string, value int) (ParticipateResult, error) {
	e, ok := c.lookup(warID)
	if !ok {
		return ParticipateResult{}, ErrWarNotFound
	}

	guildID := c.guilds.GuildOf(playerID)

	e.mu.Lock()
	defer e.mu.Unlock()
	w := e.w

	if w.Status != StatusActive {
		return ParticipateResult{}, ErrWarNotActive
	}
	if w.SideOf(guildID) == 0 {
		return ParticipateResult{}, ErrNotBelligerent
	}
	if (action == ActionDefend || action == ActionCollect) && value <= 0 {
		return ParticipateResult{}, ErrInvalidValue
	}

	p := w.Participants[playerID]
	if p == nil {
		p = &Participant{PlayerID: playerID, GuildID: guildID}
		w.Participants[playerID] = p
	}

	res := ParticipateResult{}
	credited := 0

	switch action {
	case ActionCapture:
		obj := w.Objective(objectiveID)
		if obj == nil || !obj.Active {
			return ParticipateResult{}, ErrObjectiveNotFound
		}
		obj.CaptureProgress += c.cfg.CaptureStep
		if obj.CaptureProgress >= captureComplete {
			// Ownership transfers exactly when progress reaches 100.
			obj.CaptureProgress = 0
			obj.ControlledBy = guildID
			p.ObjectivesCaptured++
			p.Score += obj.Points
			credited = obj.Points + obj.Bonus
			res.Captured = true
			c.logger.Info("objective captured",
				zap.String("war_id", w.ID),
				zap.String("objective_id", obj.ID),
				zap.String("guild_id", guildID),
				zap.Int64("player_id", playerID))
		}
		oc := *obj
		res.Objective = &oc

	case ActionDefend:
		credited = value * 2
		p.Score += credited
		p.Contribution += value

	case ActionCollect:
		credited = value
		p.Score += credited
		p.Contribution += value / 2

	case ActionDefeat:
		p.Kills++
		credited = c.cfg.DefeatBonus
		p.Score += credited

	default:
		return ParticipateResult{}, ErrInvalidAction
	}

	w.addScore(guildID, credited)
	w.EventLog = append(w.EventLog, Event{
		At:          c.sched.Now(),
		PlayerID:    playerID,
		GuildID:     guildID,
		Action:      action,
		ObjectiveID: objectiveID,
		Value:       value,
		Score:       credited,
	})

	res.Participant = *p
	res.Score = w.Score
	c.flush(w)

	c.reportQuest(ctx, guildID, quest.KindWarAction, 1)
	if res.Captured {
		c.reportQuest(ctx, guildID, quest.KindObjectiveCapture, 1)
	}
	if action == ActionDefeat {
		c.reportQuest(ctx, guildID, quest.KindWarKill, 1)
	}
	if credited > 0 {
		c.reportQuest(ctx, guildID, quest.KindWarScore, credited)
	}
	return res, nil
}
