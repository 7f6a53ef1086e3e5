package war

import "errors"

var (
	ErrWarNotFound          = errors.New("war not found")
	ErrWarAlreadyActive     = errors.New("guild already has an unfinished war")
	ErrWarOnCooldown        = errors.New("guild is on war cooldown")
	ErrWarNotActive         = errors.New("war is not in the active phase")
	ErrNotBelligerent       = errors.New("player's guild is not part of this war")
	ErrObjectiveNotFound    = errors.New("objective not found")
	ErrInvalidAction        = errors.New("unknown war action")
	ErrInvalidValue         = errors.New("action value must be positive")
	ErrRewardAlreadyClaimed = errors.New("war rewards already claimed")
)
