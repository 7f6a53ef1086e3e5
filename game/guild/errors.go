package guild

import "errors"

// Command validation failures. All are recoverable and surfaced to the
// caller without mutating guild state.
var (
	ErrGuildNotFound        = errors.New("guild not found")
	ErrGuildFull            = errors.New("guild is full")
	ErrNotGuildMember       = errors.New("not a guild member")
	ErrAlreadyInGuild       = errors.New("player already belongs to a guild")
	ErrNameTaken            = errors.New("guild name already taken")
	ErrInsufficientTreasury = errors.New("insufficient treasury balance")
	ErrPerkNotFound         = errors.New("perk not found")
	ErrPerkMaxLevel         = errors.New("perk already at max level")
	ErrPerkRequirementUnmet = errors.New("guild level below perk requirement")
	ErrInsufficientRank     = errors.New("insufficient guild rank")
	ErrGuildNotOpen         = errors.New("guild is invite-only")
	ErrInvalidJoinPolicy    = errors.New("unknown join policy")
)
