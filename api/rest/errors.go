package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hikari-games/guildwar/server/game/guild"
	"github.com/hikari-games/guildwar/server/game/quest"
	"github.com/hikari-games/guildwar/server/game/war"
)

// respondError translates engine sentinel errors into HTTP status codes.
// Unknown errors become 500 with a generic message so internals never leak.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, guild.ErrGuildNotFound),
		errors.Is(err, guild.ErrPerkNotFound),
		errors.Is(err, war.ErrWarNotFound),
		errors.Is(err, war.ErrObjectiveNotFound),
		errors.Is(err, quest.ErrQuestNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, guild.ErrNotGuildMember),
		errors.Is(err, guild.ErrInsufficientRank),
		errors.Is(err, war.ErrNotBelligerent):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, guild.ErrInvalidTag),
		errors.Is(err, guild.ErrInvalidContribution),
		errors.Is(err, guild.ErrContributionTooLow),
		errors.Is(err, guild.ErrInvalidJoinPolicy),
		errors.Is(err, war.ErrInvalidAction),
		errors.Is(err, war.ErrInvalidValue):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, guild.ErrGuildFull),
		errors.Is(err, guild.ErrGuildNotOpen),
		errors.Is(err, guild.ErrAlreadyInGuild),
		errors.Is(err, guild.ErrNameTaken),
		errors.Is(err, guild.ErrInsufficientTreasury),
		errors.Is(err, guild.ErrPerkMaxLevel),
		errors.Is(err, guild.ErrPerkRequirementUnmet),
		errors.Is(err, war.ErrWarAlreadyActive),
		errors.Is(err, war.ErrWarOnCooldown),
		errors.Is(err, war.ErrWarNotActive),
		errors.Is(err, war.ErrRewardAlreadyClaimed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
