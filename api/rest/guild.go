package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hikari-games/guildwar/server/audit"
	"github.com/hikari-games/guildwar/server/game/guild"
	"github.com/hikari-games/guildwar/server/game/quest"
	"github.com/hikari-games/guildwar/server/game/war"
	mw "github.com/hikari-games/guildwar/server/middleware"
	"go.uber.org/zap"
)

// GuildHandler handles guild REST endpoints.
type GuildHandler struct {
	guilds *guild.Service
	quests *quest.Generator
	wars   *war.Coordinator
	audit  *audit.Service
	logger *zap.Logger
}

// NewGuildHandler creates a new GuildHandler.
func NewGuildHandler(guilds *guild.Service, quests *quest.Generator, wars *war.Coordinator, auditSvc *audit.Service, logger *zap.Logger) *GuildHandler {
	return &GuildHandler{guilds: guilds, quests: quests, wars: wars, audit: auditSvc, logger: logger}
}

func (h *GuildHandler) logAction(c *gin.Context, action, guildID string, req, resp interface{}, start time.Time, opErr error) {
	if h.audit == nil {
		return
	}
	playerID := mw.GetAccountID(c)
	entry := audit.AuditEntry{
		TraceID:    mw.GetTraceID(c),
		PlayerID:   &playerID,
		GuildID:    guildID,
		Action:     action,
		Request:    req,
		Response:   resp,
		IP:         c.ClientIP(),
		DurationMs: int(time.Since(start).Milliseconds()),
	}
	if opErr != nil {
		entry.Error = opErr.Error()
	}
	h.audit.Log(entry)
}

type createGuildRequest struct {
	Name string `json:"name" binding:"required,min=2,max=32"`
	Tag  string `json:"tag"  binding:"required,min=3,max=8"`
}

// Create handles POST /api/guilds.
func (h *GuildHandler) Create(c *gin.Context) {
	start := time.Now()
	playerID := mw.GetAccountID(c)

	var req createGuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, err := h.guilds.CreateGuild(c.Request.Context(), req.Name, req.Tag, playerID)
	if err != nil {
		h.logAction(c, "guild.create", "", req, nil, start, err)
		respondError(c, err)
		return
	}
	h.quests.EnsureGuild(g.ID)

	h.logAction(c, "guild.create", g.ID, req, gin.H{"guild_id": g.ID}, start, nil)
	c.JSON(http.StatusCreated, g)
}

// Detail handles GET /api/guilds/:id.
func (h *GuildHandler) Detail(c *gin.Context) {
	g, err := h.guilds.Snapshot(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// Search handles GET /api/guilds?q=. An empty query lists all guilds.
func (h *GuildHandler) Search(c *gin.Context) {
	results := h.guilds.Search(c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"guilds": results, "count": len(results)})
}

// Join handles POST /api/guilds/:id/join.
func (h *GuildHandler) Join(c *gin.Context) {
	start := time.Now()
	playerID := mw.GetAccountID(c)
	guildID := c.Param("id")

	if err := h.guilds.JoinGuild(c.Request.Context(), guildID, playerID); err != nil {
		h.logAction(c, "guild.join", guildID, nil, nil, start, err)
		respondError(c, err)
		return
	}
	h.quests.UpdateQuestProgress(c.Request.Context(), guildID, quest.KindMemberJoin, 1)
	h.logAction(c, "guild.join", guildID, nil, gin.H{"ok": true}, start, nil)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Leave handles POST /api/guilds/leave. The guild is resolved from the
// caller's membership.
func (h *GuildHandler) Leave(c *gin.Context) {
	start := time.Now()
	playerID := mw.GetAccountID(c)
	guildID := h.guilds.GuildOf(playerID)

	res, err := h.guilds.LeaveGuild(c.Request.Context(), playerID)
	if err != nil {
		h.logAction(c, "guild.leave", guildID, nil, nil, start, err)
		respondError(c, err)
		return
	}
	if res.Disbanded {
		h.onDisband(c, guildID)
	}
	h.logAction(c, "guild.leave", guildID, nil, res, start, nil)
	c.JSON(http.StatusOK, res)
}

// Kick handles DELETE /api/guilds/:id/members/:pid.
func (h *GuildHandler) Kick(c *gin.Context) {
	start := time.Now()
	guildID := c.Param("id")
	targetID, err := strconv.ParseInt(c.Param("pid"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid player id"})
		return
	}

	res, err := h.guilds.KickMember(c.Request.Context(), guildID, mw.GetAccountID(c), targetID)
	if err != nil {
		h.logAction(c, "guild.kick", guildID, gin.H{"target_id": targetID}, nil, start, err)
		respondError(c, err)
		return
	}
	if res.Disbanded {
		h.onDisband(c, guildID)
	}
	h.logAction(c, "guild.kick", guildID, gin.H{"target_id": targetID}, res, start, nil)
	c.JSON(http.StatusOK, res)
}

// Promote handles PUT /api/guilds/:id/members/:pid/promote.
func (h *GuildHandler) Promote(c *gin.Context) {
	start := time.Now()
	guildID := c.Param("id")
	targetID, err := strconv.ParseInt(c.Param("pid"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid player id"})
		return
	}

	if err := h.guilds.PromoteOfficer(c.Request.Context(), guildID, mw.GetAccountID(c), targetID); err != nil {
		h.logAction(c, "guild.promote", guildID, gin.H{"target_id": targetID}, nil, start, err)
		respondError(c, err)
		return
	}
	h.logAction(c, "guild.promote", guildID, gin.H{"target_id": targetID}, gin.H{"ok": true}, start, nil)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type contributeRequest struct {
	Kind   string `json:"kind"   binding:"required"`
	Amount int64  `json:"amount" binding:"required"`
}

// Contribute handles POST /api/guilds/:id/contribute.
func (h *GuildHandler) Contribute(c *gin.Context) {
	start := time.Now()
	guildID := c.Param("id")

	var req contributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.guilds.Contribute(c.Request.Context(), guildID, mw.GetAccountID(c), req.Kind, req.Amount)
	if err != nil {
		h.logAction(c, "guild.contribute", guildID, req, nil, start, err)
		respondError(c, err)
		return
	}
	if req.Kind == guild.CurrencyGold {
		h.quests.UpdateQuestProgress(c.Request.Context(), guildID, quest.KindContribution, int(req.Amount))
	}
	h.logAction(c, "guild.contribute", guildID, req, res, start, nil)
	c.JSON(http.StatusOK, res)
}

// UpgradePerk handles POST /api/guilds/:id/perks/:perk.
func (h *GuildHandler) UpgradePerk(c *gin.Context) {
	start := time.Now()
	guildID := c.Param("id")
	perkID := c.Param("perk")

	state, err := h.guilds.UpgradePerk(c.Request.Context(), guildID, mw.GetAccountID(c), perkID)
	if err != nil {
		h.logAction(c, "guild.perk_upgrade", guildID, gin.H{"perk": perkID}, nil, start, err)
		respondError(c, err)
		return
	}
	h.quests.UpdateQuestProgress(c.Request.Context(), guildID, quest.KindPerkUpgrade, 1)
	h.logAction(c, "guild.perk_upgrade", guildID, gin.H{"perk": perkID}, state, start, nil)
	c.JSON(http.StatusOK, state)
}

// Perks handles GET /api/perks: the static catalog.
func (h *GuildHandler) Perks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"perks": h.guilds.Catalog()})
}

// Quests handles GET /api/guilds/:id/quests.
func (h *GuildHandler) Quests(c *gin.Context) {
	guildID := c.Param("id")
	if _, err := h.guilds.Snapshot(guildID); err != nil {
		respondError(c, err)
		return
	}
	quests := h.quests.QuestsFor(guildID)
	c.JSON(http.StatusOK, gin.H{"quests": quests, "count": len(quests)})
}

type updateSettingsRequest struct {
	JoinPolicy      string `json:"join_policy"      binding:"required"`
	MinContribution int64  `json:"min_contribution" binding:"min=0"`
	Motd            string `json:"motd"`
}

// UpdateSettings handles PUT /api/guilds/:id/settings.
func (h *GuildHandler) UpdateSettings(c *gin.Context) {
	start := time.Now()
	guildID := c.Param("id")

	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings := guild.Settings{
		JoinPolicy:      req.JoinPolicy,
		MinContribution: req.MinContribution,
		Motd:            req.Motd,
	}
	if err := h.guilds.UpdateSettings(c.Request.Context(), guildID, mw.GetAccountID(c), settings); err != nil {
		h.logAction(c, "guild.settings", guildID, req, nil, start, err)
		respondError(c, err)
		return
	}
	h.logAction(c, "guild.settings", guildID, req, gin.H{"ok": true}, start, nil)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type questProgressRequest struct {
	Kind   string `json:"kind"   binding:"required"`
	Amount int    `json:"amount" binding:"required,min=1"`
}

// QuestProgress handles POST /api/guilds/:id/quests/progress. Only members
// of the guild may report progress for it.
func (h *GuildHandler) QuestProgress(c *gin.Context) {
	start := time.Now()
	guildID := c.Param("id")

	var req questProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !quest.KnownKind(req.Kind) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown progress kind"})
		return
	}
	if _, err := h.guilds.Snapshot(guildID); err != nil {
		respondError(c, err)
		return
	}
	if h.guilds.GuildOf(mw.GetAccountID(c)) != guildID {
		respondError(c, guild.ErrNotGuildMember)
		return
	}

	h.quests.UpdateQuestProgress(c.Request.Context(), guildID, req.Kind, req.Amount)
	h.logAction(c, "guild.quest_progress", guildID, req, gin.H{"ok": true}, start, nil)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// onDisband tears down everything that referenced the guild: its live war
// (if any) and its quest set.
func (h *GuildHandler) onDisband(c *gin.Context, guildID string) {
	h.wars.InvalidateGuild(c.Request.Context(), guildID)
	h.quests.InvalidateGuild(c.Request.Context(), guildID)
	h.logger.Info("guild disbanded", zap.String("guild_id", guildID))
}
