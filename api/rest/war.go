package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hikari-games/guildwar/server/audit"
	"github.com/hikari-games/guildwar/server/game/guild"
	"github.com/hikari-games/guildwar/server/game/war"
	mw "github.com/hikari-games/guildwar/server/middleware"
	"go.uber.org/zap"
)

// WarHandler handles guild-war REST endpoints.
type WarHandler struct {
	guilds *guild.Service
	wars   *war.Coordinator
	audit  *audit.Service
	logger *zap.Logger
}

// NewWarHandler creates a new WarHandler.
func NewWarHandler(guilds *guild.Service, wars *war.Coordinator, auditSvc *audit.Service, logger *zap.Logger) *WarHandler {
	return &WarHandler{guilds: guilds, wars: wars, audit: auditSvc, logger: logger}
}

func (h *WarHandler) logAction(c *gin.Context, action, warID string, req, resp interface{}, start time.Time, opErr error) {
	if h.audit == nil {
		return
	}
	playerID := mw.GetAccountID(c)
	entry := audit.AuditEntry{
		TraceID:    mw.GetTraceID(c),
		PlayerID:   &playerID,
		GuildID:    h.guilds.GuildOf(playerID),
		WarID:      warID,
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

type declareWarRequest struct {
	DefenderID string `json:"defender_id" binding:"required"`
}

// Declare handles POST /api/wars. The caller's guild attacks; only the
// leader or an officer may declare.
func (h *WarHandler) Declare(c *gin.Context) {
	start := time.Now()
	playerID := mw.GetAccountID(c)

	var req declareWarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	attackerID := h.guilds.GuildOf(playerID)
	if attackerID == "" {
		respondError(c, guild.ErrNotGuildMember)
		return
	}
	attacker, err := h.guilds.Snapshot(attackerID)
	if err != nil {
		respondError(c, err)
		return
	}
	m := attacker.Member(playerID)
	if m == nil || (m.Role != guild.RoleLeader && m.Role != guild.RoleOfficer) {
		respondError(c, guild.ErrInsufficientRank)
		return
	}

	w, err := h.wars.StartWar(c.Request.Context(), attackerID, req.DefenderID)
	if err != nil {
		h.logAction(c, "war.declare", "", req, nil, start, err)
		respondError(c, err)
		return
	}

	h.logAction(c, "war.declare", w.ID, req, gin.H{"war_id": w.ID}, start, nil)
	c.JSON(http.StatusCreated, w)
}

// Get handles GET /api/wars/:id.
func (h *WarHandler) Get(c *gin.Context) {
	w, err := h.wars.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// Current handles GET /api/wars/current: the caller guild's live war.
func (h *WarHandler) Current(c *gin.Context) {
	guildID := h.guilds.GuildOf(mw.GetAccountID(c))
	if guildID == "" {
		respondError(c, guild.ErrNotGuildMember)
		return
	}
	warID := h.wars.WarOf(guildID)
	if warID == "" {
		respondError(c, war.ErrWarNotFound)
		return
	}
	w, err := h.wars.Get(warID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

type participateRequest struct {
	Action      string `json:"action"       binding:"required"`
	ObjectiveID string `json:"objective_id"`
	Value       int    `json:"value"        binding:"min=0"`
}

// Participate handles POST /api/wars/:id/actions.
func (h *WarHandler) Participate(c *gin.Context) {
	start := time.Now()
	warID := c.Param("id")

	var req participateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.wars.Participate(c.Request.Context(), warID, mw.GetAccountID(c),
		war.Action(req.Action), req.ObjectiveID, req.Value)
	if err != nil {
		h.logAction(c, "war.participate", warID, req, nil, start, err)
		respondError(c, err)
		return
	}

	h.logAction(c, "war.participate", warID, req, res, start, nil)
	c.JSON(http.StatusOK, res)
}
