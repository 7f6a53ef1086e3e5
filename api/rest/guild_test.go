package rest_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hikari-games/guildwar/server/api/rest"
	"github.com/hikari-games/guildwar/server/config"
	"github.com/hikari-games/guildwar/server/game/guild"
	"github.com/hikari-games/guildwar/server/game/quest"
	"github.com/hikari-games/guildwar/server/game/war"
	mw "github.com/hikari-games/guildwar/server/middleware"
	"github.com/hikari-games/guildwar/server/notify"
	"github.com/hikari-games/guildwar/server/scheduler"
	"github.com/hikari-games/guildwar/server/store"
	"github.com/hikari-games/guildwar/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// apiEnv is a full stack behind an in-process router: SQLite store, local
// cache, fake clock, and real JWT auth. Player n authenticates with
// env.token(n); account ids are assigned in login order starting at 1.
type apiEnv struct {
	r      *gin.Engine
	guilds *guild.Service
	wars   *war.Coordinator
	quests *quest.Generator
	clock  *scheduler.FakeClock
	tokens map[int64]string
}

func newAPIEnv(t *testing.T, players int) *apiEnv {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	db := testutil.SetupTestDB(t)
	c, ps := testutil.SetupTestCache(t)
	sec := config.SecurityConfig{JWTSecret: "test-secret", JWTTTLH: 72 * time.Hour}
	clock := scheduler.NewFakeClock(time.Unix(1_700_000_000, 0))

	sched := scheduler.New(clock, logger)
	t.Cleanup(sched.Stop)

	gateway := notify.NewGateway(ps, logger)
	st := store.New(db, logger)

	guildSvc := guild.NewService(config.GuildConfig{
		BaseXPThreshold:   1000,
		XPPerContribution: 10,
		BaseMaxMembers:    20,
		MembersPerLevel:   5,
		MaxMembersCap:     100,
		WarHistoryCap:     50,
	}, st, gateway, gateway, clock, logger)
	warCoord := war.NewCoordinator(config.WarConfig{
		PrepDelay:   time.Hour,
		Duration:    time.Hour,
		Cooldown:    24 * time.Hour,
		CaptureStep: 10,
		DefeatBonus: 100,
	}, guildSvc, st, sched, c, gateway, logger)
	questGen := quest.NewGenerator(config.QuestConfig{
		DailySlots:     3,
		WeeklyWindow:   168 * time.Hour,
		SeasonalWindow: 2160 * time.Hour,
	}, guildSvc, st, clock, gateway, nil, logger)
	warCoord.SetQuestProgress(questGen)

	authH := rest.NewAuthHandler(db, c, sec)
	guildH := rest.NewGuildHandler(guildSvc, questGen, warCoord, nil, logger)
	warH := rest.NewWarHandler(guildSvc, warCoord, nil, logger)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/auth/login", authH.Login)

	guildsG := api.Group("/guilds")
	guildsG.Use(mw.Auth(sec, c))
	guildsG.POST("", guildH.Create)
	guildsG.GET("", guildH.Search)
	guildsG.GET("/:id", guildH.Detail)
	guildsG.POST("/:id/join", guildH.Join)
	guildsG.POST("/leave", guildH.Leave)
	guildsG.DELETE("/:id/members/:pid", guildH.Kick)
	guildsG.PUT("/:id/members/:pid/promote", guildH.Promote)
	guildsG.POST("/:id/contribute", guildH.Contribute)
	guildsG.PUT("/:id/settings", guildH.UpdateSettings)
	guildsG.POST("/:id/perks/:perk", guildH.UpgradePerk)
	guildsG.GET("/:id/quests", guildH.Quests)
	guildsG.POST("/:id/quests/progress", guildH.QuestProgress)
	api.GET("/perks", mw.Auth(sec, c), guildH.Perks)

	warsG := api.Group("/wars")
	warsG.Use(mw.Auth(sec, c))
	warsG.POST("", warH.Declare)
	warsG.GET("/current", warH.Current)
	warsG.GET("/:id", warH.Get)
	warsG.POST("/:id/actions", warH.Participate)

	env := &apiEnv{
		r: r, guilds: guildSvc, wars: warCoord, quests: questGen,
		clock: clock, tokens: make(map[int64]string),
	}
	for i := 1; i <= players; i++ {
		w := postJSON(r, "/api/auth/login", map[string]string{
			"username": fmt.Sprintf("player%d", i),
			"password": "pass1234",
		})
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Token     string `json:"token"`
			AccountID int64  `json:"account_id"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		env.tokens[resp.AccountID] = resp.Token
	}
	return env
}

func (e *apiEnv) token(playerID int64) string { return "Bearer " + e.tokens[playerID] }

func (e *apiEnv) post(playerID int64, path string, body interface{}) *httptest.ResponseRecorder {
	return postJSON(e.r, path, body, "Authorization", e.token(playerID))
}

func (e *apiEnv) get(playerID int64, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", e.token(playerID))
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func (e *apiEnv) put(playerID int64, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPut, path, nil)
	req.Header.Set("Authorization", e.token(playerID))
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func (e *apiEnv) putJSON(playerID int64, path string, body interface{}) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPut, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", e.token(playerID))
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func (e *apiEnv) del(playerID int64, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodDelete, path, nil)
	req.Header.Set("Authorization", e.token(playerID))
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

// createGuild creates a guild through the API and returns its id.
func (e *apiEnv) createGuild(t *testing.T, playerID int64, name, tag string) string {
	t.Helper()
	w := e.post(playerID, "/api/guilds", map[string]string{"name": name, "tag": tag})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var g guild.Guild
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &g))
	return g.ID
}

func TestGuildCreateAndDetail(t *testing.T) {
	env := newAPIEnv(t, 1)

	w := env.post(1, "/api/guilds", map[string]string{"name": "Iron Vanguard", "tag": "ironclad"})
	require.Equal(t, http.StatusCreated, w.Code)
	var g guild.Guild
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &g))
	assert.Equal(t, "IRON", g.Tag)
	assert.Equal(t, int64(1), g.LeaderID)

	w = env.get(1, "/api/guilds/"+g.ID)
	require.Equal(t, http.StatusOK, w.Code)
	var got guild.Guild
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Iron Vanguard", got.Name)
	assert.Len(t, got.Members, 1)

	w = env.get(1, "/api/guilds/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGuildCreate_Validation(t *testing.T) {
	env := newAPIEnv(t, 2)

	w := env.post(1, "/api/guilds", map[string]string{"name": "X", "tag": "XY"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.createGuild(t, 1, "Taken", "TKN")
	w = env.post(2, "/api/guilds", map[string]string{"name": "taken", "tag": "TKN2"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGuildCreate_Unauthorized(t *testing.T) {
	env := newAPIEnv(t, 1)
	w := postJSON(env.r, "/api/guilds", map[string]string{"name": "NoAuth", "tag": "NOPE"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGuildSearch(t *testing.T) {
	env := newAPIEnv(t, 2)
	env.createGuild(t, 1, "Iron Vanguard", "IRON")
	env.createGuild(t, 2, "Silver Hand", "SLVR")

	w := env.get(1, "/api/guilds?q=iron")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Guilds []guild.Summary `json:"guilds"`
		Count  int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "Iron Vanguard", resp.Guilds[0].Name)

	w = env.get(1, "/api/guilds")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
}

func TestGuildJoinAndLeave(t *testing.T) {
	env := newAPIEnv(t, 3)
	gid := env.createGuild(t, 1, "Open Door", "OPEN")

	w := env.post(2, "/api/guilds/"+gid+"/join", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Already in a guild.
	w = env.post(2, "/api/guilds/"+gid+"/join", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Leaving resolves the guild from membership.
	w = env.post(2, "/api/guilds/leave", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res guild.LeaveResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Disbanded)

	// Not a member anymore.
	w = env.post(2, "/api/guilds/leave", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGuildSettings(t *testing.T) {
	env := newAPIEnv(t, 3)
	gid := env.createGuild(t, 1, "Gatekeepers", "GATE")

	w := env.putJSON(1, "/api/guilds/"+gid+"/settings",
		map[string]interface{}{"join_policy": "invite_only", "min_contribution": 100})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Invite-only guilds reject unsolicited joins.
	w = env.post(2, "/api/guilds/"+gid+"/join", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Contributions below the configured minimum are rejected.
	w = env.post(1, "/api/guilds/"+gid+"/contribute",
		map[string]interface{}{"kind": "gold", "amount": 50})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.post(1, "/api/guilds/"+gid+"/contribute",
		map[string]interface{}{"kind": "gold", "amount": 100})
	assert.Equal(t, http.StatusOK, w.Code)

	// Unknown policy values are rejected; non-members cannot change settings.
	w = env.putJSON(1, "/api/guilds/"+gid+"/settings",
		map[string]interface{}{"join_policy": "locked"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.putJSON(3, "/api/guilds/"+gid+"/settings",
		map[string]interface{}{"join_policy": "open"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Reopening lets the join through.
	w = env.putJSON(1, "/api/guilds/"+gid+"/settings",
		map[string]interface{}{"join_policy": "open"})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.post(2, "/api/guilds/"+gid+"/join", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGuildLeave_LastMemberDisbands(t *testing.T) {
	env := newAPIEnv(t, 1)
	gid := env.createGuild(t, 1, "Brief", "BRF")

	w := env.post(1, "/api/guilds/leave", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res guild.LeaveResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Disbanded)

	w = env.get(1, "/api/guilds/"+gid)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, env.quests.QuestsFor(gid), "quest set torn down with the guild")
}

func TestGuildKickAndPromote(t *testing.T) {
	env := newAPIEnv(t, 3)
	gid := env.createGuild(t, 1, "Hierarchy", "HRY")
	require.Equal(t, http.StatusOK, env.post(2, "/api/guilds/"+gid+"/join", nil).Code)
	require.Equal(t, http.StatusOK, env.post(3, "/api/guilds/"+gid+"/join", nil).Code)

	// A plain member cannot kick or promote.
	assert.Equal(t, http.StatusForbidden, env.del(2, "/api/guilds/"+gid+"/members/3").Code)
	assert.Equal(t, http.StatusForbidden, env.put(2, "/api/guilds/"+gid+"/members/3/promote").Code)

	// Leader promotes 2; officer 2 kicks 3.
	require.Equal(t, http.StatusOK, env.put(1, "/api/guilds/"+gid+"/members/2/promote").Code)
	assert.Equal(t, http.StatusOK, env.del(2, "/api/guilds/"+gid+"/members/3").Code)

	// The leader is unkickable, even by an officer.
	assert.Equal(t, http.StatusForbidden, env.del(2, "/api/guilds/"+gid+"/members/1").Code)

	badID := env.del(1, "/api/guilds/"+gid+"/members/not-a-number")
	assert.Equal(t, http.StatusBadRequest, badID.Code)
}

func TestGuildContribute(t *testing.T) {
	env := newAPIEnv(t, 1)
	gid := env.createGuild(t, 1, "Coffers", "CFR")

	w := env.post(1, "/api/guilds/"+gid+"/contribute", map[string]interface{}{
		"kind": "gold", "amount": 250,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var res guild.ContributeResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 25, res.XPAwarded)
	assert.Equal(t, int64(250), res.Balance)

	w = env.post(1, "/api/guilds/"+gid+"/contribute", map[string]interface{}{
		"kind": "gold", "amount": -5,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGuildPerks(t *testing.T) {
	env := newAPIEnv(t, 1)
	gid := env.createGuild(t, 1, "Perked", "PRK")

	// Catalog is public within the API group.
	w := env.get(1, "/api/perks")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "training_grounds")

	// No funds yet.
	w = env.post(1, "/api/guilds/"+gid+"/perks/training_grounds", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	require.Equal(t, http.StatusOK, env.post(1, "/api/guilds/"+gid+"/contribute",
		map[string]interface{}{"kind": "gold", "amount": 500}).Code)

	w = env.post(1, "/api/guilds/"+gid+"/perks/training_grounds", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var state guild.PerkState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, 1, state.Level)

	w = env.post(1, "/api/guilds/"+gid+"/perks/unknown_perk", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGuildQuests(t *testing.T) {
	env := newAPIEnv(t, 1)
	gid := env.createGuild(t, 1, "Questing", "QST")

	w := env.get(1, "/api/guilds/"+gid+"/quests")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Quests []*quest.Quest `json:"quests"`
		Count  int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Count, "guild creation seeds 3 dailies, a weekly, and a seasonal")

	w = env.get(1, "/api/guilds/missing/quests")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGuildQuestProgress(t *testing.T) {
	env := newAPIEnv(t, 2)
	gid := env.createGuild(t, 1, "Questing", "QST")

	w := env.post(1, "/api/guilds/"+gid+"/quests/progress",
		map[string]interface{}{"kind": quest.KindMemberJoin, "amount": 1})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Quests []*quest.Quest `json:"quests"`
	}
	w = env.get(1, "/api/guilds/"+gid+"/quests")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	for _, q := range resp.Quests {
		if q.Kind == quest.KindMemberJoin {
			assert.Equal(t, 1, q.Progress)
		}
	}

	w = env.post(1, "/api/guilds/"+gid+"/quests/progress",
		map[string]interface{}{"kind": "sabotage", "amount": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.post(2, "/api/guilds/"+gid+"/quests/progress",
		map[string]interface{}{"kind": quest.KindMemberJoin, "amount": 1})
	assert.Equal(t, http.StatusForbidden, w.Code, "outsiders cannot report progress")

	w = env.post(1, "/api/guilds/missing/quests/progress",
		map[string]interface{}{"kind": quest.KindMemberJoin, "amount": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
