// Package store persists guild, war, and quest aggregates as JSON documents
// with a few columns lifted out for indexed lookup. In-memory state is
// authoritative; everything here is a write-behind.
package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hikari-games/guildwar/server/game/guild"
	"github.com/hikari-games/guildwar/server/game/quest"
	"github.com/hikari-games/guildwar/server/game/war"
	"github.com/hikari-games/guildwar/server/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store implements the persistence interfaces of the guild service, war
// coordinator, and quest generator on one gorm handle.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

func New(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// SaveGuild upserts the guild document.
func (s *Store) SaveGuild(ctx context.Context, g *guild.Guild) error {
	doc, err := json.Marshal(g)
	if err != nil {
		return err
	}
	row := &model.GuildDoc{
		ID:    g.ID,
		Name:  g.Name,
		Tag:   g.Tag,
		Level: g.Level,
		Doc:   datatypes.JSON(doc),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		DoUpdates: clause.AssignmentColumns([]string{"name", "tag", "level", "doc", "updated_at"}),
	}).Create(row).Error
}

func (s *Store) DeleteGuild(ctx context.Context, guildID string) error {
	return s.db.WithContext(ctx).Delete(&model.GuildDoc{}, "id = ?", guildID).Error
}

// SaveWar upserts the war document.
func (s *Store) SaveWar(ctx context.Context, w *war.War) error {
	return s.saveWarTx(s.db.WithContext(ctx), w)
}

func (s *Store) saveWarTx(tx *gorm.DB, w *war.War) error {
	doc, err := json.Marshal(w)
	if err != nil {
		return err
	}
	row := &model.WarDoc{
		ID:         w.ID,
		AttackerID: w.AttackerID,
		DefenderID: w.DefenderID,
		Status:     string(w.Status),
		StartTime:  w.StartTime,
		EndTime:    w.EndTime,
		Doc:        datatypes.JSON(doc),
	}
	return tx.Clauses(clause.OnConflict{
		DoUpdates: clause.AssignmentColumns([]string{"status", "start_time", "end_time", "doc", "updated_at"}),
	}).Create(row).Error
}

func (s *Store) DeleteWar(ctx context.Context, warID string) error {
	return s.db.WithContext(ctx).Delete(&model.WarDoc{}, "id = ?", warID).Error
}

// SettleWar commits a settlement atomically: both updated guild documents
// are saved and the war row is removed in one transaction, so a crash can
// never persist one guild's history without the other's.
func (s *Store) SettleWar(ctx context.Context, warID string, attacker, defender *guild.Guild) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, g := range []*guild.Guild{attacker, defender} {
			doc, err := json.Marshal(g)
			if err != nil {
				return err
			}
			row := &model.GuildDoc{ID: g.ID, Name: g.Name, Tag: g.Tag, Level: g.Level, Doc: datatypes.JSON(doc)}
			if err := tx.Clauses(clause.OnConflict{
				DoUpdates: clause.AssignmentColumns([]string{"name", "tag", "level", "doc", "updated_at"}),
			}).Create(row).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&model.WarDoc{}, "id = ?", warID).Error
	})
}

// SaveQuests upserts a guild's quest set document.
func (s *Store) SaveQuests(ctx context.Context, guildID string, quests []*quest.Quest) error {
	doc, err := json.Marshal(quests)
	if err != nil {
		return err
	}
	row := &model.QuestDoc{GuildID: guildID, Doc: datatypes.JSON(doc)}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		DoUpdates: clause.AssignmentColumns([]string{"doc", "updated_at"}),
	}).Create(row).Error
}

func (s *Store) DeleteQuests(ctx context.Context, guildID string) error {
	return s.db.WithContext(ctx).Delete(&model.QuestDoc{}, "guild_id = ?", guildID).Error
}

// LoadGuilds streams every persisted guild into fn, for boot recovery.
// A row whose document no longer unmarshals is logged and skipped.
func (s *Store) LoadGuilds(ctx context.Context, fn func(g *guild.Guild)) error {
	var rows []model.GuildDoc
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return err
	}
	for i := range rows {
		var g guild.Guild
		if err := json.Unmarshal(rows[i].Doc, &g); err != nil {
			s.logger.Error("corrupt guild document skipped",
				zap.String("guild_id", rows[i].ID), zap.Error(err))
			continue
		}
		fn(&g)
	}
	return nil
}

// LoadWars streams every persisted war into fn.
func (s *Store) LoadWars(ctx context.Context, fn func(w *war.War)) error {
	var rows []model.WarDoc
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return err
	}
	for i := range rows {
		var w war.War
		if err := json.Unmarshal(rows[i].Doc, &w); err != nil {
			s.logger.Error("corrupt war document skipped",
				zap.String("war_id", rows[i].ID), zap.Error(err))
			continue
		}
		fn(&w)
	}
	return nil
}

// LoadQuests streams every persisted quest set into fn.
func (s *Store) LoadQuests(ctx context.Context, fn func(guildID string, quests []*quest.Quest)) error {
	var rows []model.QuestDoc
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return err
	}
	for i := range rows {
		var qs []*quest.Quest
		if err := json.Unmarshal(rows[i].Doc, &qs); err != nil {
			s.logger.Error("corrupt quest document skipped",
				zap.String("guild_id", rows[i].GuildID), zap.Error(err))
			continue
		}
		fn(rows[i].GuildID, qs)
	}
	return nil
}

// GuildName resolves a guild id to its name without loading the document.
func (s *Store) GuildName(ctx context.Context, guildID string) (string, error) {
	var row model.GuildDoc
	err := s.db.WithContext(ctx).Select("name").First(&row, "id = ?", guildID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", guild.ErrGuildNotFound
	}
	return row.Name, err
}
