package model

import (
	"time"

	"gorm.io/datatypes"
)

// GuildDoc is the durable form of a guild aggregate. The Doc column holds
// the full serialized guild; the remaining columns exist for indexed lookup
// and text search without deserializing every row.
type GuildDoc struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	Name      string         `gorm:"uniqueIndex;size:32;not null" json:"name"`
	Tag       string         `gorm:"index;size:8;not null" json:"tag"`
	Level     int            `gorm:"default:1" json:"level"`
	Doc       datatypes.JSON `json:"doc"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// WarDoc is the durable form of a guild-war aggregate. Status and the two
// timestamps are lifted out of the document so recovery can re-arm phase
// timers without unpacking Doc first.
type WarDoc struct {
	ID         string         `gorm:"primaryKey;size:36" json:"id"`
	AttackerID string         `gorm:"index:idx_war_attacker;size:36;not null" json:"attacker_id"`
	DefenderID string         `gorm:"index:idx_war_defender;size:36;not null" json:"defender_id"`
	Status     string         `gorm:"index;size:16;not null" json:"status"`
	StartTime  time.Time      `json:"start_time"`
	EndTime    time.Time      `json:"end_time"`
	Doc        datatypes.JSON `json:"doc"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// QuestDoc holds a guild's active quest set as one document.
type QuestDoc struct {
	GuildID   string         `gorm:"primaryKey;size:36" json:"guild_id"`
	Doc       datatypes.JSON `json:"doc"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}
