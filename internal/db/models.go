package db

import (
	"encoding/json"
	"time"
)

// Company maps newshub.companies.
type Company struct {
	CompanyID     int64     `gorm:"column:company_id;primaryKey;autoIncrement"`
	Slug          string    `gorm:"column:slug;type:text;not null;unique"`
	CanonicalName string    `gorm:"column:canonical_name;type:text;not null;unique"`
	CIK           *string   `gorm:"column:cik;type:text"`
	CreatedAt     time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Company) TableName() string { return "newshub.companies" }

// Article maps newshub.articles. url_norm is the dedup key.
type Article struct {
	ArticleID     int64           `gorm:"column:article_id;primaryKey;autoIncrement"`
	CompanyID     int64           `gorm:"column:company_id;type:bigint;not null"`
	Title         string          `gorm:"column:title;type:text;not null"`
	URL           string          `gorm:"column:url;type:text;not null"`
	URLNorm       string          `gorm:"column:url_norm;type:text;not null;unique"`
	SourceDomain  string          `gorm:"column:source_domain;type:text;not null"`
	PublishedAt   time.Time       `gorm:"column:published_at;type:timestamptz;not null"`
	Priority      int             `gorm:"column:priority;type:integer;not null;default:70"`
	Provider      string          `gorm:"column:provider;type:text;not null"`
	RawPayload    json.RawMessage `gorm:"column:raw_payload;type:jsonb"`
	LowConfidence bool            `gorm:"column:low_confidence;type:boolean;not null;default:false"`
	CreatedAt     time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Article) TableName() string { return "newshub.articles" }

// IngestionRun maps newshub.ingestion_runs: one row per adapter per run.
type IngestionRun struct {
	IngestionRunID int64     `gorm:"column:ingestion_run_id;primaryKey;autoIncrement"`
	RunUUID        string    `gorm:"column:run_uuid;type:uuid;not null;index"`
	Provider       string    `gorm:"column:provider;type:text;not null"`
	ItemCount      int       `gorm:"column:item_count;type:integer;not null;default:0"`
	Submitted      int       `gorm:"column:submitted;type:integer;not null;default:0"`
	Duplicates     int       `gorm:"column:duplicates;type:integer;not null;default:0"`
	DedupeRate     float64   `gorm:"column:dedupe_rate;type:double precision;not null;default:0"`
	Scheduled      bool      `gorm:"column:scheduled;type:boolean;not null;default:false"`
	ErrorKind      *string   `gorm:"column:error_kind;type:text"`
	ErrorMessage   *string   `gorm:"column:error_message;type:text"`
	TS             time.Time `gorm:"column:ts;type:timestamptz;not null;default:now()"`
}

func (IngestionRun) TableName() string { return "newshub.ingestion_runs" }

// TelemetryEvent maps newshub.telemetry_events.
type TelemetryEvent struct {
	EventID   int64           `gorm:"column:event_id;primaryKey;autoIncrement"`
	EventName string          `gorm:"column:event_name;type:text;not null"`
	Payload   json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (TelemetryEvent) TableName() string { return "newshub.telemetry_events" }

func autoMigrateModels() []any {
	return []any{
		&Company{},
		&Article{},
		&IngestionRun{},
		&TelemetryEvent{},
	}
}
