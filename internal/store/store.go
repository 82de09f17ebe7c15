package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/DoyleJ11/floorclash/internal/engine"
)

const queueSize = 64

// MatchResult is one archived round.
type MatchResult struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionCode string         `gorm:"size:16;index" json:"session_code"`
	Round       int            `gorm:"not null" json:"round"`
	Winner      string         `gorm:"size:32" json:"winner"`
	Scores      []engine.Score `gorm:"serializer:json" json:"scores"`
	Text        string         `json:"text"`
	EndedAt     time.Time      `gorm:"index" json:"ended_at"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (MatchResult) TableName() string { return "match_results" }

func (r *MatchResult) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// NewMatchResult maps a session result onto an archive row.
func NewMatchResult(code string, r engine.Result) MatchResult {
	return MatchResult{
		SessionCode: code,
		Round:       r.Round,
		Winner:      r.Winner,
		Scores:      append([]engine.Score(nil), r.Scores...),
		Text:        r.Text,
		EndedAt:     r.EndedAt,
	}
}

// Recorder archives finished rounds. Results are queued and written by Run,
// so recording never blocks a session. A full queue drops the row.
type Recorder struct {
	db    *gorm.DB
	queue chan MatchResult
	log   *zap.Logger
}

func Open(dsn string, logger *zap.Logger) (*Recorder, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return New(db, logger)
}

// New wraps an existing gorm handle and migrates the archive table.
func New(db *gorm.DB, logger *zap.Logger) (*Recorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&MatchResult{}); err != nil {
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return newRecorder(db, logger), nil
}

func newRecorder(db *gorm.DB, logger *zap.Logger) *Recorder {
	return &Recorder{
		db:    db,
		queue: make(chan MatchResult, queueSize),
		log:   logger.Named("store"),
	}
}

// ForSession returns the sink for one session's results.
func (r *Recorder) ForSession(code string) engine.ResultSink {
	return sessionSink{rec: r, code: code}
}

func (r *Recorder) enqueue(row MatchResult) bool {
	select {
	case r.queue <- row:
		return true
	default:
		r.log.Warn("archive queue full, result dropped",
			zap.String("session", row.SessionCode), zap.Int("round", row.Round))
		return false
	}
}

// Run writes queued results until ctx ends, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case row := <-r.queue:
			r.write(context.WithoutCancel(ctx), row)
		case <-ctx.Done():
			for {
				select {
				case row := <-r.queue:
					r.write(context.WithoutCancel(ctx), row)
				default:
					return nil
				}
			}
		}
	}
}

func (r *Recorder) write(ctx context.Context, row MatchResult) {
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		r.log.Error("archive write failed", zap.String("session", row.SessionCode), zap.Error(err))
		return
	}
	r.log.Debug("result archived", zap.String("id", row.ID.String()), zap.String("session", row.SessionCode))
}

// History lists a session's archived rounds, oldest first.
func (r *Recorder) History(ctx context.Context, code string) ([]MatchResult, error) {
	var rows []MatchResult
	err := r.db.WithContext(ctx).
		Where("session_code = ?", code).
		Order("round ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", code, err)
	}
	return rows, nil
}

func (r *Recorder) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("archive handle: %w", err)
	}
	return sqlDB.Close()
}

type sessionSink struct {
	rec  *Recorder
	code string
}

func (s sessionSink) RecordResult(res engine.Result) {
	s.rec.enqueue(NewMatchResult(s.code, res))
}
