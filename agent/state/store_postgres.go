package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type PostgresConfig struct {
	DSN         string        `envconfig:"DSN" required:"true"`
	Timeout     time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
	AutoMigrate bool          `envconfig:"AUTO_MIGRATE" split_words:"true" default:"true"`
}

type sessionRow struct {
	bun.BaseModel `bun:"table:chat_sessions,alias:cs"`

	ID           string    `bun:"id,pk"`
	PartitionKey string    `bun:"partition_key,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

type messageRow struct {
	bun.BaseModel `bun:"table:chat_session_messages,alias:csm"`

	SessionID string    `bun:"session_id,pk"`
	Seq       int64     `bun:"seq,pk"`
	Payload   string    `bun:"payload,type:jsonb,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// PostgresStore keeps sessions in two tables: one row per session and one
// row per message ordered by seq. Append runs in a single transaction.
type PostgresStore struct {
	db   *bun.DB
	opts storeOptions
}

func NewPostgresStore(ctx context.Context, cfg PostgresConfig, opts ...StoreOption) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres dsn is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithTimeout(timeout),
	))
	db := bun.NewDB(sqldb, pgdialect.New())

	store := NewPostgresStoreFromDB(db, opts...)
	if cfg.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return store, nil
}

func NewPostgresStoreFromDB(db *bun.DB, opts ...StoreOption) *PostgresStore {
	return &PostgresStore{db: db, opts: buildOptions(opts)}
}

// Migrate creates the session tables when they do not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	models := []any{(*sessionRow)(nil), (*messageRow)(nil)}
	for _, model := range models {
		if _, err := p.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}

func (p *PostgresStore) Load(ctx context.Context, sessionID string) (*Session, error) {
	if err := validSessionID(sessionID); err != nil {
		return nil, err
	}

	var row sessionRow
	err := p.db.NewSelect().Model(&row).Where("id = ?", sessionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return NewSession(sessionID, p.opts.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}

	var rows []messageRow
	if err := p.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("select session messages: %w", err)
	}

	raws := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		raws = append(raws, json.RawMessage(r.Payload))
	}
	return &Session{
		ID:        row.ID,
		Messages:  decodeMessages(sessionID, raws, p.opts.logger),
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}, nil
}

func (p *PostgresStore) Append(ctx context.Context, sessionID string, msgs []Message) error {
	if err := validSessionID(sessionID); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	return p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := p.opts.now().UTC()
		seed := &sessionRow{
			ID:           sessionID,
			PartitionKey: p.opts.partitionKey,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if _, err := tx.NewInsert().Model(seed).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}

		var row sessionRow
		if err := tx.NewSelect().Model(&row).Where("id = ?", sessionID).For("UPDATE").Scan(ctx); err != nil {
			return fmt.Errorf("lock session: %w", err)
		}

		var (
			lastSeq int64
			lastTS  time.Time
		)
		var last messageRow
		err := tx.NewSelect().Model(&last).
			Where("session_id = ?", sessionID).
			Order("seq DESC").
			Limit(1).
			Scan(ctx)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("select last message: %w", err)
		default:
			lastSeq = last.Seq
			lastTS = last.CreatedAt.UTC()
		}

		batch, err := prepareBatch(lastTS, msgs, now)
		if err != nil {
			return err
		}

		rows := make([]messageRow, 0, len(batch))
		for i, msg := range batch {
			payload, err := json.Marshal(msg)
			if err != nil {
				return fmt.Errorf("marshal message: %w", err)
			}
			rows = append(rows, messageRow{
				SessionID: sessionID,
				Seq:       lastSeq + int64(i) + 1,
				Payload:   string(payload),
				CreatedAt: msg.Timestamp,
			})
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("insert session messages: %w", err)
		}

		if _, err := tx.NewUpdate().Model((*sessionRow)(nil)).
			Set("updated_at = ?", now).
			Where("id = ?", sessionID).
			Exec(ctx); err != nil {
			return fmt.Errorf("touch session: %w", err)
		}
		return nil
	})
}

func (p *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	if err := validSessionID(sessionID); err != nil {
		return err
	}
	return p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*messageRow)(nil)).Where("session_id = ?", sessionID).Exec(ctx); err != nil {
			return fmt.Errorf("delete session messages: %w", err)
		}
		if _, err := tx.NewDelete().Model((*sessionRow)(nil)).Where("id = ?", sessionID).Exec(ctx); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		return nil
	})
}
