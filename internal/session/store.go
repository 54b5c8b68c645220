// Package session keeps one conversation session per member: an opaque
// reasoning-backend thread handle plus a last-activity timestamp. Message
// bodies are never stored here.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/associahq/associa/internal/db"
)

// Session is the per-member conversation state.
type Session struct {
	MemberID       string    `db:"member_id" json:"member_id"`
	ThreadID       string    `db:"thread_id" json:"thread_id"`
	LastActivityAt time.Time `db:"last_activity_at" json:"last_activity_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ThreadCreator creates a fresh conversation thread on the external
// reasoning backend.
type ThreadCreator interface {
	CreateThread(ctx context.Context) (string, error)
}

// DB is the slice of the connection pool the store needs; *pgxpool.Pool
// satisfies it.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Store struct {
	pool    DB
	threads ThreadCreator
	logger  *slog.Logger
}

func NewStore(log *slog.Logger, pool DB, threads ThreadCreator) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		pool:    pool,
		threads: threads,
		logger:  log.With(slog.String("service", "session")),
	}
}

const sessionColumns = `member_id::text, thread_id, last_activity_at, created_at, updated_at`

// GetOrCreate returns the member's session, creating one on first contact.
// The read-or-create sequence holds a per-member advisory lock for the
// whole transaction, so two concurrent deliveries for the same member
// cannot create two divergent threads. If thread creation times out, the
// transaction aborts and the lock is released with it.
func (s *Store) GetOrCreate(ctx context.Context, memberID string) (Session, error) {
	pgID, err := db.ParseUUID(memberID)
	if err != nil {
		return Session{}, fmt.Errorf("invalid member id: %w", err)
	}

	var result Session
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := lockMember(ctx, tx, memberID); err != nil {
			return err
		}

		rows, err := tx.Query(ctx,
			`SELECT `+sessionColumns+` FROM conversation_sessions WHERE member_id = $1`, pgID)
		if err != nil {
			return fmt.Errorf("query session: %w", err)
		}
		_, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[Session])
		switch {
		case err == nil:
			rows, err := tx.Query(ctx,
				`UPDATE conversation_sessions
				 SET last_activity_at = now(), updated_at = now()
				 WHERE member_id = $1
				 RETURNING `+sessionColumns, pgID)
			if err != nil {
				return fmt.Errorf("touch session: %w", err)
			}
			result, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[Session])
			if err != nil {
				return fmt.Errorf("scan touched session: %w", err)
			}
			return nil
		case !errors.Is(err, pgx.ErrNoRows):
			return fmt.Errorf("scan session: %w", err)
		}

		threadID, err := s.threads.CreateThread(ctx)
		if err != nil {
			return fmt.Errorf("create thread: %w", err)
		}
		rows, err = tx.Query(ctx,
			`INSERT INTO conversation_sessions (member_id, thread_id)
			 VALUES ($1, $2)
			 RETURNING `+sessionColumns, pgID, threadID)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		result, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[Session])
		if err != nil {
			return fmt.Errorf("scan inserted session: %w", err)
		}
		s.logger.Info("session created", slog.String("member_id", memberID))
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return result, nil
}

// Reset unconditionally replaces the member's thread handle with a fresh
// one. The old handle is discarded; deleting it upstream is the reasoning
// backend's concern. The session row is replaced, never duplicated.
func (s *Store) Reset(ctx context.Context, memberID string) (Session, error) {
	pgID, err := db.ParseUUID(memberID)
	if err != nil {
		return Session{}, fmt.Errorf("invalid member id: %w", err)
	}

	var result Session
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := lockMember(ctx, tx, memberID); err != nil {
			return err
		}

		threadID, err := s.threads.CreateThread(ctx)
		if err != nil {
			return fmt.Errorf("create thread: %w", err)
		}
		rows, err := tx.Query(ctx,
			`INSERT INTO conversation_sessions (member_id, thread_id)
			 VALUES ($1, $2)
			 ON CONFLICT (member_id) DO UPDATE
			 SET thread_id = EXCLUDED.thread_id, last_activity_at = now(), updated_at = now()
			 RETURNING `+sessionColumns, pgID, threadID)
		if err != nil {
			return fmt.Errorf("replace session: %w", err)
		}
		result, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[Session])
		if err != nil {
			return fmt.Errorf("scan replaced session: %w", err)
		}
		s.logger.Info("session reset", slog.String("member_id", memberID))
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return result, nil
}

// lockMember takes the transaction-scoped advisory lock that serializes
// session reads and writes for one member.
func lockMember(ctx context.Context, tx pgx.Tx, memberID string) error {
	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, memberID); err != nil {
		return fmt.Errorf("acquire member session lock: %w", err)
	}
	return nil
}
