// Package sqlite provides a ports.Store on an embedded SQLite database, for
// single-node deployments and local development.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"mentraflow-backend/application/ports"
	"mentraflow-backend/domain/core/entities"
	apperrors "mentraflow-backend/pkg/errors"
)

// Every table has the same shape: the record is stored as a JSON body next
// to the columns used for lookups and ordering. sort_key holds unix nanos.
var tables = []string{"imports", "concepts", "quizzes", "nodes", "recall_sessions"}

const tableSchema = `
	CREATE TABLE IF NOT EXISTS %[1]s (
		id       TEXT PRIMARY KEY,
		user_id  TEXT NOT NULL,
		sort_key INTEGER NOT NULL,
		lookup   TEXT NOT NULL DEFAULT '',
		body     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_user_sort ON %[1]s(user_id, sort_key);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_lookup ON %[1]s(lookup);
`

// Store implements ports.Store using SQLite.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ ports.Store = (*Store)(nil)

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string, logger *zap.Logger) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases from splitting across connections.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	var schema strings.Builder
	for _, t := range tables {
		fmt.Fprintf(&schema, tableSchema, t)
	}
	_, err := s.db.Exec(schema.String())
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// row is one record ready to be written.
type row struct {
	id      string
	userID  string
	sortKey int64
	lookup  string
	body    any
	// frozenLookup, when set, makes an existing row with that lookup value
	// immutable. Writing over it fails with a conflict.
	frozenLookup string
}

func (s *Store) put(ctx context.Context, table string, r row) error {
	body, err := json.Marshal(r.body)
	if err != nil {
		return fmt.Errorf("encode %s: %w", table, err)
	}
	query := `INSERT INTO ` + table + ` (id, user_id, sort_key, lookup, body) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id, sort_key = excluded.sort_key,
		 lookup = excluded.lookup, body = excluded.body`
	args := []any{r.id, r.userID, r.sortKey, r.lookup, string(body)}
	if r.frozenLookup != "" {
		query += ` WHERE ` + table + `.lookup <> ?`
		args = append(args, r.frozenLookup)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewDatabaseError("save "+table, err)
	}
	if r.frozenLookup != "" {
		n, err := res.RowsAffected()
		if err != nil {
			return apperrors.NewDatabaseError("save "+table, err)
		}
		if n == 0 {
			return apperrors.NewConflictError(fmt.Sprintf("%s %s is already %s", table, r.id, r.frozenLookup))
		}
	}
	s.logger.Debug("Record saved", zap.String("table", table), zap.String("id", r.id))
	return nil
}

// getOne decodes the first row matched by where into a new T.
func getOne[T any](ctx context.Context, s *Store, table, resource, where string, args ...any) (*T, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM `+table+` WHERE `+where+` LIMIT 1`, args...).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(resource)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get "+resource, err)
	}
	var v T
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return nil, apperrors.NewDatabaseError("decode "+resource, err)
	}
	return &v, nil
}

// list decodes every row returned by query. A non-positive limit lists all.
func list[T any](ctx context.Context, s *Store, table, query string, limit int, args ...any) ([]*T, error) {
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list "+table, err)
	}
	defer rows.Close()

	out := []*T{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, apperrors.NewDatabaseError("scan "+table, err)
		}
		var v T
		if err := json.Unmarshal([]byte(body), &v); err != nil {
			s.logger.Warn("Skipping undecodable record", zap.String("table", table), zap.Error(err))
			continue
		}
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list "+table, err)
	}
	return out, nil
}

func (s *Store) SaveImport(ctx context.Context, imp *entities.Import) error {
	return s.put(ctx, "imports", row{id: imp.ID, userID: imp.UserID, sortKey: imp.CreatedAt.UnixNano(), body: imp})
}

func (s *Store) GetImport(ctx context.Context, importID string) (*entities.Import, error) {
	return getOne[entities.Import](ctx, s, "imports", "import", `id = ?`, importID)
}

func (s *Store) ListImports(ctx context.Context, userID string, limit int) ([]*entities.Import, error) {
	return list[entities.Import](ctx, s, "imports",
		`SELECT body FROM imports WHERE user_id = ? ORDER BY sort_key DESC, rowid DESC`, limit, userID)
}

func (s *Store) SaveConcept(ctx context.Context, concept *entities.Concept) error {
	return s.put(ctx, "concepts", row{id: concept.ID, userID: concept.UserID, sortKey: concept.CreatedAt.UnixNano(), body: concept})
}

func (s *Store) GetConcept(ctx context.Context, conceptID string) (*entities.Concept, error) {
	return getOne[entities.Concept](ctx, s, "concepts", "concept", `id = ?`, conceptID)
}

func (s *Store) ListConcepts(ctx context.Context, userID string, limit int) ([]*entities.Concept, error) {
	return list[entities.Concept](ctx, s, "concepts",
		`SELECT body FROM concepts WHERE user_id = ? ORDER BY sort_key DESC, rowid DESC`, limit, userID)
}

func (s *Store) SaveQuiz(ctx context.Context, quiz *entities.Quiz) error {
	return s.put(ctx, "quizzes", row{id: quiz.ID, userID: quiz.UserID, sortKey: quiz.CreatedAt.UnixNano(), lookup: quiz.ConceptID, body: quiz})
}

func (s *Store) GetQuiz(ctx context.Context, quizID string) (*entities.Quiz, error) {
	return getOne[entities.Quiz](ctx, s, "quizzes", "quiz", `id = ?`, quizID)
}

func (s *Store) GetQuizByConcept(ctx context.Context, conceptID string) (*entities.Quiz, error) {
	return getOne[entities.Quiz](ctx, s, "quizzes", "quiz", `lookup = ? ORDER BY sort_key DESC`, conceptID)
}

func (s *Store) ListQuizzes(ctx context.Context, userID string, limit int) ([]*entities.Quiz, error) {
	return list[entities.Quiz](ctx, s, "quizzes",
		`SELECT body FROM quizzes WHERE user_id = ? ORDER BY sort_key DESC, rowid DESC`, limit, userID)
}

func (s *Store) SaveNode(ctx context.Context, node *entities.KnowledgeNode) error {
	return s.put(ctx, "nodes", row{id: node.ID, userID: node.UserID, sortKey: node.CreatedAt.UnixNano(), body: node})
}

func (s *Store) GetNode(ctx context.Context, nodeID string) (*entities.KnowledgeNode, error) {
	return getOne[entities.KnowledgeNode](ctx, s, "nodes", "knowledge node", `id = ?`, nodeID)
}

func (s *Store) ListNodes(ctx context.Context, userID string, limit int) ([]*entities.KnowledgeNode, error) {
	return list[entities.KnowledgeNode](ctx, s, "nodes",
		`SELECT body FROM nodes WHERE user_id = ? ORDER BY sort_key ASC, rowid ASC`, limit, userID)
}

// SaveRecallSession refuses to overwrite a completed session.
func (s *Store) SaveRecallSession(ctx context.Context, session *entities.RecallSession) error {
	return s.put(ctx, "recall_sessions", row{
		id:           session.ID,
		userID:       session.UserID,
		sortKey:      session.DueDate.UnixNano(),
		lookup:       string(session.Status),
		body:         session,
		frozenLookup: string(entities.SessionStatusCompleted),
	})
}

func (s *Store) GetRecallSession(ctx context.Context, sessionID string) (*entities.RecallSession, error) {
	return getOne[entities.RecallSession](ctx, s, "recall_sessions", "recall session", `id = ?`, sessionID)
}

func (s *Store) ListRecallSessions(ctx context.Context, filter ports.RecallSessionFilter) ([]*entities.RecallSession, error) {
	query := `SELECT body FROM recall_sessions WHERE user_id = ?`
	args := []any{filter.UserID}
	if filter.Status != "" {
		query += ` AND lookup = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY sort_key ASC, rowid ASC`
	return list[entities.RecallSession](ctx, s, "recall_sessions", query, filter.Limit, args...)
}

func (s *Store) CountRecallSessions(ctx context.Context, userID string, status entities.SessionStatus) (int, error) {
	query := `SELECT COUNT(*) FROM recall_sessions WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND lookup = ?`
		args = append(args, string(status))
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, apperrors.NewDatabaseError("count recall sessions", err)
	}
	return n, nil
}
