// Package conversation provides SQLite-backed persistence for chat turns,
// keyed by session id. The database is opened lazily and created on first
// use. If opening the DB or executing queries fails, the store falls back
// to in-memory storage so a broken disk never fails a chat request.
package conversation

import (
	"database/sql"
	"sync"

	_ "github.com/glebarez/go-sqlite"

	"github.com/hlavac/versionone-go/internal/logger"
)

// Store holds the ordered turn sequences of all sessions. Each session's
// history grows without bound for the life of the store; the entire
// history is replayed into every prompt, which scales linearly with
// session length. No windowing is applied.
type Store struct {
	mu     sync.Mutex
	turns  map[string][]Turn // in-memory copy, also the fallback
	loaded map[string]bool   // sessions whose persisted turns are in memory

	dbPath  string
	dbOnce  sync.Once
	db      *sql.DB
	initErr error
}

// NewStore creates a conversation store persisting to the SQLite database
// at dbPath. An empty dbPath keeps the store purely in-memory.
func NewStore(dbPath string) *Store {
	return &Store{
		turns:  make(map[string][]Turn),
		loaded: make(map[string]bool),
		dbPath: dbPath,
	}
}

func (s *Store) initDB() {
	if s.dbPath == "" {
		return
	}
	var err error
	s.db, err = sql.Open("sqlite", "file:"+s.dbPath+"?_busy_timeout=10000&_fk=1")
	if err != nil {
		s.initErr = err
		logger.L.Warn("sqlite open failed; using in-memory history", "error", err)
		return
	}
	if _, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT,
		speaker TEXT,
		text TEXT
	);`); err != nil {
		s.initErr = err
		logger.L.Warn("sqlite table creation failed; using in-memory history", "error", err)
		return
	}
	logger.L.Info("sqlite conversation DB initialized", "path", s.dbPath)
}

// AppendUser appends a user turn to the session's history.
func (s *Store) AppendUser(sessionID, text string) {
	s.append(sessionID, Turn{Speaker: SpeakerUser, Text: text})
}

// AppendAgent appends an agent turn to the session's history. Callers
// pass only the finalized answer text, never raw model output.
func (s *Store) AppendAgent(sessionID, text string) {
	s.append(sessionID, Turn{Speaker: SpeakerAgent, Text: text})
}

func (s *Store) append(sessionID string, t Turn) {
	s.dbOnce.Do(s.initDB)

	s.mu.Lock()
	s.ensureLoadedLocked(sessionID)
	s.turns[sessionID] = append(s.turns[sessionID], t)

	if s.initErr == nil && s.db != nil {
		_, err := s.db.Exec(`INSERT INTO turns (session_id, speaker, text) VALUES (?,?,?);`,
			sessionID, string(t.Speaker), t.Text)
		if err != nil {
			logger.L.Error("failed to store turn in sqlite; falling back to memory", "error", err)
		}
	}
	s.mu.Unlock()
}

// History returns all turns of a session in chronological order. The
// returned slice is a copy; mutating it does not affect the store.
func (s *Store) History(sessionID string) []Turn {
	s.dbOnce.Do(s.initDB)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked(sessionID)
	out := make([]Turn, len(s.turns[sessionID]))
	copy(out, s.turns[sessionID])
	return out
}

// ensureLoadedLocked pulls a session's persisted turns into memory the
// first time the session is touched, so turns from a previous process
// run precede anything appended in this one. Must be called with s.mu
// held.
func (s *Store) ensureLoadedLocked(sessionID string) {
	if s.loaded[sessionID] || s.initErr != nil || s.db == nil {
		return
	}
	s.loaded[sessionID] = true

	rows, err := s.db.Query(`SELECT speaker, text FROM turns WHERE session_id = ? ORDER BY id ASC;`, sessionID)
	if err != nil {
		logger.L.Warn("sqlite history query failed", "error", err)
		return
	}
	defer rows.Close()
	var persisted []Turn
	for rows.Next() {
		var speaker, text string
		if err := rows.Scan(&speaker, &text); err == nil {
			persisted = append(persisted, Turn{Speaker: Speaker(speaker), Text: text})
		}
	}
	if len(persisted) > 0 {
		s.turns[sessionID] = append(persisted, s.turns[sessionID]...)
	}
}
