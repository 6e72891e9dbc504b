package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/insightforge/backend/internal/models"
	"github.com/insightforge/backend/internal/parser"
	"github.com/insightforge/backend/internal/storage"
	"github.com/labstack/gommon/log"
	"golang.org/x/sync/semaphore"
)

// MaxSessions limits concurrent sessions to prevent memory exhaustion
const MaxSessions = 50

// SessionKeepAliveWindow is how long to keep sessions that are actively being used
const SessionKeepAliveWindow = 5 * time.Minute

// ErrTooManySessions is returned by StartSession when every slot is held by
// an analysis that has not finished yet.
var ErrTooManySessions = errors.New("too many analyses in progress")

// DefaultAnalysisDelay is the pause before suggestions are produced, so the
// client can show its "analyzing" state.
const DefaultAnalysisDelay = 1500 * time.Millisecond

// Options configures a Manager.
type Options struct {
	// TempDir holds per-session DuckDB files. Empty keeps rows in memory.
	TempDir string
	// AnalysisDelay is waited before classification. Zero disables it.
	AnalysisDelay time.Duration
	// MaxConcurrent bounds analyses running at once.
	MaxConcurrent int64
	Duck          parser.DuckOptions
}

// Manager handles active analysis sessions.
type Manager struct {
	sessions map[string]*SessionState
	mu       sync.RWMutex
	store    storage.Store
	opts     Options
	sem      *semaphore.Weighted
}

// SessionState holds the session metadata and the storage backing its rows.
type SessionState struct {
	Session      *models.AnalysisSession
	Headers      []string
	Preview      *models.Preview
	Table        *models.ParsedTable // in-memory rows; released once DuckStore holds them
	DuckStore    *parser.DuckStore
	LastAccessed time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a session manager. store may be nil; when set, a
// session's upload is deleted together with the session.
func NewManager(store storage.Store, opts Options) *Manager {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 3
	}
	return &Manager{
		sessions: make(map[string]*SessionState),
		store:    store,
		opts:     opts,
		sem:      semaphore.NewWeighted(opts.MaxConcurrent),
	}
}

// StartSession registers a parsed upload and starts its analysis in the
// background. If replaceID names an existing session, that session is
// cancelled and removed first; its pending result is discarded.
func (m *Manager) StartSession(fileID, fileName string, table *models.ParsedTable, replaceID string) (*models.AnalysisSession, error) {
	if table == nil {
		return nil, fmt.Errorf("nil table")
	}

	if replaceID != "" {
		if m.DeleteSession(replaceID) {
			log.Infof("[Analysis %s] Replaced by new upload %s", shortID(replaceID), fileName)
		}
	}

	// Clean up old sessions if at limit
	if !m.cleanupOldSessionsIfNeeded() {
		return nil, ErrTooManySessions
	}

	sessionID := uuid.New().String()
	now := time.Now()
	session := models.NewAnalysisSession(sessionID, fileID, fileName, table.TotalRowCount, now.UnixMilli())

	ctx, cancel := context.WithCancel(context.Background())
	state := &SessionState{
		Session:      session,
		Headers:      table.Headers,
		Preview:      table.Preview(),
		Table:        table,
		LastAccessed: now,
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	m.mu.Lock()
	m.sessions[sessionID] = state
	m.mu.Unlock()

	m.setFileStatus(fileID, "analyzing")

	// Run analysis in a background goroutine
	go m.runAnalysis(ctx, state, table)

	return session.Clone(), nil
}

func (m *Manager) runAnalysis(ctx context.Context, state *SessionState, table *models.ParsedTable) {
	id := state.Session.ID
	defer close(state.done)
	// Recover from panics to prevent backend crash
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[Analysis %s] PANIC recovered: %v", shortID(id), r)
			m.finishWithError(state, models.ErrorKindInternal, fmt.Sprintf("analysis panicked: %v", r))
		}
	}()

	start := time.Now()
	log.Infof("[Analysis %s] Starting analysis of %s (%d rows, %d columns)",
		shortID(id), state.Session.FileName, table.TotalRowCount, len(table.Headers))

	if err := m.sem.Acquire(ctx, 1); err != nil {
		m.finishCancelled(state)
		return
	}
	defer m.sem.Release(1)

	m.loadRowStore(ctx, state, table)

	if m.opts.AnalysisDelay > 0 {
		timer := time.NewTimer(m.opts.AnalysisDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			m.finishCancelled(state)
			return
		}
	}

	columns := parser.ClassifyColumns(table.Headers, table.Rows)
	types := make(map[string]models.ColumnType, len(columns))
	for _, c := range columns {
		types[c.Name] = c.Type
	}
	suggestions := parser.Suggest(table.Headers, types)

	if ctx.Err() != nil {
		m.finishCancelled(state)
		return
	}

	elapsed := time.Since(start)

	m.mu.Lock()
	state.Session.Status = models.SessionStatusComplete
	state.Session.Columns = columns
	state.Session.Suggestions = suggestions
	state.Session.CompletedAt = time.Now().UnixMilli()
	state.Session.ProcessingTimeMs = elapsed.Milliseconds()
	if state.DuckStore != nil {
		state.Table = nil
	}
	m.mu.Unlock()

	m.setFileStatus(state.Session.FileID, "analyzed")
	log.Infof("[Analysis %s] Complete in %v: %d suggestions", shortID(id), elapsed.Round(time.Millisecond), len(suggestions))
}

// loadRowStore copies the rows into a session DuckDB file. Failures are not
// fatal: the session keeps serving rows from memory.
func (m *Manager) loadRowStore(ctx context.Context, state *SessionState, table *models.ParsedTable) {
	if m.opts.TempDir == "" {
		return
	}

	id := state.Session.ID
	ds, err := parser.NewDuckStore(m.opts.TempDir, id, m.opts.Duck)
	if err != nil {
		log.Warnf("[Analysis %s] Row store unavailable, keeping rows in memory: %v", shortID(id), err)
		return
	}

	if err := ds.InsertTable(ctx, table); err != nil {
		ds.Close()
		if ctx.Err() == nil {
			log.Warnf("[Analysis %s] Failed to load row store, keeping rows in memory: %v", shortID(id), err)
		}
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx.Err() != nil {
		// Session was removed while loading
		ds.Close()
		return
	}
	state.DuckStore = ds
}

func (m *Manager) finishWithError(state *SessionState, kind, message string) {
	m.mu.Lock()
	state.Session.Status = models.SessionStatusError
	state.Session.Error = &models.AnalysisError{Kind: kind, Message: message}
	state.Session.CompletedAt = time.Now().UnixMilli()
	m.mu.Unlock()

	m.setFileStatus(state.Session.FileID, "error")
}

func (m *Manager) finishCancelled(state *SessionState) {
	m.mu.Lock()
	state.Session.Status = models.SessionStatusCancelled
	state.Session.CompletedAt = time.Now().UnixMilli()
	m.mu.Unlock()

	log.Debugf("[Analysis %s] Cancelled", shortID(state.Session.ID))
}

func (m *Manager) setFileStatus(fileID, status string) {
	if m.store == nil || fileID == "" {
		return
	}
	// The file may already be gone if the session was replaced.
	_ = m.store.SetStatus(fileID, status)
}

// GetSession returns a snapshot of a session by ID.
func (m *Manager) GetSession(id string) (*models.AnalysisSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return state.Session.Clone(), true
}

// WaitSession blocks until the session's analysis finished or ctx is done,
// then returns its snapshot.
func (m *Manager) WaitSession(ctx context.Context, id string) (*models.AnalysisSession, error) {
	m.mu.RLock()
	state, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session not found: %s", id)
	}

	select {
	case <-state.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return state.Session.Clone(), nil
}

// GetPreview returns the first rows of the session's table.
func (m *Manager) GetPreview(id string) (*models.Preview, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return state.Preview, true
}

// GetRows returns a page of rows for a session, 1-based.
func (m *Manager) GetRows(ctx context.Context, id string, page, pageSize int) ([]models.Record, int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, 0, false
	}

	total := state.Session.TotalRowCount
	start := (page - 1) * pageSize
	if start < 0 {
		start = 0
	}
	if start >= total {
		return []models.Record{}, total, true
	}

	end := start + pageSize
	if end > total {
		end = total
	}

	// Use DuckStore if available (memory-efficient)
	if state.DuckStore != nil {
		rows, err := state.DuckStore.GetRows(ctx, state.Headers, start, end)
		if err != nil {
			log.Warnf("[Manager] GetRows error for session %s: %v", shortID(id), err)
			return nil, 0, false
		}
		return rows, total, true
	}

	if state.Table == nil {
		return nil, 0, false
	}
	return state.Table.Rows[start:end], total, true
}

// TouchSession updates the LastAccessed timestamp for a session.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// DeleteSession cancels a session, frees its row store and deletes its upload.
// It reports whether the session existed.
func (m *Manager) DeleteSession(id string) bool {
	m.mu.Lock()
	state, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		state.cancel()
	}
	m.mu.Unlock()

	if !ok {
		return false
	}

	m.release(state)
	return true
}

// release frees the resources of a session already removed from the map.
func (m *Manager) release(state *SessionState) {
	if state.DuckStore != nil {
		state.DuckStore.Close()
	}
	if m.store != nil && state.Session.FileID != "" {
		_ = m.store.Delete(state.Session.FileID)
	}
}

// cleanupOldSessionsIfNeeded removes the least recently used finished sessions
// if at capacity. It reports whether there is room for one more session.
func (m *Manager) cleanupOldSessionsIfNeeded() bool {
	m.mu.Lock()

	if len(m.sessions) < MaxSessions {
		m.mu.Unlock()
		return true
	}

	var finished []*SessionState
	for _, state := range m.sessions {
		if state.Session.Done() {
			finished = append(finished, state)
		}
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].LastAccessed.Before(finished[j].LastAccessed)
	})

	toFree := len(m.sessions) - MaxSessions + 1
	var removed []*SessionState
	for _, state := range finished {
		if len(removed) >= toFree {
			break
		}
		delete(m.sessions, state.Session.ID)
		state.cancel()
		removed = append(removed, state)
		log.Infof("[Manager] Cleaned up old session %s to free memory", shortID(state.Session.ID))
	}
	hasRoom := len(m.sessions) < MaxSessions
	m.mu.Unlock()

	for _, state := range removed {
		m.release(state)
	}
	return hasRoom
}

// CleanupOldSessions removes finished sessions not accessed within maxAge,
// but keeps sessions that have been accessed within SessionKeepAliveWindow.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()

	cutoff := time.Now().Add(-maxAge)
	keepAliveCutoff := time.Now().Add(-SessionKeepAliveWindow)

	var removed []*SessionState
	for id, state := range m.sessions {
		if !state.Session.Done() {
			continue
		}
		if state.LastAccessed.After(keepAliveCutoff) || state.LastAccessed.After(cutoff) {
			continue
		}
		delete(m.sessions, id)
		state.cancel()
		removed = append(removed, state)
		log.Infof("[Manager] Cleaned up aged session %s (last accessed: %s ago)",
			shortID(id), time.Since(state.LastAccessed).Round(time.Second))
	}
	m.mu.Unlock()

	for _, state := range removed {
		m.release(state)
	}
	return len(removed)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown cancels every session and frees its resources.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	states := make([]*SessionState, 0, len(m.sessions))
	for id, state := range m.sessions {
		state.cancel()
		states = append(states, state)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, state := range states {
		<-state.done
		m.release(state)
	}
}

// shortID safely truncates an ID for logging (handles short IDs gracefully)
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
