package session

import (
	"sort"
	"sync"
	"time"

	"BeatStudio/core/editorerr"
	"BeatStudio/logger"

	"github.com/google/uuid"
)

// ActiveCounter reports how many clients are attached to a session.
type ActiveCounter interface {
	ClientCount(sessionID string) int
}

// Manager 编辑会话管理器
type Manager struct {
	deps    Deps
	opts    Options
	idleTTL time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
	clients  ActiveCounter

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewManager creates a manager. Sessions idle for longer than idleTTL with no
// attached clients are closed by the janitor; zero disables it.
func NewManager(deps Deps, opts Options, idleTTL time.Duration) *Manager {
	return &Manager{
		deps:     deps,
		opts:     opts,
		idleTTL:  idleTTL,
		sessions: make(map[string]*Session),
		stopChan: make(chan struct{}),
	}
}

// SetClientCounter wires the hub so attached sessions are never reaped.
func (m *Manager) SetClientCounter(c ActiveCounter) {
	m.mu.Lock()
	m.clients = c
	m.mu.Unlock()
}

// Start 启动空闲会话清理
func (m *Manager) Start() {
	if m.idleTTL <= 0 {
		return
	}
	interval := m.idleTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	m.wg.Add(1)
	go m.janitor(interval)
	logger.Info("会话管理器已启动", logger.Duration("idleTTL", m.idleTTL))
}

// Stop closes every session and stops the janitor.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
	m.wg.Wait()

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	logger.Info("会话管理器已停止", logger.Int("closed", len(sessions)))
}

// Create starts a new session.
func (m *Manager) Create() *Session {
	s := New(uuid.NewString(), m.deps, m.opts)
	go s.Run()

	m.mu.Lock()
	m.sessions[s.ID] = s
	total := len(m.sessions)
	m.mu.Unlock()

	logger.Info("创建编辑会话", logger.String("sessionId", s.ID), logger.Int("total", total))
	return s
}

// Get 获取会话
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, editorerr.New(editorerr.KindNotFound, "session "+id+" not found",
			"This editor session has expired. Reload the page to start a new one.")
	}
	return s, nil
}

// Close 关闭并移除会话
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return editorerr.New(editorerr.KindNotFound, "session "+id+" not found", "Session not found.")
	}
	s.Close()
	logger.Info("关闭编辑会话", logger.String("sessionId", id))
	return nil
}

// IDs returns the ids of live sessions, sorted.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (m *Manager) janitor(interval time.Duration) {
	defer m.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case now := <-ticker.C:
			m.reap(now)
		}
	}
}

// reap closes sessions idle since before now-idleTTL with no clients.
func (m *Manager) reap(now time.Time) int {
	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if m.clients != nil && m.clients.ClientCount(id) > 0 {
			continue
		}
		if now.Sub(s.LastActive()) < m.idleTTL {
			continue
		}
		stale = append(stale, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
		logger.Info("回收空闲会话", logger.String("sessionId", s.ID))
	}
	return len(stale)
}
