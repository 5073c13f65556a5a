package mcp

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/md-navbar/pkg/config"
	"github.com/Sriram-PR/md-navbar/pkg/dom"
	"github.com/Sriram-PR/md-navbar/pkg/navbar"
	"github.com/Sriram-PR/md-navbar/pkg/schedule"
	"github.com/Sriram-PR/md-navbar/pkg/utils"
)

// Upper bound on clock steps per call; a settled engine schedules nothing further
const maxSettleRounds = 32

// SessionOptions describes a navigation session to open
type SessionOptions struct {
	DocKey      string
	Location    string
	Source      string
	Navbar      config.NavbarSettings
	Extractor   string
	Layout      config.LayoutConfig
	InitialHash string
	// OnHash observes every fragment written to the session page
	OnHash func(docKey, hash string, scrollTop float64, listNo string)
}

// Session is a headless page driven by a navbar engine on a virtual clock.
// Every exported method advances the clock until the engine is idle, so callers always
// observe settled state.
type Session struct {
	ID        string
	DocKey    string
	Location  string
	CreatedAt time.Time

	mu        sync.Mutex
	updatedAt time.Time
	clock     *schedule.Virtual
	page      *dom.Page
	engine    *navbar.Engine
	container string
	step      time.Duration
	hashLog   []string
	closed    bool
}

// SessionSnapshot is the JSON view of a session
type SessionSnapshot struct {
	ID            string        `json:"session_id"`
	DocKey        string        `json:"doc_key,omitempty"`
	Location      string        `json:"location,omitempty"`
	Hash          string        `json:"hash"`
	CurrentListNo string        `json:"current_list_no"`
	ScrollTop     float64       `json:"scroll_top"`
	PageHeight    float64       `json:"page_height"`
	Locked        bool          `json:"locked"`
	Mounted       bool          `json:"mounted"`
	Items         []navbar.Item `json:"items"`
	HashHistory   []string      `json:"hash_history,omitempty"`
	VirtualTime   string        `json:"virtual_time"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// NewSession renders the source, mounts an engine on it and settles
func NewSession(opts SessionOptions, log *logrus.Entry) (*Session, error) {
	s := &Session{
		ID:        uuid.New().String(),
		DocKey:    opts.DocKey,
		Location:  opts.Location,
		CreatedAt: time.Now(),
		updatedAt: time.Now(),
		clock:     schedule.NewVirtual(),
		container: opts.Navbar.Container,
	}
	sessionLog := log.WithField("session_id", s.ID)

	navOpts := navbar.OptionsFromSettings(opts.Navbar, opts.Extractor)
	s.step = navOpts.SettleDelay + navOpts.ThrottleWindow
	if s.step <= 0 {
		s.step = navbar.DefaultSettleDelay + navbar.DefaultThrottleWindow
	}

	page, err := dom.NewPage(opts.Source, s.clock,
		dom.WithLayout(opts.Layout),
		dom.WithLogger(sessionLog),
		dom.WithHash(opts.InitialHash),
		dom.WithHashObserver(func(hash string) {
			s.hashLog = append(s.hashLog, hash)
			if opts.OnHash != nil && s.engine != nil {
				opts.OnHash(s.DocKey, hash, s.page.ScrollTop(s.container), s.engine.CurrentListNo())
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	s.page = page
	s.engine = navbar.NewEngine(page, s.clock, navOpts, sessionLog)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Mount(opts.Source)
	s.settleLocked()
	return s, nil
}

func (s *Session) settleLocked() {
	for i := 0; i < maxSettleRounds && s.clock.Pending() > 0; i++ {
		s.clock.Advance(s.step)
	}
	s.updatedAt = time.Now()
}

func (s *Session) checkOpenLocked() error {
	if s.closed {
		return utils.WrapErrorf(utils.ErrSessionNotFound, "session %s is closed", s.ID)
	}
	return nil
}

// Scroll moves the page as a user would
func (s *Session) Scroll(top float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	s.page.UserScroll(s.container, top)
	s.settleLocked()
	return nil
}

// Click activates the navigation item with the given heading id
func (s *Session) Click(headingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	err := s.engine.OnItemClicked(headingID)
	s.settleLocked()
	return err
}

// Navigate changes the fragment as a link or the back button would
func (s *Session) Navigate(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	s.page.Navigate(hash)
	s.settleLocked()
	return nil
}

// Replace swaps the document source, re-rendering the page first
func (s *Session) Replace(source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	if err := s.page.Load(source); err != nil {
		return err
	}
	s.engine.OnSourceReplaced(source)
	s.settleLocked()
	return nil
}

// Snapshot returns the current settled state
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionSnapshot{
		ID:            s.ID,
		DocKey:        s.DocKey,
		Location:      s.Location,
		Hash:          s.page.Hash(),
		CurrentListNo: s.engine.CurrentListNo(),
		ScrollTop:     s.page.ScrollTop(s.container),
		PageHeight:    s.page.Height(),
		Locked:        s.engine.Locked(),
		Mounted:       s.engine.Mounted(),
		Items:         s.engine.Items(),
		HashHistory:   append([]string(nil), s.hashLog...),
		VirtualTime:   s.clock.Now().String(),
		UpdatedAt:     s.updatedAt,
	}
}

// Close unmounts the engine. Closing twice is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.engine.Unmount()
	s.closed = true
}

// SessionManager tracks open sessions by id
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewSessionManager creates an empty manager
func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*Session)}
}

// Add registers s
func (m *SessionManager) Add(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

// Get returns the session with id or ErrSessionNotFound
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, utils.WrapErrorf(utils.ErrSessionNotFound, "session %q", id)
	}
	return s, nil
}

// Close unmounts and forgets the session with id
func (m *SessionManager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return utils.WrapErrorf(utils.ErrSessionNotFound, "session %q", id)
	}
	s.Close()
	return nil
}

// CloseAll unmounts every session
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

// List returns open sessions, oldest first
func (m *SessionManager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list
}
