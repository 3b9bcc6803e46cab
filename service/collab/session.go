package collab

import (
	"sync"
	"time"
)

// Session 每用户的会话描述信息；连接建立时创建，断开时删除。
type Session struct {
	UserID        string
	OrgID         string
	DisplayName   string
	CurrentDocID  string // 当前打开的文档（可空）
	CurrentDealID string // 当前打开的 deal（可空）
	Epoch         int64
	ConnectedAt   time.Time
	LastActive    time.Time
}

type SessionStore struct {
	mu     sync.RWMutex
	byUser map[string]*Session
	clock  func() time.Time
}

func NewSessionStore(clock func() time.Time) *SessionStore {
	if clock == nil {
		clock = time.Now
	}
	return &SessionStore{
		byUser: make(map[string]*Session),
		clock:  clock,
	}
}

func (s *SessionStore) Put(sess *Session) {
	if sess == nil || sess.UserID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[sess.UserID] = sess
}

// Get 返回会话拷贝，调用方随便读
func (s *SessionStore) Get(userID string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byUser[userID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

func (s *SessionStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUser, userID)
}

// Touch 刷新活跃时间（入站/出站都算活跃）
func (s *SessionStore) Touch(userID string) {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.byUser[userID]; ok {
		sess.LastActive = now
	}
}

func (s *SessionStore) SetCurrentDoc(userID, docID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.byUser[userID]; ok {
		sess.CurrentDocID = docID
	}
}

func (s *SessionStore) SetCurrentDeal(userID, dealID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.byUser[userID]; ok {
		sess.CurrentDealID = dealID
	}
}

// Snapshot 全量拷贝（Reaper 扫描、管理面列表用）
func (s *SessionStore) Snapshot() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Session, 0, len(s.byUser))
	for _, sess := range s.byUser {
		out = append(out, *sess)
	}
	return out
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byUser)
}
