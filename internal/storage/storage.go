package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/lehigh-university-libraries/woundlabel/internal/models"
)

// SessionStore keeps rater sessions in memory until they expire. Cursors
// are not persisted, so a restart or expiry starts a rater at image 0.
type SessionStore struct {
	cache *cache.Cache
}

// New creates a store whose sessions expire after ttl of inactivity
func New(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &SessionStore{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

// Create starts a new session for username with the cursor at 0
func (s *SessionStore) Create(username string) *models.RaterSession {
	session := &models.RaterSession{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: time.Now(),
	}
	s.cache.Set(session.ID, session, cache.DefaultExpiration)
	return session
}

// Get returns the session and refreshes its expiry
func (s *SessionStore) Get(sessionID string) (*models.RaterSession, bool) {
	x, found := s.cache.Get(sessionID)
	if !found {
		return nil, false
	}
	session := x.(*models.RaterSession)
	s.cache.Set(sessionID, session, cache.DefaultExpiration)
	return session, true
}

func (s *SessionStore) Delete(sessionID string) {
	s.cache.Delete(sessionID)
}

// Count returns the number of live sessions
func (s *SessionStore) Count() int {
	return s.cache.ItemCount()
}
