// Package sessions tracks live player sessions so a fresh ban can
// terminate the target's connection immediately.
package sessions

import (
	"net/netip"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Conn is the transport-level handle of a connected client.
type Conn interface {
	Disconnect(reason string)
}

// Session is one live connection, registered on join and removed on leave
// or kick.
type Session struct {
	AccountID   uuid.UUID
	Name        string
	Address     netip.Addr
	HardwareID  string
	ConnectedAt time.Time

	conn Conn
}

func NewSession(accountID uuid.UUID, name string, addr netip.Addr, hardwareID string, conn Conn) *Session {
	return &Session{
		AccountID:   accountID,
		Name:        name,
		Address:     addr,
		HardwareID:  hardwareID,
		ConnectedAt: time.Now().UTC(),
		conn:        conn,
	}
}

// Registry is the live session index. Sessions connect and disconnect
// concurrently with ban issuance, so every access goes through the lock.
type Registry struct {
	mu       sync.RWMutex
	byAccount map[uuid.UUID]*Session
}

func NewRegistry() *Registry {
	return &Registry{byAccount: make(map[uuid.UUID]*Session)}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	r.byAccount[s.AccountID] = s
	r.mu.Unlock()
}

func (r *Registry) Remove(accountID uuid.UUID) {
	r.mu.Lock()
	delete(r.byAccount, accountID)
	r.mu.Unlock()
}

func (r *Registry) FindByAccount(accountID uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.byAccount[accountID]
	r.mu.RUnlock()
	return s, ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	n := len(r.byAccount)
	r.mu.RUnlock()
	return n
}

// KickIfOnline terminates the target's live session, delivering message as
// the disconnect reason. Returns false when the target is offline, which is
// the common case; the persisted ban still covers future attempts.
func (r *Registry) KickIfOnline(accountID uuid.UUID, message string) bool {
	r.mu.Lock()
	s, ok := r.byAccount[accountID]
	if ok {
		delete(r.byAccount, accountID)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	s.conn.Disconnect(message)
	return true
}
