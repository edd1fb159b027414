package state

import "sync"

// OnlineStatus is the presence state the gateway reports for a user.
type OnlineStatus string

const (
	StatusOnline       OnlineStatus = "online"
	StatusIdle         OnlineStatus = "idle"
	StatusDoNotDisturb OnlineStatus = "dnd"
	StatusInvisible    OnlineStatus = "invisible"
	StatusOffline      OnlineStatus = "offline"
)

// User is one remote account. There is exactly one instance per id; every
// entity that mentions the user holds the same pointer.
type User struct {
	mu             sync.RWMutex
	id             string
	username       string
	discriminator  string
	avatarId       *string
	onlineStatus   OnlineStatus
	currentGameId  *string
	privateChannel *PrivateChannel
}

func (u *User) Id() string {
	return u.id
}

func (u *User) Username() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.username
}

func (u *User) Discriminator() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.discriminator
}

// AvatarId reports the avatar hash, false when the user has none set.
func (u *User) AvatarId() (string, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.avatarId == nil {
		return "", false
	}
	return *u.avatarId, true
}

func (u *User) OnlineStatus() OnlineStatus {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.onlineStatus
}

// CurrentGameId reports the activity the user is playing, false when none.
func (u *User) CurrentGameId() (string, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.currentGameId == nil {
		return "", false
	}
	return *u.currentGameId, true
}

// PrivateChannel returns the direct-message channel with this user, nil when
// none has been opened.
func (u *User) PrivateChannel() *PrivateChannel {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.privateChannel
}

func (u *User) setPrivateChannel(priv *PrivateChannel) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.privateChannel = priv
}

func (u *User) setPresence(gameId *string, status OnlineStatus) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.currentGameId = gameId
	u.onlineStatus = status
}

// SelfInfo is the local account. It is a singleton on the Store, created on
// the first READY payload and updated in place afterwards.
type SelfInfo struct {
	mu            sync.RWMutex
	id            string
	email         string
	username      string
	discriminator string
	avatarId      *string
	verified      bool
}

func (s *SelfInfo) Id() string {
	return s.id
}

func (s *SelfInfo) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

func (s *SelfInfo) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *SelfInfo) Discriminator() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.discriminator
}

func (s *SelfInfo) AvatarId() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.avatarId == nil {
		return "", false
	}
	return *s.avatarId, true
}

func (s *SelfInfo) Verified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.verified
}
