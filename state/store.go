package state

import "sync"

// Store owns entity identity: one registry per entity kind plus the local
// account singleton. Every other component looks entities up or inserts
// them through the Store, and nothing here ever removes an entry or
// inspects payload contents.
//
// The Store is plain session-scoped state, created next to the session that
// feeds it and dropped with it on disconnect.
type Store struct {
	mu       sync.RWMutex
	users    map[string]*User
	guilds   map[string]*Guild
	channels map[string]*TextChannel
	self     *SelfInfo
}

func NewStore() *Store {
	return &Store{
		users:    make(map[string]*User),
		guilds:   make(map[string]*Guild),
		channels: make(map[string]*TextChannel),
	}
}

func (s *Store) User(id string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	return user, ok
}

func (s *Store) Guild(id string) (*Guild, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	guild, ok := s.guilds[id]
	return guild, ok
}

func (s *Store) Guilds() []*Guild {
	s.mu.RLock()
	defer s.mu.RUnlock()
	guilds := make([]*Guild, 0, len(s.guilds))
	for _, guild := range s.guilds {
		guilds = append(guilds, guild)
	}
	return guilds
}

// TextChannel is the flat lookup across all guilds; channel ids are
// globally unique.
func (s *Store) TextChannel(id string) (*TextChannel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	channel, ok := s.channels[id]
	return channel, ok
}

// SelfInfo reports the local account, false before the first READY payload.
func (s *Store) SelfInfo() (*SelfInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.self == nil {
		return nil, false
	}
	return s.self, true
}

// upsertUser is the atomic get-or-create for the user registry; the lock is
// held across lookup and insert so concurrent builds of the same id agree
// on one instance.
func (s *Store) upsertUser(id string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[id]; ok {
		return user
	}
	user := &User{id: id}
	s.users[id] = user
	return user
}

func (s *Store) upsertGuild(id string) *Guild {
	s.mu.Lock()
	defer s.mu.Unlock()
	if guild, ok := s.guilds[id]; ok {
		return guild
	}
	guild := newGuild(id)
	s.guilds[id] = guild
	return guild
}

// upsertTextChannel registers the channel in the flat registry and in the
// owning guild's text table.
func (s *Store) upsertTextChannel(id string, guild *Guild) *TextChannel {
	s.mu.Lock()
	if channel, ok := s.channels[id]; ok {
		s.mu.Unlock()
		return channel
	}
	channel := newTextChannel(id, guild)
	s.channels[id] = channel
	s.mu.Unlock()

	guild.putTextChannel(channel)
	return channel
}

func (s *Store) upsertSelf(id string) *SelfInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.self == nil {
		s.self = &SelfInfo{id: id}
	}
	return s.self
}
