package state

import "sync"

// Guild owns its role table, channel tables and the member role lists. All
// of them are populated by the Builder only; readers go through the
// accessors below.
type Guild struct {
	mu            sync.RWMutex
	id            string
	name          string
	iconId        *string
	region        string
	ownerId       string
	afkTimeout    int
	afkChannelId  *string
	publicRole    *Role
	roles         map[string]*Role
	textChannels  map[string]*TextChannel
	voiceChannels map[string]*VoiceChannel
	memberRoles   map[*User][]*Role
}

func newGuild(id string) *Guild {
	return &Guild{
		id:            id,
		roles:         make(map[string]*Role),
		textChannels:  make(map[string]*TextChannel),
		voiceChannels: make(map[string]*VoiceChannel),
		memberRoles:   make(map[*User][]*Role),
	}
}

func (g *Guild) Id() string {
	return g.id
}

func (g *Guild) Name() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.name
}

// IconId reports the guild icon hash, false when the guild has none.
func (g *Guild) IconId() (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.iconId == nil {
		return "", false
	}
	return *g.iconId, true
}

func (g *Guild) Region() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.region
}

func (g *Guild) OwnerId() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ownerId
}

// AfkTimeout is the voice idle timeout in seconds.
func (g *Guild) AfkTimeout() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.afkTimeout
}

// AfkChannelId reports the afk voice channel, false when unset.
func (g *Guild) AfkChannelId() (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.afkChannelId == nil {
		return "", false
	}
	return *g.afkChannelId, true
}

// PublicRole is the role named "@everyone", nil until a snapshot carrying it
// has been built.
func (g *Guild) PublicRole() *Role {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.publicRole
}

func (g *Guild) Role(id string) (*Role, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	role, ok := g.roles[id]
	return role, ok
}

func (g *Guild) Roles() []*Role {
	g.mu.RLock()
	defer g.mu.RUnlock()
	roles := make([]*Role, 0, len(g.roles))
	for _, role := range g.roles {
		roles = append(roles, role)
	}
	return roles
}

func (g *Guild) TextChannel(id string) (*TextChannel, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	channel, ok := g.textChannels[id]
	return channel, ok
}

func (g *Guild) TextChannels() []*TextChannel {
	g.mu.RLock()
	defer g.mu.RUnlock()
	channels := make([]*TextChannel, 0, len(g.textChannels))
	for _, channel := range g.textChannels {
		channels = append(channels, channel)
	}
	return channels
}

func (g *Guild) VoiceChannels() []*VoiceChannel {
	g.mu.RLock()
	defer g.mu.RUnlock()
	channels := make([]*VoiceChannel, 0, len(g.voiceChannels))
	for _, channel := range g.voiceChannels {
		channels = append(channels, channel)
	}
	return channels
}

func (g *Guild) Members() []*User {
	g.mu.RLock()
	defer g.mu.RUnlock()
	members := make([]*User, 0, len(g.memberRoles))
	for user := range g.memberRoles {
		members = append(members, user)
	}
	return members
}

// MemberRoles reports the ordered role list of a member, false when the user
// is not a member of the guild.
func (g *Guild) MemberRoles(user *User) ([]*Role, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	roles, ok := g.memberRoles[user]
	if !ok {
		return nil, false
	}
	out := make([]*Role, len(roles))
	copy(out, roles)
	return out, true
}

func (g *Guild) upsertRole(id string) *Role {
	g.mu.Lock()
	defer g.mu.Unlock()
	if role, ok := g.roles[id]; ok {
		return role
	}
	role := &Role{id: id}
	g.roles[id] = role
	return role
}

func (g *Guild) putTextChannel(channel *TextChannel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.textChannels[channel.id] = channel
}

func (g *Guild) setPublicRole(role *Role) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.publicRole = role
}

func (g *Guild) setMemberRoles(user *User, roles []*Role) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.memberRoles[user] = roles
}
