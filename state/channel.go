package state

import "sync"

// PermissionOverride is an allow/deny bitmask pair attached to a channel for
// one role or user target.
type PermissionOverride struct {
	Allow int64
	Deny  int64
}

// TextChannel belongs to exactly one guild. Channel ids are globally unique,
// so the Store also keeps a flat id lookup across all guilds.
type TextChannel struct {
	mu            sync.RWMutex
	id            string
	guild         *Guild
	name          string
	topic         string
	position      int
	roleOverrides map[*Role]PermissionOverride
	userOverrides map[*User]PermissionOverride
}

func newTextChannel(id string, guild *Guild) *TextChannel {
	return &TextChannel{
		id:            id,
		guild:         guild,
		roleOverrides: make(map[*Role]PermissionOverride),
		userOverrides: make(map[*User]PermissionOverride),
	}
}

func (c *TextChannel) Id() string {
	return c.id
}

func (c *TextChannel) Guild() *Guild {
	return c.guild
}

func (c *TextChannel) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// Topic is empty when the channel has no topic set.
func (c *TextChannel) Topic() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topic
}

func (c *TextChannel) Position() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.position
}

func (c *TextChannel) RoleOverride(role *Role) (PermissionOverride, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	override, ok := c.roleOverrides[role]
	return override, ok
}

func (c *TextChannel) UserOverride(user *User) (PermissionOverride, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	override, ok := c.userOverrides[user]
	return override, ok
}

func (c *TextChannel) putRoleOverride(role *Role, override PermissionOverride) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roleOverrides[role] = override
}

func (c *TextChannel) putUserOverride(user *User, override PermissionOverride) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userOverrides[user] = override
}

// VoiceChannel exists for guild table symmetry. The build path for voice
// channels is a deliberate stub (see Builder.BuildVoiceChannel), so
// instances are never constructed from payloads today.
type VoiceChannel struct {
	mu       sync.RWMutex
	id       string
	guild    *Guild
	name     string
	position int
}

func (c *VoiceChannel) Id() string {
	return c.id
}

func (c *VoiceChannel) Guild() *Guild {
	return c.guild
}

func (c *VoiceChannel) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

func (c *VoiceChannel) Position() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.position
}

// PrivateChannel is a direct-message channel with a single recipient. Both
// fields are fixed at construction.
type PrivateChannel struct {
	id        string
	recipient *User
}

func (p *PrivateChannel) Id() string {
	return p.id
}

func (p *PrivateChannel) Recipient() *User {
	return p.recipient
}
