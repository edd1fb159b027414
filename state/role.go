package state

import "sync"

// EveryoneRoleName is the reserved name of the role every guild member
// implicitly holds.
const EveryoneRoleName = "@everyone"

// Role belongs to exactly one guild, by containment in that guild's role
// table. Ids are unique within a guild.
type Role struct {
	mu          sync.RWMutex
	id          string
	name        string
	position    int
	permissions int64
	managed     bool
	hoist       bool
	color       int
}

func (r *Role) Id() string {
	return r.id
}

func (r *Role) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.name
}

func (r *Role) Position() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.position
}

// Permissions is the raw permission bitmask.
func (r *Role) Permissions() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.permissions
}

// Managed reports whether an integration owns the role.
func (r *Role) Managed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.managed
}

// Hoist reports whether the role is shown separately in the member list.
func (r *Role) Hoist() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hoist
}

func (r *Role) Color() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.color
}
