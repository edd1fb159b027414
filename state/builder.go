package state

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bitly/go-simplejson"
)

// Lookup misses for references that must pre-exist. Wrapped with payload
// context by the build operations; match with errors.Is.
var (
	ErrUnknownGuild = errors.New("unknown guild")
	ErrUnknownUser  = errors.New("unknown user")
	ErrUnknownRole  = errors.New("unknown role")
)

// Builder turns inbound JSON payloads into entities on a Store.
//
// Every operation follows the same shape: look the entity up by id, create
// a bare instance when absent, then overwrite every field the payload
// carries. Keys missing from the payload leave the current value alone;
// nullable fields are cleared only by an explicit JSON null. Failures
// surface to the caller untouched, the builder never logs and never
// retries; redelivering a payload is always safe because every upsert is
// idempotent.
type Builder struct {
	store *Store
}

func NewBuilder(store *Store) *Builder {
	return &Builder{store: store}
}

// BuildUser upserts a user from its payload.
func (b *Builder) BuildUser(js *simplejson.Json) (*User, error) {
	id, err := js.Get("id").String()
	if err != nil {
		return nil, fmt.Errorf("build user: id: %w", err)
	}
	user := b.store.upsertUser(id)

	user.mu.Lock()
	defer user.mu.Unlock()
	if name, ok := js.CheckGet("username"); ok {
		user.username, err = name.String()
		if err != nil {
			return nil, fmt.Errorf("build user %s: username: %w", id, err)
		}
	}
	if disc, ok := js.CheckGet("discriminator"); ok {
		user.discriminator, err = asText(disc)
		if err != nil {
			return nil, fmt.Errorf("build user %s: discriminator: %w", id, err)
		}
	}
	if avatar, ok := js.CheckGet("avatar"); ok {
		user.avatarId, err = nullableString(avatar)
		if err != nil {
			return nil, fmt.Errorf("build user %s: avatar: %w", id, err)
		}
	}
	return user, nil
}

// BuildSelfInfo upserts the local account singleton.
func (b *Builder) BuildSelfInfo(js *simplejson.Json) (*SelfInfo, error) {
	id, err := js.Get("id").String()
	if err != nil {
		return nil, fmt.Errorf("build self: id: %w", err)
	}
	self := b.store.upsertSelf(id)

	self.mu.Lock()
	defer self.mu.Unlock()
	if email, ok := js.CheckGet("email"); ok {
		self.email, err = email.String()
		if err != nil {
			return nil, fmt.Errorf("build self: email: %w", err)
		}
	}
	if verified, ok := js.CheckGet("verified"); ok {
		self.verified, err = verified.Bool()
		if err != nil {
			return nil, fmt.Errorf("build self: verified: %w", err)
		}
	}
	if name, ok := js.CheckGet("username"); ok {
		self.username, err = name.String()
		if err != nil {
			return nil, fmt.Errorf("build self: username: %w", err)
		}
	}
	if disc, ok := js.CheckGet("discriminator"); ok {
		self.discriminator, err = asText(disc)
		if err != nil {
			return nil, fmt.Errorf("build self: discriminator: %w", err)
		}
	}
	if avatar, ok := js.CheckGet("avatar"); ok {
		self.avatarId, err = nullableString(avatar)
		if err != nil {
			return nil, fmt.Errorf("build self: avatar: %w", err)
		}
	}
	return self, nil
}

// BuildRole upserts a role into the table of an already known guild.
func (b *Builder) BuildRole(js *simplejson.Json, guildId string) (*Role, error) {
	guild, ok := b.store.Guild(guildId)
	if !ok {
		return nil, fmt.Errorf("build role: %w: %s", ErrUnknownGuild, guildId)
	}
	id, err := js.Get("id").String()
	if err != nil {
		return nil, fmt.Errorf("build role: id: %w", err)
	}
	role := guild.upsertRole(id)

	role.mu.Lock()
	defer role.mu.Unlock()
	if name, ok := js.CheckGet("name"); ok {
		role.name, err = name.String()
		if err != nil {
			return nil, fmt.Errorf("build role %s: name: %w", id, err)
		}
	}
	if position, ok := js.CheckGet("position"); ok {
		role.position, err = position.Int()
		if err != nil {
			return nil, fmt.Errorf("build role %s: position: %w", id, err)
		}
	}
	if permissions, ok := js.CheckGet("permissions"); ok {
		role.permissions, err = permissions.Int64()
		if err != nil {
			return nil, fmt.Errorf("build role %s: permissions: %w", id, err)
		}
	}
	if managed, ok := js.CheckGet("managed"); ok {
		role.managed, err = managed.Bool()
		if err != nil {
			return nil, fmt.Errorf("build role %s: managed: %w", id, err)
		}
	}
	if hoist, ok := js.CheckGet("hoist"); ok {
		role.hoist, err = hoist.Bool()
		if err != nil {
			return nil, fmt.Errorf("build role %s: hoist: %w", id, err)
		}
	}
	if color, ok := js.CheckGet("color"); ok {
		role.color, err = color.Int()
		if err != nil {
			return nil, fmt.Errorf("build role %s: color: %w", id, err)
		}
	}
	return role, nil
}

// BuildTextChannel upserts a text channel of an already known guild,
// attaching one permission override per permission_overwrites entry. Role
// targets resolve against the guild's role table, so on snapshot paths the
// roles must have been built first.
func (b *Builder) BuildTextChannel(js *simplejson.Json, guildId string) (*TextChannel, error) {
	guild, ok := b.store.Guild(guildId)
	if !ok {
		return nil, fmt.Errorf("build text channel: %w: %s", ErrUnknownGuild, guildId)
	}
	id, err := js.Get("id").String()
	if err != nil {
		return nil, fmt.Errorf("build text channel: id: %w", err)
	}
	channel := b.store.upsertTextChannel(id, guild)

	if overwrites, ok := js.CheckGet("permission_overwrites"); ok {
		entries, err := overwrites.Array()
		if err != nil {
			return nil, fmt.Errorf("build text channel %s: permission_overwrites: %w", id, err)
		}
		for i := range entries {
			if err := b.buildOverride(overwrites.GetIndex(i), guild, channel); err != nil {
				return nil, fmt.Errorf("build text channel %s: overwrite %d: %w", id, i, err)
			}
		}
	}

	channel.mu.Lock()
	defer channel.mu.Unlock()
	if name, ok := js.CheckGet("name"); ok {
		channel.name, err = name.String()
		if err != nil {
			return nil, fmt.Errorf("build text channel %s: name: %w", id, err)
		}
	}
	if topic, ok := js.CheckGet("topic"); ok {
		// Explicit null clears the topic.
		if topic.Interface() == nil {
			channel.topic = ""
		} else {
			channel.topic, err = topic.String()
			if err != nil {
				return nil, fmt.Errorf("build text channel %s: topic: %w", id, err)
			}
		}
	}
	if position, ok := js.CheckGet("position"); ok {
		channel.position, err = position.Int()
		if err != nil {
			return nil, fmt.Errorf("build text channel %s: position: %w", id, err)
		}
	}
	return channel, nil
}

func (b *Builder) buildOverride(js *simplejson.Json, guild *Guild, channel *TextChannel) error {
	targetType, err := js.Get("type").String()
	if err != nil {
		return fmt.Errorf("type: %w", err)
	}
	targetId, err := js.Get("id").String()
	if err != nil {
		return fmt.Errorf("id: %w", err)
	}
	allow, err := js.Get("allow").Int64()
	if err != nil {
		return fmt.Errorf("allow: %w", err)
	}
	deny, err := js.Get("deny").Int64()
	if err != nil {
		return fmt.Errorf("deny: %w", err)
	}
	override := PermissionOverride{Allow: allow, Deny: deny}

	if targetType == "role" {
		role, ok := guild.Role(targetId)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownRole, targetId)
		}
		channel.putRoleOverride(role, override)
		return nil
	}
	user, ok := b.store.User(targetId)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUser, targetId)
	}
	channel.putUserOverride(user, override)
	return nil
}

// BuildVoiceChannel is a stub that registers nothing; the voice channel
// schema is not handled yet and snapshot payloads route their voice entries
// here only to keep the type dispatch total.
func (b *Builder) BuildVoiceChannel(js *simplejson.Json, guildId string) (*VoiceChannel, error) {
	return nil, nil
}

// BuildPrivateChannel constructs a direct-message channel. The gateway can
// hand us private channels whose recipient is no longer reachable; those
// produce no entity and no error.
func (b *Builder) BuildPrivateChannel(js *simplejson.Json) (*PrivateChannel, error) {
	recipientId, err := js.GetPath("recipient", "id").String()
	if err != nil {
		return nil, fmt.Errorf("build private channel: recipient id: %w", err)
	}
	user, ok := b.store.User(recipientId)
	if !ok {
		return nil, nil
	}
	id, err := js.Get("id").String()
	if err != nil {
		return nil, fmt.Errorf("build private channel: id: %w", err)
	}
	priv := &PrivateChannel{id: id, recipient: user}
	user.setPrivateChannel(priv)
	return priv, nil
}

// BuildGuild materializes a whole guild from one snapshot payload. The
// nested collections are built in a fixed order that later steps depend on:
// roles first, then channels (their overrides resolve role ids), then
// members (their role lists resolve role ids), then presences (they resolve
// users created by the member pass). Any reference miss fails the snapshot;
// nothing built so far is rolled back because a redelivery repairs it.
func (b *Builder) BuildGuild(js *simplejson.Json) (*Guild, error) {
	id, err := js.Get("id").String()
	if err != nil {
		return nil, fmt.Errorf("build guild: id: %w", err)
	}
	guild := b.store.upsertGuild(id)
	if err := b.setGuildScalars(js, guild); err != nil {
		return nil, fmt.Errorf("build guild %s: %w", id, err)
	}

	if roles, ok := js.CheckGet("roles"); ok {
		entries, err := roles.Array()
		if err != nil {
			return nil, fmt.Errorf("build guild %s: roles: %w", id, err)
		}
		for i := range entries {
			role, err := b.BuildRole(roles.GetIndex(i), id)
			if err != nil {
				return nil, fmt.Errorf("build guild %s: %w", id, err)
			}
			if role.Name() == EveryoneRoleName {
				guild.setPublicRole(role)
			}
		}
	}

	if channels, ok := js.CheckGet("channels"); ok {
		entries, err := channels.Array()
		if err != nil {
			return nil, fmt.Errorf("build guild %s: channels: %w", id, err)
		}
		for i := range entries {
			channel := channels.GetIndex(i)
			channelType, err := channel.Get("type").String()
			if err != nil {
				return nil, fmt.Errorf("build guild %s: channel %d: type: %w", id, i, err)
			}
			switch channelType {
			case "text":
				if _, err := b.BuildTextChannel(channel, id); err != nil {
					return nil, fmt.Errorf("build guild %s: %w", id, err)
				}
			case "voice":
				if _, err := b.BuildVoiceChannel(channel, id); err != nil {
					return nil, fmt.Errorf("build guild %s: %w", id, err)
				}
			}
		}
	}

	if members, ok := js.CheckGet("members"); ok {
		entries, err := members.Array()
		if err != nil {
			return nil, fmt.Errorf("build guild %s: members: %w", id, err)
		}
		for i := range entries {
			if err := b.buildMember(members.GetIndex(i), guild); err != nil {
				return nil, fmt.Errorf("build guild %s: member %d: %w", id, i, err)
			}
		}
	}

	if presences, ok := js.CheckGet("presences"); ok {
		entries, err := presences.Array()
		if err != nil {
			return nil, fmt.Errorf("build guild %s: presences: %w", id, err)
		}
		for i := range entries {
			if _, err := b.BuildPresence(presences.GetIndex(i)); err != nil {
				return nil, fmt.Errorf("build guild %s: presence %d: %w", id, i, err)
			}
		}
	}
	return guild, nil
}

func (b *Builder) setGuildScalars(js *simplejson.Json, guild *Guild) error {
	var err error
	guild.mu.Lock()
	defer guild.mu.Unlock()
	if icon, ok := js.CheckGet("icon"); ok {
		guild.iconId, err = nullableString(icon)
		if err != nil {
			return fmt.Errorf("icon: %w", err)
		}
	}
	if region, ok := js.CheckGet("region"); ok {
		guild.region, err = region.String()
		if err != nil {
			return fmt.Errorf("region: %w", err)
		}
	}
	if name, ok := js.CheckGet("name"); ok {
		guild.name, err = name.String()
		if err != nil {
			return fmt.Errorf("name: %w", err)
		}
	}
	if ownerId, ok := js.CheckGet("owner_id"); ok {
		guild.ownerId, err = ownerId.String()
		if err != nil {
			return fmt.Errorf("owner_id: %w", err)
		}
	}
	if afkTimeout, ok := js.CheckGet("afk_timeout"); ok {
		guild.afkTimeout, err = afkTimeout.Int()
		if err != nil {
			return fmt.Errorf("afk_timeout: %w", err)
		}
	}
	if afkChannelId, ok := js.CheckGet("afk_channel_id"); ok {
		guild.afkChannelId, err = nullableString(afkChannelId)
		if err != nil {
			return fmt.Errorf("afk_channel_id: %w", err)
		}
	}
	return nil
}

// buildMember builds the member's user and records its ordered role list;
// the role ids must resolve against the role table built earlier in the
// snapshot pass.
func (b *Builder) buildMember(js *simplejson.Json, guild *Guild) error {
	user, err := b.BuildUser(js.Get("user"))
	if err != nil {
		return err
	}
	roleIds, err := js.Get("roles").Array()
	if err != nil {
		return fmt.Errorf("roles: %w", err)
	}
	roles := make([]*Role, 0, len(roleIds))
	for i := range roleIds {
		roleId, err := js.Get("roles").GetIndex(i).String()
		if err != nil {
			return fmt.Errorf("role %d: %w", i, err)
		}
		role, ok := guild.Role(roleId)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownRole, roleId)
		}
		roles = append(roles, role)
	}
	guild.setMemberRoles(user, roles)
	return nil
}

// BuildPresence updates the status and activity of an already known user.
func (b *Builder) BuildPresence(js *simplejson.Json) (*User, error) {
	userId, err := js.GetPath("user", "id").String()
	if err != nil {
		return nil, fmt.Errorf("build presence: user id: %w", err)
	}
	user, ok := b.store.User(userId)
	if !ok {
		return nil, fmt.Errorf("build presence: %w: %s", ErrUnknownUser, userId)
	}
	var gameId *string
	if game, ok := js.CheckGet("game_id"); ok && game.Interface() != nil {
		text, err := asText(game)
		if err != nil {
			return nil, fmt.Errorf("build presence %s: game_id: %w", userId, err)
		}
		gameId = &text
	}
	status, err := js.Get("status").String()
	if err != nil {
		return nil, fmt.Errorf("build presence %s: status: %w", userId, err)
	}
	user.setPresence(gameId, OnlineStatus(status))
	return user, nil
}

// BuildMessage constructs a fresh message. The author and every mentioned
// user must already be in the store; a miss means the upstream feed never
// delivered the user payload and the message is rejected.
func (b *Builder) BuildMessage(js *simplejson.Json) (*Message, error) {
	id, err := js.Get("id").String()
	if err != nil {
		return nil, fmt.Errorf("build message: id: %w", err)
	}
	authorId, err := js.GetPath("author", "id").String()
	if err != nil {
		return nil, fmt.Errorf("build message %s: author id: %w", id, err)
	}
	author, ok := b.store.User(authorId)
	if !ok {
		return nil, fmt.Errorf("build message %s: author: %w: %s", id, ErrUnknownUser, authorId)
	}
	content, err := js.Get("content").String()
	if err != nil {
		return nil, fmt.Errorf("build message %s: content: %w", id, err)
	}
	timestamp, err := js.Get("timestamp").String()
	if err != nil {
		return nil, fmt.Errorf("build message %s: timestamp: %w", id, err)
	}
	sent, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return nil, fmt.Errorf("build message %s: timestamp: %w", id, err)
	}
	mentionsEveryone, err := js.Get("mention_everyone").Bool()
	if err != nil {
		return nil, fmt.Errorf("build message %s: mention_everyone: %w", id, err)
	}
	tts, err := js.Get("tts").Bool()
	if err != nil {
		return nil, fmt.Errorf("build message %s: tts: %w", id, err)
	}

	message := &Message{
		id:               id,
		author:           author,
		content:          content,
		time:             sent,
		mentionsEveryone: mentionsEveryone,
		tts:              tts,
	}

	if edited, ok := js.CheckGet("edited_timestamp"); ok && edited.Interface() != nil {
		text, err := edited.String()
		if err != nil {
			return nil, fmt.Errorf("build message %s: edited_timestamp: %w", id, err)
		}
		message.editedTime, err = time.Parse(time.RFC3339, text)
		if err != nil {
			return nil, fmt.Errorf("build message %s: edited_timestamp: %w", id, err)
		}
	}

	channelId, err := js.Get("channel_id").String()
	if err != nil {
		return nil, fmt.Errorf("build message %s: channel_id: %w", id, err)
	}
	// Channel ids are globally unique, so the first guild that knows the id
	// is the only one that does.
	for _, guild := range b.store.Guilds() {
		if channel, ok := guild.TextChannel(channelId); ok {
			message.channel = channel
			break
		}
	}

	mentions, err := js.Get("mentions").Array()
	if err != nil {
		return nil, fmt.Errorf("build message %s: mentions: %w", id, err)
	}
	mentioned := make([]*User, 0, len(mentions))
	for i := range mentions {
		mentionId, err := js.Get("mentions").GetIndex(i).Get("id").String()
		if err != nil {
			return nil, fmt.Errorf("build message %s: mention %d: %w", id, i, err)
		}
		user, ok := b.store.User(mentionId)
		if !ok {
			return nil, fmt.Errorf("build message %s: mention %d: %w: %s", id, i, ErrUnknownUser, mentionId)
		}
		mentioned = append(mentioned, user)
	}
	message.mentionedUsers = mentioned

	return message, nil
}

// asText normalizes a field the upstream schema encodes ambiguously: the
// value may arrive as a JSON string or as a number, and is always kept as
// text on our side.
func asText(js *simplejson.Json) (string, error) {
	if text, err := js.String(); err == nil {
		return text, nil
	}
	if number, err := js.Int64(); err == nil {
		return strconv.FormatInt(number, 10), nil
	}
	return "", fmt.Errorf("expected string or number, got %T", js.Interface())
}

// nullableString reads a string field where an explicit JSON null means
// "absent".
func nullableString(js *simplejson.Json) (*string, error) {
	if js.Interface() == nil {
		return nil, nil
	}
	text, err := js.String()
	if err != nil {
		return nil, err
	}
	return &text, nil
}
