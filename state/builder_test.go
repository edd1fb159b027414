package state

import (
	"testing"
	"time"

	"github.com/bitly/go-simplejson"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustJson(t *testing.T, raw string) *simplejson.Json {
	t.Helper()
	js, err := simplejson.NewJson([]byte(raw))
	require.NoError(t, err)
	return js
}

func newId() string {
	return snowflake.New(time.Now()).String()
}

func TestBuildUser(t *testing.T) {
	builder := NewBuilder(NewStore())

	user, err := builder.BuildUser(mustJson(t, `{"id":"u1","username":"austin","discriminator":"0001","avatar":"a1"}`))
	require.NoError(t, err)

	assert.Equal(t, "u1", user.Id())
	assert.Equal(t, "austin", user.Username())
	assert.Equal(t, "0001", user.Discriminator())
	avatar, ok := user.AvatarId()
	assert.True(t, ok)
	assert.Equal(t, "a1", avatar)
}

func TestBuildUserNumericDiscriminator(t *testing.T) {
	builder := NewBuilder(NewStore())

	user, err := builder.BuildUser(mustJson(t, `{"id":"u1","username":"austin","discriminator":42,"avatar":null}`))
	require.NoError(t, err)

	assert.Equal(t, "42", user.Discriminator())
}

func TestBuildUserIdempotent(t *testing.T) {
	store := NewStore()
	builder := NewBuilder(store)
	id := newId()
	payload := `{"id":"` + id + `","username":"austin","discriminator":"0001","avatar":"a1"}`

	first, err := builder.BuildUser(mustJson(t, payload))
	require.NoError(t, err)
	second, err := builder.BuildUser(mustJson(t, payload))
	require.NoError(t, err)

	assert.Same(t, first, second)
	stored, ok := store.User(id)
	require.True(t, ok)
	assert.Same(t, first, stored)
	assert.Equal(t, "austin", stored.Username())
}

func TestBuildUserNullAvatarClears(t *testing.T) {
	builder := NewBuilder(NewStore())

	user, err := builder.BuildUser(mustJson(t, `{"id":"u1","username":"austin","discriminator":"0001","avatar":"a1"}`))
	require.NoError(t, err)
	_, ok := user.AvatarId()
	require.True(t, ok)

	_, err = builder.BuildUser(mustJson(t, `{"id":"u1","username":"austin","discriminator":"0001","avatar":null}`))
	require.NoError(t, err)
	_, ok = user.AvatarId()
	assert.False(t, ok)
}

func TestBuildUserPartialPayloadKeepsFields(t *testing.T) {
	builder := NewBuilder(NewStore())

	user, err := builder.BuildUser(mustJson(t, `{"id":"u1","username":"austin","discriminator":"0001","avatar":"a1"}`))
	require.NoError(t, err)

	_, err = builder.BuildUser(mustJson(t, `{"id":"u1","username":"michael"}`))
	require.NoError(t, err)

	assert.Equal(t, "michael", user.Username())
	assert.Equal(t, "0001", user.Discriminator())
	avatar, ok := user.AvatarId()
	assert.True(t, ok)
	assert.Equal(t, "a1", avatar)
}

func TestBuildUserMalformedUsername(t *testing.T) {
	builder := NewBuilder(NewStore())

	_, err := builder.BuildUser(mustJson(t, `{"id":"u1","username":13}`))
	assert.Error(t, err)
}

func TestBuildRoleUnknownGuild(t *testing.T) {
	builder := NewBuilder(NewStore())

	_, err := builder.BuildRole(mustJson(t, `{"id":"r1","name":"mods"}`), "missing")
	assert.ErrorIs(t, err, ErrUnknownGuild)
}

func TestBuildRole(t *testing.T) {
	store := NewStore()
	builder := NewBuilder(store)
	_, err := builder.BuildGuild(mustJson(t, `{"id":"g1","name":"guild"}`))
	require.NoError(t, err)

	role, err := builder.BuildRole(mustJson(t, `{"id":"r1","name":"mods","position":3,"permissions":268435462,"managed":true,"hoist":true,"color":255}`), "g1")
	require.NoError(t, err)

	assert.Equal(t, "r1", role.Id())
	assert.Equal(t, "mods", role.Name())
	assert.Equal(t, 3, role.Position())
	assert.Equal(t, int64(268435462), role.Permissions())
	assert.True(t, role.Managed())
	assert.True(t, role.Hoist())
	assert.Equal(t, 255, role.Color())

	guild, _ := store.Guild("g1")
	stored, ok := guild.Role("r1")
	require.True(t, ok)
	assert.Same(t, role, stored)
}

func TestBuildGuildMinimal(t *testing.T) {
	store := NewStore()
	builder := NewBuilder(store)

	guild, err := builder.BuildGuild(mustJson(t, `{
		"id": "g1",
		"name": "tiny",
		"icon": null,
		"region": "us-west",
		"owner_id": "u9",
		"afk_timeout": 300,
		"afk_channel_id": null,
		"roles": [{"id":"r1","name":"@everyone","position":0,"permissions":0,"managed":false,"hoist":false,"color":0}],
		"channels": [],
		"members": [],
		"presences": []
	}`))
	require.NoError(t, err)

	assert.Equal(t, "tiny", guild.Name())
	assert.Equal(t, "us-west", guild.Region())
	assert.Equal(t, "u9", guild.OwnerId())
	assert.Equal(t, 300, guild.AfkTimeout())
	_, ok := guild.IconId()
	assert.False(t, ok)
	_, ok = guild.AfkChannelId()
	assert.False(t, ok)

	require.Len(t, guild.Roles(), 1)
	role, ok := guild.Role("r1")
	require.True(t, ok)
	assert.Same(t, role, guild.PublicRole())
	assert.Empty(t, guild.TextChannels())
	assert.Empty(t, guild.VoiceChannels())
	assert.Empty(t, guild.Members())
}

func TestBuildGuildWithoutEveryoneRole(t *testing.T) {
	builder := NewBuilder(NewStore())

	guild, err := builder.BuildGuild(mustJson(t, `{
		"id": "g1",
		"name": "roleless",
		"roles": [{"id":"r1","name":"mods","position":1,"permissions":0,"managed":false,"hoist":false,"color":0}]
	}`))
	require.NoError(t, err)

	assert.Nil(t, guild.PublicRole())
}

func TestBuildGuildSnapshotWiresOverridesToRoles(t *testing.T) {
	store := NewStore()
	builder := NewBuilder(store)

	guild, err := builder.BuildGuild(mustJson(t, `{
		"id": "g1",
		"name": "wired",
		"roles": [
			{"id":"r1","name":"@everyone","position":0,"permissions":0,"managed":false,"hoist":false,"color":0},
			{"id":"r2","name":"mods","position":1,"permissions":8,"managed":false,"hoist":true,"color":255}
		],
		"channels": [{
			"id": "c1",
			"type": "text",
			"name": "general",
			"topic": "hello",
			"position": 0,
			"permission_overwrites": [{"id":"r2","type":"role","allow":1024,"deny":2048}]
		}]
	}`))
	require.NoError(t, err)

	channel, ok := guild.TextChannel("c1")
	require.True(t, ok)
	assert.Same(t, guild, channel.Guild())
	assert.Equal(t, "general", channel.Name())
	assert.Equal(t, "hello", channel.Topic())

	// The override must be keyed by the role object built two steps earlier,
	// not by a stand-in.
	role, ok := guild.Role("r2")
	require.True(t, ok)
	override, ok := channel.RoleOverride(role)
	require.True(t, ok)
	assert.Equal(t, int64(1024), override.Allow)
	assert.Equal(t, int64(2048), override.Deny)

	flat, ok := store.TextChannel("c1")
	require.True(t, ok)
	assert.Same(t, channel, flat)
}

func TestBuildGuildSnapshotVoiceChannelsAreSkipped(t *testing.T) {
	store := NewStore()
	builder := NewBuilder(store)

	guild, err := builder.BuildGuild(mustJson(t, `{
		"id": "g1",
		"name": "quiet",
		"channels": [{"id":"v1","type":"voice","name":"Voice","position":0}]
	}`))
	require.NoError(t, err)

	assert.Empty(t, guild.VoiceChannels())
	_, ok := store.TextChannel("v1")
	assert.False(t, ok)
}

func TestBuildGuildMembersAndPresences(t *testing.T) {
	store := NewStore()
	builder := NewBuilder(store)

	guild, err := builder.BuildGuild(mustJson(t, `{
		"id": "g1",
		"name": "peopled",
		"roles": [
			{"id":"r1","name":"@everyone","position":0,"permissions":0,"managed":false,"hoist":false,"color":0},
			{"id":"r2","name":"mods","position":1,"permissions":8,"managed":false,"hoist":false,"color":0}
		],
		"members": [{
			"user": {"id":"u1","username":"austin","discriminator":"0001","avatar":null},
			"roles": ["r2","r1"]
		}],
		"presences": [{
			"user": {"id":"u1"},
			"game_id": 17,
			"status": "online"
		}]
	}`))
	require.NoError(t, err)

	user, ok := store.User("u1")
	require.True(t, ok)
	roles, ok := guild.MemberRoles(user)
	require.True(t, ok)
	require.Len(t, roles, 2)
	assert.Equal(t, "r2", roles[0].Id())
	assert.Equal(t, "r1", roles[1].Id())

	assert.Equal(t, StatusOnline, user.OnlineStatus())
	gameId, ok := user.CurrentGameId()
	require.True(t, ok)
	assert.Equal(t, "17", gameId)
}

func TestBuildGuildMemberWithUnknownRole(t *testing.T) {
	builder := NewBuilder(NewStore())

	_, err := builder.BuildGuild(mustJson(t, `{
		"id": "g1",
		"name": "broken",
		"roles": [],
		"members": [{
			"user": {"id":"u1","username":"austin","discriminator":"0001","avatar":null},
			"roles": ["missing"]
		}]
	}`))
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestBuildGuildPresenceForUnknownUser(t *testing.T) {
	builder := NewBuilder(NewStore())

	_, err := builder.BuildGuild(mustJson(t, `{
		"id": "g1",
		"name": "ghosted",
		"presences": [{"user": {"id":"nobody"}, "game_id": null, "status": "online"}]
	}`))
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestBuildTextChannelUnknownOverrideRole(t *testing.T) {
	store := NewStore()
	builder := NewBuilder(store)
	_, err := builder.BuildGuild(mustJson(t, `{"id":"g1","name":"guild"}`))
	require.NoError(t, err)

	_, err = builder.BuildTextChannel(mustJson(t, `{
		"id": "c1",
		"name": "general",
		"topic": null,
		"position": 0,
		"permission_overwrites": [{"id":"missing","type":"role","allow":0,"deny":0}]
	}`), "g1")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestBuildTextChannelUserOverride(t *testing.T) {
	store := NewStore()
	builder := NewBuilder(store)
	_, err := builder.BuildGuild(mustJson(t, `{"id":"g1","name":"guild"}`))
	require.NoError(t, err)
	user, err := builder.BuildUser(mustJson(t, `{"id":"u1","username":"austin","discriminator":"0001","avatar":null}`))
	require.NoError(t, err)

	channel, err := builder.BuildTextChannel(mustJson(t, `{
		"id": "c1",
		"name": "general",
		"topic": "t",
		"position": 0,
		"permission_overwrites": [{"id":"u1","type":"member","allow":2048,"deny":0}]
	}`), "g1")
	require.NoError(t, err)

	override, ok := channel.UserOverride(user)
	require.True(t, ok)
	assert.Equal(t, int64(2048), override.Allow)
}

func TestBuildTextChannelNullTopicClears(t *testing.T) {
	store := NewStore()
	builder := NewBuilder(store)
	_, err := builder.BuildGuild(mustJson(t, `{"id":"g1","name":"guild"}`))
	require.NoError(t, err)

	channel, err := builder.BuildTextChannel(mustJson(t, `{"id":"c1","name":"general","topic":"filled","position":0}`), "g1")
	require.NoError(t, err)
	require.Equal(t, "filled", channel.Topic())

	_, err = builder.BuildTextChannel(mustJson(t, `{"id":"c1","name":"general","topic":null,"position":0}`), "g1")
	require.NoError(t, err)
	assert.Equal(t, "", channel.Topic())
}

func TestBuildGuildNullAfkChannelClears(t *testing.T) {
	builder := NewBuilder(NewStore())

	guild, err := builder.BuildGuild(mustJson(t, `{"id":"g1","name":"guild","afk_channel_id":"c9"}`))
	require.NoError(t, err)
	afk, ok := guild.AfkChannelId()
	require.True(t, ok)
	require.Equal(t, "c9", afk)

	_, err = builder.BuildGuild(mustJson(t, `{"id":"g1","name":"guild","afk_channel_id":null}`))
	require.NoError(t, err)
	_, ok = guild.AfkChannelId()
	assert.False(t, ok)
}

func TestBuildVoiceChannelStub(t *testing.T) {
	store := NewStore()
	builder := NewBuilder(store)
	_, err := builder.BuildGuild(mustJson(t, `{"id":"g1","name":"guild"}`))
	require.NoError(t, err)

	channel, err := builder.BuildVoiceChannel(mustJson(t, `{"id":"v1","name":"Voice","position":0}`), "g1")
	assert.NoError(t, err)
	assert.Nil(t, channel)
}

func TestBuildPrivateChannel(t *testing.T) {
	store := NewStore()
	builder := NewBuilder(store)
	user, err := builder.BuildUser(mustJson(t, `{"id":"u1","username":"austin","discriminator":"0001","avatar":null}`))
	require.NoError(t, err)

	priv, err := builder.BuildPrivateChannel(mustJson(t, `{"id":"p1","recipient":{"id":"u1"}}`))
	require.NoError(t, err)
	require.NotNil(t, priv)

	assert.Equal(t, "p1", priv.Id())
	assert.Same(t, user, priv.Recipient())
	assert.Same(t, priv, user.PrivateChannel())
}

func TestBuildPrivateChannelUnreachableRecipient(t *testing.T) {
	builder := NewBuilder(NewStore())

	priv, err := builder.BuildPrivateChannel(mustJson(t, `{"id":"p1","recipient":{"id":"gone"}}`))
	assert.NoError(t, err)
	assert.Nil(t, priv)
}

func TestBuildSelfInfo(t *testing.T) {
	store := NewStore()
	builder := NewBuilder(store)

	self, err := builder.BuildSelfInfo(mustJson(t, `{"id":"me","email":"a@b.c","verified":true,"username":"austin","discriminator":"0001","avatar":null}`))
	require.NoError(t, err)

	assert.Equal(t, "me", self.Id())
	assert.Equal(t, "a@b.c", self.Email())
	assert.True(t, self.Verified())
	assert.Equal(t, "austin", self.Username())

	again, err := builder.BuildSelfInfo(mustJson(t, `{"id":"me","email":"a@b.c","verified":true,"username":"renamed","discriminator":"0001","avatar":null}`))
	require.NoError(t, err)
	assert.Same(t, self, again)
	assert.Equal(t, "renamed", self.Username())

	stored, ok := store.SelfInfo()
	require.True(t, ok)
	assert.Same(t, self, stored)
}

func TestBuildMessageWithMention(t *testing.T) {
	store := NewStore()
	builder := NewBuilder(store)
	author, err := builder.BuildUser(mustJson(t, `{"id":"u1","username":"austin","discriminator":"0001","avatar":null}`))
	require.NoError(t, err)
	_, err = builder.BuildGuild(mustJson(t, `{
		"id": "g1",
		"name": "guild",
		"roles": [{"id":"r1","name":"@everyone","position":0,"permissions":0,"managed":false,"hoist":false,"color":0}],
		"channels": [{"id":"c1","type":"text","name":"general","topic":null,"position":0,"permission_overwrites":[]}]
	}`))
	require.NoError(t, err)

	message, err := builder.BuildMessage(mustJson(t, `{
		"id": "m1",
		"author": {"id":"u1"},
		"content": "hi",
		"timestamp": "2015-08-20T11:30:00+00:00",
		"edited_timestamp": null,
		"mention_everyone": false,
		"tts": false,
		"channel_id": "c1",
		"mentions": [{"id":"u1"}]
	}`))
	require.NoError(t, err)

	assert.Same(t, author, message.Author())
	assert.Equal(t, "hi", message.Content())
	assert.False(t, message.IsEdited())
	assert.False(t, message.MentionsEveryone())
	assert.False(t, message.TTS())
	assert.Equal(t, 2015, message.Time().Year())

	expected, ok := store.TextChannel("c1")
	require.True(t, ok)
	assert.Same(t, expected, message.Channel())

	mentions := message.MentionedUsers()
	require.Len(t, mentions, 1)
	assert.Same(t, author, mentions[0])
}

func TestBuildMessageMentionOrder(t *testing.T) {
	store := NewStore()
	builder := NewBuilder(store)
	for _, raw := range []string{
		`{"id":"u1","username":"a","discriminator":"1","avatar":null}`,
		`{"id":"u2","username":"b","discriminator":"2","avatar":null}`,
		`{"id":"u3","username":"c","discriminator":"3","avatar":null}`,
	} {
		_, err := builder.BuildUser(mustJson(t, raw))
		require.NoError(t, err)
	}

	message, err := builder.BuildMessage(mustJson(t, `{
		"id": "m1",
		"author": {"id":"u1"},
		"content": "all of you",
		"timestamp": "2015-08-20T11:30:00Z",
		"edited_timestamp": null,
		"mention_everyone": false,
		"tts": false,
		"channel_id": "nowhere",
		"mentions": [{"id":"u3"},{"id":"u1"},{"id":"u2"}]
	}`))
	require.NoError(t, err)

	mentions := message.MentionedUsers()
	require.Len(t, mentions, 3)
	assert.Equal(t, "u3", mentions[0].Id())
	assert.Equal(t, "u1", mentions[1].Id())
	assert.Equal(t, "u2", mentions[2].Id())
}

func TestBuildMessageUnknownAuthor(t *testing.T) {
	builder := NewBuilder(NewStore())

	_, err := builder.BuildMessage(mustJson(t, `{
		"id": "m1",
		"author": {"id":"nobody"},
		"content": "hi",
		"timestamp": "2015-08-20T11:30:00Z",
		"mention_everyone": false,
		"tts": false,
		"channel_id": "c1",
		"mentions": []
	}`))
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestBuildMessageEdited(t *testing.T) {
	store := NewStore()
	builder := NewBuilder(store)
	_, err := builder.BuildUser(mustJson(t, `{"id":"u1","username":"a","discriminator":"1","avatar":null}`))
	require.NoError(t, err)

	message, err := builder.BuildMessage(mustJson(t, `{
		"id": "m1",
		"author": {"id":"u1"},
		"content": "fixed typo",
		"timestamp": "2015-08-20T11:30:00Z",
		"edited_timestamp": "2015-08-20T11:31:30Z",
		"mention_everyone": true,
		"tts": true,
		"channel_id": "nowhere",
		"mentions": []
	}`))
	require.NoError(t, err)

	require.True(t, message.IsEdited())
	edited, ok := message.EditedTime()
	require.True(t, ok)
	assert.Equal(t, 90, int(edited.Sub(message.Time()).Seconds()))
	assert.True(t, message.MentionsEveryone())
	assert.True(t, message.TTS())
}

func TestBuildMessageFreshInstancePerPayload(t *testing.T) {
	builder := NewBuilder(NewStore())
	_, err := builder.BuildUser(mustJson(t, `{"id":"u1","username":"a","discriminator":"1","avatar":null}`))
	require.NoError(t, err)

	payload := `{
		"id": "m1",
		"author": {"id":"u1"},
		"content": "hi",
		"timestamp": "2015-08-20T11:30:00Z",
		"edited_timestamp": null,
		"mention_everyone": false,
		"tts": false,
		"channel_id": "nowhere",
		"mentions": []
	}`
	first, err := builder.BuildMessage(mustJson(t, payload))
	require.NoError(t, err)
	second, err := builder.BuildMessage(mustJson(t, payload))
	require.NoError(t, err)

	assert.NotSame(t, first, second)
}

func TestBuildPresenceNullGameClears(t *testing.T) {
	store := NewStore()
	builder := NewBuilder(store)
	user, err := builder.BuildUser(mustJson(t, `{"id":"u1","username":"a","discriminator":"1","avatar":null}`))
	require.NoError(t, err)

	_, err = builder.BuildPresence(mustJson(t, `{"user":{"id":"u1"},"game_id":"g","status":"online"}`))
	require.NoError(t, err)
	_, ok := user.CurrentGameId()
	require.True(t, ok)

	_, err = builder.BuildPresence(mustJson(t, `{"user":{"id":"u1"},"game_id":null,"status":"idle"}`))
	require.NoError(t, err)
	_, ok = user.CurrentGameId()
	assert.False(t, ok)
	assert.Equal(t, StatusIdle, user.OnlineStatus())
}

func TestBuildGuildIdempotentSnapshot(t *testing.T) {
	store := NewStore()
	builder := NewBuilder(store)
	payload := `{
		"id": "g1",
		"name": "stable",
		"roles": [{"id":"r1","name":"@everyone","position":0,"permissions":0,"managed":false,"hoist":false,"color":0}],
		"channels": [{"id":"c1","type":"text","name":"general","topic":null,"position":0,"permission_overwrites":[]}],
		"members": [{"user":{"id":"u1","username":"a","discriminator":"1","avatar":null},"roles":["r1"]}],
		"presences": [{"user":{"id":"u1"},"game_id":null,"status":"online"}]
	}`

	first, err := builder.BuildGuild(mustJson(t, payload))
	require.NoError(t, err)
	firstRole, _ := first.Role("r1")
	firstChannel, _ := first.TextChannel("c1")

	second, err := builder.BuildGuild(mustJson(t, payload))
	require.NoError(t, err)

	assert.Same(t, first, second)
	require.Len(t, second.Roles(), 1)
	require.Len(t, second.TextChannels(), 1)
	require.Len(t, second.Members(), 1)
	secondRole, _ := second.Role("r1")
	secondChannel, _ := second.TextChannel("c1")
	assert.Same(t, firstRole, secondRole)
	assert.Same(t, firstChannel, secondChannel)
}
