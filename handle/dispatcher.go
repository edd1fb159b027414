package handle

import (
	"fmt"

	"github.com/bitly/go-simplejson"
	"github.com/fuad-daoud/discord-state/logger/dlog"
	"github.com/fuad-daoud/discord-state/state"
	"github.com/google/uuid"
)

// Dispatcher routes raw gateway payloads to the build operation matching
// their event type. It is the immediate caller the state package reports
// failures to, so logging happens here and nowhere below.
type Dispatcher struct {
	store   *state.Store
	builder *state.Builder
}

func New(store *state.Store) *Dispatcher {
	return &Dispatcher{
		store:   store,
		builder: state.NewBuilder(store),
	}
}

func (d *Dispatcher) Handle(eventType string, raw []byte) error {
	trace := uuid.NewString()
	js, err := simplejson.NewJson(raw)
	if err != nil {
		dlog.Error("could not parse payload", "type", eventType, "trace", trace, "err", err)
		return fmt.Errorf("handle %s: %w", eventType, err)
	}
	if err := d.route(eventType, js); err != nil {
		dlog.Error("event failed", "type", eventType, "trace", trace, "err", err)
		return fmt.Errorf("handle %s: %w", eventType, err)
	}
	dlog.Debug("event applied", "type", eventType, "trace", trace)
	return nil
}

func (d *Dispatcher) route(eventType string, js *simplejson.Json) error {
	switch eventType {
	case "READY":
		return d.ready(js)
	case "GUILD_CREATE", "GUILD_UPDATE":
		_, err := d.builder.BuildGuild(js)
		return err
	case "GUILD_ROLE_CREATE", "GUILD_ROLE_UPDATE":
		guildId, err := js.Get("guild_id").String()
		if err != nil {
			return fmt.Errorf("guild_id: %w", err)
		}
		_, err = d.builder.BuildRole(js.Get("role"), guildId)
		return err
	case "CHANNEL_CREATE", "CHANNEL_UPDATE":
		return d.channel(js)
	case "MESSAGE_CREATE":
		_, err := d.builder.BuildMessage(js)
		return err
	case "PRESENCE_UPDATE":
		_, err := d.builder.BuildPresence(js)
		return err
	case "USER_UPDATE":
		_, err := d.builder.BuildSelfInfo(js)
		return err
	default:
		// The gateway is free to be ahead of us; unknown types are not an
		// error.
		dlog.Debug("unhandled event type", "type", eventType)
		return nil
	}
}

// ready seeds the whole session view: the local account, every guild
// snapshot and every open private channel.
func (d *Dispatcher) ready(js *simplejson.Json) error {
	if _, err := d.builder.BuildSelfInfo(js.Get("user")); err != nil {
		return err
	}
	if guilds, ok := js.CheckGet("guilds"); ok {
		entries, err := guilds.Array()
		if err != nil {
			return fmt.Errorf("guilds: %w", err)
		}
		for i := range entries {
			if _, err := d.builder.BuildGuild(guilds.GetIndex(i)); err != nil {
				return err
			}
		}
	}
	if channels, ok := js.CheckGet("private_channels"); ok {
		entries, err := channels.Array()
		if err != nil {
			return fmt.Errorf("private_channels: %w", err)
		}
		for i := range entries {
			if _, err := d.builder.BuildPrivateChannel(channels.GetIndex(i)); err != nil {
				return err
			}
		}
	}
	return nil
}

// channel routes guild channels by their type field; payloads without a
// guild_id are private channels.
func (d *Dispatcher) channel(js *simplejson.Json) error {
	guildId, ok := js.CheckGet("guild_id")
	if !ok {
		_, err := d.builder.BuildPrivateChannel(js)
		return err
	}
	id, err := guildId.String()
	if err != nil {
		return fmt.Errorf("guild_id: %w", err)
	}
	channelType, err := js.Get("type").String()
	if err != nil {
		return fmt.Errorf("type: %w", err)
	}
	switch channelType {
	case "text":
		_, err := d.builder.BuildTextChannel(js, id)
		return err
	case "voice":
		_, err := d.builder.BuildVoiceChannel(js, id)
		return err
	default:
		return fmt.Errorf("unknown channel type %q", channelType)
	}
}
