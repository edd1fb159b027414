package main

import (
	"bufio"
	"os"
	"strings"

	"github.com/fuad-daoud/discord-state/config"
	"github.com/fuad-daoud/discord-state/handle"
	"github.com/fuad-daoud/discord-state/logger/dlog"
	"github.com/fuad-daoud/discord-state/state"
)

// Replays a recorded gateway feed from stdin into a fresh store. One event
// per line: the event type, a space, then the raw json payload.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		dlog.Error("could not load config", "err", err)
		os.Exit(1)
	}
	if err := dlog.Setup(cfg.LogDir, cfg.ArchiveCron); err != nil {
		dlog.Error("could not set up logging", "err", err)
		os.Exit(1)
	}

	store := state.NewStore()
	dispatcher := handle.New(store)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	applied, failed := 0, 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		eventType, payload, ok := strings.Cut(line, " ")
		if !ok {
			dlog.Warn("skipping line without payload", "line", line)
			continue
		}
		if err := dispatcher.Handle(eventType, []byte(payload)); err != nil {
			failed++
			continue
		}
		applied++
	}
	if err := scanner.Err(); err != nil {
		dlog.Error("could not read feed", "err", err)
		os.Exit(1)
	}

	dlog.Info("replay finished",
		"applied", applied,
		"failed", failed,
		"guilds", len(store.Guilds()),
	)
}
