// Package main drives one scripted expedition against a running delved and
// prints each response as YAML.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/delve/internal/game/session"
	"github.com/cory-johannsen/delve/internal/gameserver"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:50051", "delved gRPC address")
	dungeonID := flag.String("dungeon", "dungeon_0", "catalog dungeon id")
	level := flag.Int("level", 5, "player level")
	rooms := flag.Int("rooms", 10, "explore_room actions to issue")
	depth := flag.Int("depth", 10, "navigation depth budget; 0 skips navigation")
	list := flag.Bool("list", false, "print the catalog and exit")
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("connecting to %s: %v", *addr, err)
	}
	defer conn.Close()
	client := gameserver.NewClient(conn)

	out := yaml.NewEncoder(os.Stdout)
	defer out.Close()
	emit := func(label string, v any) {
		if err := out.Encode(map[string]any{label: v}); err != nil {
			log.Fatalf("encoding %s: %v", label, err)
		}
	}

	if *list {
		dungeons, err := client.ListDungeons(ctx)
		if err != nil {
			log.Fatalf("listing dungeons: %v", err)
		}
		emit("dungeons", dungeons)
		return
	}

	enter, err := client.Enter(ctx, *dungeonID, *level)
	if err != nil {
		log.Fatalf("entering %s: %v", *dungeonID, err)
	}
	emit("enter", enter)

	actions := make([]session.Action, 0, *rooms+2)
	for i := 0; i < *rooms; i++ {
		actions = append(actions, session.ActionExploreRoom)
	}
	actions = append(actions, session.ActionStrategicChoice, session.ActionFaceChallenge)
	explore, err := client.Explore(ctx, *dungeonID, actions...)
	if err != nil {
		log.Fatalf("exploring: %v", err)
	}
	emit("explore", explore)

	if *depth > 0 {
		nav, err := client.Navigate(ctx, *dungeonID, *depth)
		if err != nil {
			log.Fatalf("navigating: %v", err)
		}
		emit("navigate", nav)
	}

	summary, ended, err := client.End(ctx, *dungeonID)
	if err != nil {
		log.Fatalf("ending: %v", err)
	}
	if !ended {
		log.Fatalf("no expedition was running in %s", *dungeonID)
	}
	emit("summary", summary)
}
