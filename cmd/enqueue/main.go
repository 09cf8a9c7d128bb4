package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/farm-engine/internal/schema"
	"github.com/jwebster45206/farm-engine/internal/services/queue"
	queuePkg "github.com/jwebster45206/farm-engine/pkg/queue"
)

func main() {
	redisURL := flag.String("redis", "redis://localhost:6379", "Redis URL")
	world := flag.String("world", "", "world ID (required)")
	action := flag.String("action", `{"type":"bertObsession.completed"}`, "action JSON")
	at := flag.Int64("at", 0, "game timestamp in unix ms (0 lets the worker decide)")
	locale := flag.String("locale", "", "locale for rejection messages")
	flag.Parse()

	worldID, err := uuid.Parse(*world)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Usage: %s -world <uuid> [-action <json>] [-at <ms>]\n", os.Args[0])
		os.Exit(1)
	}
	if err := schema.ValidateAction([]byte(*action)); err != nil {
		log.Fatal("Invalid action: ", err)
	}

	redisOpts, err := redis.ParseURL(*redisURL)
	if err != nil {
		log.Fatal("Failed to parse Redis URL: ", err)
	}
	client := redis.NewClient(redisOpts)
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis: ", err)
	}
	fmt.Println("Connected to Redis successfully!")

	req := queuePkg.NewRequest(worldID, json.RawMessage(*action), *at)
	req.Locale = *locale
	data, err := req.ToJSON()
	if err != nil {
		log.Fatal("Failed to marshal request: ", err)
	}
	if err := client.RPush(ctx, queue.ActionsKey, data).Err(); err != nil {
		log.Fatal("Failed to enqueue request: ", err)
	}
	fmt.Printf("Enqueued action request: %s\n", req.RequestID)

	depth, err := client.LLen(ctx, queue.ActionsKey).Result()
	if err != nil {
		log.Fatal("Failed to read queue depth: ", err)
	}
	fmt.Printf("Queue depth: %d\n", depth)
}
