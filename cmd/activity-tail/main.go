// Command activity-tail follows the bot's activity topic and prints running
// totals per event type.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dotastats-bot/internal/config"
	"github.com/dotastats-bot/internal/domain"
	"github.com/dotastats-bot/internal/kafka"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	brokers := flag.String("brokers", "", "Kafka brokers (comma-separated), overrides the config file")
	topic := flag.String("topic", "", "Kafka topic, overrides the config file")
	group := flag.String("group", "", "Consumer group id, overrides the config file")
	every := flag.Duration("every", 5*time.Second, "How often to print totals")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		cfg = config.DefaultConfig()
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))

	if *brokers != "" {
		cfg.Kafka.Brokers = strings.Split(*brokers, ",")
	}
	if *topic != "" {
		cfg.Kafka.Topic = *topic
	}
	if *group != "" {
		cfg.Kafka.GroupID = *group
	}
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Error("no Kafka brokers configured, use -brokers or kafka.brokers")
		os.Exit(1)
	}

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println("  📡 Bot activity tail")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("  Brokers:  %s\n", strings.Join(cfg.Kafka.Brokers, ","))
	fmt.Printf("  Topic:    %s\n", cfg.Kafka.Topic)
	fmt.Printf("  Group:    %s\n", cfg.Kafka.GroupID)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tally := kafka.NewTally(logger)
	consumer, err := kafka.NewConsumer(&cfg.Kafka, tally, logger)
	if err != nil {
		logger.Error("failed to create Kafka consumer", "error", err)
		os.Exit(1)
	}

	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	ticker := time.NewTicker(*every)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			fmt.Println("\nShutting down...")
			if err != nil {
				logger.Error("Kafka consumer stopped", "error", err)
			}
			printTotals(tally.Snapshot())
			return
		case <-ticker.C:
			printTotals(tally.Snapshot())
		}
	}
}

func printTotals(snap kafka.TallySnapshot) {
	types := make([]string, 0, len(snap.ByType))
	for t := range snap.ByType {
		types = append(types, string(t))
	}
	slices.Sort(types)

	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, fmt.Sprintf("%s=%d", t, snap.ByType[domain.ActivityType(t)]))
	}

	fmt.Printf("[%s] users: %d | quiz points: %d | %s\n",
		time.Now().Format("15:04:05"),
		snap.ActiveUsers,
		snap.Points,
		strings.Join(parts, " "),
	)
}
