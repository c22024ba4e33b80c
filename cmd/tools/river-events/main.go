package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/annel0/rivergen/internal/eventbus"
)

const timeFormat = "15:04:05.000"

func main() {
	var (
		natsURL    = flag.String("nats", "nats://localhost:4222", "адрес NATS")
		stream     = flag.String("stream", "RIVERS", "имя JetStream stream")
		command    = flag.String("cmd", "tail", "Команда: tail, stats")
		eventTypes = flag.String("types", "", "фильтр типов событий (через запятую)")
		limit      = flag.Int("limit", 100, "максимальное число событий для tail")
		follow     = flag.Bool("follow", false, "не останавливаться после limit")
		window     = flag.Duration("for", 10*time.Second, "длительность сбора статистики")
	)
	flag.Parse()

	bus, err := eventbus.NewJetStreamBus(*natsURL, *stream, 0)
	if err != nil {
		log.Fatalf("❌ Не удалось подключиться к NATS: %v", err)
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	filter := eventbus.Filter{Types: parseStringList(*eventTypes)}

	switch *command {
	case "tail":
		if err := tailEvents(ctx, bus, filter, *limit, *follow); err != nil {
			log.Fatalf("❌ Tail failed: %v", err)
		}
	case "stats":
		if err := showStats(ctx, bus, filter, *window); err != nil {
			log.Fatalf("❌ Stats failed: %v", err)
		}
	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, stats")
		os.Exit(1)
	}
}

// tailEvents печатает события по мере поступления
func tailEvents(ctx context.Context, bus eventbus.EventBus, filter eventbus.Filter, limit int, follow bool) error {
	fmt.Printf("🎬 Tailing river events (limit: %d, follow: %v)\n", limit, follow)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu    sync.Mutex
		count int
	)
	sub, err := bus.Subscribe(ctx, filter, func(_ context.Context, ev *eventbus.Envelope) {
		mu.Lock()
		defer mu.Unlock()
		if !follow && count >= limit {
			return
		}
		printEvent(ev)
		count++
		if !follow && count >= limit {
			cancel()
		}
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	<-ctx.Done()

	mu.Lock()
	fmt.Printf("\n📊 Total events: %d\n", count)
	mu.Unlock()
	return nil
}

// showStats считает события по типам в течение окна
func showStats(ctx context.Context, bus eventbus.EventBus, filter eventbus.Filter, window time.Duration) error {
	fmt.Printf("📊 Collecting river event statistics for %v\n", window)

	var (
		mu     sync.Mutex
		counts = make(map[string]int)
		bytes  int
	)
	sub, err := bus.Subscribe(ctx, filter, func(_ context.Context, ev *eventbus.Envelope) {
		mu.Lock()
		counts[ev.EventType]++
		if ev.EventType == eventbus.TypeChunkPersisted {
			if p, err := eventbus.Decode[eventbus.ChunkPersisted](ev); err == nil {
				bytes += p.Bytes
			}
		}
		mu.Unlock()
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	select {
	case <-ctx.Done():
	case <-time.After(window):
	}

	mu.Lock()
	defer mu.Unlock()

	types := make([]string, 0, len(counts))
	total := 0
	for t, n := range counts {
		types = append(types, t)
		total += n
	}
	sort.Strings(types)

	fmt.Printf("\n%-20s %10s\n", "Event type", "Count")
	fmt.Println(strings.Repeat("-", 31))
	for _, t := range types {
		fmt.Printf("%-20s %10d\n", t, counts[t])
	}
	fmt.Println(strings.Repeat("-", 31))
	fmt.Printf("%-20s %10d\n", "Total", total)
	if bytes > 0 {
		fmt.Printf("💾 Persisted: %.1f KB\n", float64(bytes)/1024)
	}
	return nil
}

func printEvent(ev *eventbus.Envelope) {
	ts := ev.Timestamp.Local().Format(timeFormat)

	switch ev.EventType {
	case eventbus.TypeRegionBuilt:
		if p, err := eventbus.Decode[eventbus.RegionBuilt](ev); err == nil {
			fmt.Printf("[%s] 🌊 %s plate=(%d,%d) rivers=%d nodes=%d lakes=%d segments=%d %dms\n",
				ts, ev.EventType, p.PlateX, p.PlateZ, p.Rivers, p.Nodes, p.Lakes, p.Segments, p.DurationMs)
			return
		}
	case eventbus.TypeChunkSampled:
		if p, err := eventbus.Decode[eventbus.ChunkSampled](ev); err == nil {
			fmt.Printf("[%s] 🧭 %s chunk=(%d,%d) flow=%v valley=%v\n",
				ts, ev.EventType, p.ChunkX, p.ChunkZ, p.HasFlow, p.InValleyRange)
			return
		}
	case eventbus.TypeChunkPersisted:
		if p, err := eventbus.Decode[eventbus.ChunkPersisted](ev); err == nil {
			fmt.Printf("[%s] 💾 %s chunk=(%d,%d) backend=%s bytes=%d\n",
				ts, ev.EventType, p.ChunkX, p.ChunkZ, p.Backend, p.Bytes)
			return
		}
	}

	fmt.Printf("[%s] %s src=%s prio=%d %s\n", ts, ev.EventType, ev.Source, ev.Priority, ev.Payload)
}

func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
