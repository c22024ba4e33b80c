package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/rivergen/internal/api"
	"github.com/annel0/rivergen/internal/cache"
	"github.com/annel0/rivergen/internal/config"
	"github.com/annel0/rivergen/internal/eventbus"
	"github.com/annel0/rivergen/internal/logging"
	"github.com/annel0/rivergen/internal/observability"
	"github.com/annel0/rivergen/internal/storage"
	"github.com/annel0/rivergen/internal/world"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	var (
		configPath = flag.String("config", "", "путь к YAML конфигурации")
		seed       = flag.Int64("seed", 0, "seed мира (переопределяет конфигурацию, если != 0)")
		regionX    = flag.Int("region-x", 0, "X плиты региона")
		regionZ    = flag.Int("region-z", 0, "Z плиты региона")
		chunks     = flag.Int("chunks", 2, "радиус выборки чанков вокруг центра региона")
		persist    = flag.Bool("persist", false, "сохранять массивы чанков в хранилище")
		serve      = flag.Bool("serve", false, "запустить отладочный REST API")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	if err := logging.InitDefaultLogger(logging.Options{
		Dir:          cfg.Logging.Dir,
		ConsoleLevel: logging.ParseLevel(cfg.Logging.ConsoleLevel),
		FileLevel:    logging.ParseLevel(cfg.Logging.FileLevel),
	}); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseLogger()
	logging.GetLoggerManager().ApplyLevels(cfg.Logging.Components)

	if err := run(cfg, *regionX, *regionZ, *chunks, *persist, *serve); err != nil {
		logging.Error("❌ %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, regionX, regionZ, radius int, persist, serve bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info("🌍 Запуск генератора рек: seed=%d, регион=(%d,%d)", cfg.Seed, regionX, regionZ)

	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("не удалось инициализировать трассировку: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logging.Warn("Ошибка остановки трассировки: %v", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// === Шина событий ===
	bus, err := openBus(cfg.EventBus)
	if err != nil {
		return err
	}
	defer bus.Close()
	eventbus.Init(bus)

	if _, err := eventbus.StartLoggingListener(bus); err != nil {
		logging.Warn("Не удалось запустить логирование событий: %v", err)
	}
	exporter := eventbus.NewMetricsExporter(bus, registry)
	exporter.Start()
	defer exporter.Stop()

	// === Генерация ===
	regions := world.NewRegionManager(&cfg.Rivers, cfg.Seed,
		world.DefaultOceanProvider(&cfg.Rivers, cfg.Seed), world.NewMetrics(registry), bus)
	sampler := world.NewChunkSampler(regions, cfg.Sampling.Workers)

	region, err := regions.Get(ctx, regionX, regionZ)
	if err != nil {
		return err
	}
	st := region.Stats()
	logging.Info("📊 Регион (%d,%d): рек=%d, отброшено=%d, узлов=%d, озер=%d, сегментов=%d",
		st.PlateX, st.PlateZ, st.Rivers, st.Discarded, st.Nodes, st.Lakes, st.Segments)

	metrics := api.NewServerMetrics()
	if rss, err := metrics.GetMemoryUsage(); err == nil {
		logging.Info("🧠 Память процесса: %.1f MB", rss)
	}

	center := cfg.Rivers.ChunksInRegion() / 2
	coords := world.ChunksAround(regionX*cfg.Rivers.ChunksInRegion()+center,
		regionZ*cfg.Rivers.ChunksInRegion()+center, radius)

	started := time.Now()
	sampled, err := sampler.SampleChunks(ctx, coords)
	if err != nil {
		return err
	}
	withFlow := 0
	for _, data := range sampled {
		if data.HasFlow {
			withFlow++
		}
	}
	logging.Info("✅ Выбрано чанков: %d (с течением: %d) за %v", len(sampled), withFlow, time.Since(started))

	// === Хранилище ===
	var repo storage.RiverDataRepo
	if persist || serve {
		repo, err = storage.Open(cfg)
		if err != nil {
			return err
		}
		defer repo.Close()
	}

	if persist {
		persister := storage.NewPersister(repo, bus)
		if err := persister.PersistAll(ctx, sampled); err != nil {
			return err
		}
	}

	if !serve {
		return nil
	}

	// === REST API ===
	flowCache, err := cache.NewFlowCache(repo, &cfg.Rivers, cfg.Cache.MaxChunks)
	if err != nil {
		return err
	}
	defer flowCache.Close()
	if _, err := flowCache.SubscribeInvalidations(ctx, bus); err != nil {
		logging.Warn("Не удалось подписать кеш на инвалидацию: %v", err)
	}

	restPort := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	server := api.NewRestServer(api.Config{
		Port:     restPort,
		Sampler:  sampler,
		Repo:     repo,
		Flow:     flowCache,
		Registry: registry,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	logging.Info("🌐 REST API: http://localhost%s", restPort)
	logging.Info("   ❤️  Health check: http://localhost%s/health", restPort)
	logging.Info("   📈 Метрики: http://localhost%s/metrics", restPort)

	select {
	case <-ctx.Done():
		logging.Info("📡 Получен сигнал завершения, остановка...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("REST API остановлен с ошибкой: %w", err)
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(sctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}

	logging.Info("👋 Генератор остановлен")
	return nil
}

func openBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if cfg.URL == "" {
		return eventbus.NewMemoryBus(1024), nil
	}
	bus, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, time.Duration(cfg.Retention)*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к NATS %s: %w", cfg.URL, err)
	}
	logging.Info("📨 JetStream: %s, stream=%s", cfg.URL, cfg.Stream)
	return bus, nil
}
