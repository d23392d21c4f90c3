package main

import (
	"board-lab/internal"
	"board-lab/repositories"
	"board-lab/runtime"
	"board-lab/runtime/workers"
	"board-lab/services"
	"board-lab/storage"
	"board-lab/transport/ws"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer (database close, owner
// shutdown) executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB) for the file metadata index
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Storage layers
	snapshots, err := repositories.NewSnapshotRepository(config.WhiteboardSaveDir, log)
	if err != nil {
		return err
	}
	blobs, err := storage.NewBlobStore(config.FileStorageDir)
	if err != nil {
		return err
	}
	accumulator, err := services.NewFileAccumulator(config.FileTempDir)
	if err != nil {
		return err
	}

	// 4. The three state owners, each with an independent registry
	boardRegistry := runtime.NewRegistry(log, "whiteboard", config.DeliveryQueueSize, config.DeliveryTimeout)
	chatRegistry := runtime.NewRegistry(log, "chat", config.DeliveryQueueSize, config.DeliveryTimeout)
	fileRegistry := runtime.NewRegistry(log, "files", config.DeliveryQueueSize, config.DeliveryTimeout)

	board := services.NewWhiteboardService(log, boardRegistry, snapshots, config.WhiteboardMaxActions)
	chat := services.NewChatService(log, chatRegistry)
	files, err := services.NewFileService(log, fileRegistry, repositories.NewFileRepository(db, log),
		blobs, accumulator, config.MaxFileSize)
	if err != nil {
		return fmt.Errorf("file owner failed to start: %w", err)
	}

	// 5. Supervision: health monitoring over the owners' counters
	stats := func() map[string]any {
		merged := map[string]any{}
		for _, m := range []map[string]any{board.Stats(), chat.Stats(), files.Stats()} {
			for k, v := range m {
				merged[k] = v
			}
		}
		return merged
	}
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(workers.NewHealthMonitoringWorker(log, config.MetricInterval, stats))

	if config.DebugPort > 0 {
		internal.StartDebugServer(log, db, config.DebugPort, internal.FileRecordMapper, stats)
	}

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sup.Run(ctx)

	// 7. HTTP server with the websocket surfaces
	mux := http.NewServeMux()
	handler := ws.NewHandler(log, board, chat, files, config.HistoryLimit)
	handler.Routes(mux)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting collaboration server", "address", address,
			"storage", filepath.Clean(config.FileStorageDir), "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 9. Final Cleanup: each owner announces the stop to its participants
	board.Shutdown()
	chat.Shutdown()
	files.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()

	log.Info("Program stopped cleanly")
	return nil
}
