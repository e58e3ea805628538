package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tombaby2015-max/family-photo-album-google/config"
	"github.com/tombaby2015-max/family-photo-album-google/handlers"
	"github.com/tombaby2015-max/family-photo-album-google/media"
	"github.com/tombaby2015-max/family-photo-album-google/models"
	"github.com/tombaby2015-max/family-photo-album-google/realtime"
	"github.com/tombaby2015-max/family-photo-album-google/workers"
)

const (
	syncTimeout    = 10 * time.Minute
	requestTimeout = 60 * time.Second
	purgeInterval  = time.Hour
)

// expirer is implemented by stores that keep expired rows until swept.
type expirer interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (default)",
	Run:   runServe,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one Drive reconciliation and exit",
	Run: func(cmd *cobra.Command, args []string) {
		a, closeLog := mustApp()
		defer closeLog()
		defer a.Close()

		ctx, cancel := signalContext(syncTimeout)
		defer cancel()
		result, err := a.sync.Sync(ctx)
		printJSON(result)
		if err != nil {
			log.Fatalf("FATAL: sync failed: %v", err)
		}
	},
}

var rebuildIndexCmd = &cobra.Command{
	Use:   "rebuild-index",
	Short: "Regenerate folders_index from the folder records",
	Run: func(cmd *cobra.Command, args []string) {
		a, closeLog := mustApp()
		defer closeLog()
		defer a.Close()

		ctx, cancel := signalContext(requestTimeout)
		defer cancel()
		entries, err := a.index.Rebuild(ctx)
		if err != nil {
			log.Fatalf("FATAL: rebuild failed: %v", err)
		}
		fmt.Printf("Indexed %d folders\n", len(entries))
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup [file]",
	Short: "Write a backup document to file, or stdout when omitted",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, closeLog := mustApp()
		defer closeLog()
		defer a.Close()

		ctx, cancel := signalContext(requestTimeout)
		defer cancel()
		doc, err := a.backups.Backup(ctx)
		if err != nil {
			log.Fatalf("FATAL: backup failed: %v", err)
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			log.Fatalf("FATAL: encoding backup: %v", err)
		}
		if len(args) == 0 {
			os.Stdout.Write(append(data, '\n'))
			return
		}
		if err := os.WriteFile(args[0], data, 0644); err != nil {
			log.Fatalf("FATAL: writing %s: %v", args[0], err)
		}
		log.Printf("Backup of %d folders written to %s (%s)", len(doc.Folders), args[0], humanize.Bytes(uint64(len(data))))
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Load a backup document into the record store",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatalf("FATAL: reading %s: %v", args[0], err)
		}
		var doc models.Backup
		if err := json.Unmarshal(data, &doc); err != nil {
			log.Fatalf("FATAL: %s is not a backup document: %v", args[0], err)
		}

		a, closeLog := mustApp()
		defer closeLog()
		defer a.Close()

		ctx, cancel := signalContext(requestTimeout)
		defer cancel()
		result, err := a.backups.Restore(ctx, &doc)
		if err != nil {
			log.Fatalf("FATAL: restore failed: %v", err)
		}
		printJSON(result)
	},
}

var purgeExpiredCmd = &cobra.Command{
	Use:   "purge-expired",
	Short: "Delete expired session and token rows",
	Run: func(cmd *cobra.Command, args []string) {
		a, closeLog := mustApp()
		defer closeLog()
		defer a.Close()

		ex, ok := a.store.(expirer)
		if !ok {
			fmt.Printf("The %s store expires keys by itself\n", a.cfg.StoreDriver)
			return
		}
		n, err := ex.PurgeExpired(context.Background())
		if err != nil {
			log.Fatalf("FATAL: purge failed: %v", err)
		}
		fmt.Printf("Purged %d expired rows\n", n)
	},
}

func mustApp() (*app, func()) {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	closer := setupLogging(cfg)
	a, err := newApp(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to open record store: %v", err)
	}
	return a, func() {
		if closer != nil {
			closer.Close()
		}
	}
}

func signalContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Printf("Error encoding output: %v", err)
	}
}

func runServe(cmd *cobra.Command, args []string) {
	a, closeLog := mustApp()
	defer closeLog()
	defer a.Close()
	cfg := a.cfg

	log.Printf("Ensuring storage directory exists: %s", cfg.ThumbnailsPath)
	mediaSubDirs := map[media.AssetType]string{
		media.AssetTypeThumbnail: filepath.Base(cfg.ThumbnailsPath),
	}
	mediaStore, err := media.NewLocalStorage(cfg.MediaStoragePath, mediaSubDirs)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize media store: %v", err)
	}
	mediaProcessor := media.NewProcessor(mediaStore, cfg.ThumbnailMaxSize)
	fetcher := media.NewImageFetcher(a.provider, mediaProcessor, mediaStore)

	log.Printf("Initializing thumbnail warmer pool (Workers: %d, Queue Size: %d)...", cfg.NumThumbnailWorkers, cfg.ThumbnailQueueSize)
	warmer := workers.NewThumbnailWarmer(fetcher, cfg.ThumbnailQueueSize, cfg.NumThumbnailWorkers)
	defer warmer.Stop()
	a.sync.SetWarmer(warmer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub()
	go hub.Run(ctx)
	a.sync.SetObserver(hub.SyncObserver())

	log.Printf("Storing thumbnails in: %s", cfg.ThumbnailsPath)
	log.Printf("Thumbnail max size (longest side): %dpx", cfg.ThumbnailMaxSize)

	router := handlers.NewRouter(handlers.RouterDeps{
		Sessions:   a.auth,
		Folders:    &handlers.FolderHandler{Gallery: a.gallery},
		Photos:     &handlers.PhotoHandler{Gallery: a.gallery, PublicBaseURL: cfg.PublicBaseURL},
		PhotoProxy: &handlers.PhotoProxyHandler{Images: fetcher},
		Sections:   &handlers.SectionHandler{Sections: a.sectionSvc},
		Admin: &handlers.AdminHandler{
			Auth:    a.auth,
			Backups: a.backups,
			Gallery: a.gallery,
			Sync:    a.sync,
		},
		Events:         hub.ServeWS,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout: requestTimeout,
		SyncTimeout:    syncTimeout,
		MaxBodyBytes:   cfg.MaxRequestBodyBytes,
	})

	serverAddr := ":" + cfg.Port
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: syncTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if ex, ok := a.store.(expirer); ok {
		go purgeLoop(ctx, ex)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: server error: %v", err)
		}
	case <-ctx.Done():
		log.Printf("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error during server shutdown: %v", err)
		}
	}
}

func purgeLoop(ctx context.Context, ex expirer) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := ex.PurgeExpired(ctx)
			if err != nil {
				log.Printf("Error purging expired rows: %v", err)
			} else if n > 0 {
				log.Printf("Purged %d expired rows", n)
			}
		}
	}
}
