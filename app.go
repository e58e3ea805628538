package main

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tombaby2015-max/family-photo-album-google/config"
	"github.com/tombaby2015-max/family-photo-album-google/database"
	"github.com/tombaby2015-max/family-photo-album-google/drive"
	"github.com/tombaby2015-max/family-photo-album-google/repository"
	"github.com/tombaby2015-max/family-photo-album-google/services"
)

// app holds the store and the services built on it. Every command shares it.
type app struct {
	cfg      config.Config
	store    database.Store
	provider drive.Provider

	folders  *repository.FolderRepository
	sections *repository.SectionRepository

	index      *services.IndexService
	sync       *services.SyncService
	gallery    *services.GalleryService
	sectionSvc *services.SectionService
	backups    *services.BackupService
	auth       *services.AuthService
}

// setupLogging tees the standard logger into a rotated file when LOG_FILE is set.
func setupLogging(cfg config.Config) io.Closer {
	if cfg.LogFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
		log.Printf("Warning: cannot create log directory for %s: %v", cfg.LogFile, err)
		return nil
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	log.Printf("Logging to %s", cfg.LogFile)
	return rotator
}

func newProvider(cfg config.Config, store database.Store) drive.Provider {
	if !cfg.DriveConfigured() {
		log.Printf("Warning: DRIVE_FOLDER_ID, GOOGLE_CLIENT_EMAIL or GOOGLE_PRIVATE_KEY missing, sync and photo proxy are disabled")
		return drive.Disabled{}
	}
	exchanger, err := drive.NewServiceAccountExchanger(cfg.GoogleClientEmail, cfg.GooglePrivateKey, cfg.GoogleTokenURL)
	if err != nil {
		log.Printf("Warning: %v; sync and photo proxy are disabled", err)
		return drive.Disabled{}
	}
	tokens := drive.NewTokenCache(store, exchanger, cfg.TokenSafetyMargin)
	provider, err := drive.NewGoogleDrive(tokens, cfg.DriveAPIEndpoint)
	if err != nil {
		log.Printf("Warning: %v; sync and photo proxy are disabled", err)
		return drive.Disabled{}
	}
	return provider
}

func newApp(cfg config.Config) (*app, error) {
	if cfg.StoreDriver == config.StoreDriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
			return nil, err
		}
	}
	store, err := database.OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("Using %s record store", cfg.StoreDriver)

	a := &app{
		cfg:      cfg,
		store:    store,
		provider: newProvider(cfg, store),
		folders:  repository.NewFolderRepository(store),
		sections: repository.NewSectionRepository(store),
	}
	a.index = services.NewIndexService(a.folders, repository.NewIndexRepository(store))
	a.sync = services.NewSyncService(a.provider, a.folders, a.sections, a.index, cfg.DriveFolderID, cfg.SyncConcurrency)
	a.gallery = services.NewGalleryService(a.folders, a.sections, a.index)
	a.sectionSvc = services.NewSectionService(a.sections, a.folders, a.index)
	a.backups = services.NewBackupService(store, a.index)
	a.auth = services.NewAuthService(repository.NewSessionRepository(store), cfg.AdminPassword, cfg.AdminPasswordHash, cfg.AdminSessionTTL)
	return a, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Printf("Error closing record store: %v", err)
	}
}
