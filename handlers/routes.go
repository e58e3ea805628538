package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// RouterDeps bundles everything the HTTP surface needs.
type RouterDeps struct {
	Sessions       SessionChecker
	Folders        *FolderHandler
	Photos         *PhotoHandler
	PhotoProxy     *PhotoProxyHandler
	Sections       *SectionHandler
	Admin          *AdminHandler
	Events         http.HandlerFunc // websocket feed of sync progress; nil disables it
	AllowedOrigins []string
	RequestTimeout time.Duration
	SyncTimeout    time.Duration
	MaxBodyBytes   int64 // request body limit; zero uses DefaultMaxBodyBytes
}

const DefaultMaxBodyBytes = 32 << 20

func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}
	corsHandler := cors.New(corsOptions)

	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	syncTimeout := deps.SyncTimeout
	if syncTimeout <= 0 {
		syncTimeout = 10 * time.Minute
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(maxBody))
	r.Use(corsHandler.Handler)
	r.Use(AdminSession(deps.Sessions))

	// a full sync walks every Drive folder and outlives the regular request timeout
	r.With(RequireAdmin, middleware.Timeout(syncTimeout)).Post("/sync", deps.Admin.RunSync)

	if deps.Events != nil {
		r.With(RequireAdmin).Get("/admin/events", deps.Events)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))

		// public
		r.Get("/photo", deps.PhotoProxy.ServePhoto)
		r.Get("/folders", deps.Folders.ListFolders)
		r.Get("/photos/list", deps.Photos.ListPhotos)
		r.Post("/photos/thumbnails", deps.Photos.ThumbnailURLs())
		r.Post("/photos/urls", deps.Photos.OriginalURLs())
		r.Get("/sections", deps.Sections.ListSections)
		r.Post("/admin/login", deps.Admin.Login)

		// admin
		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)

			r.Patch("/folders", deps.Folders.UpdateFolder)
			r.Post("/folders/reorder", deps.Folders.ReorderFolders)

			r.Patch("/photos", deps.Photos.UpdatePhoto)
			r.Delete("/photos", deps.Photos.DeletePhoto)
			r.Post("/photos/reorder", deps.Photos.ReorderPhotos)
			r.Patch("/photos/section", deps.Photos.AssignSection)

			r.Post("/sections", deps.Sections.CreateSection)
			r.Patch("/sections", deps.Sections.RenameSection)
			r.Delete("/sections", deps.Sections.DeleteSection)
			r.Post("/sections/reorder", deps.Sections.ReorderSections)

			r.Post("/admin/logout", deps.Admin.Logout)
			r.Post("/admin/backup", deps.Admin.Backup)
			r.Post("/admin/restore", deps.Admin.Restore)
			r.Get("/admin/storage-info", deps.Admin.StorageInfo)
			r.Post("/admin/clear-storage", deps.Admin.ClearStorage)
		})
	})

	return r
}
