package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/tombaby2015-max/family-photo-album-google/models"
	"github.com/tombaby2015-max/family-photo-album-google/services"
)

type AdminHandler struct {
	Auth    *services.AuthService
	Backups *services.BackupService
	Gallery *services.GalleryService
	Sync    *services.SyncService
}

func (ah *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	token, err := ah.Auth.Login(r.Context(), req.Password)
	if errors.Is(err, services.ErrUnauthorized) {
		WriteAPIError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid password")
		return
	}
	if err != nil {
		writeServiceError(w, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (ah *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := ah.Auth.Logout(r.Context(), tokenFromContext(r.Context())); err != nil {
		writeServiceError(w, "logout", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// RunSync handles POST /sync. A failed run still reports the counters of the
// folders that completed.
func (ah *AdminHandler) RunSync(w http.ResponseWriter, r *http.Request) {
	result, err := ah.Sync.Sync(r.Context())
	if err != nil {
		log.Printf("Error in sync: %v", err)
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrUpstream) {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, struct {
			Error string `json:"error"`
			services.SyncResult
		}{Error: err.Error(), SyncResult: result})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		services.SyncResult
	}{Success: true, SyncResult: result})
}

func (ah *AdminHandler) Backup(w http.ResponseWriter, r *http.Request) {
	doc, err := ah.Backups.Backup(r.Context())
	if err != nil {
		writeServiceError(w, "backup", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "backup": doc})
}

func (ah *AdminHandler) Restore(w http.ResponseWriter, r *http.Request) {
	var doc models.Backup
	if !decodeJSON(w, r, &doc) {
		return
	}
	result, err := ah.Backups.Restore(r.Context(), &doc)
	if err != nil {
		writeServiceError(w, "restore", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		services.RestoreResult
	}{Success: true, RestoreResult: result})
}

func (ah *AdminHandler) StorageInfo(w http.ResponseWriter, r *http.Request) {
	info, err := ah.Gallery.StorageInfo(r.Context())
	if err != nil {
		writeServiceError(w, "storage info", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		services.StorageInfo
	}{Success: true, StorageInfo: info})
}

func (ah *AdminHandler) ClearStorage(w http.ResponseWriter, r *http.Request) {
	result, err := ah.Gallery.ClearStorage(r.Context())
	if err != nil {
		writeServiceError(w, "clear storage", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		services.ClearResult
	}{Success: true, ClearResult: result})
}
