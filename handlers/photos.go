package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/tombaby2015-max/family-photo-album-google/media"
	"github.com/tombaby2015-max/family-photo-album-google/models"
	"github.com/tombaby2015-max/family-photo-album-google/services"
)

type PhotoHandler struct {
	Gallery       *services.GalleryService
	PublicBaseURL string // empty derives the base from the request
}

func (ph *PhotoHandler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	folderID := r.URL.Query().Get("folder_id")
	if folderID == "" {
		writeError(w, http.StatusBadRequest, "folder_id required")
		return
	}

	photos, err := ph.Gallery.ListPhotos(r.Context(), folderID, IsAdmin(r.Context()))
	if errors.Is(err, services.ErrNotFound) {
		photos = []models.Photo{}
	} else if err != nil {
		writeServiceError(w, "list photos", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"photos": photos})
}

func (ph *PhotoHandler) baseURL(r *http.Request) string {
	if ph.PublicBaseURL != "" {
		return ph.PublicBaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

// photoURLs answers POST /photos/thumbnails and /photos/urls with a map of
// photo ID to /photo URL. Nothing is read from the store.
func (ph *PhotoHandler) photoURLs(assetType media.AssetType) http.HandlerFunc {
	size := "thumb"
	if assetType == media.AssetTypeOriginal {
		size = "original"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Photos []struct {
				ID     string `json:"id"`
				FileID string `json:"file_id"`
			} `json:"photos"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}

		base := ph.baseURL(r)
		urls := make(map[string]string, len(req.Photos))
		for _, p := range req.Photos {
			fileID := p.FileID
			if fileID == "" {
				fileID = p.ID
			}
			q := url.Values{"id": {fileID}, "size": {size}}
			urls[p.ID] = base + "/photo?" + q.Encode()
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"urls": urls})
	}
}

func (ph *PhotoHandler) ThumbnailURLs() http.HandlerFunc {
	return ph.photoURLs(media.AssetTypeThumbnail)
}

func (ph *PhotoHandler) OriginalURLs() http.HandlerFunc {
	return ph.photoURLs(media.AssetTypeOriginal)
}

func (ph *PhotoHandler) UpdatePhoto(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       string `json:"id"`
		FolderID string `json:"folder_id"`
		services.PhotoPatch
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ID == "" || req.FolderID == "" {
		writeError(w, http.StatusBadRequest, "id and folder_id required")
		return
	}

	photo, err := ph.Gallery.UpdatePhoto(r.Context(), req.FolderID, req.ID, req.PhotoPatch)
	if err != nil {
		writeServiceError(w, "update photo", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "id": photo.ID, "hidden": photo.Hidden})
}

func (ph *PhotoHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	photoID := r.URL.Query().Get("id")
	folderID := r.URL.Query().Get("folder_id")
	if photoID == "" || folderID == "" {
		writeError(w, http.StatusBadRequest, "id and folder_id required")
		return
	}
	if err := ph.Gallery.DeletePhoto(r.Context(), folderID, photoID); err != nil {
		writeServiceError(w, "delete photo", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// optionalSectionID distinguishes an absent section_id (nil) from null or ""
// (clear) and a value (assign).
func optionalSectionID(raw json.RawMessage) (*string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var id *string
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, err
	}
	if id == nil {
		empty := ""
		return &empty, nil
	}
	return id, nil
}

func (ph *PhotoHandler) ReorderPhotos(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FolderID string `json:"folder_id"`
		Orders   []struct {
			ID        string          `json:"id"`
			Order     int             `json:"order"`
			SectionID json.RawMessage `json:"section_id"`
		} `json:"orders"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FolderID == "" || req.Orders == nil {
		writeError(w, http.StatusBadRequest, "folder_id and orders required")
		return
	}

	orders := make([]services.PhotoOrderItem, 0, len(req.Orders))
	for _, o := range req.Orders {
		sectionID, err := optionalSectionID(o.SectionID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "section_id must be a string or null")
			return
		}
		orders = append(orders, services.PhotoOrderItem{ID: o.ID, Order: o.Order, SectionID: sectionID})
	}

	if err := ph.Gallery.ReorderPhotos(r.Context(), req.FolderID, orders); err != nil {
		writeServiceError(w, "reorder photos", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (ph *PhotoHandler) AssignSection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FolderID  string  `json:"folder_id"`
		PhotoID   string  `json:"photo_id"`
		SectionID *string `json:"section_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FolderID == "" || req.PhotoID == "" {
		writeError(w, http.StatusBadRequest, "folder_id and photo_id required")
		return
	}
	sectionID := ""
	if req.SectionID != nil {
		sectionID = *req.SectionID
	}

	if err := ph.Gallery.AssignSection(r.Context(), req.FolderID, req.PhotoID, sectionID); err != nil {
		writeServiceError(w, "assign section", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
