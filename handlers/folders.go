package handlers

import (
	"net/http"

	"github.com/tombaby2015-max/family-photo-album-google/models"
	"github.com/tombaby2015-max/family-photo-album-google/services"
)

type FolderHandler struct {
	Gallery *services.GalleryService
}

func (fh *FolderHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := fh.Gallery.ListFolders(r.Context(), IsAdmin(r.Context()))
	if err != nil {
		writeServiceError(w, "list folders", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"folders": folders})
}

// UpdateFolder handles PATCH /folders. cover_url is the older way of naming
// the cover photo and is accepted alongside cover_photo_id.
func (fh *FolderHandler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
		services.FolderPatch
		CoverURL *string `json:"cover_url"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id required")
		return
	}
	if req.CoverPhotoID == nil && req.CoverURL != nil {
		photoID := services.PhotoIDFromCoverURL(*req.CoverURL)
		req.CoverPhotoID = &photoID
	}

	folder, err := fh.Gallery.UpdateFolder(r.Context(), req.ID, req.FolderPatch)
	if err != nil {
		writeServiceError(w, "update folder", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		ID string `json:"id"`
		*models.Folder
	}{ID: req.ID, Folder: folder})
}

func (fh *FolderHandler) ReorderFolders(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Orders []services.OrderItem `json:"orders"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := fh.Gallery.ReorderFolders(r.Context(), req.Orders)
	if err != nil {
		writeServiceError(w, "reorder folders", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "updated": updated})
}
