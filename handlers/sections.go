package handlers

import (
	"net/http"

	"github.com/tombaby2015-max/family-photo-album-google/services"
)

type SectionHandler struct {
	Sections *services.SectionService
}

func (sh *SectionHandler) ListSections(w http.ResponseWriter, r *http.Request) {
	folderID := r.URL.Query().Get("folder_id")
	if folderID == "" {
		writeError(w, http.StatusBadRequest, "folder_id required")
		return
	}
	sections, err := sh.Sections.List(r.Context(), folderID)
	if err != nil {
		writeServiceError(w, "list sections", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sections": sections})
}

func (sh *SectionHandler) CreateSection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FolderID string `json:"folder_id"`
		Title    string `json:"title"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FolderID == "" {
		writeError(w, http.StatusBadRequest, "folder_id required")
		return
	}
	section, err := sh.Sections.Create(r.Context(), req.FolderID, req.Title)
	if err != nil {
		writeServiceError(w, "create section", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "section": section})
}

func (sh *SectionHandler) RenameSection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FolderID string  `json:"folder_id"`
		ID       string  `json:"id"`
		Title    *string `json:"title"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FolderID == "" || req.ID == "" {
		writeError(w, http.StatusBadRequest, "folder_id and id required")
		return
	}
	if req.Title == nil {
		writeError(w, http.StatusBadRequest, "title required")
		return
	}
	if err := sh.Sections.Rename(r.Context(), req.FolderID, req.ID, *req.Title); err != nil {
		writeServiceError(w, "rename section", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (sh *SectionHandler) DeleteSection(w http.ResponseWriter, r *http.Request) {
	folderID := r.URL.Query().Get("folder_id")
	sectionID := r.URL.Query().Get("id")
	if folderID == "" || sectionID == "" {
		writeError(w, http.StatusBadRequest, "folder_id and id required")
		return
	}
	if err := sh.Sections.Delete(r.Context(), folderID, sectionID); err != nil {
		writeServiceError(w, "delete section", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (sh *SectionHandler) ReorderSections(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FolderID string               `json:"folder_id"`
		Orders   []services.OrderItem `json:"orders"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FolderID == "" || req.Orders == nil {
		writeError(w, http.StatusBadRequest, "folder_id and orders required")
		return
	}
	if err := sh.Sections.Reorder(r.Context(), req.FolderID, req.Orders); err != nil {
		writeServiceError(w, "reorder sections", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
