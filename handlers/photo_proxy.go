package handlers

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tombaby2015-max/family-photo-album-google/media"
)

const photoCacheControl = "public, max-age=604800"

// ImageSource opens a thumbnail or an original for streaming.
type ImageSource interface {
	Fetch(ctx context.Context, fileID string, assetType media.AssetType) (*media.Asset, error)
}

type PhotoProxyHandler struct {
	Images ImageSource
}

// contentDisposition builds the attachment header of a downloaded original.
// The file name is prefixed with the folder title and RFC 5987 encoded.
func contentDisposition(folderName, photoName string) string {
	if photoName == "" {
		photoName = "photo.jpg"
	}
	downloadName := photoName
	if folderName != "" {
		downloadName = folderName + " \u2014 " + photoName
	}
	// PathEscape keeps a few characters that attr-char does not allow
	escaped := strings.NewReplacer("=", "%3D", ":", "%3A", "@", "%40").Replace(url.PathEscape(downloadName))
	return "attachment; filename*=UTF-8''" + escaped
}

// ServePhoto handles GET /photo?id=&size=thumb|original&name=&folder=.
// Any upstream failure is reported as 404.
func (ph *PhotoProxyHandler) ServePhoto(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fileID := q.Get("id")
	if fileID == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}
	assetType := media.ParseAssetType(q.Get("size"))

	asset, err := ph.Images.Fetch(r.Context(), fileID, assetType)
	if err != nil {
		log.Printf("photo: failed to fetch %s (%s): %v", fileID, assetType, err)
		http.Error(w, "photo not found", http.StatusNotFound)
		return
	}
	defer asset.Body.Close()

	w.Header().Set("Content-Type", asset.ContentType)
	w.Header().Set("Cache-Control", photoCacheControl)
	if asset.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(asset.Size, 10))
	}
	if assetType == media.AssetTypeOriginal {
		w.Header().Set("Content-Disposition", contentDisposition(q.Get("folder"), q.Get("name")))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, asset.Body); err != nil {
		log.Printf("photo: streaming %s interrupted: %v", fileID, err)
	}
}
