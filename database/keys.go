package database

import "strings"

// Key layout of the record store.
const (
	FolderPrefix         = "folder:"
	SectionsPrefix       = "sections:"
	AdminTokenPrefix     = "admin_token:"
	LegacyPhotoPrefix    = "photo:"
	FoldersIndexKey      = "folders_index"
	GoogleAccessTokenKey = "google_access_token"
)

func FolderKey(folderID string) string {
	return FolderPrefix + folderID
}

func SectionsKey(folderID string) string {
	return SectionsPrefix + folderID
}

func AdminTokenKey(token string) string {
	return AdminTokenPrefix + token
}

// FolderIDFromKey strips the folder: prefix.
func FolderIDFromKey(key string) string {
	return strings.TrimPrefix(key, FolderPrefix)
}

// SplitLegacyPhotoKey parses photo:<folder>:<photo>. Drive IDs never contain ':'.
func SplitLegacyPhotoKey(key string) (folderID, photoID string, ok bool) {
	rest, found := strings.CutPrefix(key, LegacyPhotoPrefix)
	if !found {
		return "", "", false
	}
	folderID, photoID, ok = strings.Cut(rest, ":")
	if !ok || folderID == "" || photoID == "" {
		return "", "", false
	}
	return folderID, photoID, true
}
