package media

import "errors"

type AssetType string

const (
	AssetTypeThumbnail AssetType = "thumbnail"
	AssetTypeOriginal  AssetType = "original"
)

// ErrAssetNotFound is returned by Store.Get for paths with no file.
var ErrAssetNotFound = errors.New("asset not found")

// ErrUnsupportedImage is returned when an original cannot be decoded, e.g. HEIC.
var ErrUnsupportedImage = errors.New("unsupported image format")

// ParseAssetType maps the size query parameter of /photo onto an asset type.
// Anything other than "original" is a thumbnail.
func ParseAssetType(size string) AssetType {
	if size == string(AssetTypeOriginal) {
		return AssetTypeOriginal
	}
	return AssetTypeThumbnail
}
