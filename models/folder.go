package models

// Schema versions for stored folder records and backup documents.
const (
	SchemaLegacy   = 1 // folder:<id> plus one photo:<folder>:<photo> key per photo
	SchemaEmbedded = 2 // photos embedded in the folder record
)

const (
	DefaultCoverX     = 50
	DefaultCoverY     = 50
	DefaultCoverScale = 100
)

// Cover points at one photo of the folder plus its crop position (percent) and zoom (percent).
type Cover struct {
	PhotoID string `json:"photo_id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Scale   int    `json:"scale"`
}

// NewCover returns a cover for photoID with the default centered position.
func NewCover(photoID string) *Cover {
	return &Cover{PhotoID: photoID, X: DefaultCoverX, Y: DefaultCoverY, Scale: DefaultCoverScale}
}

// Photo is one element of a folder's embedded photo list. ID always equals the
// Drive file ID.
type Photo struct {
	ID        string  `json:"id"`
	FileID    string  `json:"file_id"`
	Name      string  `json:"name"`
	CreatedAt string  `json:"date,omitempty"` // RFC 3339, as reported by Drive
	Deleted   bool    `json:"deleted"`
	Hidden    bool    `json:"hidden"`
	Order     *int    `json:"order,omitempty"`
	SectionID *string `json:"section_id,omitempty"`
}

// Visible reports whether the photo is shown to non-admin viewers.
func (p Photo) Visible() bool {
	return !p.Deleted && !p.Hidden
}

// Folder is the stored mirror of one Drive folder (key folder:<id>).
type Folder struct {
	Title  string  `json:"title"`
	Hidden bool    `json:"hidden"`
	Order  int     `json:"order"`
	Cover  *Cover  `json:"cover"`
	Photos []Photo `json:"photos"`
	Schema int     `json:"schema"`
}

// NewFolder builds the record created on first sight of a Drive folder.
// Admin-owned fields start at their defaults.
func NewFolder(title string) *Folder {
	return &Folder{
		Title:  title,
		Photos: []Photo{},
		Schema: SchemaEmbedded,
	}
}

// FindPhoto returns a pointer into the embedded list, or nil.
func (f *Folder) FindPhoto(photoID string) *Photo {
	for i := range f.Photos {
		if f.Photos[i].ID == photoID {
			return &f.Photos[i]
		}
	}
	return nil
}

// VisiblePhotoCount counts photos that are neither deleted nor hidden.
func (f *Folder) VisiblePhotoCount() int {
	n := 0
	for _, p := range f.Photos {
		if p.Visible() {
			n++
		}
	}
	return n
}

// ActivePhotoCount counts photos that are not deleted.
func (f *Folder) ActivePhotoCount() int {
	n := 0
	for _, p := range f.Photos {
		if !p.Deleted {
			n++
		}
	}
	return n
}

// IndexEntry projects the folder into its folders_index summary.
func (f *Folder) IndexEntry(id string) FolderIndexEntry {
	return FolderIndexEntry{
		ID:              id,
		Title:           f.Title,
		Hidden:          f.Hidden,
		Order:           f.Order,
		Cover:           f.Cover,
		PhotoCount:      f.VisiblePhotoCount(),
		PhotoCountAdmin: f.ActivePhotoCount(),
	}
}

// FolderIndexEntry is one element of the folders_index document.
type FolderIndexEntry struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Hidden          bool   `json:"hidden"`
	Order           int    `json:"order"`
	Cover           *Cover `json:"cover"`
	PhotoCount      int    `json:"photo_count"`       // not deleted, not hidden
	PhotoCountAdmin int    `json:"photo_count_admin"` // not deleted
}

// Section is a user-defined grouping of photos inside one folder.
type Section struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Order int    `json:"order"`
}
