package models

import "encoding/json"

// BackupItem is one key/value pair of a backup document. Value is kept raw so
// legacy documents can be decoded field by field.
type BackupItem struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Backup is the document produced by /admin/backup and accepted by /admin/restore.
// Photos is only populated by legacy (schema 1) documents.
type Backup struct {
	Folders  []BackupItem `json:"folders"`
	Sections []BackupItem `json:"sections"`
	Photos   []BackupItem `json:"photos,omitempty"`
	Created  string       `json:"created"`
	Schema   int          `json:"schema"`
}

// IsLegacy reports whether the document uses the flat per-photo key layout.
func (b *Backup) IsLegacy() bool {
	return b.Schema != SchemaEmbedded
}
