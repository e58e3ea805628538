package models

// KVEntry is one row of the sqlite-backed record store.
// It corresponds to the 'kv_entries' table.
type KVEntry struct {
	Key       string `gorm:"column:entry_key;primaryKey" json:"key"`
	Value     []byte `gorm:"column:entry_value;not null" json:"value"`
	ExpiresAt *int64 `gorm:"index" json:"expires_at,omitempty"` // Nullable, Unix millis; nil never expires
	UpdatedAt int64  `gorm:"not null" json:"updated_at"`         // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (KVEntry) TableName() string {
	return "kv_entries"
}
