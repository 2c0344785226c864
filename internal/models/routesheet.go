package models

import "time"

// RouteSheet is one document of the categorized catalog. Category and
// subcategory are not columns: they are derived from the leading segments
// of FilePath at load time, keeping the path the single source of truth.
type RouteSheet struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	FilePath   string    `db:"file_path" json:"file_path"`
	FileType   string    `db:"file_type" json:"file_type"`
	UploadedBy string    `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`

	// Derived views of FilePath, populated by the service on load.
	Category    string `db:"-" json:"category,omitempty"`
	Subcategory string `db:"-" json:"subcategory,omitempty"`
}
