// internal/models/reference.go
package models

// ApplicationType is the seeded catalogue of licensing request kinds and
// their fees. Rows are read-mostly reference data; identifiers match the
// ApplicationType* constants in common.go.
type ApplicationType struct {
	ID    uint    `json:"id" gorm:"primarykey"`
	Title string  `json:"title" gorm:"size:100;not null"`
	Fee   float64 `json:"fee" gorm:"type:decimal(10,2);not null"`
}

// TestType is the fixed catalogue {vision=1, written=2, street=3}.
type TestType struct {
	ID          uint    `json:"id" gorm:"primarykey"`
	Title       string  `json:"title" gorm:"size:100;not null"`
	Description string  `json:"description" gorm:"type:text"`
	Fee         float64 `json:"fee" gorm:"type:decimal(10,2);not null"`
}

type LicenseClass struct {
	ID                   uint    `json:"id" gorm:"primarykey"`
	Name                 string  `json:"name" gorm:"uniqueIndex;size:100;not null"`
	Description          string  `json:"description" gorm:"type:text"`
	MinimumAllowedAge    int     `json:"minimum_allowed_age" gorm:"not null"`
	DefaultValidityYears int     `json:"default_validity_years" gorm:"not null"`
	Fee                  float64 `json:"fee" gorm:"type:decimal(10,2);not null"`
}
