package model

import "time"

// Exception represents a failure that must be persisted
// for auditing, debugging, and monitoring purposes.
type Exception struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Where the error happened
	Service string `gorm:"size:100;index" json:"service"` // e.g. "neotrade"
	Module  string `gorm:"size:100;index" json:"module"`  // e.g. "insight"
	Method  string `gorm:"size:100" json:"method"`        // e.g. "Analyze"

	Message string `gorm:"type:text" json:"message"`

	// debug | info | warn | error
	Level string `gorm:"size:20;index" json:"level"`

	UserID string `gorm:"size:36;index" json:"user_id,omitempty"`

	// Extra context serialized as JSON (optional)
	Context string `gorm:"type:text" json:"context,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
