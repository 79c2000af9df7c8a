package models

// Patient represents a patient record managed by administrators.
// Archive is a soft delete; hard delete removes the row entirely.
type Patient struct {
	BaseModel
	Name         string `gorm:"size:100;not null" json:"name"`
	Contact      string `gorm:"size:30" json:"contact"`
	MedicalNotes string `gorm:"type:text" json:"medicalNotes"`
	Archived     bool   `gorm:"default:false" json:"archived"`
}
