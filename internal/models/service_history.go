package models

import (
	"time"
)

// ServiceStatus represents the lifecycle status of one service episode
type ServiceStatus string

const (
	ServicePending    ServiceStatus = "PENDING"
	ServiceInProgress ServiceStatus = "IN_PROGRESS"
	ServiceArrived    ServiceStatus = "ARRIVED"
	ServiceCompleted  ServiceStatus = "COMPLETED"
	ServiceCancelled  ServiceStatus = "CANCELLED"
)

// ValidServiceStatus reports whether s is one of the known statuses.
func ValidServiceStatus(s ServiceStatus) bool {
	switch s {
	case ServicePending, ServiceInProgress, ServiceArrived,
		ServiceCompleted, ServiceCancelled:
		return true
	}
	return false
}

// ServiceHistory is the closed record of one dispatch-to-completion episode.
// It is a coarser journal than a request's status history: one row per
// episode, opened by dispatch and closed when the service completes or is
// cancelled.
type ServiceHistory struct {
	BaseModel
	RequestID      string        `gorm:"size:36;index;not null" json:"requestId"`
	AmbulanceID    string        `gorm:"size:36;index" json:"ambulanceId"`
	PatientID      *string       `gorm:"size:36;index" json:"patientId,omitempty"`
	Status         ServiceStatus `gorm:"size:20;default:'PENDING'" json:"status"`
	Notes          string        `gorm:"type:text" json:"notes,omitempty"`
	ArrivalTime    *time.Time    `json:"arrivalTime,omitempty"`
	CompletionTime *time.Time    `json:"completionTime,omitempty"`

	// Relations
	Request   EmergencyRequest `gorm:"foreignKey:RequestID" json:"-"`
	Ambulance Ambulance        `gorm:"foreignKey:AmbulanceID" json:"-"`
}
