package models

import (
	"sort"
	"time"
)

// RequestStatus represents the lifecycle status of an emergency request
type RequestStatus string

const (
	RequestPending    RequestStatus = "PENDING"
	RequestDispatched RequestStatus = "DISPATCHED"
	RequestInProgress RequestStatus = "IN_PROGRESS"
	RequestArrived    RequestStatus = "ARRIVED"
	RequestCompleted  RequestStatus = "COMPLETED"
	RequestCancelled  RequestStatus = "CANCELLED"
)

// ValidRequestStatus reports whether s is one of the known statuses.
func ValidRequestStatus(s RequestStatus) bool {
	switch s {
	case RequestPending, RequestDispatched, RequestInProgress,
		RequestArrived, RequestCompleted, RequestCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the status ends the request lifecycle.
// Terminal requests are expected to receive no further history entries.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestCompleted || s == RequestCancelled
}

// EmergencyRequest represents an emergency transport request.
// Requests are created by public submission and mutated only through
// administrative status updates or the dispatch action; they are soft-deleted,
// never removed.
type EmergencyRequest struct {
	BaseModel
	UserID               *string       `gorm:"size:36;index" json:"userId,omitempty"`
	UserName             string        `gorm:"size:100" json:"userName"`
	UserContact          string        `gorm:"size:30;not null" json:"userContact"`
	PatientName          string        `gorm:"size:100;not null" json:"patientName"`
	Location             string        `gorm:"size:255;not null" json:"location"`
	EmergencyDescription string        `gorm:"type:text;not null" json:"emergencyDescription"`
	MedicalNotes         string        `gorm:"type:text" json:"medicalNotes,omitempty"`
	AmbulanceID          *string       `gorm:"size:36;index" json:"ambulanceId,omitempty"`
	Status               RequestStatus `gorm:"size:20;default:'PENDING'" json:"status"`
	RequestTime          time.Time     `json:"requestTime"`
	Deleted              bool          `gorm:"default:false" json:"-"`

	// Relations
	User          *User                  `gorm:"foreignKey:UserID" json:"-"`
	Ambulance     *Ambulance             `gorm:"foreignKey:AmbulanceID" json:"ambulance,omitempty"`
	StatusHistory []RequestStatusHistory `gorm:"foreignKey:RequestID" json:"statusHistory,omitempty"`
}

// RequestStatusHistory is one append-only entry in a request's status log.
type RequestStatusHistory struct {
	BaseModel
	RequestID string        `gorm:"size:36;index;not null" json:"requestId"`
	OldStatus RequestStatus `gorm:"size:20" json:"oldStatus"`
	NewStatus RequestStatus `gorm:"size:20" json:"newStatus"`
	Notes     string        `gorm:"type:text" json:"notes,omitempty"`
	ChangedBy string        `gorm:"size:100" json:"changedBy"`
}

// SortStatusHistory orders history entries ascending by creation time.
// The sort is stable so entries sharing a timestamp keep their insert order.
func SortStatusHistory(entries []RequestStatusHistory) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}
