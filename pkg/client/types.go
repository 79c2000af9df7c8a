package client

import (
	"sort"
	"time"
)

// Request lifecycle statuses as served by the API.
const (
	RequestPending    = "PENDING"
	RequestDispatched = "DISPATCHED"
	RequestInProgress = "IN_PROGRESS"
	RequestArrived    = "ARRIVED"
	RequestCompleted  = "COMPLETED"
	RequestCancelled  = "CANCELLED"
)

// Ambulance statuses as served by the API.
const (
	AmbulanceAvailable    = "AVAILABLE"
	AmbulanceDispatched   = "DISPATCHED"
	AmbulanceOnDuty       = "ON_DUTY"
	AmbulanceMaintenance  = "MAINTENANCE"
	AmbulanceOutOfService = "OUT_OF_SERVICE"
	AmbulanceUnavailable  = "UNAVAILABLE"
)

// User roles.
const (
	RoleUser       = "USER"
	RoleDispatcher = "DISPATCHER"
	RoleAdmin      = "ADMIN"
)

// IsTerminalStatus reports whether a request or service status ends its
// lifecycle. Timeline views omit the "continues" connector after terminal
// entries.
func IsTerminalStatus(status string) bool {
	return status == RequestCompleted || status == RequestCancelled
}

// Ambulance mirrors the ambulance resource.
type Ambulance struct {
	ID              string    `json:"id"`
	LicensePlate    string    `json:"licensePlate"`
	DriverName      string    `json:"driverName"`
	CurrentLocation string    `json:"currentLocation"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// EmergencyRequest mirrors the emergency request resource.
type EmergencyRequest struct {
	ID                   string               `json:"id"`
	UserID               string               `json:"userId,omitempty"`
	UserName             string               `json:"userName"`
	UserContact          string               `json:"userContact"`
	PatientName          string               `json:"patientName"`
	Location             string               `json:"location"`
	EmergencyDescription string               `json:"emergencyDescription"`
	MedicalNotes         string               `json:"medicalNotes,omitempty"`
	AmbulanceID          string               `json:"ambulanceId,omitempty"`
	Ambulance            *Ambulance           `json:"ambulance,omitempty"`
	Status               string               `json:"status"`
	RequestTime          time.Time            `json:"requestTime"`
	StatusHistory        []StatusHistoryEntry `json:"statusHistory,omitempty"`
	CreatedAt            time.Time            `json:"createdAt"`
	UpdatedAt            time.Time            `json:"updatedAt"`
}

// StatusHistoryEntry is one entry in a request's append-only status log.
type StatusHistoryEntry struct {
	ID        string    `json:"id"`
	RequestID string    `json:"requestId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	Notes     string    `json:"notes,omitempty"`
	ChangedBy string    `json:"changedBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// Patient mirrors the patient resource.
type Patient struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Contact      string    `json:"contact"`
	MedicalNotes string    `json:"medicalNotes"`
	Archived     bool      `json:"archived"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ServiceRecord mirrors one closed service episode.
type ServiceRecord struct {
	ID             string     `json:"id"`
	RequestID      string     `json:"requestId"`
	AmbulanceID    string     `json:"ambulanceId"`
	PatientID      string     `json:"patientId,omitempty"`
	Status         string     `json:"status"`
	Notes          string     `json:"notes,omitempty"`
	ArrivalTime    *time.Time `json:"arrivalTime,omitempty"`
	CompletionTime *time.Time `json:"completionTime,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// User mirrors the sanitized user resource.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	Role        string    `json:"role"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// LoginResult is the payload of a successful login.
type LoginResult struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	User         User   `json:"user"`
}

// RequestPage is one server-side page of emergency requests.
type RequestPage struct {
	Content       []EmergencyRequest `json:"content"`
	TotalElements int64              `json:"totalElements"`
	TotalPages    int                `json:"totalPages"`
	Size          int                `json:"size"`
	Number        int                `json:"number"`
}

// SortStatusHistory orders history entries ascending by creation time,
// the order timelines render them in. The sort is stable.
func SortStatusHistory(entries []StatusHistoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}
