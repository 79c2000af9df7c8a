package models

// AmbulanceStatus represents the operational status of an ambulance
type AmbulanceStatus string

const (
	AmbulanceAvailable    AmbulanceStatus = "AVAILABLE"
	AmbulanceDispatched   AmbulanceStatus = "DISPATCHED"
	AmbulanceOnDuty       AmbulanceStatus = "ON_DUTY"
	AmbulanceMaintenance  AmbulanceStatus = "MAINTENANCE"
	AmbulanceOutOfService AmbulanceStatus = "OUT_OF_SERVICE"
	AmbulanceUnavailable  AmbulanceStatus = "UNAVAILABLE"
)

// ValidAmbulanceStatus reports whether s is one of the known statuses.
func ValidAmbulanceStatus(s AmbulanceStatus) bool {
	switch s {
	case AmbulanceAvailable, AmbulanceDispatched, AmbulanceOnDuty,
		AmbulanceMaintenance, AmbulanceOutOfService, AmbulanceUnavailable:
		return true
	}
	return false
}

// Ambulance represents a vehicle in the fleet
type Ambulance struct {
	BaseModel
	LicensePlate    string          `gorm:"uniqueIndex;size:20;not null" json:"licensePlate"`
	DriverName      string          `gorm:"size:100" json:"driverName"`
	CurrentLocation string          `gorm:"size:255" json:"currentLocation"`
	Status          AmbulanceStatus `gorm:"size:20;default:'AVAILABLE'" json:"status"`
}
