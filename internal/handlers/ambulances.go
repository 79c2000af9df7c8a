package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"ambulance-service-server/internal/models"
	"ambulance-service-server/internal/utils"
	"ambulance-service-server/internal/ws"
)

// AmbulanceHandler handles fleet-management requests.
type AmbulanceHandler struct {
	DB  *gorm.DB
	Hub *ws.Hub
}

// NewAmbulanceHandler creates a new AmbulanceHandler.
func NewAmbulanceHandler(db *gorm.DB, hub *ws.Hub) *AmbulanceHandler {
	return &AmbulanceHandler{DB: db, Hub: hub}
}

// GetAmbulances handles fetching the whole fleet.
func (h *AmbulanceHandler) GetAmbulances(c *gin.Context) {
	var ambulances []models.Ambulance
	if err := h.DB.Find(&ambulances).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch ambulances: "+err.Error())
		return
	}
	utils.Success(c, "Ambulances fetched successfully", ambulances)
}

// GetAvailableAmbulances handles fetching ambulances ready for dispatch.
func (h *AmbulanceHandler) GetAvailableAmbulances(c *gin.Context) {
	var ambulances []models.Ambulance
	if err := h.DB.Where("status = ?", models.AmbulanceAvailable).Find(&ambulances).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch available ambulances: "+err.Error())
		return
	}
	utils.Success(c, "Available ambulances fetched successfully", ambulances)
}

// GetAmbulanceByID handles fetching a single ambulance.
func (h *AmbulanceHandler) GetAmbulanceByID(c *gin.Context) {
	ambulanceID := c.Param("id")

	var ambulance models.Ambulance
	if err := h.DB.First(&ambulance, "id = ?", ambulanceID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Ambulance not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	utils.Success(c, "Ambulance fetched successfully", ambulance)
}

// CreateAmbulanceRequest represents the request body for adding an ambulance.
type CreateAmbulanceRequest struct {
	LicensePlate    string `json:"licensePlate" binding:"required"`
	DriverName      string `json:"driverName" binding:"required"`
	CurrentLocation string `json:"currentLocation"`
	Status          string `json:"status"`
}

// CreateAmbulance handles adding a new ambulance to the fleet.
func (h *AmbulanceHandler) CreateAmbulance(c *gin.Context) {
	var req CreateAmbulanceRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	status := models.AmbulanceStatus(req.Status)
	if req.Status == "" {
		status = models.AmbulanceAvailable
	} else if !models.ValidAmbulanceStatus(status) {
		utils.BadRequest(c, "Unknown ambulance status: "+req.Status)
		return
	}

	var existing models.Ambulance
	if err := h.DB.Where("license_plate = ?", req.LicensePlate).First(&existing).Error; err == nil {
		utils.BadRequest(c, "Ambulance with this license plate already exists")
		return
	} else if err != gorm.ErrRecordNotFound {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	ambulance := models.Ambulance{
		LicensePlate:    req.LicensePlate,
		DriverName:      req.DriverName,
		CurrentLocation: req.CurrentLocation,
		Status:          status,
	}
	if err := h.DB.Create(&ambulance).Error; err != nil {
		utils.InternalServerError(c, "Failed to create ambulance: "+err.Error())
		return
	}

	h.broadcastFleet()
	utils.Created(c, "Ambulance created successfully", ambulance)
}

// UpdateAmbulanceRequest represents the request body for updating an ambulance.
type UpdateAmbulanceRequest struct {
	LicensePlate    string `json:"licensePlate"`
	DriverName      string `json:"driverName"`
	CurrentLocation string `json:"currentLocation"`
	Status          string `json:"status"`
}

// UpdateAmbulance handles updating ambulance details.
func (h *AmbulanceHandler) UpdateAmbulance(c *gin.Context) {
	ambulanceID := c.Param("id")

	var req UpdateAmbulanceRequest
	if err := c.ShouldBindJSON(&req); err != nil { // Partial updates allowed
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var ambulance models.Ambulance
	if err := h.DB.First(&ambulance, "id = ?", ambulanceID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Ambulance not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if req.LicensePlate != "" && req.LicensePlate != ambulance.LicensePlate {
		var existing models.Ambulance
		if err := h.DB.Where("license_plate = ? AND id != ?", req.LicensePlate, ambulance.ID).First(&existing).Error; err == nil {
			utils.BadRequest(c, "License plate is already in use")
			return
		} else if err != gorm.ErrRecordNotFound {
			utils.InternalServerError(c, "Database error checking license plate: "+err.Error())
			return
		}
		ambulance.LicensePlate = req.LicensePlate
	}
	if req.DriverName != "" {
		ambulance.DriverName = req.DriverName
	}
	if req.CurrentLocation != "" {
		ambulance.CurrentLocation = req.CurrentLocation
	}
	if req.Status != "" {
		status := models.AmbulanceStatus(req.Status)
		if !models.ValidAmbulanceStatus(status) {
			utils.BadRequest(c, "Unknown ambulance status: "+req.Status)
			return
		}
		ambulance.Status = status
	}

	if err := h.DB.Save(&ambulance).Error; err != nil {
		utils.InternalServerError(c, "Failed to update ambulance: "+err.Error())
		return
	}

	h.broadcastFleet()
	utils.Success(c, "Ambulance updated successfully", ambulance)
}

// UpdateAmbulanceStatusRequest represents the request body for a status change.
type UpdateAmbulanceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateAmbulanceStatus handles changing only the status of an ambulance.
func (h *AmbulanceHandler) UpdateAmbulanceStatus(c *gin.Context) {
	ambulanceID := c.Param("id")

	var req UpdateAmbulanceStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	status := models.AmbulanceStatus(req.Status)
	if !models.ValidAmbulanceStatus(status) {
		utils.BadRequest(c, "Unknown ambulance status: "+req.Status)
		return
	}

	h.setStatus(c, ambulanceID, status)
}

// MarkAvailable handles the dedicated mark-available action. Only the status
// field changes; every other field is left untouched.
func (h *AmbulanceHandler) MarkAvailable(c *gin.Context) {
	h.setStatus(c, c.Param("id"), models.AmbulanceAvailable)
}

func (h *AmbulanceHandler) setStatus(c *gin.Context, ambulanceID string, status models.AmbulanceStatus) {
	var ambulance models.Ambulance
	if err := h.DB.First(&ambulance, "id = ?", ambulanceID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Ambulance not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if err := h.DB.Model(&ambulance).Update("status", status).Error; err != nil {
		utils.InternalServerError(c, "Failed to update ambulance status: "+err.Error())
		return
	}
	ambulance.Status = status

	if h.Hub != nil {
		h.Hub.Broadcast(ws.Event{Type: ws.EventAmbulanceStatusChange, Payload: ambulance})
	}
	utils.Success(c, "Ambulance status updated successfully", ambulance)
}

// DeleteAmbulance handles removing an ambulance from the fleet.
func (h *AmbulanceHandler) DeleteAmbulance(c *gin.Context) {
	ambulanceID := c.Param("id")

	var ambulance models.Ambulance
	if err := h.DB.First(&ambulance, "id = ?", ambulanceID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Ambulance not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if err := h.DB.Delete(&models.Ambulance{}, "id = ?", ambulanceID).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete ambulance: "+err.Error())
		return
	}

	h.broadcastFleet()
	utils.Success(c, "Ambulance deleted successfully", nil)
}

// broadcastFleet pushes the full fleet list to live feed subscribers.
func (h *AmbulanceHandler) broadcastFleet() {
	if h.Hub == nil {
		return
	}
	var ambulances []models.Ambulance
	if err := h.DB.Find(&ambulances).Error; err != nil {
		return
	}
	h.Hub.Broadcast(ws.Event{Type: ws.EventAmbulancesUpdate, Payload: ambulances})
}
