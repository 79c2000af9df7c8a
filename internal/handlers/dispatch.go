package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"ambulance-service-server/internal/middleware"
	"ambulance-service-server/internal/models"
	"ambulance-service-server/internal/utils"
	"ambulance-service-server/internal/ws"
)

// DispatchHandler handles deploying ambulances to emergency requests.
type DispatchHandler struct {
	DB  *gorm.DB
	Hub *ws.Hub
}

// NewDispatchHandler creates a new DispatchHandler.
func NewDispatchHandler(db *gorm.DB, hub *ws.Hub) *DispatchHandler {
	return &DispatchHandler{DB: db, Hub: hub}
}

// DispatchAmbulance handles POST /dispatch/:requestId. It picks the first
// available ambulance and, in one transaction: assigns it to the request,
// moves the request to DISPATCHED (appending a history entry), marks the
// ambulance DISPATCHED, and opens a service history record for the episode.
func (h *DispatchHandler) DispatchAmbulance(c *gin.Context) {
	requestID := c.Param("requestId")
	changedBy, _ := middleware.GetUsernameFromContext(c)

	var request models.EmergencyRequest
	if err := h.DB.First(&request, "id = ? AND deleted = ?", requestID, false).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Request not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if request.Status.IsTerminal() {
		utils.Conflict(c, "Request is already "+string(request.Status))
		return
	}
	if request.AmbulanceID != nil {
		utils.Conflict(c, "Request already has an ambulance assigned")
		return
	}

	var ambulance models.Ambulance
	oldStatus := request.Status

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("status = ?", models.AmbulanceAvailable).
			Order("created_at ASC").
			First(&ambulance).Error; err != nil {
			return err
		}

		if err := tx.Model(&ambulance).Update("status", models.AmbulanceDispatched).Error; err != nil {
			return err
		}

		if err := tx.Model(&request).Updates(map[string]interface{}{
			"ambulance_id": ambulance.ID,
			"status":       models.RequestDispatched,
		}).Error; err != nil {
			return err
		}

		entry := models.RequestStatusHistory{
			RequestID: request.ID,
			OldStatus: oldStatus,
			NewStatus: models.RequestDispatched,
			Notes:     "Ambulance " + ambulance.LicensePlate + " dispatched",
			ChangedBy: changedBy,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		episode := models.ServiceHistory{
			RequestID:   request.ID,
			AmbulanceID: ambulance.ID,
			Status:      models.ServiceInProgress,
		}
		return tx.Create(&episode).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Conflict(c, "No ambulance is currently available")
		} else {
			utils.InternalServerError(c, "Failed to dispatch ambulance: "+err.Error())
		}
		return
	}

	ambulance.Status = models.AmbulanceDispatched
	request.Status = models.RequestDispatched
	request.AmbulanceID = &ambulance.ID
	request.Ambulance = &ambulance

	if h.Hub != nil {
		h.Hub.Broadcast(ws.Event{Type: ws.EventAmbulanceStatusChange, Payload: ambulance})
		h.Hub.Broadcast(ws.Event{Type: ws.EventRequestStatusChange, Payload: request})
	}
	utils.Success(c, "Ambulance dispatched successfully", request)
}
