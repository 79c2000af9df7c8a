package handlers

import (
	"math"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"ambulance-service-server/internal/middleware"
	"ambulance-service-server/internal/models"
	"ambulance-service-server/internal/utils"
	"ambulance-service-server/internal/ws"
)

// RequestHandler handles emergency request intake and lifecycle.
type RequestHandler struct {
	DB  *gorm.DB
	Hub *ws.Hub
}

// NewRequestHandler creates a new RequestHandler.
func NewRequestHandler(db *gorm.DB, hub *ws.Hub) *RequestHandler {
	return &RequestHandler{DB: db, Hub: hub}
}

// CreateRequestRequest represents the public intake form.
type CreateRequestRequest struct {
	UserName             string `json:"userName"`
	UserContact          string `json:"userContact" binding:"required"`
	PatientName          string `json:"patientName" binding:"required"`
	Location             string `json:"location" binding:"required"`
	EmergencyDescription string `json:"emergencyDescription" binding:"required"`
	MedicalNotes         string `json:"medicalNotes"`
}

// CreateRequest handles public submission of an emergency transport request.
// New requests always start PENDING with an empty status history. When the
// caller is authenticated the request is linked to their account.
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var req CreateRequestRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	request := models.EmergencyRequest{
		UserName:             req.UserName,
		UserContact:          req.UserContact,
		PatientName:          req.PatientName,
		Location:             req.Location,
		EmergencyDescription: req.EmergencyDescription,
		MedicalNotes:         req.MedicalNotes,
		Status:               models.RequestPending,
		RequestTime:          time.Now(),
	}

	// Public endpoint: a token is optional here, so the auth middleware does
	// not run. Link the request to a user only if a valid token came along.
	if userID, ok := middleware.GetUserIDFromContext(c); ok {
		request.UserID = &userID
	}

	if err := h.DB.Create(&request).Error; err != nil {
		utils.InternalServerError(c, "Failed to create request: "+err.Error())
		return
	}

	if h.Hub != nil {
		h.Hub.Broadcast(ws.Event{Type: ws.EventNewEmergencyRequest, Payload: request})
	}
	utils.Created(c, "Emergency request submitted successfully", request)
}

// GetRequests handles fetching all requests with server-side pagination.
// Query params: page (0-based), size, sort (requestTime|status, minus prefix
// for descending).
func (h *RequestHandler) GetRequests(c *gin.Context) {
	page := utils.QueryInt(c, "page", 0)
	size := utils.QueryInt(c, "size", 20)
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	if page < 0 {
		page = 0
	}

	order := "request_time DESC"
	switch c.Query("sort") {
	case "requestTime":
		order = "request_time ASC"
	case "-requestTime", "":
		// default
	case "status":
		order = "status ASC"
	case "-status":
		order = "status DESC"
	default:
		utils.BadRequest(c, "Unsupported sort field: "+c.Query("sort"))
		return
	}

	var total int64
	if err := h.DB.Model(&models.EmergencyRequest{}).Where("deleted = ?", false).Count(&total).Error; err != nil {
		utils.InternalServerError(c, "Failed to count requests: "+err.Error())
		return
	}

	var requests []models.EmergencyRequest
	if err := h.DB.Where("deleted = ?", false).
		Preload("Ambulance").
		Order(order).
		Limit(size).Offset(page * size).
		Find(&requests).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch requests: "+err.Error())
		return
	}

	utils.Success(c, "Requests fetched successfully", utils.PaginatedData{
		Content:       requests,
		TotalElements: total,
		TotalPages:    int(math.Ceil(float64(total) / float64(size))),
		Size:          size,
		Number:        page,
	})
}

// GetRequestByID handles fetching a single request with its history.
func (h *RequestHandler) GetRequestByID(c *gin.Context) {
	requestID := c.Param("id")

	var request models.EmergencyRequest
	if err := h.DB.Preload("Ambulance").Preload("StatusHistory").
		First(&request, "id = ? AND deleted = ?", requestID, false).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Request not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	models.SortStatusHistory(request.StatusHistory)
	utils.Success(c, "Request fetched successfully", request)
}

// GetStatusHistory handles fetching the ordered status log of a request.
func (h *RequestHandler) GetStatusHistory(c *gin.Context) {
	requestID := c.Param("id")

	var request models.EmergencyRequest
	if err := h.DB.First(&request, "id = ? AND deleted = ?", requestID, false).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Request not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var history []models.RequestStatusHistory
	if err := h.DB.Where("request_id = ?", requestID).Find(&history).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch status history: "+err.Error())
		return
	}

	models.SortStatusHistory(history)
	utils.Success(c, "Status history fetched successfully", history)
}

// GetMyRequests handles fetching the authenticated user's own requests.
func (h *RequestHandler) GetMyRequests(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var requests []models.EmergencyRequest
	if err := h.DB.Where("user_id = ? AND deleted = ?", userID, false).
		Preload("Ambulance").
		Order("request_time DESC").
		Find(&requests).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch requests: "+err.Error())
		return
	}
	utils.Success(c, "Requests fetched successfully", requests)
}

// GetRequestsByUser handles fetching requests submitted by a given user.
func (h *RequestHandler) GetRequestsByUser(c *gin.Context) {
	userID := c.Param("userId")

	var requests []models.EmergencyRequest
	if err := h.DB.Where("user_id = ? AND deleted = ?", userID, false).
		Preload("Ambulance").
		Order("request_time DESC").
		Find(&requests).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch requests: "+err.Error())
		return
	}
	utils.Success(c, "Requests fetched successfully", requests)
}

// GetRequestsByPatient handles fetching requests for a given patient name.
func (h *RequestHandler) GetRequestsByPatient(c *gin.Context) {
	patientName := c.Param("patientName")

	var requests []models.EmergencyRequest
	if err := h.DB.Where("patient_name = ? AND deleted = ?", patientName, false).
		Preload("Ambulance").
		Order("request_time DESC").
		Find(&requests).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch requests: "+err.Error())
		return
	}
	utils.Success(c, "Requests fetched successfully", requests)
}

// UpdateRequestStatusRequest represents the request body for a status change.
type UpdateRequestStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// UpdateRequestStatus handles an administrative status transition. The status
// domain is flat: any status may be set to any other, and every change
// appends exactly one history entry recording the actor.
func (h *RequestHandler) UpdateRequestStatus(c *gin.Context) {
	requestID := c.Param("id")

	var req UpdateRequestStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	newStatus := models.RequestStatus(req.Status)
	if !models.ValidRequestStatus(newStatus) {
		utils.BadRequest(c, "Unknown request status: "+req.Status)
		return
	}

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

	oldStatus := request.Status
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&request).Update("status", newStatus).Error; err != nil {
			return err
		}
		entry := models.RequestStatusHistory{
			RequestID: request.ID,
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Notes:     req.Notes,
			ChangedBy: changedBy,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to update request status: "+err.Error())
		return
	}
	request.Status = newStatus

	if h.Hub != nil {
		h.Hub.Broadcast(ws.Event{Type: ws.EventRequestStatusChange, Payload: request})
	}
	utils.Success(c, "Request status updated successfully", request)
}

// AssignAmbulanceRequest represents the request body for explicit assignment.
type AssignAmbulanceRequest struct {
	AmbulanceID string `json:"ambulanceId" binding:"required"`
}

// AssignAmbulance handles explicitly attaching an ambulance to a request
// without changing the request status.
func (h *RequestHandler) AssignAmbulance(c *gin.Context) {
	requestID := c.Param("id")

	var req AssignAmbulanceRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var request models.EmergencyRequest
	if err := h.DB.First(&request, "id = ? AND deleted = ?", requestID, false).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Request not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var ambulance models.Ambulance
	if err := h.DB.First(&ambulance, "id = ?", req.AmbulanceID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Ambulance not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if err := h.DB.Model(&request).Update("ambulance_id", ambulance.ID).Error; err != nil {
		utils.InternalServerError(c, "Failed to assign ambulance: "+err.Error())
		return
	}
	request.AmbulanceID = &ambulance.ID
	request.Ambulance = &ambulance

	if h.Hub != nil {
		h.Hub.Broadcast(ws.Event{Type: ws.EventRequestStatusChange, Payload: request})
	}
	utils.Success(c, "Ambulance assigned successfully", request)
}
