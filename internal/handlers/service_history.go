package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"ambulance-service-server/internal/models"
	"ambulance-service-server/internal/utils"
)

// ServiceHistoryHandler handles closed service episode records.
type ServiceHistoryHandler struct {
	DB *gorm.DB
}

// NewServiceHistoryHandler creates a new ServiceHistoryHandler.
func NewServiceHistoryHandler(db *gorm.DB) *ServiceHistoryHandler {
	return &ServiceHistoryHandler{DB: db}
}

// GetServiceHistory handles fetching all service history records.
func (h *ServiceHistoryHandler) GetServiceHistory(c *gin.Context) {
	var records []models.ServiceHistory
	if err := h.DB.Order("created_at DESC").Find(&records).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch service history: "+err.Error())
		return
	}
	utils.Success(c, "Service history fetched successfully", records)
}

// GetServiceHistoryByStatus handles fetching records with a given status.
func (h *ServiceHistoryHandler) GetServiceHistoryByStatus(c *gin.Context) {
	status := models.ServiceStatus(c.Param("status"))
	if !models.ValidServiceStatus(status) {
		utils.BadRequest(c, "Unknown service status: "+c.Param("status"))
		return
	}

	var records []models.ServiceHistory
	if err := h.DB.Where("status = ?", status).Order("created_at DESC").Find(&records).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch service history: "+err.Error())
		return
	}
	utils.Success(c, "Service history fetched successfully", records)
}

// GetServiceHistoryByDateRange handles fetching records created inside
// [start, end]. Bounds accept RFC3339 timestamps or plain dates; an end date
// without a time component covers the whole day.
func (h *ServiceHistoryHandler) GetServiceHistoryByDateRange(c *gin.Context) {
	start, err := parseRangeBound(c.Query("start"), false)
	if err != nil {
		utils.BadRequest(c, "Invalid start date: "+err.Error())
		return
	}
	end, err := parseRangeBound(c.Query("end"), true)
	if err != nil {
		utils.BadRequest(c, "Invalid end date: "+err.Error())
		return
	}
	if end.Before(start) {
		utils.BadRequest(c, "End date is before start date")
		return
	}

	var records []models.ServiceHistory
	if err := h.DB.Where("created_at BETWEEN ? AND ?", start, end).
		Order("created_at DESC").Find(&records).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch service history: "+err.Error())
		return
	}
	utils.Success(c, "Service history fetched successfully", records)
}

func parseRangeBound(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// UpdateServiceStatusRequest represents the request body for a status change.
type UpdateServiceStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// UpdateServiceStatus handles changing the status of a service episode.
// Moving to ARRIVED stamps the arrival time; terminal statuses stamp the
// completion time.
func (h *ServiceHistoryHandler) UpdateServiceStatus(c *gin.Context) {
	recordID := c.Param("id")

	var req UpdateServiceStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	status := models.ServiceStatus(req.Status)
	if !models.ValidServiceStatus(status) {
		utils.BadRequest(c, "Unknown service status: "+req.Status)
		return
	}

	var record models.ServiceHistory
	if err := h.DB.First(&record, "id = ?", recordID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Service history record not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	now := time.Now()
	record.Status = status
	if req.Notes != "" {
		record.Notes = req.Notes
	}
	if status == models.ServiceArrived && record.ArrivalTime == nil {
		record.ArrivalTime = &now
	}
	if (status == models.ServiceCompleted || status == models.ServiceCancelled) && record.CompletionTime == nil {
		record.CompletionTime = &now
	}

	if err := h.DB.Save(&record).Error; err != nil {
		utils.InternalServerError(c, "Failed to update service status: "+err.Error())
		return
	}

	utils.Success(c, "Service status updated successfully", record)
}

// MarkCompleted handles closing a service episode as COMPLETED.
func (h *ServiceHistoryHandler) MarkCompleted(c *gin.Context) {
	recordID := c.Param("id")

	var record models.ServiceHistory
	if err := h.DB.First(&record, "id = ?", recordID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Service history record not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	now := time.Now()
	record.Status = models.ServiceCompleted
	if record.CompletionTime == nil {
		record.CompletionTime = &now
	}

	if err := h.DB.Save(&record).Error; err != nil {
		utils.InternalServerError(c, "Failed to mark service completed: "+err.Error())
		return
	}

	utils.Success(c, "Service marked as completed", record)
}
