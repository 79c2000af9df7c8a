package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"ambulance-service-server/internal/models"
	"ambulance-service-server/internal/utils"
)

// PatientHandler handles patient record management.
type PatientHandler struct {
	DB *gorm.DB
}

// NewPatientHandler creates a new PatientHandler.
func NewPatientHandler(db *gorm.DB) *PatientHandler {
	return &PatientHandler{DB: db}
}

// GetPatients handles fetching all patient records. Archived records are
// excluded unless includeArchived=true is passed.
func (h *PatientHandler) GetPatients(c *gin.Context) {
	query := h.DB.Model(&models.Patient{})
	if c.Query("includeArchived") != "true" {
		query = query.Where("archived = ?", false)
	}

	var patients []models.Patient
	if err := query.Find(&patients).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch patients: "+err.Error())
		return
	}
	utils.Success(c, "Patients fetched successfully", patients)
}

// GetPatientByID handles fetching a single patient record.
func (h *PatientHandler) GetPatientByID(c *gin.Context) {
	patientID := c.Param("id")

	var patient models.Patient
	if err := h.DB.First(&patient, "id = ?", patientID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	utils.Success(c, "Patient fetched successfully", patient)
}

// CreatePatientRequest represents the request body for creating a patient.
type CreatePatientRequest struct {
	Name         string `json:"name" binding:"required"`
	Contact      string `json:"contact"`
	MedicalNotes string `json:"medicalNotes"`
}

// CreatePatient handles creating a new patient record.
func (h *PatientHandler) CreatePatient(c *gin.Context) {
	var req CreatePatientRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patient := models.Patient{
		Name:         req.Name,
		Contact:      req.Contact,
		MedicalNotes: req.MedicalNotes,
	}
	if err := h.DB.Create(&patient).Error; err != nil {
		utils.InternalServerError(c, "Failed to create patient: "+err.Error())
		return
	}

	utils.Created(c, "Patient created successfully", patient)
}

// UpdatePatientRequest represents the request body for updating a patient.
type UpdatePatientRequest struct {
	Name         string `json:"name"`
	Contact      string `json:"contact"`
	MedicalNotes string `json:"medicalNotes"`
}

// UpdatePatient handles updating a patient record.
func (h *PatientHandler) UpdatePatient(c *gin.Context) {
	patientID := c.Param("id")

	var req UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil { // Partial updates allowed
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var patient models.Patient
	if err := h.DB.First(&patient, "id = ?", patientID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if req.Name != "" {
		patient.Name = req.Name
	}
	if req.Contact != "" {
		patient.Contact = req.Contact
	}
	if req.MedicalNotes != "" {
		patient.MedicalNotes = req.MedicalNotes
	}

	if err := h.DB.Save(&patient).Error; err != nil {
		utils.InternalServerError(c, "Failed to update patient: "+err.Error())
		return
	}

	utils.Success(c, "Patient updated successfully", patient)
}

// ArchivePatient handles soft-deleting a patient record.
func (h *PatientHandler) ArchivePatient(c *gin.Context) {
	patientID := c.Param("id")

	var patient models.Patient
	if err := h.DB.First(&patient, "id = ?", patientID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if err := h.DB.Model(&patient).Update("archived", true).Error; err != nil {
		utils.InternalServerError(c, "Failed to archive patient: "+err.Error())
		return
	}
	patient.Archived = true

	utils.Success(c, "Patient archived successfully", patient)
}

// DeletePatient handles permanently removing a patient record.
func (h *PatientHandler) DeletePatient(c *gin.Context) {
	patientID := c.Param("id")

	var patient models.Patient
	if err := h.DB.First(&patient, "id = ?", patientID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if err := h.DB.Delete(&models.Patient{}, "id = ?", patientID).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete patient: "+err.Error())
		return
	}

	utils.Success(c, "Patient deleted successfully", nil)
}
