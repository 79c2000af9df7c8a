package handlers_test

import (
	"net/http"
	"testing"

	"ambulance-service-server/internal/models"
)

func TestPatientArchiveExcludedFromList(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser("dispatcher", models.RoleDispatcher)

	rec := env.do(http.MethodPost, "/api/patients", token, map[string]string{
		"name":    "John Smith",
		"contact": "555-0100",
	})
	requireStatus(t, rec, http.StatusCreated)
	var kept models.Patient
	decodeData(t, rec, &kept)

	rec = env.do(http.MethodPost, "/api/patients", token, map[string]string{
		"name": "Mary Jones",
	})
	requireStatus(t, rec, http.StatusCreated)
	var archived models.Patient
	decodeData(t, rec, &archived)

	rec = env.do(http.MethodPatch, "/api/patients/"+archived.ID+"/archive", token, nil)
	requireStatus(t, rec, http.StatusOK)

	var updated models.Patient
	decodeData(t, rec, &updated)
	if !updated.Archived {
		t.Error("archive should flag the record")
	}

	rec = env.do(http.MethodGet, "/api/patients", token, nil)
	requireStatus(t, rec, http.StatusOK)
	var patients []models.Patient
	decodeData(t, rec, &patients)
	if len(patients) != 1 || patients[0].ID != kept.ID {
		t.Errorf("archived records must be excluded by default, got %d records", len(patients))
	}

	rec = env.do(http.MethodGet, "/api/patients?includeArchived=true", token, nil)
	requireStatus(t, rec, http.StatusOK)
	decodeData(t, rec, &patients)
	if len(patients) != 2 {
		t.Errorf("includeArchived should list every record, got %d", len(patients))
	}

	// Archived records are still directly addressable.
	rec = env.do(http.MethodGet, "/api/patients/"+archived.ID, token, nil)
	requireStatus(t, rec, http.StatusOK)
}

func TestUpdatePatient(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser("dispatcher", models.RoleDispatcher)

	rec := env.do(http.MethodPost, "/api/patients", token, map[string]string{
		"name":    "John Smith",
		"contact": "555-0100",
	})
	requireStatus(t, rec, http.StatusCreated)
	var patient models.Patient
	decodeData(t, rec, &patient)

	rec = env.do(http.MethodPut, "/api/patients/"+patient.ID, token, map[string]string{
		"medicalNotes": "Allergic to penicillin",
	})
	requireStatus(t, rec, http.StatusOK)

	var updated models.Patient
	decodeData(t, rec, &updated)
	if updated.MedicalNotes != "Allergic to penicillin" {
		t.Errorf("unexpected notes: %q", updated.MedicalNotes)
	}
	if updated.Name != "John Smith" || updated.Contact != "555-0100" {
		t.Error("partial update must leave omitted fields untouched")
	}
}

func TestDeletePatient(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser("admin", models.RoleAdmin)

	rec := env.do(http.MethodPost, "/api/patients", token, map[string]string{
		"name": "John Smith",
	})
	requireStatus(t, rec, http.StatusCreated)
	var patient models.Patient
	decodeData(t, rec, &patient)

	rec = env.do(http.MethodDelete, "/api/patients/"+patient.ID, token, nil)
	requireStatus(t, rec, http.StatusOK)

	rec = env.do(http.MethodGet, "/api/patients/"+patient.ID, token, nil)
	requireStatus(t, rec, http.StatusNotFound)
}

func TestPatientRoutesRequireStaffRole(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser("jdoe", models.RoleUser)

	rec := env.do(http.MethodGet, "/api/patients", token, nil)
	requireStatus(t, rec, http.StatusForbidden)

	rec = env.do(http.MethodPost, "/api/patients", token, map[string]string{"name": "John Smith"})
	requireStatus(t, rec, http.StatusForbidden)
}
