package usecase

import (
	"testing"

	"agent-booking-portal/internal/delivery/dto"
	"agent-booking-portal/internal/domain/entity"
	"agent-booking-portal/internal/repository"
	"agent-booking-portal/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func newDoctorUsecase(env *testEnv) DoctorUsecase {
	log := testLogger()
	return NewDoctorUsecase(env.db, log,
		repository.NewDoctorRepository(),
		repository.NewHospitalRepository(),
		service.NewAuditService(log, repository.NewAuditLogRepository()))
}

func seedHospital(t *testing.T, env *testEnv) *entity.Hospital {
	t.Helper()
	hospital := &entity.Hospital{Name: "Clinic " + uuid.NewString()[:8], Address: "2 Clinic Road"}
	if err := env.db.Create(hospital).Error; err != nil {
		t.Fatalf("failed to create hospital: %v", err)
	}
	return hospital
}

func TestCreateDoctor(t *testing.T) {
	env := newTestEnv(t)
	doctors := newDoctorUsecase(env)
	hospital := seedHospital(t, env)

	resp, err := doctors.CreateDoctor(env.ctx(), &dto.CreateDoctorRequest{
		HospitalID:     hospital.ID,
		FullName:       "Dr. Avery Quinn",
		Specialization: "Cardiology",
		DefaultFee:     decimal.NewFromInt(80),
	})
	if err != nil {
		t.Fatalf("CreateDoctor failed: %v", err)
	}

	if resp.FullName != "Dr. Avery Quinn" {
		t.Errorf("full_name = %q", resp.FullName)
	}
	if resp.HospitalID != hospital.ID {
		t.Errorf("hospital_id = %s, want %s", resp.HospitalID, hospital.ID)
	}
	if !resp.DefaultFee.Equal(decimal.NewFromInt(80)) {
		t.Errorf("default_fee = %s, want 80", resp.DefaultFee)
	}

	// Admin writes leave an audit trail.
	var audits int64
	env.db.Model(&entity.AuditLog{}).Where("action = ?", entity.AuditActionDoctorCreate).Count(&audits)
	if audits != 1 {
		t.Errorf("audit rows = %d, want 1", audits)
	}
}

func TestCreateDoctorUnknownHospital(t *testing.T) {
	env := newTestEnv(t)
	doctors := newDoctorUsecase(env)

	_, err := doctors.CreateDoctor(env.ctx(), &dto.CreateDoctorRequest{
		HospitalID:     uuid.New(),
		FullName:       "Dr. Nowhere",
		Specialization: "Dermatology",
	})
	if err != ErrHospitalNotFound {
		t.Fatalf("err = %v, want ErrHospitalNotFound", err)
	}
}

func TestUpdateDoctor(t *testing.T) {
	env := newTestEnv(t)
	doctors := newDoctorUsecase(env)
	slot := env.createSlot(t, 1)

	newFee := decimal.NewFromInt(95)
	resp, err := doctors.UpdateDoctor(env.ctx(), slot.DoctorID, &dto.UpdateDoctorRequest{
		Specialization: "Pediatrics",
		DefaultFee:     &newFee,
	})
	if err != nil {
		t.Fatalf("UpdateDoctor failed: %v", err)
	}

	if resp.Specialization != "Pediatrics" {
		t.Errorf("specialization = %q, want Pediatrics", resp.Specialization)
	}
	if !resp.DefaultFee.Equal(newFee) {
		t.Errorf("default_fee = %s, want %s", resp.DefaultFee, newFee)
	}
	// Untouched fields keep their values.
	if resp.FullName != "Dr. Test" {
		t.Errorf("full_name = %q, want unchanged", resp.FullName)
	}

	if _, err := doctors.UpdateDoctor(env.ctx(), uuid.New(), &dto.UpdateDoctorRequest{}); err != ErrDoctorNotFound {
		t.Errorf("missing doctor err = %v, want ErrDoctorNotFound", err)
	}
}

func TestDeactivateDoctor(t *testing.T) {
	env := newTestEnv(t)
	doctors := newDoctorUsecase(env)
	slot := env.createSlot(t, 1)

	if err := doctors.DeactivateDoctor(env.ctx(), slot.DoctorID); err != nil {
		t.Fatalf("DeactivateDoctor failed: %v", err)
	}

	var doctor entity.Doctor
	if err := env.db.Where("id = ?", slot.DoctorID).First(&doctor).Error; err != nil {
		t.Fatalf("failed to reload doctor: %v", err)
	}
	if doctor.IsActive == nil || *doctor.IsActive {
		t.Error("doctor still active after deactivation")
	}
}

func TestListHospitals(t *testing.T) {
	env := newTestEnv(t)
	doctors := newDoctorUsecase(env)
	seedHospital(t, env)
	seedHospital(t, env)

	list, err := doctors.ListHospitals(env.ctx())
	if err != nil {
		t.Fatalf("ListHospitals failed: %v", err)
	}
	if list.Total != 2 {
		t.Errorf("total = %d, want 2", list.Total)
	}
}
