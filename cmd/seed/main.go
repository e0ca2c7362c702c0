package main

import (
	"fmt"
	"time"

	"agent-booking-portal/config"
	"agent-booking-portal/internal/domain/entity"
	"agent-booking-portal/internal/infrastructure/database"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Development seeder: hospitals, doctors, two weeks of slot inventory and a
// couple of portal accounts. Run once against an empty, migrated database.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewPostgresConnection(cfg.DB)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedUsers(db); err != nil {
		logrus.Fatalf("Failed to seed users: %v", err)
	}

	hospitals, err := seedHospitals(db, 5)
	if err != nil {
		logrus.Fatalf("Failed to seed hospitals: %v", err)
	}

	doctors, err := seedDoctors(db, hospitals, 40)
	if err != nil {
		logrus.Fatalf("Failed to seed doctors: %v", err)
	}

	if err := seedTimeSlots(db, doctors, 14); err != nil {
		logrus.Fatalf("Failed to seed time slots: %v", err)
	}

	logrus.Info("Seed complete")
}

func seedUsers(db *gorm.DB) error {
	users := []entity.User{
		{Email: "admin@portal.local", FullName: "Portal Admin", Role: entity.RoleAdmin},
		{Email: "agent@portal.local", FullName: "Booking Agent", Role: entity.RoleAgent},
	}
	for i := range users {
		if err := db.Create(&users[i]).Error; err != nil {
			return err
		}
	}
	logrus.Infof("Seeded %d users", len(users))
	return nil
}

func seedHospitals(db *gorm.DB, count int) ([]entity.Hospital, error) {
	hospitals := make([]entity.Hospital, 0, count)
	for i := 0; i < count; i++ {
		hospital := entity.Hospital{
			Name:    fmt.Sprintf("%s Medical Center", gofakeit.City()),
			Address: gofakeit.Address().Address,
			Phone:   gofakeit.Phone(),
		}
		if err := db.Create(&hospital).Error; err != nil {
			return nil, err
		}
		hospitals = append(hospitals, hospital)
	}
	logrus.Infof("Seeded %d hospitals", len(hospitals))
	return hospitals, nil
}

func seedDoctors(db *gorm.DB, hospitals []entity.Hospital, count int) ([]entity.Doctor, error) {
	specializations := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	doctors := make([]entity.Doctor, 0, count)
	for i := 0; i < count; i++ {
		doctor := entity.Doctor{
			HospitalID:     hospitals[gofakeit.Number(0, len(hospitals)-1)].ID,
			FullName:       "Dr. " + gofakeit.Name(),
			Specialization: specializations[gofakeit.Number(0, len(specializations)-1)],
			DefaultFee:     decimal.NewFromInt(int64(gofakeit.Number(30, 200))),
		}
		if err := db.Create(&doctor).Error; err != nil {
			return nil, err
		}
		doctors = append(doctors, doctor)
	}
	logrus.Infof("Seeded %d doctors", len(doctors))
	return doctors, nil
}

func seedTimeSlots(db *gorm.DB, doctors []entity.Doctor, days int) error {
	windows := [][2]string{
		{"09:00", "10:00"},
		{"10:00", "11:00"},
		{"11:00", "12:00"},
		{"14:00", "15:00"},
		{"15:00", "16:00"},
	}

	today := time.Now().Truncate(24 * time.Hour)
	total := 0
	for _, doctor := range doctors {
		for day := 0; day < days; day++ {
			date := today.AddDate(0, 0, day)
			// Weekends have no consultation hours.
			if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
				continue
			}
			for _, window := range windows {
				slot := entity.TimeSlot{
					DoctorID:        doctor.ID,
					SlotDate:        date,
					StartTime:       window[0],
					EndTime:         window[1],
					MaxAppointments: gofakeit.Number(2, 8),
					ConsultationFee: doctor.DefaultFee,
				}
				if err := db.Create(&slot).Error; err != nil {
					return err
				}
				total++
			}
		}
	}
	logrus.Infof("Seeded %d time slots", total)
	return nil
}
