package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saude/clinic-scheduling/internal/db"
)

var specialties = []string{
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

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	clinics, err := seedClinics(context.Background(), pool, 5)
	if err != nil {
		log.Fatalf("seed clinics: %v", err)
	}
	doctors, err := seedDoctors(context.Background(), pool, clinics, 60)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 5000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedSlots(context.Background(), pool, doctors, 30); err != nil {
		log.Fatalf("seed slots: %v", err)
	}

	log.Println("seed complete")
}

type seededDoctor struct {
	taxID     string
	specialty string
	clinic    string
	weekdays  []int
}

func seedClinics(ctx context.Context, pool *pgxpool.Pool, count int) ([]string, error) {
	log.Printf("seeding %d clinics", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	names := make([]string, 0, count)
	for i := 0; i < count; i++ {
		name := fmt.Sprintf("Clinic%s", gofakeit.LastName())
		addr := gofakeit.Address().Address

		_, err := tx.Exec(ctx, `
			INSERT INTO clinics (name, address)
			VALUES ($1, $2)
			ON CONFLICT (name) DO NOTHING
		`, name, addr)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("clinics seeded")
	return names, nil
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, clinics []string, count int) ([]seededDoctor, error) {
	log.Printf("seeding %d doctors", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	doctors := make([]seededDoctor, 0, count)
	for i := 0; i < count; i++ {
		d := seededDoctor{
			taxID:     fmt.Sprintf("%09d", 100000000+i),
			specialty: specialties[gofakeit.Number(0, len(specialties)-1)],
			clinic:    clinics[gofakeit.Number(0, len(clinics)-1)],
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (tax_id, name, specialty)
			VALUES ($1, $2, $3)
		`, d.taxID, gofakeit.Name(), d.specialty)
		if err != nil {
			return nil, err
		}

		// Monday to Friday, a random subset of 3 days.
		for _, weekday := range pickWeekdays(3) {
			d.weekdays = append(d.weekdays, weekday)
			_, err := tx.Exec(ctx, `
				INSERT INTO doctor_clinics (doctor_tax_id, clinic_name, weekday)
				VALUES ($1, $2, $3)
			`, d.taxID, d.clinic, weekday)
			if err != nil {
				return nil, err
			}
		}

		doctors = append(doctors, d)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return doctors, nil
}

func pickWeekdays(n int) []int {
	days := []int{1, 2, 3, 4, 5}
	gofakeit.ShuffleInts(days)
	return days[:n]
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			ssn := fmt.Sprintf("%09d", 200000000+i)

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (ssn, name)
				VALUES ($1, $2)
			`, ssn, gofakeit.Name())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	return nil
}

// seedSlots fills the working-slot grid for the next `days` days: half-hour
// steps over 08:00-13:00 and 14:00-20:00 on each doctor's working weekdays.
func seedSlots(ctx context.Context, pool *pgxpool.Pool, doctors []seededDoctor, days int) error {
	log.Printf("seeding slots for %d doctors over %d days", len(doctors), days)

	times := slotGrid()

	for _, d := range doctors {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for day := 0; day < days; day++ {
			date := time.Now().AddDate(0, 0, day)
			if !worksOn(d, int(date.Weekday())) {
				continue
			}
			for _, t := range times {
				_, err := tx.Exec(ctx, `
					INSERT INTO doctor_slots (doctor_tax_id, clinic_name, specialty, slot_date, slot_time)
					VALUES ($1, $2, $3, $4::date, $5::time)
					ON CONFLICT DO NOTHING
				`, d.taxID, d.clinic, d.specialty, date.Format("2006-01-02"), t)
				if err != nil {
					_ = tx.Rollback(ctx)
					return err
				}
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}

	log.Println("slots seeded")
	return nil
}

func worksOn(d seededDoctor, weekday int) bool {
	for _, wd := range d.weekdays {
		if wd == weekday {
			return true
		}
	}
	return false
}

func slotGrid() []string {
	var times []string
	for hour := 8; hour <= 12; hour++ {
		times = append(times, fmt.Sprintf("%02d:00", hour), fmt.Sprintf("%02d:30", hour))
	}
	times = append(times, "13:00")
	for hour := 14; hour <= 19; hour++ {
		times = append(times, fmt.Sprintf("%02d:00", hour), fmt.Sprintf("%02d:30", hour))
	}
	times = append(times, "20:00")
	return times
}
