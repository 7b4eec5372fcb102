package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/naricare/consultation-scheduling/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	expertIDs, err := seedExperts(context.Background(), pool, 40)
	if err != nil {
		log.Fatalf("seed experts: %v", err)
	}
	clientIDs, err := seedClients(context.Background(), pool, 2000)
	if err != nil {
		log.Fatalf("seed clients: %v", err)
	}
	if err := seedAvailability(context.Background(), pool, expertIDs); err != nil {
		log.Fatalf("seed availability: %v", err)
	}
	if err := seedConsultations(context.Background(), pool, expertIDs, clientIDs, 500); err != nil {
		log.Fatalf("seed consultations: %v", err)
	}

	log.Println("seed complete")
}

func seedExperts(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d experts", count)

	credentials := []string{
		"IBCLC",
		"CLC",
		"CLE",
		"RN IBCLC",
		"MD IBCLC",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		cred := credentials[gofakeit.Number(0, len(credentials)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO experts (id, name, credential, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, cred)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("experts seeded")
	return ids, nil
}

func seedClients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d clients", count)

	const batchSize = 500

	ids := make([]uuid.UUID, 0, count)
	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO clients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		log.Printf("clients seeded: %d/%d", end, count)
	}

	log.Println("clients seeded")
	return ids, nil
}

// seedAvailability gives each expert a couple of wall-clock windows per day
// for the next two weeks.
func seedAvailability(ctx context.Context, pool *pgxpool.Pool, expertIDs []uuid.UUID) error {
	log.Printf("seeding availability for %d experts", len(expertIDs))

	windows := [][2]string{
		{"09:00", "12:00"},
		{"13:00", "17:00"},
		{"14:00", "18:00"},
		{"10:00", "13:00"},
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	for _, expertID := range expertIDs {
		for d := 0; d < 14; d++ {
			day := today.AddDate(0, 0, d).Format("2006-01-02")
			n := gofakeit.Number(1, 2)
			for w := 0; w < n; w++ {
				win := windows[gofakeit.Number(0, len(windows)-1)]
				_, err := tx.Exec(ctx, `
					INSERT INTO expert_availability (id, expert_id, day, start_time, end_time, is_available, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, $6, now(), now())
				`, uuid.New(), expertID, day, win[0], win[1], gofakeit.Number(0, 9) > 0)
				if err != nil {
					return err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("availability seeded")
	return nil
}

func seedConsultations(ctx context.Context, pool *pgxpool.Pool, expertIDs, clientIDs []uuid.UUID, count int) error {
	log.Printf("seeding %d consultations", count)

	statuses := []string{"scheduled", "scheduled", "scheduled", "in-progress", "completed", "completed", "cancelled"}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	for i := 0; i < count; i++ {
		id := uuid.New()
		clientID := clientIDs[gofakeit.Number(0, len(clientIDs)-1)]
		expertID := expertIDs[gofakeit.Number(0, len(expertIDs)-1)]
		status := statuses[gofakeit.Number(0, len(statuses)-1)]

		// Scatter scheduled times a week either side of now, on half hours.
		offsetMins := gofakeit.Number(-7*24*60, 7*24*60)
		scheduledAt := now.Add(time.Duration(offsetMins) * time.Minute).Truncate(30 * time.Minute)
		link := "https://meet.naricare.app/room/" + id.String()

		_, err := tx.Exec(ctx, `
			INSERT INTO consultations (id, client_id, expert_id, scheduled_at, status, meeting_link, topic, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		`, id, clientID, expertID, scheduledAt, status, link, gofakeit.Sentence(4))
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("consultations seeded")
	return nil
}
