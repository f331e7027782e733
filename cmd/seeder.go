package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		if clearData {
			for _, table := range []string{"chat_messages", "refund_requests", "transactions", "payments", "bookings", "cars", "agencies", "users"} {
				if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		renterID := seedUser(db, "renter@mail.com", "Rami Renter", "user", string(hash))
		agencyUserID := seedUser(db, "agency@mail.com", "Aya Agency", "agency", string(hash))
		seedUser(db, "admin@mail.com", "Admin", "admin", string(hash))

		agencyID := seedAgency(db, agencyUserID, "City Wheels")

		carID := seedCar(db, agencyID, "Toyota", "Corolla", 50)
		seedCar(db, agencyID, "Volkswagen", "Golf", 65)

		start := time.Now().AddDate(0, 0, 10)
		end := start.AddDate(0, 0, 2)
		seedBooking(db, renterID, carID, start, end, 100)

		fmt.Println("Seed complete. Sample accounts use password:", password)
	},
}

func seedUser(db *sqlx.DB, email, name, role, hash string) int64 {
	var id int64
	if err := db.QueryRow("SELECT id FROM users WHERE email = $1", email).Scan(&id); err == nil {
		fmt.Println("user already exists:", email)
		return id
	}

	err := db.QueryRow(
		"INSERT INTO users (email, name, password_hash, role, is_active, created_at, updated_at) VALUES ($1, $2, $3, $4, true, now(), now()) RETURNING id",
		email, name, hash, role,
	).Scan(&id)
	if err != nil {
		log.Fatalf("failed to insert user %s: %v", email, err)
	}
	fmt.Println("Seeded user:", email)
	return id
}

func seedAgency(db *sqlx.DB, userID int64, name string) int64 {
	var id int64
	if err := db.QueryRow("SELECT id FROM agencies WHERE user_id = $1", userID).Scan(&id); err == nil {
		return id
	}

	err := db.QueryRow(
		"INSERT INTO agencies (user_id, name, created_at, updated_at) VALUES ($1, $2, now(), now()) RETURNING id",
		userID, name,
	).Scan(&id)
	if err != nil {
		log.Fatalf("failed to insert agency %s: %v", name, err)
	}
	fmt.Println("Seeded agency:", name)
	return id
}

func seedCar(db *sqlx.DB, agencyID int64, carMake, model string, pricePerDay float64) int64 {
	var id int64
	if err := db.QueryRow("SELECT id FROM cars WHERE agency_id = $1 AND model = $2", agencyID, model).Scan(&id); err == nil {
		return id
	}

	err := db.QueryRow(
		"INSERT INTO cars (agency_id, make, model, price_per_day, created_at, updated_at) VALUES ($1, $2, $3, $4, now(), now()) RETURNING id",
		agencyID, carMake, model, pricePerDay,
	).Scan(&id)
	if err != nil {
		log.Fatalf("failed to insert car %s %s: %v", carMake, model, err)
	}
	fmt.Println("Seeded car:", carMake, model)
	return id
}

func seedBooking(db *sqlx.DB, userID, carID int64, start, end time.Time, totalCost float64) int64 {
	var id int64
	if err := db.QueryRow("SELECT id FROM bookings WHERE user_id = $1 AND car_id = $2", userID, carID).Scan(&id); err == nil {
		return id
	}

	err := db.QueryRow(
		"INSERT INTO bookings (user_id, car_id, start_date, end_date, total_cost, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, 'pending', now(), now()) RETURNING id",
		userID, carID, start, end, totalCost,
	).Scan(&id)
	if err != nil {
		log.Fatalf("failed to insert booking: %v", err)
	}
	fmt.Println("Seeded booking:", id)
	return id
}
