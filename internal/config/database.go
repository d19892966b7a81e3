package config

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"
)

// InitDatabase creates the database schema from scratch
// This is POC-friendly: auto-creates tables on startup
// Set DROP_TABLES_ON_STARTUP=true environment variable to drop existing tables
func InitDatabase(db *sql.DB) error {
	// Only drop tables if explicitly requested (via env var)
	// This prevents accidental data loss on restart
	if os.Getenv("DROP_TABLES_ON_STARTUP") == "true" {
		log.Println("Dropping existing tables (DROP_TABLES_ON_STARTUP=true)...")
		for _, table := range []string{"plan_meals", "diet_plans", "foods", "clients"} {
			if _, err := db.Exec("DROP TABLE IF EXISTS " + table + " CASCADE"); err != nil {
				log.Printf("Warning: Failed to drop %s table: %v", table, err)
			}
		}
	} else {
		log.Println("Skipping table drop (set DROP_TABLES_ON_STARTUP=true to drop tables on startup)")
	}

	// Create clients table
	log.Println("Creating clients table...")
	clientsSchema := `
	CREATE TABLE IF NOT EXISTS clients (
		id UUID PRIMARY KEY,
		full_name TEXT NOT NULL,
		dietitian_user_id UUID NOT NULL,
		allergies TEXT[] NOT NULL DEFAULT '{}',
		intolerances TEXT[] NOT NULL DEFAULT '{}',
		diet_pattern TEXT,
		egg_allowed BOOLEAN NOT NULL DEFAULT true,
		egg_avoid_days TEXT[] NOT NULL DEFAULT '{}',
		food_restrictions JSONB NOT NULL DEFAULT '[]',
		dislikes TEXT[] NOT NULL DEFAULT '{}',
		avoid_categories TEXT[] NOT NULL DEFAULT '{}',
		medical_conditions TEXT[] NOT NULL DEFAULT '{}',
		lab_derived_tags TEXT[] NOT NULL DEFAULT '{}',
		liked_food_ids UUID[] NOT NULL DEFAULT '{}',
		preferred_cuisines TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMP DEFAULT now(),
		updated_at TIMESTAMP DEFAULT now()
	);`

	if _, err := db.Exec(clientsSchema); err != nil {
		return fmt.Errorf("failed to create clients table: %w", err)
	}

	// Create foods table
	log.Println("Creating foods table...")
	foodsSchema := `
	CREATE TABLE IF NOT EXISTS foods (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		allergen_flags TEXT[] NOT NULL DEFAULT '{}',
		dietary_category TEXT,
		nutrition_tags TEXT[] NOT NULL DEFAULT '{}',
		health_flags TEXT[] NOT NULL DEFAULT '{}',
		cuisine_tags TEXT[] NOT NULL DEFAULT '{}',
		processing_level TEXT,
		meal_suitability_tags TEXT[] NOT NULL DEFAULT '{}',
		calories NUMERIC,
		protein_g NUMERIC,
		carbs_g NUMERIC,
		fats_g NUMERIC,
		created_at TIMESTAMP DEFAULT now()
	);`

	if _, err := db.Exec(foodsSchema); err != nil {
		return fmt.Errorf("failed to create foods table: %w", err)
	}

	// Create diet_plans table
	log.Println("Creating diet_plans table...")
	plansSchema := `
	CREATE TABLE IF NOT EXISTS diet_plans (
		id UUID PRIMARY KEY,
		client_id UUID NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
		calories_target NUMERIC,
		protein_target_g NUMERIC,
		carbs_target_g NUMERIC,
		fats_target_g NUMERIC,
		created_at TIMESTAMP DEFAULT now()
	);`

	if _, err := db.Exec(plansSchema); err != nil {
		return fmt.Errorf("failed to create diet_plans table: %w", err)
	}

	// Create plan_meals table (one row per food occurrence in a plan)
	log.Println("Creating plan_meals table...")
	planMealsSchema := `
	CREATE TABLE IF NOT EXISTS plan_meals (
		id UUID PRIMARY KEY,
		plan_id UUID NOT NULL REFERENCES diet_plans(id) ON DELETE CASCADE,
		food_id UUID NOT NULL REFERENCES foods(id) ON DELETE CASCADE,
		day_of_week TEXT NOT NULL,
		meal_type TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT now()
	);`

	if _, err := db.Exec(planMealsSchema); err != nil {
		return fmt.Errorf("failed to create plan_meals table: %w", err)
	}

	// Create indexes
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_clients_dietitian_user_id ON clients(dietitian_user_id)",
		"CREATE INDEX IF NOT EXISTS idx_foods_name ON foods(name)",
		"CREATE INDEX IF NOT EXISTS idx_diet_plans_client_id ON diet_plans(client_id)",
		"CREATE INDEX IF NOT EXISTS idx_plan_meals_plan_id ON plan_meals(plan_id)",
		"CREATE INDEX IF NOT EXISTS idx_plan_meals_food_id ON plan_meals(food_id)",
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			log.Printf("Warning: Failed to create index: %v", err)
		}
	}

	log.Println("Database schema initialized successfully")
	return nil
}

// ConnectDatabase establishes a connection to PostgreSQL with retry logic
func ConnectDatabase(databaseURL string, maxRetries int, retryDelay time.Duration) (*sql.DB, error) {
	var db *sql.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open("postgres", databaseURL)
		if err != nil {
			log.Printf("Failed to open database connection (attempt %d/%d): %v", i+1, maxRetries, err)
			if i < maxRetries-1 {
				time.Sleep(retryDelay)
				continue
			}
			return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
		}

		// Test the connection
		if err = db.Ping(); err != nil {
			log.Printf("Failed to ping database (attempt %d/%d): %v", i+1, maxRetries, err)
			db.Close()
			if i < maxRetries-1 {
				time.Sleep(retryDelay)
				continue
			}
			return nil, fmt.Errorf("failed to ping database after %d attempts: %w", maxRetries, err)
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		log.Println("Database connection established successfully")
		return db, nil
	}

	return nil, fmt.Errorf("failed to connect to database: %w", err)
}
