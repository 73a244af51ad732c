package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/travel-booking-backend/internal/config"
	"github.com/smarttransit/travel-booking-backend/internal/database"
	"github.com/smarttransit/travel-booking-backend/internal/models"
	"github.com/smarttransit/travel-booking-backend/internal/services"
	"github.com/spf13/pflag"
)

func main() {
	var (
		dbURLFlag string
		startFlag string
		days      int
		count     int
		seed      int64
		sample    bool
		migrate   bool
	)

	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flagSet.StringVar(&startFlag, "start", "", "first departure date, YYYY-MM-DD (default: today)")
	flagSet.IntVar(&days, "days", 30, "number of departure days to spread options over")
	flagSet.IntVar(&count, "count", 200, "number of random travel options to generate")
	flagSet.Int64Var(&seed, "seed", 0, "random seed (default: current time)")
	flagSet.BoolVar(&sample, "sample", false, "insert only the three New York to Los Angeles sample options")
	flagSet.BoolVar(&migrate, "migrate", true, "create tables before seeding")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		logrus.Fatal(err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set and --database-url was not provided")
	}

	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	})
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if migrate {
		if err := database.InitializeSchema(ctx, db); err != nil {
			logger.Fatalf("failed to initialize schema: %v", err)
		}
	}

	inventory := services.NewInventoryService(database.NewTravelOptionRepository(db), logger)

	var created int
	if sample {
		created, err = inventory.SeedSampleData(ctx)
	} else {
		start := time.Now().UTC()
		if startFlag != "" {
			date, perr := models.ParseDate(startFlag)
			if perr != nil {
				logger.Fatalf("invalid --start: %v", perr)
			}
			start = date.Time
		}
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng := rand.New(rand.NewSource(seed))
		created, err = inventory.Seed(ctx, services.GenerateTravelOptions(rng, start, days, count))
	}
	if err != nil {
		logger.Fatalf("failed to seed travel options: %v", err)
	}

	fmt.Printf("Seeded %d travel options.\n", created)
}
