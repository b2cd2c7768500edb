package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/tkvist/courtkeeper/internal/database"
	"github.com/tkvist/courtkeeper/internal/entry"
)

// Simplified config loading for the script
func loadConfig() map[string]string {
	err := godotenv.Load()
	if err != nil {
		log.Warn("No .env file found, reading from environment variables")
	}

	config := map[string]string{
		"DB_NAME":           "courtkeeper.db",
		"TURSO_PRIMARY_URL": "",
		"TURSO_AUTH_TOKEN":  "",
	}
	for key := range config {
		if value, ok := os.LookupEnv(key); ok {
			config[key] = value
		}
	}
	return config
}

var firstNames = []string{
	"Alma", "Bo", "Clara", "Dan", "Ella", "Frederik", "Gry", "Henrik",
	"Ida", "Jonas", "Karen", "Lars", "Mia", "Niels", "Olga", "Per",
	"Rikke", "Sofus", "Tove", "Ulrik",
}

func main() {
	count := flag.Int("count", 12, "number of players to seed")
	flag.Parse()

	log.Info("Starting database seeder...")
	cfg := loadConfig()

	db, teardown, err := database.Init(cfg["DB_NAME"], cfg["TURSO_PRIMARY_URL"], cfg["TURSO_AUTH_TOKEN"])
	if err != nil {
		log.Fatalf("Failed to open database: %s", err)
	}
	defer teardown()

	entries := entry.New(db)
	seeded := 0
	for i := 0; i < *count; i++ {
		name := firstNames[i%len(firstNames)]
		gender := "m"
		if i%2 == 0 {
			gender = "f"
		}
		// Spread skills out so the pairing strategies have something to chew on.
		mu := 20 + rand.Float64()*10
		sigma := 2 + rand.Float64()*6

		_, err := entries.Register(entry.RegisterParams{
			UserID:     fmt.Sprintf("seed-%d", i+1),
			Name:       fmt.Sprintf("%s %d", name, i+1),
			Gender:     gender,
			SkillMu:    mu,
			SkillSigma: sigma,
		})
		if err == entry.ErrAlreadyRegistered {
			log.Debug("Player already seeded", "index", i+1)
			continue
		}
		if err != nil {
			log.Fatalf("Failed to seed player %d: %s", i+1, err)
		}
		seeded++
	}

	log.Info("Seeding complete", "seeded", seeded, "requested", *count)
}
