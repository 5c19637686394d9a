package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"leadflow/internal/platform/config"
	"leadflow/internal/platform/database"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	dir := flag.String("dir", "migrations", "Migration directory")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	files, err := os.ReadDir(*dir)
	if err != nil {
		log.Fatalf("Failed to read migration directory: %v", err)
	}

	// ReadDir sorts by name, so the NNN_ prefix gives execution order
	for _, file := range files {
		if filepath.Ext(file.Name()) != ".sql" {
			continue
		}
		content, err := os.ReadFile(filepath.Join(*dir, file.Name()))
		if err != nil {
			log.Fatalf("Failed to read migration %s: %v", file.Name(), err)
		}

		log.Printf("Applying migration: %s", file.Name())
		if _, err := db.Exec(string(content)); err != nil {
			log.Fatalf("Failed to execute migration %s: %v", file.Name(), err)
		}
	}

	fmt.Println("Migration completed successfully")
}
