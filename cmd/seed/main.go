package main

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/AutoMap-DE/AutoMap-Backend/internal/config"
	"github.com/AutoMap-DE/AutoMap-Backend/internal/db"
	"github.com/AutoMap-DE/AutoMap-Backend/internal/kv"
	"github.com/AutoMap-DE/AutoMap-Backend/internal/tags"
)

// Seeds a handful of demo machines around the default map center (Bohlingen)
// through the real submission path, so threshold and dedup rules apply.
func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	db.Connect()
	if err := kv.Init(db.DB); err != nil {
		log.Fatal("Failed to init kv schema: ", err)
	}

	svc, err := tags.NewService(cfg, kv.NewGormStore(db.DB))
	if err != nil {
		log.Fatal("Failed to restore snapshot: ", err)
	}

	spots := []struct {
		lat, lng float64
		devices  int
		notes    string
	}{
		{47.718915, 8.892817, 5, "Getränkeautomat am Dorfplatz"},
		{47.721400, 8.898200, 3, "Snackautomat beim Bahnhof"},
		{47.715200, 8.885900, 1, "Zigarettenautomat, Ecke Hauptstraße"},
	}

	for _, spot := range spots {
		for i := 0; i < spot.devices; i++ {
			deviceID := fmt.Sprintf("seed-device-%02d", i)
			notes := ""
			if i == 0 {
				notes = spot.notes
			}
			if _, err := svc.SubmitTag(spot.lat, spot.lng, deviceID, notes); err != nil {
				log.Printf("seed tag at (%f, %f) by %s: %v", spot.lat, spot.lng, deviceID, err)
			}
		}
	}

	stats := svc.Stats()
	log.Printf("Seeded: %d machines (%d validated, %d pending)",
		stats.Total, stats.Validated, stats.Pending)
}
