// Command admin is the operator CLI. It closes out complaints that have
// sat in Resolved longer than the given number of days, going through the
// same command surface the API uses so every close is logged in the
// update history.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"civicgo/backend/internal/complaint"
	"civicgo/backend/internal/config"
	"civicgo/backend/internal/models"
	"civicgo/backend/internal/storage"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	days := config.DefaultStaleResolvedDays
	if len(os.Args) > 1 {
		days, err = strconv.Atoi(os.Args[1])
		if err != nil || days < 1 {
			log.Fatalf("usage: admin [days]; days must be a positive number")
		}
	}

	// No redis needed for the admin CLI; change notifications and the
	// activity stream are skipped.
	storageSvc := storage.NewStorageService(db, nil)
	complaintSvc := complaint.NewService(storageSvc, nil)

	resolved, err := storageSvc.QueryComplaints(storage.Filter{Status: models.StatusResolved})
	if err != nil {
		log.Fatalf("failed to query resolved complaints: %v", err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	var stale []string
	for _, c := range resolved {
		if c.ResolvedAt != nil && c.ResolvedAt.Before(cutoff) {
			stale = append(stale, c.ID)
		}
	}
	if len(stale) == 0 {
		log.Printf("No complaints resolved more than %d days ago. Nothing to do.", days)
		return
	}

	note := fmt.Sprintf("Closed automatically: resolved more than %d days ago with no follow-up", days)
	actor := models.Actor{ID: "system", Name: "admin-cli", Role: "admin"}

	result, err := complaintSvc.BulkUpdateStatus(stale, models.StatusClosed, note, actor)
	if err != nil {
		log.Printf("WARNING: bulk close finished with failures: %v", err)
		for id, e := range result.Failed {
			log.Printf("  %s: %v", id, e)
		}
	}
	log.Printf("Closed %d of %d stale resolved complaints.", len(result.Succeeded), len(stale))
}
