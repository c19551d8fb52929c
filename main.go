package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/srgulbay/mikrocoach/internal/coach"
	"github.com/srgulbay/mikrocoach/internal/database"
	"github.com/srgulbay/mikrocoach/internal/excel"
	"github.com/srgulbay/mikrocoach/internal/leitner"
	"github.com/srgulbay/mikrocoach/internal/registry"
	"github.com/srgulbay/mikrocoach/internal/scheduler"
	"github.com/srgulbay/mikrocoach/internal/server"
	"github.com/srgulbay/mikrocoach/internal/session"
)

func main() {
	importFile := flag.String("import", "", "bulk-register items from an Excel/CSV file and exit")
	flag.Parse()

	// .env is optional; deployments may set the environment directly
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create a channel for signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Connect to the database
	if err := database.Connect(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	var resolver registry.Resolver
	if contentURL := os.Getenv("CONTENT_SERVICE_URL"); contentURL != "" {
		resolver = registry.NewClient(contentURL)
	} else {
		log.Println("CONTENT_SERVICE_URL is not set, using in-memory item registry")
		resolver = registry.NewFake()
	}

	boxes := leitner.DefaultConfig()
	coachService := coach.New(resolver, boxes)

	if *importFile != "" {
		config := excel.DefaultImportConfig()
		config.FilePath = *importFile
		result, err := excel.ImportEntries(context.Background(), coachService, config)
		if err != nil {
			log.Fatalf("Import failed: %v", err)
		}
		log.Printf("Import finished: %d processed, %d added, %d already tracked, %d errors",
			result.TotalProcessed, result.Added, result.AlreadyTracked, len(result.Errors))
		for _, msg := range result.Errors {
			log.Println(msg)
		}
		return
	}

	sessions := session.NewManager(coachService)
	api := server.NewAPIV1Service(coachService, sessions)
	e := server.NewEcho(api)

	sched := scheduler.New(scheduler.LogNotifier{}, boxes)
	if os.Getenv("DISABLE_REMINDERS") == "" {
		sched.Start()
		defer sched.Stop()
	}

	addr := os.Getenv("COACH_HTTP_ADDR")
	if addr == "" {
		addr = ":8094"
	}

	// Run the server
	log.Println("Coach started. Press Ctrl+C to stop.")
	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for a termination signal
	sig := <-sigChan
	log.Printf("Received signal: %v\n", sig)

	// Give in-flight requests time to finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Coach stopped successfully")
}
