package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"ppemonitor/internal/config"
	"ppemonitor/internal/dto"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/model"
	"ppemonitor/internal/repository/sqlite"
	"ppemonitor/internal/service/ai"
	"ppemonitor/internal/service/compliance"
	"ppemonitor/internal/service/storage"
)

func main() {
	cfg := config.Load()

	snapshotDir := flag.String("snapshots", cfg.SnapshotDirectory, "Directory containing snapshots")
	dbPath := flag.String("db", cfg.DatabasePath, "Database path")
	analyze := flag.Bool("analyze", false, "Re-run compliance analysis to record detections")
	flag.Parse()

	cfg.SnapshotDirectory = *snapshotDir
	cfg.DatabasePath = *dbPath

	fmt.Printf("Indexing snapshots from %s into database %s\n", cfg.SnapshotDirectory, cfg.DatabasePath)

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	lg := logger.NewDiscard()
	snapshotRepo := sqlite.NewSnapshotRepository(db)
	snapshots := storage.NewSnapshotService(cfg, lg, snapshotRepo, sqlite.NewDetectionRepository(db))

	var analyzer *compliance.Analyzer
	if *analyze {
		detector := ai.NewComplianceDetector(cfg, lg)
		defer detector.Close()
		analyzer = compliance.NewAnalyzer(detector, ai.NewAnnotator(), cfg.ConfidenceThreshold, lg)
	}

	files, err := os.ReadDir(cfg.SnapshotDirectory)
	if err != nil {
		log.Fatalf("Failed to read snapshot directory: %v", err)
	}

	indexed, skipped := 0, 0
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !storage.IsSnapshotName(name) {
			continue
		}
		if _, err := storage.ParseSnapshotName(name); err != nil {
			log.Printf("⚠️  Skipping %s: %v", name, err)
			skipped++
			continue
		}

		exists, err := snapshotRepo.Exists(name)
		if err != nil {
			log.Printf("⚠️  Failed to check %s: %v", name, err)
			skipped++
			continue
		}
		if exists {
			continue
		}

		result := dto.ComplianceResult{AllRequiredPresent: true}
		if analyzer != nil {
			data, err := os.ReadFile(filepath.Join(cfg.SnapshotDirectory, name))
			if err != nil {
				log.Printf("⚠️  Failed to read %s: %v", name, err)
				skipped++
				continue
			}
			result = analyzer.Analyze(data)
		}

		if err := snapshots.Index("migrated", name, result); err != nil {
			log.Printf("⚠️  Failed to index %s: %v", name, err)
			skipped++
			continue
		}
		indexed++
	}

	if indexed == 0 {
		fmt.Println("No new snapshots found to index")
	} else {
		fmt.Printf("✅ Successfully indexed %d snapshots\n", indexed)
	}
	if skipped > 0 {
		fmt.Printf("⚠️  Skipped %d files (invalid format or errors)\n", skipped)
	}

	total, err := snapshotRepo.GetTotalCount(&model.SnapshotFilter{})
	if err == nil {
		nonCompliant, _ := snapshotRepo.GetTotalCount(&model.SnapshotFilter{OnlyNonCompliant: true})
		fmt.Printf("\n📊 Catalogue Statistics:\n")
		fmt.Printf("   Total snapshots: %d\n", total)
		fmt.Printf("   Missing equipment: %d\n", nonCompliant)
	}
}
