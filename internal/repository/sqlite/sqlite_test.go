package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ppemonitor/internal/model"
)

// ========================================
// Test Setup Helpers
// ========================================

func setupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "snapshot_db_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	db, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("Failed to create test database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(tempDir)
	}

	return db, cleanup
}

func insertSnapshot(t *testing.T, repo *SnapshotRepository, filename string, ts time.Time, ok bool, detections ...model.Detection) int64 {
	t.Helper()

	id, err := repo.Insert(&model.Snapshot{
		Filename:           filename,
		SessionID:          "session-1",
		Timestamp:          ts,
		FilePath:           "/snapshots/" + filename,
		FileSize:           1024,
		AllRequiredPresent: ok,
	}, detections)
	if err != nil {
		t.Fatalf("Insert(%s) failed: %v", filename, err)
	}
	return id
}

// ========================================
// Snapshot Repository Tests
// ========================================

func TestDatabase_Connection(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist")
	}
}

func TestSnapshotRepository_InsertAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSnapshotRepository(db)
	ts := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	id := insertSnapshot(t, repo, "result_photo_1750000000.jpg", ts, false)
	if id <= 0 {
		t.Fatalf("Expected positive id, got %d", id)
	}

	got, err := repo.GetByFilename("result_photo_1750000000.jpg")
	if err != nil {
		t.Fatalf("GetByFilename failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected snapshot, got nil")
	}
	if got.ID != id || got.SessionID != "session-1" || got.FileSize != 1024 {
		t.Errorf("Unexpected snapshot %+v", got)
	}
	if got.AllRequiredPresent {
		t.Error("Expected AllRequiredPresent=false to round-trip")
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("Expected timestamp %v, got %v", ts, got.Timestamp)
	}
}

func TestSnapshotRepository_GetByFilename_Missing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	got, err := NewSnapshotRepository(db).GetByFilename("ghost.jpg")
	if err != nil {
		t.Fatalf("GetByFilename failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing snapshot, got %+v", got)
	}
}

func TestSnapshotRepository_DuplicateFilename(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSnapshotRepository(db)
	insertSnapshot(t, repo, "dup.jpg", time.Now(), true)

	if _, err := repo.Insert(&model.Snapshot{Filename: "dup.jpg", Timestamp: time.Now(), FilePath: "dup.jpg"}, nil); err == nil {
		t.Error("Expected error inserting duplicate filename")
	}
}

func TestSnapshotRepository_GetAll_NewestFirstWithPaging(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSnapshotRepository(db)
	base := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		insertSnapshot(t, repo, fmt.Sprintf("snap_%d.jpg", i), base.Add(time.Duration(i)*time.Minute), i%2 == 0)
	}

	all, err := repo.GetAll(&model.SnapshotFilter{})
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("Expected 5 snapshots, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Timestamp.After(all[i-1].Timestamp) {
			t.Errorf("Snapshots not ordered newest first at %d", i)
		}
	}

	page, err := repo.GetAll(&model.SnapshotFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("GetAll with paging failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("Expected 2 snapshots on page, got %d", len(page))
	}
	if page[0].ID != all[2].ID {
		t.Errorf("Expected page to start at third snapshot")
	}
}

func TestSnapshotRepository_FilterNonCompliant(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSnapshotRepository(db)
	insertSnapshot(t, repo, "ok.jpg", time.Now(), true)
	insertSnapshot(t, repo, "bad1.jpg", time.Now(), false)
	insertSnapshot(t, repo, "bad2.jpg", time.Now(), false)

	filter := &model.SnapshotFilter{OnlyNonCompliant: true}
	count, err := repo.GetTotalCount(filter)
	if err != nil {
		t.Fatalf("GetTotalCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 non-compliant snapshots, got %d", count)
	}

	total, err := repo.GetTotalCount(nil)
	if err != nil {
		t.Fatalf("GetTotalCount(nil) failed: %v", err)
	}
	if total != 3 {
		t.Errorf("Expected 3 snapshots in total, got %d", total)
	}
}

func TestSnapshotRepository_FilterByLabel(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	snapshots := NewSnapshotRepository(db)
	insertSnapshot(t, snapshots, "a.jpg", time.Now(), false, model.Detection{Label: "NO-Mask", Confidence: 0.8})
	insertSnapshot(t, snapshots, "b.jpg", time.Now(), true)

	got, err := snapshots.GetAll(&model.SnapshotFilter{Label: "NO-Mask"})
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(got) != 1 || got[0].Filename != "a.jpg" {
		t.Errorf("Expected only a.jpg, got %+v", got)
	}
}

func TestSnapshotRepository_InsertRollsBackOnDetectionFailure(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := db.Conn().Exec(`
		CREATE TRIGGER reject_detection BEFORE INSERT ON detections
		WHEN NEW.label = 'reject'
		BEGIN SELECT RAISE(ABORT, 'rejected'); END;
	`)
	if err != nil {
		t.Fatalf("Failed to create trigger: %v", err)
	}

	snapshots := NewSnapshotRepository(db)
	_, err = snapshots.Insert(&model.Snapshot{Filename: "partial.jpg", Timestamp: time.Now(), FilePath: "partial.jpg"},
		[]model.Detection{{Label: "Hardhat", Confidence: 0.9}, {Label: "reject", Confidence: 0.9}})
	if err == nil {
		t.Fatal("Expected insert to fail")
	}

	exists, err := snapshots.Exists("partial.jpg")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("Snapshot row should be rolled back with its detections")
	}

	var left int
	if err := db.Conn().QueryRow(`SELECT COUNT(*) FROM detections`).Scan(&left); err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if left != 0 {
		t.Errorf("Expected no detections left behind, got %d", left)
	}
}

// ========================================
// Detection Repository Tests
// ========================================

func TestDetectionRepository_GetBySnapshotID(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	id := insertSnapshot(t, NewSnapshotRepository(db), "labels.jpg", time.Now(), false,
		model.Detection{Label: "NO-Mask", X: 1, Y: 2, Width: 3, Height: 4, Confidence: 0.7},
		model.Detection{Label: "Hardhat", Confidence: 0.9},
		model.Detection{Label: "NO-Mask", Confidence: 0.6},
	)

	dets, err := NewDetectionRepository(db).GetBySnapshotID(id)
	if err != nil {
		t.Fatalf("GetBySnapshotID failed: %v", err)
	}
	if len(dets) != 3 {
		t.Fatalf("Expected 3 detections, got %d", len(dets))
	}
	if dets[0].SnapshotID != id || dets[0].X != 1 || dets[0].Height != 4 || dets[0].Label != "NO-Mask" {
		t.Errorf("Unexpected first detection %+v", dets[0])
	}
	if dets[1].Label != "Hardhat" {
		t.Errorf("Expected insertion order, got %+v", dets)
	}
}

func TestDetectionRepository_GetBySnapshotID_None(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	id := insertSnapshot(t, NewSnapshotRepository(db), "empty.jpg", time.Now(), true)

	dets, err := NewDetectionRepository(db).GetBySnapshotID(id)
	if err != nil {
		t.Fatalf("GetBySnapshotID failed: %v", err)
	}
	if len(dets) != 0 {
		t.Errorf("Expected no detections, got %v", dets)
	}
}
