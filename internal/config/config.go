package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              int
	CameraDevice      string
	FrameWidth        int
	FrameHeight       int
	PPEModelPath      string
	PPEConfigPath     string
	PersonModelPath   string
	PersonConfigPath  string
	PersonModelClass  int    // Class id of "person" in the person model output
	PPEClassOffset    int    // Subtracted from PPE model class ids (1 for models with a background class)
	PPEModelFormat    string // "yolo" or "ssd", see decode.Format
	PersonModelFormat string
	PPEInputSize      int
	PersonInputSize   int
	SnapshotDirectory string
	StaticDirectory   string
	DatabasePath      string
	LogDirectory      string

	HoldWindow          time.Duration // How long a person sighting is held before the snapshot
	Cooldown            time.Duration // Detection pause after a snapshot
	Debounce            time.Duration // Delay before the presence signal goes out
	ConfidenceThreshold float64
	PresenceSignal      string
	AdvisoryMessage     string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:         getEnvAsInt("PORT", 8001),
		CameraDevice: getEnv("CAMERA_DEVICE", "0"),
		FrameWidth:   getEnvAsInt("FRAME_WIDTH", 1280),
		FrameHeight:  getEnvAsInt("FRAME_HEIGHT", 720),
		// The PPE default is a YOLOv8 ONNX export (output [1, 4+classes, N], 640 input).
		// The person default is the TensorFlow SSD MobileNet graph (output rows of 7, 300 input).
		PPEModelPath:      getEnv("PPE_MODEL_PATH", filepath.Join(".", "models", "ppe.onnx")),
		PPEConfigPath:     getEnv("PPE_CONFIG_PATH", ""),
		PersonModelPath:   getEnv("PERSON_MODEL_PATH", filepath.Join(".", "models", "frozen_inference_graph.pb")),
		PersonConfigPath:  getEnv("PERSON_CONFIG_PATH", filepath.Join(".", "models", "ssd_mobilenet_v1_coco_2017_11_17.pbtxt")),
		PersonModelClass:  getEnvAsInt("PERSON_MODEL_CLASS", 1),
		PPEClassOffset:    getEnvAsInt("PPE_CLASS_OFFSET", 0),
		PPEModelFormat:    getEnv("PPE_MODEL_FORMAT", "yolo"),
		PersonModelFormat: getEnv("PERSON_MODEL_FORMAT", "ssd"),
		PPEInputSize:      getEnvAsInt("PPE_INPUT_SIZE", 640),
		PersonInputSize:   getEnvAsInt("PERSON_INPUT_SIZE", 300),
		SnapshotDirectory: getEnv("SNAPSHOT_DIR", "."),
		StaticDirectory:   getEnv("STATIC_DIR", "."),
		DatabasePath:      getEnv("DB_PATH", filepath.Join(".", "data", "snapshots.db")),
		LogDirectory:      getEnv("LOG_DIR", filepath.Join(".", "logs")),

		HoldWindow:          getEnvAsDuration("HOLD_WINDOW", 10*time.Second),
		Cooldown:            getEnvAsDuration("COOLDOWN", 10*time.Second),
		Debounce:            getEnvAsDuration("DEBOUNCE", 100*time.Millisecond),
		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.5),
		PresenceSignal:      getEnv("PRESENCE_SIGNAL", "X"),
		AdvisoryMessage:     getEnv("ADVISORY_MESSAGE", "Analise volta em 10"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("10s", "150ms") or plain seconds ("10").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
