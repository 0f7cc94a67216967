package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Mahanbrianj98/PDF-Restructure/internal/models"
)

// Config holds the full runtime configuration for a sorting run. Values come
// from defaults, then an optional YAML file, then PDFSORT_* environment
// variables (a .env file in the working directory is honored).
type Config struct {
	// Templates is the path to the template rule-set JSON.
	Templates string `yaml:"templates"`
	// OutputRoot is the directory that receives per-category folders.
	OutputRoot string `yaml:"outputRoot"`
	// Mode selects the output shape: "images" or "pdf".
	Mode string `yaml:"mode"`
	// Engine selects text extraction: "native" (text layer) or "ocr".
	Engine string `yaml:"engine"`
	// DPI is the rasterization resolution.
	DPI float64 `yaml:"dpi"`
	// Workers bounds the page worker pool. Zero means host parallelism.
	Workers int `yaml:"workers"`
	// NameField names the extracted field used to name saved images.
	NameField string `yaml:"nameField"`
	// OCRLanguages is passed to Tesseract in ocr mode.
	OCRLanguages []string `yaml:"ocrLanguages"`

	Log LogConfig `yaml:"log"`
}

// LogConfig mirrors the logger options exposed in the config file.
type LogConfig struct {
	Level       string   `yaml:"level"`
	Encoding    string   `yaml:"encoding"`
	OutputPaths []string `yaml:"outputPaths"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Templates:    "templates.json",
		OutputRoot:   "sorted",
		Mode:         "pdf",
		Engine:       "native",
		DPI:          150,
		Workers:      runtime.NumCPU(),
		NameField:    "order_number",
		OCRLanguages: []string{"eng"},
		Log: LogConfig{
			Level:       "info",
			Encoding:    "console",
			OutputPaths: []string{"stdout", "logs/pdfsort.log"},
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (optional when
// path is empty), and environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, models.NewConfigError("read config file", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, models.NewConfigError("parse config file", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	// Best effort; absence of a .env file is the normal case.
	_ = godotenv.Load()

	if v := os.Getenv("PDFSORT_TEMPLATES"); v != "" {
		c.Templates = v
	}
	if v := os.Getenv("PDFSORT_OUTPUT"); v != "" {
		c.OutputRoot = v
	}
	if v := os.Getenv("PDFSORT_MODE"); v != "" {
		c.Mode = v
	}
	if v := os.Getenv("PDFSORT_ENGINE"); v != "" {
		c.Engine = v
	}
	if v := os.Getenv("PDFSORT_DPI"); v != "" {
		if dpi, err := strconv.ParseFloat(v, 64); err == nil {
			c.DPI = dpi
		}
	}
	if v := os.Getenv("PDFSORT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv("PDFSORT_NAME_FIELD"); v != "" {
		c.NameField = v
	}
	if v := os.Getenv("PDFSORT_OCR_LANGUAGES"); v != "" {
		c.OCRLanguages = strings.Split(v, ",")
	}
	if v := os.Getenv("PDFSORT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate rejects values no component can act on.
func (c *Config) Validate() error {
	switch c.Mode {
	case "images", "pdf":
	default:
		return models.NewConfigError("mode must be \"images\" or \"pdf\", got "+strconv.Quote(c.Mode), nil)
	}
	switch c.Engine {
	case "native", "ocr":
	default:
		return models.NewConfigError("engine must be \"native\" or \"ocr\", got "+strconv.Quote(c.Engine), nil)
	}
	if c.DPI <= 0 {
		return models.NewConfigError("dpi must be positive", nil)
	}
	if c.Workers < 0 {
		return models.NewConfigError("workers must not be negative", nil)
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	return nil
}
