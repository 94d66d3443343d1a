package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	Env            string
	DefaultLocale  string
	MongoURI       string
	MongoDB        string
	JWTSecret      string
	SessionTTL     time.Duration
	CompanyFile    string
	GeofenceMargin float64
	WorkStart      string
	Timezone       string
	S3Bucket       string
	S3Prefix       string
	MattermostURL  string
	AlertBotToken  string
	AlertChannelID string
}

func Load() *Config {
	// A missing .env is fine; real deployments set the environment.
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "3000"),
		Env:            getEnv("ENV", "development"),
		DefaultLocale:  getEnv("DEFAULT_LOCALE", "pt-BR"),
		MongoURI:       getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:        getEnv("MONGODB_DATABASE", "geoponto"),
		JWTSecret:      getEnv("JWT_SECRET", "development-secret"),
		SessionTTL:     getDuration("SESSION_TTL", 12*time.Hour),
		CompanyFile:    getEnv("COMPANY_FILE", "company.yaml"),
		GeofenceMargin: getFloat("GEOFENCE_MARGIN", 50),
		WorkStart:      getEnv("WORK_START", "09:00"),
		Timezone:       getEnv("TIMEZONE", "America/Sao_Paulo"),
		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3Prefix:       getEnv("S3_PREFIX", "selfies/"),
		MattermostURL:  strings.TrimRight(getEnv("MATTERMOST_URL", ""), "/"),
		AlertBotToken:  getEnv("ALERT_BOT_TOKEN", ""),
		AlertChannelID: getEnv("ALERT_CHANNEL_ID", ""),
	}
}

// Location resolves the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("invalid TIMEZONE %q, using UTC: %v", c.Timezone, err)
		return time.UTC
	}
	return loc
}

// Terminal is the configuration of the kiosk agent.
type Terminal struct {
	APIURL        string
	Email         string
	Password      string
	Role          string
	Locale        string
	DeviceInfo    string
	Address       string
	StationLat    *float64
	StationLng    *float64
	Margin        float64
	CameraDir     string
	OutboxPath    string
	QRDetectDelay time.Duration
	FinalizeDelay time.Duration
	SuccessTTL    time.Duration
	FlushInterval time.Duration
}

func LoadTerminal() *Terminal {
	_ = godotenv.Load()

	host, _ := os.Hostname()
	return &Terminal{
		APIURL:        strings.TrimRight(getEnv("API_URL", "http://localhost:3000"), "/"),
		Email:         getEnv("TERMINAL_EMAIL", ""),
		Password:      getEnv("TERMINAL_PASSWORD", ""),
		Role:          getEnv("TERMINAL_ROLE", "employee"),
		Locale:        getEnv("DEFAULT_LOCALE", "pt-BR"),
		DeviceInfo:    getEnv("DEVICE_INFO", "geoponto-terminal/"+host),
		Address:       getEnv("DEVICE_ADDRESS", ""),
		StationLat:    getOptionalFloat("STATION_LAT"),
		StationLng:    getOptionalFloat("STATION_LNG"),
		Margin:        getFloat("GEOFENCE_MARGIN", 50),
		CameraDir:     getEnv("CAMERA_DIR", "camera"),
		OutboxPath:    getEnv("OUTBOX_PATH", "outbox.db"),
		QRDetectDelay: getDuration("QR_DETECT_DELAY", 3*time.Second),
		FinalizeDelay: getDuration("FINALIZE_DELAY", 1500*time.Millisecond),
		SuccessTTL:    getDuration("SUCCESS_TTL", 3*time.Second),
		FlushInterval: getDuration("FLUSH_INTERVAL", 30*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid duration for %s: %s", key, v)
		return fallback
	}
	return d
}

func getFloat(key string, fallback float64) float64 {
	if f := getOptionalFloat(key); f != nil {
		return *f
	}
	return fallback
}

func getOptionalFloat(key string) *float64 {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("invalid number for %s: %s", key, v)
		return nil
	}
	return &f
}
