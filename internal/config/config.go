package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env               string
	Port              string
	DatabaseURL       string
	StorageDir        string // root directory of the on-disk blob store
	WSURI             string // remote group lookup endpoint (GET with ?code=)
	WSUser            string // optional basic-auth user for the group lookup
	WSPassword        string // optional basic-auth password for the group lookup
	DefaultEmail      string // template for missing emails: {index}, {username}, {firstname}, {lastname}; "creator" = issuing operator's email
	VerifyBaseURL     string // base URL of the certificate verification endpoint
	CertDateFormat    string // Go layout used for the date printed on certificates
	ObjectiveCodeRule string // "course" (unique per course) or "global"
	BrevoAPIKey       string
	MailFrom          string
	CORSSuffix        string // allowed CORS origin suffix, e.g. ".example.org"
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL")
	if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}

	dateFormat := viper.GetString("CERT_DATE_FORMAT")
	if dateFormat == "" {
		dateFormat = "2 January 2006"
	}

	codeRule := strings.ToLower(viper.GetString("OBJECTIVE_CODE_POLICY"))
	if codeRule != "global" {
		codeRule = "course"
	}

	storageDir := viper.GetString("STORAGE_DIR")
	if storageDir == "" {
		storageDir = "./data/blobs"
	}

	return &Config{
		Env:               env,
		Port:              port,
		DatabaseURL:       dbURL,
		StorageDir:        storageDir,
		WSURI:             viper.GetString("WS_URI"),
		WSUser:            viper.GetString("WS_USER"),
		WSPassword:        viper.GetString("WS_PASSWORD"),
		DefaultEmail:      viper.GetString("DEFAULT_EMAIL"),
		VerifyBaseURL:     verifyBaseURL(viper.GetString("VERIFY_BASE_URL")),
		CertDateFormat:    dateFormat,
		ObjectiveCodeRule: codeRule,
		BrevoAPIKey:       viper.GetString("BREVO_API_KEY"),
		MailFrom:          viper.GetString("MAIL_FROM"),
		CORSSuffix:        viper.GetString("CORS_ALLOWED_SUFFIX"),
	}, nil
}

func verifyBaseURL(s string) string {
	s = strings.TrimSpace(strings.TrimRight(s, "/"))
	if s == "" {
		return "http://localhost:8080/verify"
	}
	return s
}
