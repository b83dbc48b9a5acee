package config

import (
	"os"
	"strings"
)

type Config struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	// AnswerSalt is appended to every canonicalized answer before hashing.
	// It is process-wide, not per-question.
	AnswerSalt string

	AuthSecret string

	// Bootstrap teacher account. Provisioned at startup only when both
	// values are set; TeacherPassHash is a bcrypt hash, never plaintext.
	TeacherUser     string
	TeacherPassHash string

	CORSOrigins []string

	Debug bool
}

func FromEnv() Config {
	return Config{
		HTTPAddr:        envOr("HTTP_ADDR", ":8080"),
		DBDriver:        envOr("DB_DRIVER", "sqlite"),
		DBDSN:           envOr("DB_DSN", ""),
		AnswerSalt:      envOr("ANSWER_SALT", "quizdesk_static_salt"),
		AuthSecret:      envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		TeacherUser:     os.Getenv("TEACHER_USER"),
		TeacherPassHash: os.Getenv("TEACHER_PASS_HASH"),
		CORSOrigins:     csvOr("CORS_ORIGINS", "http://localhost:3000"),
		Debug:           envBool("DEBUG", false),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
