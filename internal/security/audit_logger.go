package security

import (
	"crypto/sha256"
	"fmt"

	"github.com/rs/zerolog/log"
)

// AuditLogger logs security-relevant events with hashed identifiers
type AuditLogger struct {
	enabled bool
}

func NewAuditLogger(enabled bool) *AuditLogger {
	return &AuditLogger{enabled: enabled}
}

// LogAskRequest records an agent question/answer exchange
func (a *AuditLogger) LogAskRequest(question, apiKey string, success bool, executionTimeMs int64) {
	if !a.enabled {
		return
	}
	questionHash := hashStr(question)[:16]
	keyHash := hashStr(apiKey)[:16]

	log.Info().
		Str("event", "ask_audit").
		Str("question_hash", questionHash).
		Str("api_key_hash", keyHash).
		Bool("success", success).
		Int64("execution_time_ms", executionTimeMs).
		Msg("ask audit")
}

// LogQuery records a direct structured query execution
func (a *AuditLogger) LogQuery(spec, apiKey string, rowCount int, executionTimeMs int64, success bool, errMsg string) {
	if !a.enabled {
		return
	}
	specHash := hashStr(spec)[:16]
	keyHash := hashStr(apiKey)[:16]

	evt := log.Info().
		Str("event", "query_audit").
		Str("spec_hash", specHash).
		Str("api_key_hash", keyHash).
		Int("row_count", rowCount).
		Int64("execution_time_ms", executionTimeMs).
		Bool("success", success)

	if errMsg != "" {
		evt = evt.Str("error", errMsg)
	}
	evt.Msg("audit")
}

func hashStr(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h)
}
