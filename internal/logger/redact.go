package logger

import "strings"

const redacted = "***"

// sensitiveKeys are matched as substrings of a lower-cased field, header or query name.
var sensitiveKeys = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"authorization",
	"cookie",
	"api_key",
	"apikey",
	"api-key",
}

func isSensitive(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// redact masks value when key names a credential.
func redact(key, value string) string {
	if isSensitive(key) {
		return redacted
	}
	return value
}
