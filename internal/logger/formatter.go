package logger

import (
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
	"time"
)

func jobName() string {
	if name := os.Getenv("APP_NAME"); name != "" {
		return name
	}
	return "product-store"
}

// buildLogEntry wraps one line in the Loki push API shape.
func buildLogEntry(level, message string, attrs []slog.Attr, now time.Time) map[string]any {
	return map[string]any{
		"streams": []map[string]any{
			{
				"stream": map[string]string{
					"level": level,
					"job":   jobName(),
				},
				"values": [][]string{
					{
						strconv.FormatInt(now.UnixNano(), 10),
						buildLogLine(level, message, attrs, now),
					},
				},
			},
		},
	}
}

func buildLogLine(level, message string, attrs []slog.Attr, now time.Time) string {
	logData := map[string]any{
		"level":   level,
		"message": message,
		"time":    now.Format(time.RFC3339),
	}

	for _, attr := range attrs {
		logData[attr.Key] = attr.Value.Any()
	}

	jsonBytes, _ := json.Marshal(logData)
	return string(jsonBytes)
}
