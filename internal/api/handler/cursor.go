package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/tdnguyen-dev/recognition-be/internal/store"
)

// DecodeJobCursor parses the opaque cursor a previous listing returned. An
// empty cursor means the first page.
func DecodeJobCursor(cursorStr string) (*store.JobCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	decodedParts := strings.Split(string(decoded), "|")
	if len(decodedParts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var createdAt int64
	_, err = fmt.Sscanf(decodedParts[0], "%d", &createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid createdAt in cursor: %w", err)
	}

	return &store.JobCursor{
		CreatedAt: time.Unix(0, createdAt),
		JobID:     decodedParts[1],
	}, nil
}

// EncodeJobCursor renders a keyset position as an opaque string.
func EncodeJobCursor(cursor *store.JobCursor) string {
	cs := fmt.Sprintf("%d|%s", cursor.CreatedAt.UnixNano(), cursor.JobID)
	return base64.StdEncoding.EncodeToString([]byte(cs))
}
