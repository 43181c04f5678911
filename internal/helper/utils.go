package helper

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// GenerateUUID creates a random unique UUID string
func GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %v", err)
	}
	return id.String(), nil
}

// pretty print
func PrettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Err(err).Msg("Error pretty printing")
		return
	}
	fmt.Println(string(b))
}

// BlobName builds `<kind>-<unix millis>[-<index>].pdf`; a negative index is omitted.
func BlobName(kind string, t time.Time, index int) string {
	if index < 0 {
		return fmt.Sprintf("%s-%d.pdf", kind, t.UnixMilli())
	}
	return fmt.Sprintf("%s-%d-%d.pdf", kind, t.UnixMilli(), index)
}
