package vectorstore

import (
	"path/filepath"

	"github.com/styxali/turfintel-sub000/internal/models"
)

// storeFileName is the SQLite file holding one race's documents.
const storeFileName = "context.db"

// StorePath derives the on-disk path for a race's vector store:
// <base>/<YYYY-MM-DD>/<meeting>/<Cnn>/context.db. The derivation must be
// bit-exact for compatibility with existing stores, so the race-number
// segment is normalized to two digits. Malformed race ids fail fast.
func StorePath(base, raceGUID string) (string, error) {
	id, err := models.ParseRaceID(raceGUID)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, id.Date.Format("2006-01-02"), id.Meeting, id.RaceNumber(), storeFileName), nil
}
