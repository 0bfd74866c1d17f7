package memory

import (
	"sync"

	"github.com/google/uuid"

	"infraiq/platform/internal/model"
)

// Store keeps everything in process memory. It backs tests and local runs
// without DATABASE_URL.
type Store struct {
	mu sync.Mutex

	users    map[string]model.User
	scans    map[string]model.Scan
	projects map[string]model.Project

	bySession map[string]string
	byAPIKey  map[string]string
}

func NewStore() *Store {
	return &Store{
		users:     make(map[string]model.User),
		scans:     make(map[string]model.Scan),
		projects:  make(map[string]model.Project),
		bySession: make(map[string]string),
		byAPIKey:  make(map[string]string),
	}
}

func newID() string {
	return uuid.NewString()
}
