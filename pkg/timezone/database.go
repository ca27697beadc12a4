package timezone

import (
	"strings"
	"sync"
	"time"

	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

// Database resolves IANA zone identifiers.
type Database interface {
	Load(id string) (*time.Location, error)
}

// IANADatabase resolves zones through the tz database bundled with the Go runtime or the host.
type IANADatabase struct {
	mu    sync.RWMutex
	cache map[string]*time.Location
}

// NewIANADatabase constructs a caching zone resolver.
func NewIANADatabase() *IANADatabase {
	return &IANADatabase{cache: make(map[string]*time.Location)}
}

// Load returns the location for id. Empty ids and the process-dependent "Local" zone are rejected.
func (d *IANADatabase) Load(id string) (*time.Location, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.EqualFold(id, "local") {
		return nil, appErrors.Clonef(appErrors.ErrInvalidTimeZone, "time zone '%s' is not recognised", id)
	}

	d.mu.RLock()
	loc, ok := d.cache[id]
	d.mu.RUnlock()
	if ok {
		return loc, nil
	}

	loc, err := time.LoadLocation(id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidTimeZone, "time zone '"+id+"' is not recognised")
	}

	d.mu.Lock()
	d.cache[id] = loc
	d.mu.Unlock()
	return loc, nil
}
