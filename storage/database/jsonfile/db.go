// Package jsonfiledb is the local-file persistence backend: one JSON
// document per collection under a data directory. It backs deployments
// where the database is unreachable or undesired (single-site, offline).
package jsonfiledb

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/kinga/core/safety"
)

// collection file names
const (
	usersFile       = "users.json"
	reportsFile     = "reports.json"
	visitsFile      = "visits.json"
	occurrencesFile = "occurrences.json"
	noticesFile     = "notices.json"
	drillsFile      = "drills.json"
	campaignsFile   = "campaigns.json"
	alertsFile      = "alerts.json"
)

type DB struct {
	dir string
	mu  sync.RWMutex

	users       map[string]*jsonUser
	reports     map[string]*safety.Report
	visits      map[string]*safety.Visit
	occurrences map[string]*safety.Occurrence
	notices     map[string]*safety.Notice
	drills      map[string]*safety.Drill
	campaigns   map[string]*safety.Campaign
	alerts      map[string]*safety.EmergencyAlert
}

func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating data dir")
	}

	db := &DB{
		dir:         dir,
		users:       make(map[string]*jsonUser),
		reports:     make(map[string]*safety.Report),
		visits:      make(map[string]*safety.Visit),
		occurrences: make(map[string]*safety.Occurrence),
		notices:     make(map[string]*safety.Notice),
		drills:      make(map[string]*safety.Drill),
		campaigns:   make(map[string]*safety.Campaign),
		alerts:      make(map[string]*safety.EmergencyAlert),
	}

	for file, coll := range map[string]interface{}{
		usersFile:       &db.users,
		reportsFile:     &db.reports,
		visitsFile:      &db.visits,
		occurrencesFile: &db.occurrences,
		noticesFile:     &db.notices,
		drillsFile:      &db.drills,
		campaignsFile:   &db.campaigns,
		alertsFile:      &db.alerts,
	} {
		if err := db.load(file, coll); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func (db *DB) load(file string, coll interface{}) error {
	data, err := ioutil.ReadFile(filepath.Join(db.dir, file))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "reading %s", file)
	}
	if err = json.Unmarshal(data, coll); err != nil {
		return errors.Wrapf(err, "parsing %s", file)
	}
	return nil
}

// save writes the collection to a temp file then renames it into place so a
// failed write never corrupts the previous document. Callers must hold db.mu.
func (db *DB) save(file string, coll interface{}) error {
	data, err := json.MarshalIndent(coll, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encoding %s", file)
	}

	tmp, err := ioutil.TempFile(db.dir, file+".*")
	if err != nil {
		return errors.Wrapf(err, "writing %s", file)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "writing %s", file)
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "writing %s", file)
	}
	if err = os.Rename(tmp.Name(), filepath.Join(db.dir, file)); err != nil {
		return errors.Wrapf(err, "writing %s", file)
	}
	return nil
}
