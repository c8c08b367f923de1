package inmemdb

import (
	"sync"

	"github.com/trezcool/kinga/core/safety"
	"github.com/trezcool/kinga/core/user"
)

type (
	DB struct {
		user   *userTable
		safety *safetyTables
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	safetyTables struct {
		sync.RWMutex
		reports     map[string]*safety.Report
		visits      map[string]*safety.Visit
		occurrences map[string]*safety.Occurrence
		notices     map[string]*safety.Notice
		drills      map[string]*safety.Drill
		campaigns   map[string]*safety.Campaign
		alerts      map[string]*safety.EmergencyAlert
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		safety: &safetyTables{
			reports:     make(map[string]*safety.Report),
			visits:      make(map[string]*safety.Visit),
			occurrences: make(map[string]*safety.Occurrence),
			notices:     make(map[string]*safety.Notice),
			drills:      make(map[string]*safety.Drill),
			campaigns:   make(map[string]*safety.Campaign),
			alerts:      make(map[string]*safety.EmergencyAlert),
		},
	}
	return db, nil
}
