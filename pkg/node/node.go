// Package node identifies the running instance on journal rows and /health.
package node

import (
	"sync"

	"github.com/denisbrodbeck/machineid"
	"github.com/google/uuid"
)

const appID = "signal-core"

var (
	once sync.Once
	id   string
)

// ID returns a stable, app-scoped machine identifier. Hosts without a machine
// id (containers, CI) get a random id that is stable for the process lifetime.
func ID() string {
	once.Do(func() {
		mid, err := machineid.ProtectedID(appID)
		if err != nil || mid == "" {
			id = "ephemeral-" + uuid.NewString()
			return
		}
		id = mid
	})
	return id
}
