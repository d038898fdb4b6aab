package env

import (
	"github.com/denisbrodbeck/machineid"
)

// MachineID retrieves an ID identifying the machine, scoped to this
// application so the raw machine ID is not exposed.
func MachineID() string {
	id, err := machineid.ProtectedID("uartecho")
	if err != nil {
		return ""
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}
