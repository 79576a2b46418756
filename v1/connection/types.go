package connection

import (
	"fmt"
	"slices"

	"github.com/Aleph-Alpha/vectorinspector/v1/provider"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// MaxConnections caps the number of simultaneously open connections.
const MaxConnections = 10

// State is the lifecycle state of an open connection as seen by the user.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

// Instance is a snapshot of one open connection.
type Instance struct {
	ID      string
	Name    string
	Profile provider.Profile
	Conn    vectordb.Connection

	State State
	// Error holds the last failure message while State is StateError.
	Error string

	Collections      []string
	ActiveCollection string
}

// DisplayName is "name (provider)".
func (i Instance) DisplayName() string {
	return fmt.Sprintf("%s (%s)", i.Name, i.Profile.Provider)
}

// Breadcrumb is "name > collection", or the name alone.
func (i Instance) Breadcrumb() string {
	if i.ActiveCollection == "" {
		return i.Name
	}
	return i.Name + " > " + i.ActiveCollection
}

func (i *Instance) snapshot() Instance {
	out := *i
	out.Collections = slices.Clone(i.Collections)
	return out
}
