package session

// State is a session connection state. Values mirror the engine's wire
// states plus a few local sentinels.
type State string

// Engine states.
const (
	StateConnected         State = "CONNECTED"
	StateOpening           State = "OPENING"
	StatePairing           State = "PAIRING"
	StateSyncing           State = "SYNCING"
	StateTimeout           State = "TIMEOUT"
	StateConflict          State = "CONFLICT"
	StateUnpaired          State = "UNPAIRED"
	StateUnlaunched        State = "UNLAUNCHED"
	StateProxyBlock        State = "PROXYBLOCK"
	StateSMBTOSBlock       State = "SMB_TOS_BLOCK"
	StateTOSBlock          State = "TOS_BLOCK"
	StateDeprecatedVersion State = "DEPRECATED_VERSION"
	StateDisconnected      State = "DISCONNECTED"
)

// Local sentinels.
const (
	StateInitializing State = "INITIALIZING"
	StateQRPending    State = "QR_PENDING"
	StateNotFound     State = "NOT_FOUND"
)

func (s State) String() string { return string(s) }

// Terminal reports whether the state ends the session. Terminal states
// drop the registry entry as soon as they are observed.
func (s State) Terminal() bool {
	switch s {
	case StateConflict, StateUnpaired, StateUnlaunched:
		return true
	}
	return false
}

// Active reports whether the session is live enough that a cancel
// must be refused.
func (s State) Active() bool {
	return s == StateConnected || s == StateSyncing
}
