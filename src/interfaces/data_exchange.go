package interfaces

// -----------------------------------------------------------------------------
// IDataExchanger defining the interface for sharing data with external systems (Server/Push).
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Broadcast pushes data to external listeners or updates state.
	// We use interface{} to be generic (any JSON-encodable payload)
	Broadcast(payload interface{})

	// -----------------------------------------------------------------------------
	// UpdateLatest replaces the internal state without broadcasting
	UpdateLatest(data interface{})

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
