package processing

// Events emitted to the Host.
const (
	EventClutterError = "clutter_error"
	EventClutterData  = "clutter_data"
	EventProcessData  = "process_data"
	EventSweepInfo    = "sweep_info"
	EventError        = "error"
)

// Render commands carried by packets and emitted to the Host.
const (
	CmdUpdatePower    = "update_power_plots"
	CmdUpdateSparse   = "update_sparse_plots"
	CmdUpdateExternal = "update_external_plots"
)

// Host receives render commands, side-channel payloads and soft failures.
// Emit is fire-and-forget.
type Host interface {
	Emit(event, message string, payload any)
}

// HostFunc adapts a function to Host.
type HostFunc func(event, message string, payload any)

// Emit calls f.
func (f HostFunc) Emit(event, message string, payload any) { f(event, message, payload) }
