// Package flow holds the client's view flows: the auth gate, the selection
// state machine, the scan/submit loop, and the public detail resolution.
// Flows never render; they compute state and emit one-way Navigate signals
// that the cmd layer acts on.
package flow

// Route names a destination view. External means "leave the app".
type Route string

const (
	RouteLogin         Route = "login"
	RouteSelection     Route = "process-selection"
	RouteScanner       Route = "scanner"
	RouteQrcodeDetail  Route = "qrcode-detail"
	RouteProductDetail Route = "product-detail"
	RouteExternal      Route = "external"
)

// Navigate is a one-way transition signal. There is no implicit return
// transition; a flow that wants to go back emits a new signal.
type Navigate struct {
	Route Route
	// Replace marks the transition as history-replacing (login redirects).
	Replace bool
	// Params carries URL-style parameters, e.g. qrcodeId for the product
	// detail view or the target address for RouteExternal.
	Params map[string]string
}
