package trade

// State is the lifecycle of a quote attempt. It is never persisted; the
// reconcilers recompute it from the latest request/response pair on every
// evaluation.
type State int

const (
	// StateLoading: a first fetch is unresolved and there is nothing to
	// show yet.
	StateLoading State = iota
	// StateInvalid: inputs are incomplete or a response could not be
	// turned into a trade.
	StateInvalid
	// StateNoRouteFound: the service cannot produce an executable quote
	// for the requested pair, or the fetch failed.
	StateNoRouteFound
	// StateValid: the shown trade matches the most recent request.
	StateValid
	// StateSyncing: a valid trade from a superseded request is shown
	// while a fresher quote is fetched. Not a blocking state.
	StateSyncing
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "LOADING"
	case StateInvalid:
		return "INVALID"
	case StateNoRouteFound:
		return "NO_ROUTE_FOUND"
	case StateValid:
		return "VALID"
	case StateSyncing:
		return "SYNCING"
	default:
		return "UNKNOWN"
	}
}

// Type fixes the trade direction at query time.
type Type int

const (
	// ExactInput quotes how much output a fixed input buys.
	ExactInput Type = iota
	// ExactOutput quotes how much input a fixed output costs. Quoting for
	// it is currently unsupported and reports StateInvalid; see DESIGN.md.
	ExactOutput
)

func (t Type) String() string {
	if t == ExactOutput {
		return "EXACT_OUTPUT"
	}
	return "EXACT_INPUT"
}
