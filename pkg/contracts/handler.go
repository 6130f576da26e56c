package contracts

import "github.com/julienschmidt/httprouter"

type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// LongRunning is implemented by handlers whose routes must outlive the
// per-request timeout.
type LongRunning interface {
	UntimedRoutes() []string
}
