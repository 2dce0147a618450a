package broken

//reloadr:reload
func Good() int { return 1 }

// Generic types cannot be proxied.
//
//reloadr:reload
type Box[T any] struct {
	V T
}
