// Reloadr runs Go script files with hot reload of their functions and
// types.
//
// Definitions marked with a //reloadr:reload or //reloadr:autoreload
// directive are wrapped in reload proxies and picked up again whenever the
// script changes, without restarting the process.
//
// Usage:
//
//	# Run a script, calling its Tick function every second
//	reloadr run app.go --call Tick --every 1s
//
//	# Check that every marked definition of a script builds
//	reloadr check app.go
//
//	# Show the latest reload attempts
//	reloadr history --symbol Tick --limit 20
//
//	# Show version information
//	reloadr version
package main

func main() {
	Execute()
}
