// Package zkbot drives the ZKBot juice kiosk arm.
//
// The arm's controller takes framed G-code-like text over a serial link.
// Programs are stored as JSON documents of steps; a drink is assembled from
// an origin move, a shared cup pick-up and the juice's own program.
//
// # Installation
//
//	go install github.com/gwillem/zkbot/cmd/zkbot@latest
//
// # Usage
//
// Check which serial ports are available:
//
//	zkbot ports
//
// Preview and run a program or a drink:
//
//	zkbot frames --drink mango
//	zkbot drink mango
//
// Teach a new program, or run the order kiosk:
//
//	zkbot teach juices/kiwi
//	zkbot kiosk
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/zkbot: CLI with run, drink, frames, info, teach, ports, sweep and kiosk commands
//   - pkg/robot: Steps, programs, frames, program store, configuration and the serial arm
//   - pkg/runner: Program runner and zone sweeps
//   - pkg/drink: Drink composition
//   - pkg/kiosk: Menu and order queue
//   - pkg/journal: SQLite order history
package zkbot
