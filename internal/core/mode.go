// Package core is the orchestration layer.  It turns a Config into a
// serving mode, accepts the debugger, and drives the protocol engine
// against the selected target until the session ends.
//
// Architecture layers (bottom → top):
//
//	emu  →  target  →  rsp  →  core  →  cmd (CLI)
//	          conn / transport / session
package core

import "context"

// Mode is a complete run of the stub, from opening the debugger
// endpoint to reporting how the session ended.
type Mode interface {
	Run(ctx context.Context) error
}
