// Package workflow delivers signals to the external workflow engine.
package workflow

import (
	"context"
	"errors"
)

// SignalHandleInboundMessage is the signal a workflow receives for every inbound message.
const SignalHandleInboundMessage = "HandleInboundMessage"

// ErrNotFound is returned when the addressed workflow does not exist or is not running.
var ErrNotFound = errors.New("workflow not found")

type Signaler interface {
	Signal(ctx context.Context, workflowID, signalName string, payload any) error
}
