package modules

import (
	"context"

	"github.com/aukilabs/voxedit/messages"
	"github.com/aukilabs/voxedit/models"
)

// Module is the interface that describes a module that extends voxedit
// capabilities.
type Module interface {
	// Returns the module name.
	Name() string

	// Initializes the module.
	Init(*models.Session, *models.Participant)

	// Handles a given message. Modules are free to decide whether they handle a
	// message.
	//
	// Returning an error typed messages.ErrTypeMsgSkip indicates that handling
	// a message was skipped.
	//
	// Any other returned errors causes the current WebSocket client to be
	// disconnected.
	HandleMsg(context.Context, messages.ResponseSender, messages.Msg) error

	// Handles a client disconnection.
	HandleDisconnect()
}
