package httputil

import (
	"fmt"
	"net/http"

	apperrors "github.com/jwalitptl/orders-api/pkg/errors"
)

// Operation identifies the orchestrator an outcome belongs to
type Operation int

const (
	OpList Operation = iota
	OpCreate
	OpRetrieve
	OpUpdate
	OpDestroy
)

func (op Operation) String() string {
	switch op {
	case OpList:
		return "list"
	case OpCreate:
		return "create"
	case OpRetrieve:
		return "retrieve"
	case OpUpdate:
		return "update"
	case OpDestroy:
		return "destroy"
	default:
		return fmt.Sprintf("operation(%d)", int(op))
	}
}

// Messages shown to the caller
const (
	MsgNotExists   = "Nuk ekziston"
	MsgNotFound    = "Nuk u gjet"
	MsgDatabase    = "Gabim në databazë"
	MsgServerError = "Problem në server"
)

// Classifier turns the outcome of an operation into a status and an envelope.
type Classifier struct {
	// UniformNotFound answers 404 for a missing entity on every operation.
	// When false, create and update answer 500.
	UniformNotFound bool
}

// Classify builds the failure (or caveat) envelope for err. It never returns
// a success status for a nil err; callers build success envelopes themselves.
func (cl Classifier) Classify(op Operation, err error) (int, Envelope) {
	appErr := apperrors.Classify(err)
	if appErr == nil {
		appErr = apperrors.Internal(fmt.Errorf("%s: no outcome", op))
	}

	switch appErr.Kind {
	case apperrors.KindValidation:
		return http.StatusBadRequest, Envelope{
			ErrorType: apperrors.TypeValidation,
			Errors:    appErr.Details,
			Message:   ComposeMessage(appErr.Details),
		}

	case apperrors.KindNotFound:
		status, msg := http.StatusNotFound, MsgNotFound
		if op == OpCreate || op == OpUpdate {
			msg = MsgNotExists
			if !cl.UniformNotFound {
				status = http.StatusInternalServerError
			}
		}
		return status, Envelope{
			ErrorType: apperrors.TypeNotFound,
			Errors:    appErr.Error(),
			Message:   msg,
		}

	case apperrors.KindIntegrity:
		return http.StatusInternalServerError, Envelope{
			ErrorType: apperrors.TypeIntegrity,
			Errors:    appErr.Error(),
			Message:   MsgDatabase,
		}

	case apperrors.KindInvalidData:
		return http.StatusBadRequest, Envelope{
			ErrorType: apperrors.TypeInvalid,
			Errors:    appErr.Message,
			Message:   appErr.Message,
		}

	case apperrors.KindAccepted:
		return http.StatusAccepted, Envelope{
			Data:    appErr.Object,
			Message: appErr.Message,
		}

	case apperrors.KindTooLarge:
		return http.StatusRequestEntityTooLarge, Envelope{
			ErrorType: apperrors.TypeOther,
			Errors:    appErr.Message,
			Message:   appErr.Message,
		}

	default:
		return http.StatusInternalServerError, Envelope{
			ErrorType: apperrors.TypeOther,
			Errors:    appErr.Error(),
			Message:   MsgServerError,
		}
	}
}
