package upload

import (
	"errors"

	"github.com/dmitrijs2005/dentdocs/internal/common"
)

// UserMessage maps an upload error to a short message fit for display.
// Transport details are never included.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	canceled := errors.Is(err, ErrCanceled)
	timedOut := errors.Is(err, common.ErrTimeout)

	switch KindOf(err) {
	case KindInvalidRequest:
		return "Choose a patient and a file before uploading."
	case KindAttemptInProgress:
		return "This file is already being uploaded for this patient. Try again when it finishes."
	case KindReservation:
		switch {
		case canceled:
			return "Upload canceled."
		case timedOut:
			return "The document service took too long to respond. Try again."
		}
		return "Could not start the upload. Try again."
	case KindTransfer:
		switch {
		case canceled:
			return "Upload canceled."
		case timedOut:
			return "Sending the file took too long. Try again."
		}
		return "The file could not be sent. Try again."
	case KindConfirmation:
		return "The file was sent but could not be saved to the patient's record."
	case KindCancellationRefused:
		return "The upload is being saved and can no longer be canceled."
	default:
		return "Something went wrong. Try again."
	}
}
