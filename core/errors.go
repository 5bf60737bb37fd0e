package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-msgbox/mailbox"
)

const (
	ServiceErrorInvalidArgument      = "MSGBOX_INVALID_ARGUMENT"
	ServiceErrorBadAddress           = "MSGBOX_BAD_ADDRESS"
	ServiceErrorOutOfMemory          = "MSGBOX_OUT_OF_MEMORY"
	ServiceErrorInsufficientCapacity = "MSGBOX_INSUFFICIENT_CAPACITY"
	ServiceErrorEmpty                = "MSGBOX_EMPTY"
	ServiceErrorClosed               = "MSGBOX_CLOSED"
	ServiceErrorInternal             = "MSGBOX_INTERNAL_ERROR"
)

var ErrServiceClosed = errors.New("core: mailbox service is closed")

func serviceErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureServiceErrorEnvelope(richErr)
	}

	if errors.Is(err, ErrServiceClosed) {
		return wrapServiceError(err, goerrors.CategoryOperation, ServiceErrorClosed)
	}

	switch mailbox.KindOf(err) {
	case mailbox.KindInvalidArgument:
		return wrapServiceError(err, goerrors.CategoryBadInput, ServiceErrorInvalidArgument)
	case mailbox.KindBadAddress:
		return wrapServiceError(err, goerrors.CategoryBadInput, ServiceErrorBadAddress)
	case mailbox.KindOutOfMemory:
		return wrapServiceError(err, goerrors.CategoryInternal, ServiceErrorOutOfMemory)
	case mailbox.KindInsufficientCapacity:
		return wrapServiceError(err, goerrors.CategoryConflict, ServiceErrorInsufficientCapacity)
	case mailbox.KindEmpty:
		return wrapServiceError(err, goerrors.CategoryNotFound, ServiceErrorEmpty)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureServiceErrorEnvelope(mapped)
}

func wrapServiceError(err error, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureServiceErrorEnvelope(
		goerrors.Wrap(err, category, err.Error()).
			WithTextCode(textCode).
			WithMetadata(map[string]any{"errno": mailbox.Errno(err)}),
	)
}

func ensureServiceErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = serviceHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultServiceTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultServiceTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ServiceErrorInvalidArgument
	case goerrors.CategoryNotFound:
		return ServiceErrorEmpty
	case goerrors.CategoryConflict:
		return ServiceErrorInsufficientCapacity
	case goerrors.CategoryOperation:
		return ServiceErrorClosed
	default:
		return ServiceErrorInternal
	}
}

func serviceHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryOperation:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// KindOf classifies errors returned by the service, including mapped
// envelopes whose source chain is no longer reachable through errors.Is.
func KindOf(err error) mailbox.Kind {
	if err == nil {
		return mailbox.KindNone
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.TextCode {
		case ServiceErrorInvalidArgument:
			return mailbox.KindInvalidArgument
		case ServiceErrorBadAddress:
			return mailbox.KindBadAddress
		case ServiceErrorOutOfMemory:
			return mailbox.KindOutOfMemory
		case ServiceErrorInsufficientCapacity:
			return mailbox.KindInsufficientCapacity
		case ServiceErrorEmpty:
			return mailbox.KindEmpty
		}
	}
	return mailbox.KindOf(err)
}
