package shared

import (
	"errors"
	"net/http"

	pkgerrors "voicegate/pkg/domain-errors"
)

// WriteError translates transport-agnostic domain errors into HTTP status
// codes and a JSON error body.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *pkgerrors.Error
	if errors.As(err, &domainErr) {
		response := map[string]string{
			"error": errorSlug(domainErr.Code),
		}
		if domainErr.Message != "" {
			response["error_description"] = domainErr.Message
		}
		WriteJSON(w, httpStatus(domainErr.Code), response)
		return
	}

	WriteJSON(w, http.StatusInternalServerError, map[string]string{
		"error": errorSlug(pkgerrors.CodeInternal),
	})
}

func httpStatus(code pkgerrors.Code) int {
	switch code {
	case pkgerrors.CodeNotFound:
		return http.StatusNotFound
	case pkgerrors.CodeBadRequest, pkgerrors.CodeInvalidInput:
		return http.StatusBadRequest
	case pkgerrors.CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case pkgerrors.CodeUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case pkgerrors.CodeAudioProcessing:
		return http.StatusUnprocessableEntity
	case pkgerrors.CodeUserInactive:
		return http.StatusForbidden
	case pkgerrors.CodeAlreadyEnrolled:
		return http.StatusConflict
	case pkgerrors.CodeVaultAuth, pkgerrors.CodeVaultParameter, pkgerrors.CodeVaultSystem:
		return http.StatusBadGateway
	case pkgerrors.CodeIntegrityMismatch, pkgerrors.CodePersistence, pkgerrors.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func errorSlug(code pkgerrors.Code) string {
	switch code {
	case pkgerrors.CodeNotFound:
		return "not_found"
	case pkgerrors.CodeBadRequest:
		return "bad_request"
	case pkgerrors.CodeInvalidInput:
		return "invalid_input"
	case pkgerrors.CodePayloadTooLarge:
		return "payload_too_large"
	case pkgerrors.CodeUnsupportedFormat:
		return "unsupported_format"
	case pkgerrors.CodeAudioProcessing:
		return "audio_processing_failed"
	case pkgerrors.CodeUserInactive:
		return "user_inactive"
	case pkgerrors.CodeAlreadyEnrolled:
		return "already_enrolled"
	case pkgerrors.CodeIntegrityMismatch:
		return "integrity_mismatch"
	case pkgerrors.CodePersistence:
		return "persistence_error"
	case pkgerrors.CodeVaultAuth:
		return "vault_auth_error"
	case pkgerrors.CodeVaultParameter:
		return "vault_parameter_error"
	case pkgerrors.CodeVaultSystem:
		return "vault_system_error"
	default:
		return "internal_error"
	}
}
