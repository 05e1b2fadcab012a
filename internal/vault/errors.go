package vault

import (
	"fmt"

	pkgerrors "voicegate/pkg/domain-errors"
)

// APIError is a vault-level failure: either a non-200 transport status or a
// nonzero code in the response header. It keeps the vault's session ID so a
// failed call can be traced on the vendor side.
type APIError struct {
	Code       int
	Message    string
	Sid        string
	HTTPStatus int
	Body       string
}

func (e *APIError) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("vault http %d: %s", e.HTTPStatus, e.Body)
	}
	return fmt.Sprintf("vault error %d: %s (sid=%s)", e.Code, e.Message, e.Sid)
}

// DomainCode classifies the vendor's numeric code table into the three
// classes callers branch on. 10xxx covers credential and quota rejections,
// 11xxx covers request parameter problems; everything else, including
// transport failures, is a system failure.
func (e *APIError) DomainCode() pkgerrors.Code {
	switch {
	case e.HTTPStatus != 0:
		return pkgerrors.CodeVaultSystem
	case e.Code >= 10000 && e.Code <= 10999:
		return pkgerrors.CodeVaultAuth
	case e.Code >= 11000 && e.Code <= 11999:
		return pkgerrors.CodeVaultParameter
	default:
		return pkgerrors.CodeVaultSystem
	}
}

// Domain wraps the API error as a tagged domain error for the orchestration
// layer.
func (e *APIError) Domain() error {
	return pkgerrors.Wrap(e, e.DomainCode(), e.Error())
}
