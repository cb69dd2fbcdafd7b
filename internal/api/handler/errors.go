package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	pkgerrors "certhub/pkg/errors"
	"certhub/pkg/response"
)

type errorMapping struct {
	status int
	code   int
}

// errorTable maps a domain error kind to HTTP status and business code.
var errorTable = map[pkgerrors.Kind]errorMapping{
	pkgerrors.KindValidation:                 {http.StatusBadRequest, 10001},
	pkgerrors.KindNotFound:                   {http.StatusNotFound, 20001},
	pkgerrors.KindTemplateNotFound:           {http.StatusNotFound, 20002},
	pkgerrors.KindInvalidState:               {http.StatusConflict, 20003},
	pkgerrors.KindAlreadyRevoked:             {http.StatusConflict, 20004},
	pkgerrors.KindDuplicateActiveCertificate: {http.StatusConflict, 20005},
	pkgerrors.KindDuplicatePendingRequest:    {http.StatusConflict, 20006},
	pkgerrors.KindTemplateInactive:           {http.StatusUnprocessableEntity, 20007},
	pkgerrors.KindNoActiveTemplate:           {http.StatusUnprocessableEntity, 20008},
	pkgerrors.KindTamperDetected:             {http.StatusUnprocessableEntity, 20009},
	pkgerrors.KindConflict:                   {http.StatusConflict, 20010},
	pkgerrors.KindUnavailable:                {http.StatusServiceUnavailable, 20011},
}

// respondError writes the envelope for err. Unknown errors become 500
// without leaking their text.
func respondError(c *gin.Context, err error) {
	kind := pkgerrors.KindOf(err)
	m, ok := errorTable[kind]
	if !ok {
		_ = c.Error(err)
		response.InternalError(c)
		return
	}
	response.ErrorWithDetails(c, m.status, m.code, err.Error(), gin.H{"kind": kind})
}

// fieldError one failed binding rule.
type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// respondBindError reports a request that failed binding or validation.
func respondBindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "request body too large")
		return
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
		}
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "request validation failed", details)
		return
	}
	response.BadRequest(c, 10001, "malformed request")
}
