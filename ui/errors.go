package ui

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"killay/internal/bulk"
	apperrors "killay/internal/errors"
)

const codeUploadTooLarge = "UPLOAD_TOO_LARGE"

func errUploadTooLarge(limit int64) error {
	return apperrors.New(codeUploadTooLarge, fmt.Sprintf("upload exceeds the %d bytes limit", limit))
}

// formErrorResponse adds the error code next to the file and data messages
type formErrorResponse struct {
	Code string `json:"code"`
	*bulk.FormErrors
}

// respondError writes err with the status matching its kind
func (s *Server) respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var formErrs *bulk.FormErrors
	if errors.As(err, &formErrs) {
		c.JSON(http.StatusUnprocessableEntity, formErrorResponse{Code: formErrs.Code(), FormErrors: formErrs})
		return
	}

	var execErr *bulk.ExecutionError
	if errors.As(err, &execErr) {
		status := http.StatusInternalServerError
		if apperrors.GetCode(execErr.Cause) == apperrors.CodeInvalidInput {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": execErr})
		return
	}

	code := apperrors.GetCode(err)
	c.JSON(statusFor(code), gin.H{"error": gin.H{"code": code, "message": err.Error()}})
}

func statusFor(code string) int {
	switch code {
	case apperrors.CodeUnknownAction, apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeInvalidInput, apperrors.CodeValidationError:
		return http.StatusBadRequest
	case codeUploadTooLarge:
		return http.StatusRequestEntityTooLarge
	case apperrors.CodeExternalService:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
