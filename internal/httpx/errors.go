package httpx

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Machine codes shared by more than one handler. One-off codes stay inline
// at their call sites.
const (
	CodeInternal        = "internal"
	CodeNotFound        = "not_found"
	CodeForbidden       = "forbidden"
	CodeNothingToUpdate = "nothing_to_update"
	CodeUsernameTaken   = "username_taken"
	CodeUsernameLength  = "username_length_3_32"
	CodePasswordMin     = "password_min_6"
)

// Error writes the {"error": code} body the API client maps to localized
// messages. Handlers never put free-form text in error responses.
func Error(c echo.Context, status int, code string) error {
	return c.JSON(status, echo.Map{"error": code})
}

func Internal(c echo.Context, err error) error {
	c.Logger().Errorf("internal error: %v", err)
	return Error(c, http.StatusInternalServerError, CodeInternal)
}
