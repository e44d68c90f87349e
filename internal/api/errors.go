package api

import (
	"net/http"

	"github.com/labstack/echo/v5"
)

type errorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg)
}

func writeInternal(c *echo.Context, msg string) error {
	return writeError(c, http.StatusInternalServerError, "internal_error", msg)
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, map[string]any{
		"error": errorBody{Message: msg, Type: errType},
	})
}
