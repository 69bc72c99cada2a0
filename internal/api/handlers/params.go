package handlers

import (
	"strconv"

	"github.com/labstack/echo/v4"
	apperrors "github.com/welldanyogia/helpdesk-mailsync/internal/errors"
)

// parseID reads a positive numeric path parameter
func parseID(c echo.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// queryInt reads an integer query parameter, falling back to def
func queryInt(c echo.Context, name string, def int) int {
	if v, err := strconv.Atoi(c.QueryParam(name)); err == nil {
		return v
	}
	return def
}

var errForbiddenOrigin = apperrors.NewAppError(apperrors.ErrForbidden, "origin not allowed", apperrors.CodeForbidden)
