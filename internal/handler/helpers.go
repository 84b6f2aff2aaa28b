package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_stock/internal/utils"
)

// maxImportBytes caps the body of a bulk import.
const maxImportBytes = 5 << 20

// bindJSON decodes the JSON body into req and answers 400 on failure.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.Error(c, 400, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// isJSON reports whether the request body is declared as JSON.
func isJSON(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "application/json")
}

// readImportText returns the raw body of a text/csv import.
func readImportText(c *gin.Context) (string, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: unreadable body", utils.ErrValidation)
	}
	if len(body) > maxImportBytes {
		return "", fmt.Errorf("%w: import larger than %d bytes", utils.ErrValidation, maxImportBytes)
	}
	return string(body), nil
}

// decodeImportJSON decodes a JSON array of rows.
func decodeImportJSON(c *gin.Context, rows any) error {
	dec := json.NewDecoder(io.LimitReader(c.Request.Body, maxImportBytes))
	if err := dec.Decode(rows); err != nil {
		return fmt.Errorf("%w: body must be a JSON array of rows", utils.ErrValidation)
	}
	return nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(c *gin.Context, key string) (*bool, error) {
	raw := c.Query(key)
	switch raw {
	case "":
		return nil, nil
	case "true", "1":
		v := true
		return &v, nil
	case "false", "0":
		v := false
		return &v, nil
	}
	return nil, fmt.Errorf("%w: %s must be true or false", utils.ErrValidation, key)
}

// queryLimit parses an optional positive limit query parameter.
func queryLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", utils.ErrValidation)
	}
	return n, nil
}
