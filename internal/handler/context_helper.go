package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/practice-rules-api/internal/dto"
	appErrors "github.com/noah-isme/practice-rules-api/pkg/errors"
)

func practiceID(c *gin.Context) string {
	return c.Param("practiceId")
}

// bindJSON decodes the request body, answering 400 on malformed input.
func bindJSON(c *gin.Context, dest interface{}, label string) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid "+label+" payload")
	}
	return nil
}

// workingCopyQuery reads the optional sourceRuleSetId used by bodyless
// mutations such as deletes.
func workingCopyQuery(c *gin.Context) (dto.WorkingCopyRequest, error) {
	var req dto.WorkingCopyRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters")
	}
	return req, nil
}
