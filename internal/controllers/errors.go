package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/middleware"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/services"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// respondError maps service errors onto API responses
func respondError(c *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		details := make(map[string]interface{}, len(verr.Fields))
		for field, msgs := range verr.Fields {
			details[field] = msgs
		}
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrValidationFailed, "Invalid input.", details))
	case errors.Is(err, services.ErrAlreadyExists):
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrConflict, err.Error()))
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, models.NewAPIError(models.ErrNotFound, err.Error()))
	case errors.Is(err, services.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, models.NewAPIError(models.ErrForbidden, "You do not have permission to perform this action."))
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrInvalidGrant, "Unable to log in with provided credentials."))
	default:
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "Internal server error."))
	}
}

// respondBindError reports a body that could not be decoded
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrValidationFailed, "Invalid request body.",
		map[string]interface{}{"non_field_errors": []string{err.Error()}}))
}

func currentUserID(c *gin.Context) uint {
	return middleware.CurrentUserID(c)
}

// parseID reads a positive integer path parameter, answering 404 when it is not one
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, models.NewAPIError(models.ErrNotFound, fmt.Sprintf("Invalid %s.", name)))
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}

// Paginated is the envelope of every paged listing
type Paginated struct {
	Count    int64       `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

// pageFromQuery reads the page and limit query parameters
func pageFromQuery(c *gin.Context, defaultSize int) services.Page {
	return services.NewPage(queryInt(c, "page"), queryInt(c, "limit"), defaultSize)
}

func paginated(c *gin.Context, page services.Page, count int64, results interface{}) Paginated {
	p := Paginated{Count: count, Results: results}
	if int64(page.Number*page.Size) < count {
		p.Next = pageURL(c, page.Number+1)
	}
	if page.Number > 1 {
		p.Previous = pageURL(c, page.Number-1)
	}
	return p
}

func pageURL(c *gin.Context, number int) *string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	q := c.Request.URL.Query()
	if number <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(number))
	}
	u := url.URL{Scheme: scheme, Host: c.Request.Host, Path: c.Request.URL.Path, RawQuery: q.Encode()}
	s := u.String()
	return &s
}
