package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oneboxlabs/onebox/interfaces"
	"github.com/oneboxlabs/onebox/internal/tracing"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// ListEmails returns stored emails for an account, optionally scoped to a folder.
func ListEmails(emailRepository interfaces.EmailRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "ListEmails", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		accountID := c.Query("accountId")
		if accountID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "accountId is required"})
			return
		}
		tracing.TagAccount(span, accountID)

		limit := parseIntQuery(c, "limit", defaultPageSize)
		if limit > maxPageSize {
			limit = maxPageSize
		}
		offset := parseIntQuery(c, "offset", 0)

		folder := c.Query("folder")

		var (
			emails interface{}
			total  int64
			err    error
		)
		if folder != "" {
			tracing.TagFolder(span, folder)
			emails, total, err = emailRepository.ListByFolder(ctx, accountID, folder, limit, offset)
		} else {
			emails, total, err = emailRepository.ListByAccount(ctx, accountID, limit, offset)
		}
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list emails"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"emails": emails,
			"total":  total,
			"limit":  limit,
			"offset": offset,
		})
	}
}

// GetEmail returns a single stored email by its id.
func GetEmail(emailRepository interfaces.EmailRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "GetEmail", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		email, err := emailRepository.GetByID(ctx, c.Param("id"))
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get email"})
			return
		}
		if email == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Email not found"})
			return
		}

		c.JSON(http.StatusOK, email)
	}
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
