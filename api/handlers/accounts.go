package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/oneboxlabs/onebox/interfaces"
	er "github.com/oneboxlabs/onebox/internal/errors"
	"github.com/oneboxlabs/onebox/internal/models"
	"github.com/oneboxlabs/onebox/internal/tracing"
)

// ListAccounts returns every registered account without credentials.
func ListAccounts(imapService interfaces.IMAPService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "ListAccounts", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		accounts := imapService.Accounts()
		status := imapService.Status()

		type accountView struct {
			models.Account
			Password  string `json:"-"`
			State     string `json:"state"`
			Connected bool   `json:"connected"`
			LastSync  string `json:"lastSync,omitempty"`
			LastError string `json:"lastError,omitempty"`
		}

		views := make([]accountView, 0, len(accounts))
		for _, account := range accounts {
			view := accountView{Account: account}
			if st, ok := status[account.ID]; ok {
				view.State = st.State.String()
				view.Connected = st.Connected
				view.LastError = st.LastError
				if !st.LastSync.IsZero() {
					view.LastSync = st.LastSync.Format(time.RFC3339)
				}
			}
			views = append(views, view)
		}

		c.JSON(http.StatusOK, gin.H{"accounts": views})
	}
}

// AddAccount registers a new mailbox and starts monitoring it.
func AddAccount(imapService interfaces.IMAPService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "AddAccount", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		var account models.Account
		if err := c.ShouldBindJSON(&account); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		if err := imapService.AddAccount(ctx, account); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": account.ID})
	}
}

// RemoveAccount stops monitoring a mailbox and forgets it.
func RemoveAccount(imapService interfaces.IMAPService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "RemoveAccount", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		accountID := c.Param("id")
		tracing.TagAccount(span, accountID)

		if err := imapService.RemoveAccount(ctx, accountID); err != nil {
			tracing.TraceErr(span, err)
			if errors.Is(err, er.ErrAccountNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"result": "ok"})
	}
}

// SyncAccount triggers a catch-up sync for one account and returns the report.
func SyncAccount(imapService interfaces.IMAPService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "SyncAccount", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		accountID := c.Param("id")
		tracing.TagAccount(span, accountID)
		force := c.Query("force") == "true"

		report, err := imapService.SyncAccount(ctx, accountID, force)
		if err != nil {
			tracing.TraceErr(span, err)
			switch {
			case errors.Is(err, er.ErrAccountNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			case errors.Is(err, er.ErrSyncInProgress):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			case errors.Is(err, er.ErrNoConnection):
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}

		c.JSON(http.StatusOK, report)
	}
}
