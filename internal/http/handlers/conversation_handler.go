package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-broker-assistant/internal/domain"
	"github.com/tbourn/go-broker-assistant/internal/services"
	"github.com/tbourn/go-broker-assistant/internal/utils"
)

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListMessagesResponse is one page of a broker's transcript.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
	minPhoneDigits  = 8
	maxPhoneDigits  = 20
)

// clampPagination reads page and page_size, applying defaults and caps.
func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.PageParams(c.Query("page"), c.Query("page_size"), defaultPageSize, maxPageSize)
}

// phoneParam returns the :phone path parameter when it is all digits.
func phoneParam(c *gin.Context) (string, bool) {
	p := c.Param("phone")
	if len(p) < minPhoneDigits || len(p) > maxPhoneDigits {
		return "", false
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return p, true
}

// GetConversation godoc
// @ID          getConversation
// @Summary     Inspect a broker conversation
// @Description Returns the contact name, human-mode flag, quote progress and transcript size.
// @Tags        Conversations
// @Produce     json
// @Param       phone  path      string  true  "Broker phone, digits only"  example(5511999990000)
// @Success     200    {object}  services.ConversationView
// @Security    OperatorToken
// @Failure     400    {object}  handlers.ErrorResponse  "Bad phone"
// @Failure     401    {object}  handlers.ErrorResponse  "Missing or invalid operator token"
// @Failure     404    {object}  handlers.ErrorResponse  "Unknown phone"
// @Failure     500    {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/v1/conversations/{phone} [get]
func (h *Handlers) GetConversation(c *gin.Context) {
	phone, valid := phoneParam(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phone must be 8 to 20 digits")
		return
	}
	view, err := h.reader.Get(c.Request.Context(), phone)
	switch {
	case errors.Is(err, services.ErrConversationNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeLookupFailed, err.Error())
	default:
		ok(c, http.StatusOK, view)
	}
}

// ListMessages godoc
// @ID          listConversationMessages
// @Summary     List a broker's transcript (paginated)
// @Description Oldest first. Supports a weak ETag via If-None-Match and may return 304.
// @Tags        Conversations
// @Produce     json
// @Param       phone          path    string  true   "Broker phone, digits only"   example(5511999990000)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListMessagesResponse
// @Header      200  {string}  ETag  "Weak ETag for the transcript"
// @Success     304  {string}  string  "Not Modified"
// @Security    OperatorToken
// @Failure     400  {object}  handlers.ErrorResponse  "Bad phone"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or invalid operator token"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown phone"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/v1/conversations/{phone}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	phone, valid := phoneParam(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phone must be 8 to 20 digits")
		return
	}
	page, pageSize := clampPagination(c)

	// The transcript is append-only, so count plus newest timestamp
	// identifies its state. Best effort: on error the page is served.
	if count, latest, err := h.reader.Stats(ctx, phone); err == nil {
		var ts int64
		if latest != nil {
			ts = latest.UnixNano()
		}
		etag := fmt.Sprintf(`W/"messages:%s:%d:%d:%d:%d"`, phone, count, ts, page, pageSize)
		c.Header("ETag", etag)
		if c.GetHeader("If-None-Match") == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.reader.ListPage(ctx, phone, page, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrConversationNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListMessagesResponse{
		Messages: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
