package handler

import (
	"net/http"

	"salescrm/internal/apierror"
	"salescrm/internal/dto"
	"salescrm/internal/middleware"
	"salescrm/internal/service"

	"github.com/gin-gonic/gin"
)

type CRMHandler struct{ svc service.CRMService }

func NewCRMHandler(svc service.CRMService) *CRMHandler { return &CRMHandler{svc: svc} }

func callerName(c *gin.Context) string {
	if s := middleware.GetSession(c); s != nil {
		return s.Username
	}
	return ""
}

func (h *CRMHandler) SubmitCRM(c *gin.Context) {
	if !isJSON(c) {
		c.JSON(http.StatusBadRequest, apierror.New("Request must be JSON"))
		return
	}
	var req dto.SubmitEntryRequest
	if !bindAndValidate(c, &req) {
		return
	}

	id, err := h.svc.Submit(c.Request.Context(), callerName(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.SubmitEntryResponse{Message: "CRM entry submitted successfully", EntryID: id})
}

func (h *CRMHandler) GetCRMEntries(c *gin.Context) {
	var q dto.EntryFilterQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid query parameters"))
		return
	}
	entries, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *CRMHandler) ClearCRMEntries(c *gin.Context) {
	n, err := h.svc.ClearAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ClearEntriesResponse{Message: "All CRM entries cleared", DeletedCount: n})
}

// Report serves the filtered listing as a PDF.
func (h *CRMHandler) Report(c *gin.Context) {
	var q dto.EntryFilterQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid query parameters"))
		return
	}
	pdf, err := h.svc.Report(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="crm_entries.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
