// Package ingest is the lead ingestion bounded context: webhook endpoints
// in, canonical leads out.
package ingest

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"autolead_backend/internal/ingest/domain"
	"autolead_backend/internal/ingest/service"
	"autolead_backend/internal/ingest/transport"
	"autolead_backend/platform/httpkit"
)

const (
	errInvalidRequest  = "invalid request body"
	errInvalidTenantID = "invalid tenant ID"
	errInvalidID       = "invalid inquiry ID"

	signatureHeader = "X-Hub-Signature-256"
	maxWebhookBody  = 1 << 20
)

// Handler handles ingestion HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new ingestion handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

// HandleFormSubmission processes a website form submission synchronously.
// POST /api/v1/webhook/forms/:tenantId
func (h *Handler) HandleFormSubmission(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidTenantID, nil)
		return
	}

	var req transport.FormSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, nil)
		return
	}

	resp, err := h.service.SubmitForm(c.Request.Context(), tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	// Always 200: the body's status field tells created from updated from
	// rejected, and bots learn nothing from the status code.
	c.JSON(http.StatusOK, resp)
}

// HandleInboundEmail accepts a relayed email (SendGrid Inbound Parse shape)
// and acks once the inquiry is durably stored.
// POST /api/v1/webhook/email
func (h *Handler) HandleInboundEmail(c *gin.Context) {
	var req transport.InboundEmailRequest
	if err := c.ShouldBind(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, nil)
		return
	}

	if err := h.service.IngestEmail(c.Request.Context(), req); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.AckResponse{Status: service.StatusAccepted})
}

// HandleMetaVerify answers Meta's webhook verification handshake.
// GET /api/v1/webhook/meta
func (h *Handler) HandleMetaVerify(c *gin.Context) {
	challenge, err := h.service.VerifySocial(
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
		c.ClientIP(),
	)
	if httpkit.HandleError(c, err) {
		return
	}
	c.String(http.StatusOK, challenge)
}

// HandleMetaWebhook processes a Meta Lead Ads delivery. The raw body is
// needed for signature validation, so binding happens after the read.
// POST /api/v1/webhook/meta
func (h *Handler) HandleMetaWebhook(c *gin.Context) {
	rawBody, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, nil)
		return
	}

	err = h.service.IngestSocial(c.Request.Context(), rawBody, c.GetHeader(signatureHeader), c.ClientIP())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.AckResponse{Status: service.StatusAccepted})
}

// HandleListInquiries lists a tenant's inquiries.
// GET /api/v1/admin/inquiries?tenant_id=&state=&limit=
func (h *Handler) HandleListInquiries(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidTenantID, nil)
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	inquiries, err := h.service.ListInquiries(c.Request.Context(), tenantID,
		domain.PipelineState(c.Query("state")), limit)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.InquiryResponse, 0, len(inquiries))
	for _, inquiry := range inquiries {
		out = append(out, toInquiryResponse(inquiry, nil))
	}
	httpkit.OK(c, out)
}

// HandleGetInquiry returns one inquiry with its current classification.
// GET /api/v1/admin/inquiries/:id
func (h *Handler) HandleGetInquiry(c *gin.Context) {
	inquiryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidID, nil)
		return
	}

	inquiry, classification, err := h.service.InquiryView(c.Request.Context(), inquiryID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toInquiryResponse(inquiry, classification))
}

// HandleReprocess enqueues re-classification of a stored inquiry.
// POST /api/v1/admin/inquiries/:id/reprocess
func (h *Handler) HandleReprocess(c *gin.Context) {
	inquiryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidID, nil)
		return
	}

	if err := h.service.Reprocess(c.Request.Context(), inquiryID); httpkit.HandleError(c, err) {
		return
	}

	httpkit.Accepted(c, transport.ReprocessResponse{
		InquiryID: inquiryID.String(),
		Enqueued:  true,
	})
}

func toInquiryResponse(inquiry *domain.RawInquiry, classification *domain.ClassificationResult) transport.InquiryResponse {
	resp := transport.InquiryResponse{
		ID:            inquiry.ID.String(),
		TenantID:      inquiry.TenantID.String(),
		Source:        string(inquiry.Source),
		SenderName:    inquiry.SenderName,
		SenderEmail:   inquiry.SenderEmail,
		SenderPhone:   inquiry.SenderPhone,
		Subject:       inquiry.Subject,
		Body:          inquiry.Body,
		PipelineState: string(inquiry.State),
		StateReason:   inquiry.StateReason,
		ReceivedAt:    inquiry.ReceivedAt,
	}
	if inquiry.LeadID != nil {
		leadID := inquiry.LeadID.String()
		resp.LeadID = &leadID
	}
	if classification != nil {
		resp.Classification = &transport.ClassificationResponse{
			Label:      string(classification.Label),
			Confidence: classification.Confidence,
			Rationale:  classification.Rationale,
			Model:      classification.Model,
			Degraded:   classification.Degraded,
			CreatedAt:  classification.CreatedAt,
		}
	}
	return resp
}
