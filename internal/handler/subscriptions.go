package handler

import (
	"context"
	"net/http"

	"minimalgym/internal/dto"
	"minimalgym/internal/middleware"
	"minimalgym/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SubscriptionsHandler struct{ svc service.SubscriptionService }

func NewSubscriptionsHandler(svc service.SubscriptionService) *SubscriptionsHandler {
	return &SubscriptionsHandler{svc: svc}
}

// Create godoc
// @Summary Create a subscription, optionally with its first payment
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateSubscriptionRequest true "Subscription"
// @Success 201 {object} dto.SubscriptionResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/subscriptions [post]
func (h *SubscriptionsHandler) Create(c *gin.Context) {
	var req dto.CreateSubscriptionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Get godoc
// @Summary Get a subscription
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription ID"
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/subscriptions/{id} [get]
func (h *SubscriptionsHandler) Get(c *gin.Context) {
	h.transition(c, h.svc.Get)
}

// ListByMember godoc
// @Summary List a member's subscriptions
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Param memberId path string true "Member ID"
// @Success 200 {array} dto.SubscriptionResponse
// @Router /v1/members/{memberId}/subscriptions [get]
func (h *SubscriptionsHandler) ListByMember(c *gin.Context) {
	id, ok := pathID(c, "memberId")
	if !ok {
		return
	}
	resp, err := h.svc.ListByMember(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Renew godoc
// @Summary Renew a subscription into a new period
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription ID"
// @Param body body dto.RenewSubscriptionRequest true "Renewal"
// @Success 201 {object} dto.SubscriptionResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/subscriptions/{id}/renew [post]
func (h *SubscriptionsHandler) Renew(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.RenewSubscriptionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Renew(c.Request.Context(), middleware.CurrentUserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ChangePlan godoc
// @Summary Create a pending subscription on another plan
// @Description The current subscription stays as it is until the new one is activated.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription ID"
// @Param body body dto.ChangePlanRequest true "New plan"
// @Success 201 {object} dto.SubscriptionResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/subscriptions/{id}/change-plan [post]
func (h *SubscriptionsHandler) ChangePlan(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ChangePlanRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ChangePlan(c.Request.Context(), middleware.CurrentUserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Activate godoc
// @Summary Activate a pending subscription
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription ID"
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/subscriptions/{id}/activate [post]
func (h *SubscriptionsHandler) Activate(c *gin.Context) { h.transition(c, h.svc.Activate) }

// Pause godoc
// @Summary Pause an active subscription
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription ID"
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/subscriptions/{id}/pause [post]
func (h *SubscriptionsHandler) Pause(c *gin.Context) { h.transition(c, h.svc.Pause) }

// Resume godoc
// @Summary Resume a paused subscription, extending its end date by the paused days
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription ID"
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/subscriptions/{id}/resume [post]
func (h *SubscriptionsHandler) Resume(c *gin.Context) { h.transition(c, h.svc.Resume) }

// Cancel godoc
// @Summary Cancel a subscription
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription ID"
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/subscriptions/{id}/cancel [post]
func (h *SubscriptionsHandler) Cancel(c *gin.Context) { h.transition(c, h.svc.Cancel) }

// AddPayment godoc
// @Summary Record a payment against a subscription
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription ID"
// @Param body body dto.PaymentEntry true "Payment"
// @Success 201 {object} dto.SubscriptionResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/subscriptions/{id}/payments [post]
func (h *SubscriptionsHandler) AddPayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.PaymentEntry
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddPayment(c.Request.Context(), middleware.CurrentUserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// transition runs a body-less operation on the subscription named by :id.
func (h *SubscriptionsHandler) transition(c *gin.Context, op func(context.Context, uuid.UUID) (*dto.SubscriptionResponse, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := op(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
