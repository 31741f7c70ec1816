package handler

import (
	"errors"
	"net/http"

	"minimalgym/internal/apierror"
	"minimalgym/internal/dto"
	"minimalgym/internal/middleware"
	"minimalgym/internal/service"

	"github.com/gin-gonic/gin"
)

type CashHandler struct {
	svc      service.CashService
	snapshot service.SnapshotService
}

func NewCashHandler(svc service.CashService, snapshot service.SnapshotService) *CashHandler {
	return &CashHandler{svc: svc, snapshot: snapshot}
}

// Open godoc
// @Summary Open the cash session
// @Description Re-verifies the opening user's password. Only one session can be open.
// @Tags cash
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.OpenSessionRequest true "Opening data"
// @Success 201 {object} dto.CashSessionResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/cash-sessions [post]
func (h *CashHandler) Open(c *gin.Context) {
	var req dto.OpenSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Open(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetOpen godoc
// @Summary Get the open cash session
// @Tags cash
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.CashSessionResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cash-sessions/open [get]
func (h *CashHandler) GetOpen(c *gin.Context) {
	resp, err := h.svc.GetOpenSession(c.Request.Context())
	if errors.Is(err, service.ErrNoOpenSession) {
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary Get a cash session with its closure
// @Tags cash
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} dto.CashSessionResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cash-sessions/{id} [get]
func (h *CashHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetSession(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Snapshot godoc
// @Summary Derived cash position of a session
// @Tags cash
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} dto.SnapshotResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cash-sessions/{id}/snapshot [get]
func (h *CashHandler) Snapshot(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.snapshot.GetSnapshot(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// OpenSnapshot godoc
// @Summary Derived cash position of the open session
// @Tags cash
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.SnapshotResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cash-sessions/open/snapshot [get]
func (h *CashHandler) OpenSnapshot(c *gin.Context) {
	resp, err := h.snapshot.GetOpenSnapshot(c.Request.Context())
	if errors.Is(err, service.ErrNoOpenSession) {
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AddMovement godoc
// @Summary Record a manual cash movement in the open session
// @Description An out movement is rejected when it would leave expected cash negative.
// @Tags cash
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CashMovementRequest true "Movement"
// @Success 201 {object} dto.CashMovementResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/cash-sessions/movements [post]
func (h *CashHandler) AddMovement(c *gin.Context) {
	var req dto.CashMovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddMovement(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Close godoc
// @Summary Close the open session with the declared totals
// @Tags cash
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param body body dto.CloseSessionRequest true "Declared totals"
// @Success 200 {object} dto.CashClosureResponse
// @Failure 404 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/cash-sessions/{id}/close [post]
func (h *CashHandler) Close(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.CloseSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Close(c.Request.Context(), middleware.CurrentUserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
