package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/freight-contracts/internal/http/middleware"
	"github.com/nurpe/freight-contracts/internal/model"
	"github.com/nurpe/freight-contracts/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	partyRoles = []string{
		model.RoleForwarderAdmin,
		model.RoleForwarderManager,
		model.RoleCustomerAdmin,
		model.RoleCustomerManager,
	}
	forwarderRoles = []string{
		model.RoleForwarderAdmin,
		model.RoleForwarderManager,
	}
)

type Handler struct {
	contracts  *service.ContractService
	agreements *service.AgreementService
	tariffs    *service.TariffService
	resolver   *service.PriceResolver
	editPolicy service.TariffEditPolicy
	log        zerolog.Logger
}

func NewHandler(
	contracts *service.ContractService,
	agreements *service.AgreementService,
	tariffs *service.TariffService,
	resolver *service.PriceResolver,
	editPolicy service.TariffEditPolicy,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		contracts:  contracts,
		agreements: agreements,
		tariffs:    tariffs,
		resolver:   resolver,
		editPolicy: editPolicy,
		log:        log,
	}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/contracts")
	protected.Use(authMiddleware)

	parties := middleware.RequireRoles(partyRoles...)
	forwarders := middleware.RequireRoles(forwarderRoles...)
	tariffEditors := forwarders
	if h.editPolicy == service.TariffEditAnyParty {
		tariffEditors = parties
	}

	protected.POST("", forwarders, h.createContract)
	protected.GET("", parties, h.listContracts)
	protected.GET("/tariff-lookup", parties, h.lookupTariff)
	protected.GET("/pending-agreements", parties, h.listPendingAgreements)
	protected.GET("/:id", parties, h.getContract)
	protected.GET("/:id/tariffs/export", parties, h.exportTariffs)
	protected.POST("/:id/agreements", parties, h.createAgreement)

	protected.GET("/agreements/:id", parties, h.getAgreement)
	protected.PUT("/agreements/:id/send", parties, h.sendAgreement)
	protected.PUT("/agreements/:id/approve", parties, h.approveAgreement)
	protected.PUT("/agreements/:id/reject", parties, h.rejectAgreement)
	protected.POST("/agreements/:id/tariffs", parties, h.addTariff)

	protected.PUT("/tariffs/:id", tariffEditors, h.updateTariff)
	protected.DELETE("/tariffs/:id", tariffEditors, h.removeTariff)
}

type createContractRequest struct {
	CustomerCompanyID string  `json:"customerCompanyId" binding:"required"`
	ContractNumber    string  `json:"contractNumber"`
	StartDate         *string `json:"startDate"`
	EndDate           *string `json:"endDate"`
	Notes             *string `json:"notes"`
}

type tariffRequest struct {
	OriginCityID      string  `json:"originCityId" binding:"required"`
	DestinationCityID string  `json:"destinationCityId" binding:"required"`
	Price             float64 `json:"price"`
	VehicleType       *string `json:"vehicleType"`
}

type createAgreementRequest struct {
	AgreementNumber string          `json:"agreementNumber"`
	ValidFrom       *string         `json:"validFrom"`
	ValidTo         *string         `json:"validTo"`
	Notes           *string         `json:"notes"`
	Tariffs         []tariffRequest `json:"tariffs" binding:"dive"`
}

type rejectAgreementRequest struct {
	Reason *string `json:"reason"`
}

// optionalString tells an absent key apart from an explicit null.
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	o.Value = &value
	return nil
}

type updateTariffRequest struct {
	Price       *float64       `json:"price"`
	VehicleType optionalString `json:"vehicleType"`
	IsActive    *bool          `json:"isActive"`
}

func (h *Handler) createContract(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req createContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	customerID, err := uuid.Parse(strings.TrimSpace(req.CustomerCompanyID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customerCompanyId"})
		return
	}
	startDate, err := parseOptionalDate(req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid startDate"})
		return
	}
	endDate, err := parseOptionalDate(req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid endDate"})
		return
	}

	contract, err := h.contracts.CreateContract(c.Request.Context(), service.CreateContractInput{
		ForwarderCompanyID: principal.CompanyID,
		CustomerCompanyID:  customerID,
		ContractNumber:     req.ContractNumber,
		StartDate:          startDate,
		EndDate:            endDate,
		Notes:              req.Notes,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contract)
}

func (h *Handler) listContracts(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	contracts, err := h.contracts.ListContracts(c.Request.Context(), principal.CompanyID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contracts)
}

func (h *Handler) getContract(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	contractID, ok := pathID(c)
	if !ok {
		return
	}

	contract, err := h.contracts.GetContract(c.Request.Context(), contractID, principal.CompanyID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (h *Handler) exportTariffs(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	contractID, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.contracts.ExportTariffs(c.Request.Context(), contractID, principal.CompanyID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, xlsxContentType, result.Content)
}

func (h *Handler) lookupTariff(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	at, err := parseOptionalDate(optionalQuery(c, "at"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid at"})
		return
	}

	query := service.CustomerTariffLookup{
		OriginCityName:      c.Query("originCity"),
		DestinationCityName: c.Query("destinationCity"),
		VehicleType:         optionalQuery(c, "vehicleType"),
	}
	if at != nil {
		query.At = *at
	}

	if principal.IsForwarder() {
		customerID, err := uuid.Parse(strings.TrimSpace(c.Query("customerCompanyId")))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "customerCompanyId is required for forwarders"})
			return
		}
		forwarderID := principal.CompanyID
		query.CustomerCompanyID = customerID
		query.ForwarderCompanyID = &forwarderID
	} else {
		query.CustomerCompanyID = principal.CompanyID
		if raw := optionalQuery(c, "forwarderCompanyId"); raw != nil {
			forwarderID, err := uuid.Parse(*raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid forwarderCompanyId"})
				return
			}
			query.ForwarderCompanyID = &forwarderID
		}
	}

	tariff, err := h.resolver.LookupTariffForCustomer(c.Request.Context(), query)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, tariff)
}

func (h *Handler) createAgreement(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	contractID, ok := pathID(c)
	if !ok {
		return
	}

	var req createAgreementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	validFrom, err := parseOptionalDate(req.ValidFrom)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid validFrom"})
		return
	}
	validTo, err := parseOptionalDate(req.ValidTo)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid validTo"})
		return
	}

	tariffs := make([]service.TariffInput, 0, len(req.Tariffs))
	for _, raw := range req.Tariffs {
		input, err := raw.toInput()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		tariffs = append(tariffs, input)
	}

	agreement, err := h.agreements.CreateAgreement(c.Request.Context(), service.CreateAgreementInput{
		ContractID:      contractID,
		CompanyID:       principal.CompanyID,
		UserID:          principal.UserID,
		AgreementNumber: req.AgreementNumber,
		ValidFrom:       validFrom,
		ValidTo:         validTo,
		Notes:           req.Notes,
		Tariffs:         tariffs,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, agreement)
}

func (h *Handler) getAgreement(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	agreementID, ok := pathID(c)
	if !ok {
		return
	}

	agreement, err := h.agreements.GetAgreement(c.Request.Context(), agreementID, principal.CompanyID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, agreement)
}

func (h *Handler) sendAgreement(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	agreementID, ok := pathID(c)
	if !ok {
		return
	}

	agreement, err := h.agreements.SendAgreement(c.Request.Context(), agreementID, principal.CompanyID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, agreement)
}

func (h *Handler) approveAgreement(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	agreementID, ok := pathID(c)
	if !ok {
		return
	}

	agreement, err := h.agreements.ApproveAgreement(c.Request.Context(), agreementID, principal.CompanyID, principal.UserID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, agreement)
}

func (h *Handler) rejectAgreement(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	agreementID, ok := pathID(c)
	if !ok {
		return
	}

	// The body is optional.
	var req rejectAgreementRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	agreement, err := h.agreements.RejectAgreement(c.Request.Context(), agreementID, principal.CompanyID, req.Reason)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, agreement)
}

func (h *Handler) listPendingAgreements(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	agreements, err := h.agreements.ListPendingAgreements(c.Request.Context(), principal.CompanyID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, agreements)
}

func (h *Handler) addTariff(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	agreementID, ok := pathID(c)
	if !ok {
		return
	}

	var req tariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tariff, err := h.tariffs.AddTariff(c.Request.Context(), agreementID, principal.CompanyID, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tariff)
}

func (h *Handler) updateTariff(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	tariffID, ok := pathID(c)
	if !ok {
		return
	}

	var req updateTariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tariff, err := h.tariffs.UpdateTariff(c.Request.Context(), tariffID, principal.CompanyID, service.UpdateTariffInput{
		Price:       req.Price,
		VehicleType: service.OptionalString{Set: req.VehicleType.Set, Value: req.VehicleType.Value},
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, tariff)
}

func (h *Handler) removeTariff(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	tariffID, ok := pathID(c)
	if !ok {
		return
	}

	tariff, err := h.tariffs.RemoveTariff(c.Request.Context(), tariffID, principal.CompanyID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, tariff)
}

func (h *Handler) principal(c *gin.Context) (model.Principal, bool) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
	}
	return principal, ok
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (r tariffRequest) toInput() (service.TariffInput, error) {
	origin, err := uuid.Parse(strings.TrimSpace(r.OriginCityID))
	if err != nil {
		return service.TariffInput{}, errors.New("invalid originCityId")
	}
	destination, err := uuid.Parse(strings.TrimSpace(r.DestinationCityID))
	if err != nil {
		return service.TariffInput{}, errors.New("invalid destinationCityId")
	}
	return service.TariffInput{
		OriginCityID:      origin,
		DestinationCityID: destination,
		Price:             r.Price,
		VehicleType:       r.VehicleType,
	}, nil
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

func optionalQuery(c *gin.Context, key string) *string {
	value, ok := c.GetQuery(key)
	if !ok {
		return nil
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func parseOptionalDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := parseDate(*raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrInvalidInput
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}
