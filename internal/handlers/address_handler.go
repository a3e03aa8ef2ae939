package handlers

import (
	"net/http"

	"delivery_api/internal/services"

	"github.com/gin-gonic/gin"
)

type AddressHandler struct {
	addresses services.AddressService
}

func NewAddressHandler(addresses services.AddressService) *AddressHandler {
	return &AddressHandler{addresses: addresses}
}

func (h *AddressHandler) List(c *gin.Context) {
	addresses, err := h.addresses.List(c.Request.Context(), CallerFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, addresses)
}

func (h *AddressHandler) Create(c *gin.Context) {
	var req services.AddressInput
	if !bindJSON(c, &req) {
		return
	}

	address, err := h.addresses.Create(c.Request.Context(), CallerFrom(c).UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, address)
}

func (h *AddressHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.AddressInput
	if !bindJSON(c, &req) {
		return
	}

	address, err := h.addresses.Update(c.Request.Context(), CallerFrom(c).UserID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, address)
}

func (h *AddressHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.addresses.Delete(c.Request.Context(), CallerFrom(c).UserID, id); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Address removed")
}
