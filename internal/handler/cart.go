package handler

import (
	"net/http"

	"github.com/xenking/catering-kart/pkg/kartclient/cart"
)

type addToCartRequest struct {
	OfferingID string `json:"offering_id"`
	MealID     string `json:"meal_id"`
	GuestCount int    `json:"guest_count"`
	Quantity   int    `json:"quantity"`
}

// GetCart handles GET /api/cart.php.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, r, http.StatusOK)
}

// AddToCart handles POST /api/cart.php. Quantity defaults to 1.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if !decode(w, r, &req) {
		return
	}
	offeringID := req.OfferingID
	if offeringID == "" {
		offeringID = req.MealID
	}
	if offeringID == "" {
		writeError(w, http.StatusBadRequest, "offering_id is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if _, err := h.Cart.Add(r.Context(), identity(r).UserID, offeringID, req.GuestCount, req.Quantity); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCart(w, r, http.StatusCreated)
}

// UpdateCartItem handles PUT /api/cart_item.php?id=.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	var p cart.Patch
	if !decode(w, r, &p) {
		return
	}
	if _, err := h.Cart.Update(r.Context(), identity(r).UserID, id, p); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCart(w, r, http.StatusOK)
}

// RemoveCartItem handles DELETE /api/cart_item.php?id=. Removing an absent
// item is not an error.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	if err := h.Cart.Remove(r.Context(), identity(r).UserID, id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCart(w, r, http.StatusOK)
}

// ClearCart handles DELETE /api/cart.php.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.Cart.Clear(r.Context(), identity(r).UserID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCart(w, r, http.StatusOK)
}

func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, status int) {
	lines, err := h.Cart.List(r.Context(), identity(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, status, toCart(lines))
}
