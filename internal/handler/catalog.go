package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/catering-kart/internal/domain/catalog"
)

// ListMeals handles GET /api/meals.php. With ?id= it returns one meal
// plan; otherwise ?occasion= and ?type= filter the listing.
func (h *Handler) ListMeals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if id := q.Get("id"); id != "" {
		o, err := h.Catalog.GetByID(r.Context(), id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeData(w, http.StatusOK, toMeal(*o))
		return
	}

	f := catalog.Filter{
		Occasion: strings.TrimSpace(q.Get("occasion")),
		Type:     catalog.DietType(strings.TrimSpace(q.Get("type"))),
	}
	if f.Occasion == "all" {
		f.Occasion = ""
	}
	if f.Type == "all" {
		f.Type = ""
	}
	if f.Type != "" && !f.Type.Valid() {
		writeError(w, http.StatusBadRequest, "type must be one of veg, non-veg, both")
		return
	}
	meals, err := h.Catalog.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toMeals(meals))
}

// ListOccasions handles GET /api/occasions.php.
func (h *Handler) ListOccasions(w http.ResponseWriter, r *http.Request) {
	list, err := h.Occasions.ListOccasions(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]occasionDTO, len(list))
	for i, o := range list {
		out[i] = toOccasion(o)
	}
	writeData(w, http.StatusOK, out)
}

// mealRequest is the admin create/update body. Items accepts any of the
// shapes catalog.ParseItems understands.
type mealRequest struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Occasion    string          `json:"occasion"`
	Price       decimal.Decimal `json:"price"`
	Type        string          `json:"type"`
	Items       json.RawMessage `json:"items"`
	GuestTiers  []int           `json:"guest_tiers"`
	Recommended bool            `json:"recommended"`
	Popular     bool            `json:"popular"`
	Custom      bool            `json:"custom"`
	Image       string          `json:"image"`
}

func (req mealRequest) offering() (*catalog.Offering, error) {
	items, err := catalog.ParseItems(req.Items)
	if err != nil {
		return nil, &catalog.ValidationError{Field: "items", Reason: "unsupported format"}
	}
	o := &catalog.Offering{
		ID:          strings.TrimSpace(req.ID),
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Occasion:    req.Occasion,
		Price:       req.Price,
		Type:        catalog.DietType(strings.TrimSpace(req.Type)),
		Items:       items,
		GuestTiers:  req.GuestTiers,
		Recommended: req.Recommended,
		Popular:     req.Popular,
		Custom:      req.Custom,
		Image:       strings.TrimSpace(req.Image),
	}
	if err := o.Normalize(); err != nil {
		return nil, err
	}
	return o, nil
}

// AdminCreateMeal handles POST /api/admin/meals.php.
func (h *Handler) AdminCreateMeal(w http.ResponseWriter, r *http.Request) {
	var req mealRequest
	if !decode(w, r, &req) {
		return
	}
	o, err := req.offering()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if err := h.Catalog.Create(r.Context(), o); err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, toMeal(*o))
}

// AdminUpdateMeal handles PUT /api/admin/meals.php?id=.
func (h *Handler) AdminUpdateMeal(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	var req mealRequest
	if !decode(w, r, &req) {
		return
	}
	req.ID = id
	o, err := req.offering()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Catalog.Update(r.Context(), o); err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toMeal(*o))
}

// AdminDeleteMeal handles DELETE /api/admin/meals.php?id=.
func (h *Handler) AdminDeleteMeal(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	if err := h.Catalog.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeMessage(w, "Meal plan deleted")
}

type occasionRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	SortOrder   int    `json:"sort_order"`
}

func (req occasionRequest) occasion() (*catalog.Occasion, error) {
	o := &catalog.Occasion{
		ID:          req.ID,
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Image:       strings.TrimSpace(req.Image),
		SortOrder:   req.SortOrder,
	}
	if err := o.Normalize(); err != nil {
		return nil, err
	}
	return o, nil
}

// AdminCreateOccasion handles POST /api/admin/occasions.php.
func (h *Handler) AdminCreateOccasion(w http.ResponseWriter, r *http.Request) {
	var req occasionRequest
	if !decode(w, r, &req) {
		return
	}
	o, err := req.occasion()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Occasions.CreateOccasion(r.Context(), o); err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, toOccasion(*o))
}

// AdminUpdateOccasion handles PUT /api/admin/occasions.php?id=.
func (h *Handler) AdminUpdateOccasion(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	var req occasionRequest
	if !decode(w, r, &req) {
		return
	}
	req.ID = id
	o, err := req.occasion()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Occasions.UpdateOccasion(r.Context(), o); err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toOccasion(*o))
}

// AdminDeleteOccasion handles DELETE /api/admin/occasions.php?id=.
func (h *Handler) AdminDeleteOccasion(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	if err := h.Occasions.DeleteOccasion(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeMessage(w, "Occasion deleted")
}
