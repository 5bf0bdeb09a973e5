package handler

import (
	"net/http"
	"strconv"
)

// AdminDashboard handles GET /api/admin/dashboard.php.
func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Admin.Dashboard(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toDashboard(d))
}

// AdminAnalytics handles GET /api/admin/analytics.php?days=.
func (h *Handler) AdminAnalytics(w http.ResponseWriter, r *http.Request) {
	var days int
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}
	a, err := h.Admin.Analytics(r.Context(), days)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toAnalytics(a))
}

// AdminCustomers handles GET /api/admin/customers.php.
func (h *Handler) AdminCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Admin.Customers(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toCustomers(customers))
}
