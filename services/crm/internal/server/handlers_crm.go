package server

import (
	"net/http"

	"patorama/pkg/domain"
	"patorama/services/crm/internal/app"
)

// customers

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request, _ domain.User) {
	q := r.URL.Query()
	page, err := s.app.ListCustomers(r.Context(), q.Get("search"), queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request, _ domain.User) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := s.app.GetCustomer(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req app.CustomerInput
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := s.app.CreateCustomer(r.Context(), user, req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":    "Customer created successfully",
		"customerId": c.ID,
	})
}

func (s *Server) handleUpdateCustomer(w http.ResponseWriter, r *http.Request, user domain.User) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch domain.CustomerPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	if err := s.app.UpdateCustomer(r.Context(), user, id, patch); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Customer updated successfully")
}

func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request, user domain.User) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.app.DeleteCustomer(r.Context(), user, id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Customer deleted successfully")
}

// catalog

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request, _ domain.User) {
	products, err := s.app.ListProducts(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request, _ domain.User) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := s.app.GetProduct(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req app.ProductInput
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := s.app.CreateProduct(r.Context(), user, req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":   "Product created successfully",
		"productId": p.ID,
	})
}

func (s *Server) handleAddVariant(w http.ResponseWriter, r *http.Request, user domain.User) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req app.VariantInput
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := s.app.AddVariant(r.Context(), user, id, req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":   "Product variant created successfully",
		"variantId": v.ID,
	})
}

// notifications

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request, user domain.User) {
	list, err := s.app.ListNotifications(r.Context(), user)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request, user domain.User) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.app.MarkNotificationRead(r.Context(), user, id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Notification marked as read")
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request, user domain.User) {
	n, err := s.app.MarkAllNotificationsRead(r.Context(), user)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "All notifications marked as read",
		"updated": n,
	})
}

// invoices

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request, user domain.User) {
	page, err := s.app.ListInvoices(r.Context(), user, app.InvoiceQuery{
		Status:     r.URL.Query().Get("status"),
		CustomerID: queryID(r, "customer_id"),
		Page:       queryInt(r, "page"),
		Limit:      queryInt(r, "limit"),
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req struct {
		JobID int64 `json:"job_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	inv, err := s.app.CreateInvoice(r.Context(), user, req.JobID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":   "Invoice created successfully",
		"invoiceId": inv.ID,
	})
}

func (s *Server) handleSyncInvoice(w http.ResponseWriter, r *http.Request, user domain.User) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	externalID, err := s.app.SyncInvoice(r.Context(), user, id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "Invoice synced with Xero",
		"xero_invoice_id": externalID,
	})
}

func (s *Server) handlePaymentStatus(w http.ResponseWriter, r *http.Request, _ domain.User) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	status, err := s.app.PaymentStatus(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
