package api

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"propdesk/internal/export"
	"propdesk/internal/models"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) handleListProperties(w http.ResponseWriter, r *http.Request) {
	properties, err := s.svc.ListProperties(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"properties": properties})
}

func (s *HTTPServer) handleListBrokers(w http.ResponseWriter, r *http.Request) {
	brokers, err := s.svc.ListBrokers(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"brokers": brokers})
}

func (s *HTTPServer) handleAddBroker(w http.ResponseWriter, r *http.Request) {
	var input models.BrokerInput
	if err := decodeJSON(r, &input); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	broker, err := s.svc.AddBroker(r.Context(), input)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.audit(r, "add_broker", broker.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"broker": broker})
}

func (s *HTTPServer) handleDeleteBroker(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.svc.DeleteBroker(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.audit(r, "delete_broker", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	brokerID := strings.TrimSpace(r.URL.Query().Get("broker_id"))
	customers, err := s.svc.ListCustomers(r.Context(), brokerID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

type registerCustomerRequest struct {
	BrokerID string `json:"broker_id"`
	models.CustomerInput
}

func (s *HTTPServer) handleRegisterCustomer(w http.ResponseWriter, r *http.Request) {
	var req registerCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	customer, err := s.svc.RegisterCustomer(r.Context(), strings.TrimSpace(req.BrokerID), req.CustomerInput)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.audit(r, "register_customer", customer.ID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"customer":     customer,
		"sla_deadline": customer.SLADeadline(s.slaWindow),
	})
}

func (s *HTTPServer) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := s.svc.GetCustomer(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"customer":     customer,
		"sla_deadline": customer.SLADeadline(s.slaWindow),
	})
}

func (s *HTTPServer) handleListCustomerBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.svc.ListCustomerBookings(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleIssueCode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	customer, err := s.svc.IssueCode(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.audit(r, "issue_code", id)
	writeJSON(w, http.StatusOK, map[string]any{
		"customer":     customer,
		"sla_deadline": customer.SLADeadline(s.slaWindow),
	})
}

func (s *HTTPServer) handleVerifyCustomer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	id := r.PathValue("id")
	booking, err := s.svc.VerifyCustomerOTP(r.Context(), id, req.Code)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.audit(r, "verify_customer", id)
	writeJSON(w, http.StatusCreated, map[string]any{"booking": booking})
}

func (s *HTTPServer) handleSendReminder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	customer, err := s.svc.SendReminder(r.Context(), r.PathValue("id"), req.Message)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customer": customer})
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	queue := models.Queue(strings.TrimSpace(r.URL.Query().Get("queue")))
	bookings, err := s.svc.ListBookings(r.Context(), queue)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := s.svc.GetBooking(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking": booking})
}

func (s *HTTPServer) handleSalesApprove(w http.ResponseWriter, r *http.Request) {
	s.bookingAction(w, r, "sales_approve", func(id string) (*models.Booking, error) {
		return s.svc.SalesApprove(r.Context(), id)
	})
}

func (s *HTTPServer) handleSalesDiscard(w http.ResponseWriter, r *http.Request) {
	reason, ok := s.decodeReason(w, r)
	if !ok {
		return
	}
	s.bookingAction(w, r, "sales_discard", func(id string) (*models.Booking, error) {
		return s.svc.SalesDiscard(r.Context(), id, reason)
	})
}

func (s *HTTPServer) handleAccountsDiscard(w http.ResponseWriter, r *http.Request) {
	reason, ok := s.decodeReason(w, r)
	if !ok {
		return
	}
	s.bookingAction(w, r, "accounts_discard", func(id string) (*models.Booking, error) {
		return s.svc.AccountsDiscard(r.Context(), id, reason)
	})
}

func (s *HTTPServer) handleResubmit(w http.ResponseWriter, r *http.Request) {
	s.bookingAction(w, r, "resubmit", func(id string) (*models.Booking, error) {
		return s.svc.ResubmitBooking(r.Context(), id)
	})
}

func (s *HTTPServer) handleAccountsApprove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	booking, tx, err := s.svc.AccountsApprove(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.audit(r, "accounts_approve", id)
	writeJSON(w, http.StatusOK, map[string]any{"booking": booking, "transaction": tx})
}

func (s *HTTPServer) bookingAction(w http.ResponseWriter, r *http.Request, action string, run func(id string) (*models.Booking, error)) {
	id := r.PathValue("id")
	booking, err := run(id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.audit(r, action, id)
	writeJSON(w, http.StatusOK, map[string]any{"booking": booking})
}

func (s *HTTPServer) decodeReason(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return "", false
	}
	return req.Reason, true
}

func (s *HTTPServer) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.svc.ListTransactions(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.svc.ListBookings(r.Context(), "")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	txs, err := s.svc.ListTransactions(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteLedger(&buf, bookings, txs); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	fileName := "ledger_" + time.Now().Format("2006-01-02") + ".xlsx"
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *HTTPServer) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Reset(r.Context()); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.audit(r, "reset", "")
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) audit(r *http.Request, action, id string) {
	role, _ := RoleFromContext(r.Context())
	s.logger.Info().Str("role", string(role)).Str("action", action).Str("id", id).Msg("workflow action")
}
