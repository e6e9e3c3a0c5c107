package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
)

// UserKeyHeader carries the session's user key.
const UserKeyHeader = "X-User-Key"

type HTTPHandler struct {
	front    *service.Storefront
	requests *service.CartRequests
	catalog  port.Catalog
	logger   *zap.Logger
}

func NewHTTPHandler(front *service.Storefront, requests *service.CartRequests, catalog port.Catalog, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		front:    front,
		requests: requests,
		catalog:  catalog,
		logger:   logger.Named("http"),
	}
}

func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.listProducts)
		r.Get("/products/{id}/stock", h.getStock)
		r.Post("/catalog/reconcile", h.reconcile)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.getCart)
			r.Post("/items", h.addToCart)
			r.Post("/select", h.selectAll)
			r.Patch("/lines/{id}", h.setQuantity)
			r.Post("/lines/{id}/toggle", h.toggleLine)
			r.Post("/lines/{id}/decrement", h.decrementLine)
			r.Delete("/lines/{id}", h.removeLine)
		})

		r.Post("/checkout", h.checkout)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.listOrders)
			r.Post("/{id}/deliver", h.deliverOrder)
			r.Post("/{id}/cancel", h.cancelOrder)
		})
	})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	var resp []ProductResponse
	err := h.front.Exec(func() error {
		products, err := h.catalog.Products(r.Context())
		if err != nil {
			return err
		}
		resp = make([]ProductResponse, 0, len(products))
		for _, p := range products {
			stock, err := h.front.Ledger.GetStock(r.Context(), p.ID)
			if err != nil {
				return err
			}
			resp = append(resp, ProductResponse{ID: p.ID, Name: p.Name, UnitPrice: p.UnitPrice, Available: stock})
		}
		return nil
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) getStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	var stock int
	err := h.front.Exec(func() error {
		var err error
		stock, err = h.front.Ledger.GetStock(r.Context(), productID)
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StockResponse{ProductID: productID, Available: stock})
}

func (h *HTTPHandler) reconcile(w http.ResponseWriter, r *http.Request) {
	err := h.front.Exec(func() error {
		products, err := h.catalog.Products(r.Context())
		if err != nil {
			return err
		}
		return h.front.Ledger.ReconcileCatalog(r.Context(), products)
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) getCart(w http.ResponseWriter, r *http.Request) {
	h.respondCart(w, r, http.StatusOK)
}

func (h *HTTPHandler) addToCart(w http.ResponseWriter, r *http.Request) {
	var req AddToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "bad_request", Message: "invalid request body"})
		return
	}

	// The request channel's host serialises the add itself.
	line, err := h.requests.Request(r.Context(), userKey(r), req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartLine(line))
}

func (h *HTTPHandler) selectAll(w http.ResponseWriter, r *http.Request) {
	var req SelectAllRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "bad_request", Message: "invalid request body"})
		return
	}
	err := h.front.Exec(func() error {
		return h.front.Carts.SelectAll(r.Context(), userKey(r), req.Selected)
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

func (h *HTTPHandler) setQuantity(w http.ResponseWriter, r *http.Request) {
	var req SetQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "bad_request", Message: "invalid request body"})
		return
	}
	h.lineOp(w, r, func(key, lineID string) (domain.CartLine, error) {
		return h.front.Carts.SetQuantity(r.Context(), key, lineID, req.Quantity)
	})
}

func (h *HTTPHandler) toggleLine(w http.ResponseWriter, r *http.Request) {
	h.lineOp(w, r, func(key, lineID string) (domain.CartLine, error) {
		return h.front.Carts.ToggleSelected(r.Context(), key, lineID)
	})
}

func (h *HTTPHandler) decrementLine(w http.ResponseWriter, r *http.Request) {
	var resp CartLineResponse
	err := h.front.Exec(func() error {
		line, removed, err := h.front.Carts.Decrement(r.Context(), userKey(r), chi.URLParam(r, "id"))
		resp = toCartLine(line)
		resp.Removed = removed
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) removeLine(w http.ResponseWriter, r *http.Request) {
	err := h.front.Exec(func() error {
		return h.front.Carts.RemoveLine(r.Context(), userKey(r), chi.URLParam(r, "id"))
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var order domain.Order
	err := h.front.Exec(func() error {
		var err error
		order, err = h.front.Orders.Checkout(r.Context(), userKey(r))
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrder(order))
}

func (h *HTTPHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	var orders []domain.Order
	err := h.front.Exec(func() error {
		var err error
		orders, err = h.front.Orders.ListForUser(r.Context(), userKey(r))
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrders(orders))
}

func (h *HTTPHandler) deliverOrder(w http.ResponseWriter, r *http.Request) {
	h.orderOp(w, r, h.front.Orders.ConfirmDelivery)
}

func (h *HTTPHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	h.orderOp(w, r, h.front.Orders.Cancel)
}

func (h *HTTPHandler) respondCart(w http.ResponseWriter, r *http.Request, status int) {
	var view domain.CartView
	err := h.front.Exec(func() error {
		var err error
		view, err = h.front.Carts.View(r.Context(), userKey(r))
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, status, toCart(view))
}

func (h *HTTPHandler) lineOp(w http.ResponseWriter, r *http.Request, op func(userKey, lineID string) (domain.CartLine, error)) {
	var line domain.CartLine
	err := h.front.Exec(func() error {
		var err error
		line, err = op(userKey(r), chi.URLParam(r, "id"))
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartLine(line))
}

type orderTransition func(ctx context.Context, userKey, orderID string) (domain.Order, error)

func (h *HTTPHandler) orderOp(w http.ResponseWriter, r *http.Request, op orderTransition) {
	var order domain.Order
	err := h.front.Exec(func() error {
		var err error
		order, err = op(r.Context(), userKey(r), chi.URLParam(r, "id"))
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrder(order))
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	m, body := classify(err)
	if m.status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, m.status, body)
}

func userKey(r *http.Request) string {
	return r.Header.Get(UserKeyHeader)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
