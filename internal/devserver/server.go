package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/foodking/internal/lifecycle"
	"github.com/roach88/foodking/internal/model"
)

// TokenTTL is how long an issued bearer token stays valid.
const TokenTTL = 24 * time.Hour

var taxRate = decimal.NewFromFloat(0.05)

type staffRecord struct {
	staff model.Staff
	hash  []byte
}

type fault struct {
	status int
	left   int
}

// Server is the in-memory backend. It implements http.Handler.
type Server struct {
	router *mux.Router
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	mu       sync.Mutex
	secret   []byte
	menu     []model.MenuItem
	staff    map[string]staffRecord // by lowercased email
	orders   map[string]*model.Order
	sequence []string          // order ids, oldest first
	seenKeys map[string]string // idempotency key -> order id
	faults   []fault
	requests int
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the time source used for createdAt, token expiry and the
// dashboard's notion of "today".
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithIDs sets the generator for order, staff and menu item ids. The
// default is random UUIDs.
func WithIDs(next func() string) Option {
	return func(s *Server) { s.newID = next }
}

// WithSecret sets the token signing key. The default is random per server.
func WithSecret(secret []byte) Option {
	return func(s *Server) { s.secret = secret }
}

// New creates an empty server.
func New(opts ...Option) *Server {
	s := &Server{
		logger:   slog.Default(),
		now:      time.Now,
		newID:    uuid.NewString,
		secret:   newSecret(),
		staff:    make(map[string]staffRecord),
		orders:   make(map[string]*model.Order),
		seenKeys: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func newSecret() []byte {
	id := uuid.New()
	return id[:]
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.countRequests, s.injectFaults)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", s.requireStaff(s.handleMe)).Methods(http.MethodGet)
	api.HandleFunc("/menu", s.handleListMenu).Methods(http.MethodGet)
	api.HandleFunc("/menu", s.requireStaff(s.handleCreateMenuItem)).Methods(http.MethodPost)
	api.HandleFunc("/menu/{id}", s.handleGetMenuItem).Methods(http.MethodGet)
	api.HandleFunc("/menu/{id}", s.requireStaff(s.handleUpdateMenuItem)).Methods(http.MethodPut)
	api.HandleFunc("/menu/{id}", s.requireStaff(s.handleDeleteMenuItem)).Methods(http.MethodDelete)
	api.HandleFunc("/menu/{id}/toggle-availability", s.requireStaff(s.handleToggleAvailability)).Methods(http.MethodPatch)
	api.HandleFunc("/orders", s.handleCreateOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders", s.requireStaff(s.handleListOrders)).Methods(http.MethodGet)
	api.HandleFunc("/orders/stats/dashboard", s.requireStaff(s.handleDashboard)).Methods(http.MethodGet)
	api.HandleFunc("/orders/customer/{phone}", s.handleOrdersByPhone).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}/status", s.requireStaff(s.handleUpdateStatus)).Methods(http.MethodPut)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// AddMenuItem adds or replaces a menu item. An empty ID is assigned.
func (s *Server) AddMenuItem(item model.MenuItem) model.MenuItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == "" {
		item.ID = s.newID()
	}
	for i := range s.menu {
		if s.menu[i].ID == item.ID {
			s.menu[i] = item
			return item
		}
	}
	s.menu = append(s.menu, item)
	return item
}

// AddStaff registers a staff account.
func (s *Server) AddStaff(name, email, password string) (model.Staff, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.Staff{}, fmt.Errorf("hash password: %w", err)
	}
	st := model.Staff{ID: s.newID(), Name: name, Email: email}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staff[strings.ToLower(email)] = staffRecord{staff: st, hash: hash}
	return st, nil
}

// Order returns the server's copy of an order.
func (s *Server) Order(id string) (model.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return model.Order{}, false
	}
	return cloneOrder(o), true
}

// Orders returns the server's copy of every order, oldest first.
func (s *Server) Orders() []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Order, 0, len(s.sequence))
	for _, id := range s.sequence {
		out = append(out, cloneOrder(s.orders[id]))
	}
	return out
}

// SetStatus changes an order's status without enforcing the transition
// table, as another staff client or a back-office tool would.
func (s *Server) SetStatus(id string, status model.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("order %s not found", id)
	}
	o.Status = status
	return nil
}

// FailNext makes the next n requests fail with status.
func (s *Server) FailNext(status, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, fault{status: status, left: n})
}

// Expire rotates the signing key, invalidating every issued token.
func (s *Server) Expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secret = newSecret()
}

// Requests returns the number of requests received, including failed ones.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status := 0
		if len(s.faults) > 0 {
			status = s.faults[0].status
			s.faults[0].left--
			if s.faults[0].left <= 0 {
				s.faults = s.faults[1:]
			}
		}
		s.mu.Unlock()
		if status != 0 {
			s.logger.Debug("injected fault", "path", r.URL.Path, "status", status)
			writeError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Auth

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.mu.Lock()
	rec, ok := s.staff[strings.ToLower(strings.TrimSpace(req.Email))]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(rec.hash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	token, err := s.issueToken(rec.staff)
	if err != nil {
		s.logger.Error("issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not create session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"admin":   rec.staff,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, st model.Staff) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"admin":   st,
	})
}

func (s *Server) issueToken(st model.Staff) (string, error) {
	claims := jwt.MapClaims{
		"user_id": st.ID,
		"email":   st.Email,
		"exp":     s.now().Add(TokenTTL).Unix(),
	}
	s.mu.Lock()
	secret := s.secret
	s.mu.Unlock()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// authenticate resolves the bearer token of r to a staff account.
func (s *Server) authenticate(r *http.Request) (model.Staff, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return model.Staff{}, errors.New("missing bearer token")
	}
	s.mu.Lock()
	secret := s.secret
	s.mu.Unlock()

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return model.Staff{}, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return model.Staff{}, errors.New("unexpected claims")
	}
	email, _ := claims["email"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.staff[strings.ToLower(email)]
	if !ok {
		return model.Staff{}, errors.New("unknown staff account")
	}
	return rec.staff, nil
}

func (s *Server) requireStaff(h func(http.ResponseWriter, *http.Request, model.Staff)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.authenticate(r)
		if err != nil {
			s.logger.Debug("rejected token", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusUnauthorized, "Not authorized")
			return
		}
		h(w, r, st)
	}
}

// Menu

func (s *Server) handleListMenu(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	availableOnly := r.URL.Query().Get("available") == "true"

	s.mu.Lock()
	items := make([]model.MenuItem, 0, len(s.menu))
	for _, it := range s.menu {
		if category != "" && !strings.EqualFold(it.Category, category) {
			continue
		}
		if availableOnly && !it.Available {
			continue
		}
		items = append(items, it)
	}
	s.mu.Unlock()

	writeData(w, http.StatusOK, items)
}

func (s *Server) handleGetMenuItem(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	item, ok := s.menuItem(mux.Vars(r)["id"])
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Menu item not found")
		return
	}
	writeData(w, http.StatusOK, item)
}

// decodeMenuItem reads and checks a create or update body. It writes the
// error response itself and reports whether the caller may continue.
func decodeMenuItem(w http.ResponseWriter, r *http.Request) (model.MenuItemRequest, bool) {
	var req model.MenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	return req, true
}

func (s *Server) handleCreateMenuItem(w http.ResponseWriter, r *http.Request, st model.Staff) {
	req, ok := decodeMenuItem(w, r)
	if !ok {
		return
	}
	item := s.AddMenuItem(menuItemFrom("", req))
	s.logger.Info("menu item created", "item_id", item.ID, "staff", st.Email)
	writeData(w, http.StatusCreated, item)
}

func (s *Server) handleUpdateMenuItem(w http.ResponseWriter, r *http.Request, st model.Staff) {
	id := mux.Vars(r)["id"]
	req, ok := decodeMenuItem(w, r)
	if !ok {
		return
	}
	item := menuItemFrom(id, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.menuIndex(id)
	if i < 0 {
		writeError(w, http.StatusNotFound, "Menu item not found")
		return
	}
	s.menu[i] = item
	s.logger.Info("menu item updated", "item_id", id, "staff", st.Email)
	writeData(w, http.StatusOK, item)
}

func (s *Server) handleDeleteMenuItem(w http.ResponseWriter, r *http.Request, st model.Staff) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.menuIndex(id)
	if i < 0 {
		writeError(w, http.StatusNotFound, "Menu item not found")
		return
	}
	s.menu = append(s.menu[:i], s.menu[i+1:]...)
	s.logger.Info("menu item deleted", "item_id", id, "staff", st.Email)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Menu item deleted"})
}

func (s *Server) handleToggleAvailability(w http.ResponseWriter, r *http.Request, st model.Staff) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.menuIndex(id)
	if i < 0 {
		writeError(w, http.StatusNotFound, "Menu item not found")
		return
	}
	s.menu[i].Available = !s.menu[i].Available
	s.logger.Info("menu item availability changed", "item_id", id, "available", s.menu[i].Available, "staff", st.Email)
	writeData(w, http.StatusOK, s.menu[i])
}

func menuItemFrom(id string, req model.MenuItemRequest) model.MenuItem {
	return model.MenuItem{
		ID:          id,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Category:    strings.TrimSpace(req.Category),
		Image:       strings.TrimSpace(req.Image),
		Available:   req.Available,
	}
}

// Orders

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req model.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = model.PaymentCOD
	}
	if msg := checkCreate(req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	key := r.Header.Get("Idempotency-Key")

	s.mu.Lock()
	defer s.mu.Unlock()

	if key != "" {
		if id, ok := s.seenKeys[key]; ok {
			writeData(w, http.StatusCreated, cloneOrder(s.orders[id]))
			return
		}
	}

	lines := make([]model.OrderLine, 0, len(req.Items))
	subtotal := decimal.Zero
	for _, ri := range req.Items {
		item, ok := s.menuItem(ri.ItemID)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Menu item %s not found", ri.ItemID))
			return
		}
		if !item.Available {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s is currently unavailable", item.Name))
			return
		}
		line := model.OrderLine{ItemID: item.ID, Name: item.Name, Price: item.Price, Quantity: ri.Quantity}
		lines = append(lines, line)
		subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(ri.Quantity))))
	}
	tax := subtotal.Mul(taxRate).Round(0)

	o := &model.Order{
		ID:               s.newID(),
		Lines:            lines,
		Subtotal:         subtotal,
		Tax:              tax,
		TotalAmount:      subtotal.Add(tax),
		CustomerName:     strings.TrimSpace(req.CustomerName),
		CustomerPhone:    strings.TrimSpace(req.CustomerPhone),
		DeliveryAddress:  strings.TrimSpace(req.DeliveryAddress),
		CustomerLocation: req.CustomerLocation,
		PaymentMethod:    req.PaymentMethod,
		Status:           model.StatusPending,
		CreatedAt:        s.now().UTC(),
	}
	s.orders[o.ID] = o
	s.sequence = append(s.sequence, o.ID)
	if key != "" {
		s.seenKeys[key] = o.ID
	}
	s.logger.Info("order placed", "order_id", o.ID, "total", o.TotalAmount.String())
	writeData(w, http.StatusCreated, cloneOrder(o))
}

func checkCreate(req model.CreateOrderRequest) string {
	var missing []string
	if strings.TrimSpace(req.CustomerName) == "" {
		missing = append(missing, "customerName")
	}
	if strings.TrimSpace(req.CustomerPhone) == "" {
		missing = append(missing, "customerPhone")
	}
	if strings.TrimSpace(req.DeliveryAddress) == "" {
		missing = append(missing, "deliveryAddress")
	}
	if len(missing) > 0 {
		return "Missing required fields: " + strings.Join(missing, ", ")
	}
	if len(req.Items) == 0 {
		return "Order must contain at least one item"
	}
	for _, it := range req.Items {
		if it.Quantity < 1 {
			return fmt.Sprintf("Invalid quantity for item %s", it.ItemID)
		}
	}
	if !req.PaymentMethod.Valid() {
		return fmt.Sprintf("Unsupported payment method %q", req.PaymentMethod)
	}
	return ""
}

// menuItem must be called with s.mu held.
func (s *Server) menuItem(id string) (model.MenuItem, bool) {
	if i := s.menuIndex(id); i >= 0 {
		return s.menu[i], true
	}
	return model.MenuItem{}, false
}

// menuIndex must be called with s.mu held.
func (s *Server) menuIndex(id string) int {
	for i, it := range s.menu {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request, _ model.Staff) {
	var status model.OrderStatus
	if v := r.URL.Query().Get("status"); v != "" {
		parsed, err := model.ParseStatus(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown status %q", v))
			return
		}
		status = parsed
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid limit %q", v))
			return
		}
		limit = n
	}

	s.mu.Lock()
	orders := s.newestFirst()
	s.mu.Unlock()

	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if status != "" && o.Status != status {
			continue
		}
		out = append(out, o)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	writeData(w, http.StatusOK, out)
}

// newestFirst must be called with s.mu held.
func (s *Server) newestFirst() []model.Order {
	out := make([]model.Order, 0, len(s.sequence))
	for i := len(s.sequence) - 1; i >= 0; i-- {
		out = append(out, cloneOrder(s.orders[s.sequence[i]]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	o, ok := s.Order(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Order not found")
		return
	}
	writeData(w, http.StatusOK, o)
}

func (s *Server) handleOrdersByPhone(w http.ResponseWriter, r *http.Request) {
	phone := strings.TrimSpace(mux.Vars(r)["phone"])

	s.mu.Lock()
	orders := s.newestFirst()
	s.mu.Unlock()

	out := make([]model.Order, 0)
	for _, o := range orders {
		if o.CustomerPhone == phone {
			out = append(out, o)
		}
	}
	writeData(w, http.StatusOK, out)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request, st model.Staff) {
	id := mux.Vars(r)["id"]
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	next, err := model.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown status %q", req.Status))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Order not found")
		return
	}
	if err := lifecycle.Apply(o, next); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Cannot change order from %s to %s", o.Status, next))
		return
	}
	s.logger.Info("order status changed", "order_id", id, "status", next, "staff", st.Email)
	writeData(w, http.StatusOK, cloneOrder(o))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, _ model.Staff) {
	s.mu.Lock()
	stats := s.stats()
	s.mu.Unlock()
	writeData(w, http.StatusOK, stats)
}

// stats must be called with s.mu held.
func (s *Server) stats() model.DashboardStats {
	now := s.now()
	y, m, d := now.Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	stats := model.DashboardStats{TodayRevenue: decimal.Zero}
	for _, o := range s.orders {
		if o.Status == model.StatusPending {
			stats.PendingOrders++
		}
		if o.CreatedAt.Before(startOfDay) {
			continue
		}
		stats.TodayOrders++
		if o.Status != model.StatusRejected {
			stats.TodayRevenue = stats.TodayRevenue.Add(o.TotalAmount)
		}
		if o.Status == model.StatusDelivered {
			stats.DeliveredToday++
		}
	}
	return stats
}

func cloneOrder(o *model.Order) model.Order {
	c := *o
	c.Lines = append([]model.OrderLine(nil), o.Lines...)
	return c
}

// Responses

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "message": msg})
}
