// Package testserver provides an in-process fake of the shop admin REST API.
// It issues bearer tokens, supports refresh of expired tokens, serves the
// product and category collections and counts every call per endpoint.
package testserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Default credentials accepted by the server.
const (
	Email       = "a@b.com"
	Password    = "secret12"
	CaptchaCode = "Q7X2"
	// CaptchaImage is a 1x1 PNG data URI.
	CaptchaImage = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="
)

type tokenState int

const (
	tokenValid tokenState = iota
	tokenExpired
	tokenRevoked
)

// RecordedRequest is one request seen by the server.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	HasAuthHeader bool
	RequestID     string
	Header        http.Header
}

// Product is the server-side product record. Price is encoded as a decimal
// string and availability as 0/1, as the real backend does.
type Product struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
	CategoryID  *int   `json:"category_id"`
	IsAvailable int    `json:"is_available"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Category is the server-side category record.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Server is a fake API server.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	tokens     map[string]tokenState
	nextToken  int
	counts     map[string]int
	requests   []RecordedRequest
	failures   map[string][]int
	products   map[int]*Product
	categories map[int]*Category
	nextID     int

	// RefreshFails makes every refresh answer 401.
	RefreshFails bool
	// RefreshDelay holds every refresh call before answering.
	RefreshDelay time.Duration
	// Raw serves resource bodies without the {"data": ...} envelope.
	Raw bool
	// CaptchaBody overrides the body of GET /captcha when non-empty.
	CaptchaBody string
}

// New starts a server seeded with one category and one product (id 9).
func New() *Server {
	s := &Server{
		tokens:     make(map[string]tokenState),
		counts:     make(map[string]int),
		failures:   make(map[string][]int),
		products:   make(map[int]*Product),
		categories: make(map[int]*Category),
		nextID:     100,
	}

	categoryID := 1
	s.categories[categoryID] = &Category{ID: categoryID, Name: "Furniture"}
	s.products[9] = &Product{
		ID:          9,
		Name:        "Chair",
		Description: "Oak chair",
		Price:       "49.90",
		Stock:       12,
		CategoryID:  &categoryID,
		IsAvailable: 1,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.authed(s.handleLogout))
	mux.HandleFunc("GET /me", s.authed(s.handleMe))
	mux.HandleFunc("POST /refresh", s.handleRefresh)
	mux.HandleFunc("GET /captcha", s.handleCaptcha)

	mux.HandleFunc("GET /products", s.authed(s.listProducts))
	mux.HandleFunc("POST /products", s.authed(s.saveProduct))
	mux.HandleFunc("GET /products/{id}", s.authed(s.getProduct))
	mux.HandleFunc("POST /products/{id}", s.authed(s.saveProduct))
	mux.HandleFunc("POST /products/{id}/delete", s.authed(s.deleteProduct))

	mux.HandleFunc("GET /categories", s.authed(s.listCategories))
	mux.HandleFunc("POST /categories", s.authed(s.saveCategory))
	mux.HandleFunc("GET /categories/{id}", s.authed(s.getCategory))
	mux.HandleFunc("POST /categories/{id}", s.authed(s.saveCategory))
	mux.HandleFunc("POST /categories/{id}/delete", s.authed(s.deleteCategory))

	s.Server = httptest.NewServer(s.record(mux))

	return s
}

// Count returns how many times "METHOD /path" was called.
func (s *Server) Count(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.counts[endpoint]
}

// Total returns the number of requests received.
func (s *Server) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.requests)
}

// Requests returns a copy of all recorded requests.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]RecordedRequest(nil), s.requests...)
}

// LastRequest returns the most recent request to endpoint.
func (s *Server) LastRequest(endpoint string) (RecordedRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.requests) - 1; i >= 0; i-- {
		r := s.requests[i]
		if r.Method+" "+r.Path == endpoint {
			return r, true
		}
	}

	return RecordedRequest{}, false
}

// IssueToken creates a valid token without a login call.
func (s *Server) IssueToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.issueLocked()
}

// Expire marks token expired: resource calls answer 401 but refresh accepts it.
func (s *Server) Expire(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[token]; ok {
		s.tokens[token] = tokenExpired
	}
}

// ExpireAll expires every valid token.
func (s *Server) ExpireAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, state := range s.tokens {
		if state == tokenValid {
			s.tokens[token] = tokenExpired
		}
	}
}

// FailNext makes the next calls to "METHOD /path" answer the given statuses
// in order before normal handling resumes.
func (s *Server) FailNext(endpoint string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[endpoint] = append(s.failures[endpoint], statuses...)
}

// SetRefreshFails toggles refresh failure.
func (s *Server) SetRefreshFails(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.RefreshFails = fail
}

// SetRefreshDelay holds every refresh call for d before answering.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.RefreshDelay = d
}

// SetRaw toggles unwrapped resource bodies.
func (s *Server) SetRaw(raw bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Raw = raw
}

// SetCaptchaBody overrides the body of GET /captcha.
func (s *Server) SetCaptchaBody(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.CaptchaBody = body
}

// ProductIDs returns the ids of all stored products, sorted.
func (s *Server) ProductIDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	return ids
}

func (s *Server) issueLocked() string {
	s.nextToken++
	token := fmt.Sprintf("tok-%d", s.nextToken)
	s.tokens[token] = tokenValid

	return token
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := r.Method + " " + r.URL.Path
		_, hasAuth := r.Header[http.CanonicalHeaderKey("Authorization")]

		s.mu.Lock()
		s.counts[endpoint]++
		s.requests = append(s.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			HasAuthHeader: hasAuth,
			RequestID:     r.Header.Get("X-Request-ID"),
			Header:        r.Header.Clone(),
		})

		status := 0
		if queue := s.failures[endpoint]; len(queue) > 0 {
			status = queue[0]
			s.failures[endpoint] = queue[1:]
		}
		s.mu.Unlock()

		if status != 0 {
			writeJSON(w, status, map[string]string{"message": http.StatusText(status)})

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) bearer(r *http.Request) string {
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")

	return token
}

func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := s.bearer(r)

		s.mu.Lock()
		state, ok := s.tokens[token]
		s.mu.Unlock()

		if !ok || state != tokenValid {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})

			return
		}

		next(w, r)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Captcha  string `json:"captcha"`
	}

	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed JSON."})

		return
	}

	if body.Captcha != CaptchaCode {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"message": "The captcha field is invalid.",
			"errors":  map[string][]string{"captcha": {"Invalid captcha."}},
		})

		return
	}

	if body.Email != Email || body.Password != Password {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"message": "Invalid credentials.",
			"errors":  map[string][]string{"email": {"These credentials do not match our records."}},
		})

		return
	}

	s.mu.Lock()
	token := s.issueLocked()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"token": token,
			"user":  map[string]interface{}{"id": 1, "email": body.Email, "name": "Admin"},
		},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := s.bearer(r)

	s.mu.Lock()
	s.tokens[token] = tokenRevoked
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"user": map[string]interface{}{"id": 1, "email": Email, "name": "Admin"},
		},
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delay := s.RefreshDelay
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	token := s.bearer(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.tokens[token]
	if s.RefreshFails || !ok || state == tokenRevoked {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token has been revoked."})

		return
	}

	s.tokens[token] = tokenRevoked
	fresh := s.issueLocked()

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]string{"token": fresh}})
}

func (s *Server) handleCaptcha(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	body := s.CaptchaBody
	s.mu.Unlock()

	if body != "" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))

		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"captcha": CaptchaImage})
}

func (s *Server) respond(w http.ResponseWriter, status int, data interface{}) {
	s.mu.Lock()
	raw := s.Raw
	s.mu.Unlock()

	if raw {
		writeJSON(w, status, data)

		return
	}

	writeJSON(w, status, map[string]interface{}{"data": data})
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()

	ids := make([]int, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	list := make([]Product, 0, len(ids))
	for _, id := range ids {
		list = append(list, *s.products[id])
	}
	s.mu.Unlock()

	s.respond(w, http.StatusOK, list)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))

	s.mu.Lock()
	product, ok := s.products[id]

	var snapshot Product
	if ok {
		snapshot = *product
	}
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Product not found."})

		return
	}

	s.respond(w, http.StatusOK, snapshot)
}

func (s *Server) saveProduct(w http.ResponseWriter, r *http.Request) {
	err := r.ParseMultipartForm(1 << 20)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Expected multipart form."})

		return
	}

	fields := map[string][]string{}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		fields["name"] = []string{"The name field is required."}
	}

	price := r.FormValue("price")
	if _, perr := strconv.ParseFloat(price, 64); perr != nil {
		fields["price"] = []string{"The price field must be a number."}
	}

	if len(fields) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"message": "The given data was invalid.",
			"errors":  fields,
		})

		return
	}

	stock, _ := strconv.Atoi(r.FormValue("stock"))

	var categoryID *int
	if v, cerr := strconv.Atoi(r.FormValue("category_id")); cerr == nil {
		categoryID = &v
	}

	available := 0
	if r.FormValue("is_available") == "1" {
		available = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	status := http.StatusOK

	var product *Product

	if idValue := r.PathValue("id"); idValue != "" {
		id, _ := strconv.Atoi(idValue)

		existing, ok := s.products[id]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Product not found."})

			return
		}

		product = existing
	} else {
		s.nextID++
		product = &Product{ID: s.nextID}
		s.products[product.ID] = product
		status = http.StatusCreated
	}

	product.Name = name
	product.Description = r.FormValue("description")
	product.Price = price
	product.Stock = stock
	product.CategoryID = categoryID
	product.IsAvailable = available

	if file, header, ferr := r.FormFile("image"); ferr == nil {
		_ = file.Close()
		product.ImageURL = "/storage/products/" + header.Filename
	} else if r.FormValue("image_deleted") == "1" {
		product.ImageURL = ""
	}

	snapshot := *product

	if s.Raw {
		writeJSON(w, status, snapshot)

		return
	}

	writeJSON(w, status, map[string]interface{}{"data": snapshot})
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))

	s.mu.Lock()
	_, ok := s.products[id]
	delete(s.products, id)
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Product not found."})

		return
	}

	s.respond(w, http.StatusOK, map[string]string{"message": "Product deleted."})
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()

	ids := make([]int, 0, len(s.categories))
	for id := range s.categories {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	list := make([]Category, 0, len(ids))
	for _, id := range ids {
		list = append(list, *s.categories[id])
	}
	s.mu.Unlock()

	s.respond(w, http.StatusOK, list)
}

func (s *Server) getCategory(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))

	s.mu.Lock()
	category, ok := s.categories[id]

	var snapshot Category
	if ok {
		snapshot = *category
	}
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Category not found."})

		return
	}

	s.respond(w, http.StatusOK, snapshot)
}

func (s *Server) saveCategory(w http.ResponseWriter, r *http.Request) {
	err := r.ParseMultipartForm(1 << 20)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Expected multipart form."})

		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"message": "The given data was invalid.",
			"errors":  map[string][]string{"name": {"The name field is required."}},
		})

		return
	}

	s.mu.Lock()

	status := http.StatusOK

	var category *Category

	if idValue := r.PathValue("id"); idValue != "" {
		id, _ := strconv.Atoi(idValue)

		existing, ok := s.categories[id]
		if !ok {
			s.mu.Unlock()
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Category not found."})

			return
		}

		category = existing
	} else {
		s.nextID++
		category = &Category{ID: s.nextID}
		s.categories[category.ID] = category
		status = http.StatusCreated
	}

	category.Name = name
	snapshot := *category
	s.mu.Unlock()

	s.respond(w, status, snapshot)
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))

	s.mu.Lock()
	_, ok := s.categories[id]
	delete(s.categories, id)
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Category not found."})

		return
	}

	s.respond(w, http.StatusOK, map[string]string{"message": "Category deleted."})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
