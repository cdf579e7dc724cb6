// Package devserver is a local stand-in for the production backend: the same
// endpoints, the same {success, data, message} envelope, in-memory fixture
// data. It exists so the client flows can be exercised end to end without
// shop-floor infrastructure.
package devserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"scanflow/internal/models"
)

// Server holds the fixture data and the issued tokens.
type Server struct {
	logger *slog.Logger

	mu     sync.Mutex
	users  map[string][]byte // username -> bcrypt hash
	tokens map[string]string // token -> username
	takes  []models.TakeRequest

	processes  []models.Process
	devices    []models.Device
	batches    []models.Batch
	showConfig []models.DisplayFieldConfig
	qrcodes    map[int64]models.QrcodeInfo
	details    map[int64]models.ProduceDetail
}

// New builds a server with the default fixtures and one operator account.
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		logger: logger,
		users:  map[string][]byte{},
		tokens: map[string]string{},
	}
	s.loadFixtures()
	s.AddUser("operator", "operator123")
	return s
}

// AddUser registers a login credential.
func (s *Server) AddUser(username, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("hashing password", "err", err)
		return
	}
	s.mu.Lock()
	s.users[username] = hash
	s.mu.Unlock()
}

// Takes returns the accepted scan submissions, for assertions in tests.
func (s *Server) Takes() []models.TakeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TakeRequest, len(s.takes))
	copy(out, s.takes)
	return out
}

func writeEnvelope(w http.ResponseWriter, status int, success bool, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	payload := map[string]any{"success": success}
	if data != nil {
		payload["data"] = data
	}
	if message != "" {
		payload["message"] = message
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func ok(w http.ResponseWriter, data any) {
	writeEnvelope(w, http.StatusOK, true, data, "")
}

func fail(w http.ResponseWriter, message string) {
	writeEnvelope(w, http.StatusOK, false, nil, message)
}

func page[T any](records []T) models.PageData[T] {
	return models.PageData[T]{Records: records, Total: len(records), CurrPage: 1}
}

// HandleLogin checks the form credentials and issues a bearer token.
func (s *Server) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		fail(w, "请求格式错误")
		return
	}
	username := r.PostFormValue("userName")
	password := r.PostFormValue("passWord")

	s.mu.Lock()
	hash, exists := s.users[username]
	s.mu.Unlock()
	if !exists || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		fail(w, "用户名或密码错误")
		return
	}

	token := uuid.New().String()
	s.mu.Lock()
	s.tokens[token] = username
	s.mu.Unlock()

	ok(w, models.UserInfo{
		ID:       1,
		UserID:   "1",
		Username: username,
		Token:    token,
	})
}

// authorized checks the bearer token issued at login.
func (s *Server) authorized(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
		return false
	}
	s.mu.Lock()
	_, exists := s.tokens[auth[len(prefix):]]
	s.mu.Unlock()
	return exists
}

// requireAuth wraps operator endpoints with a 401 on a missing/unknown token.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			writeEnvelope(w, http.StatusUnauthorized, false, nil, "未授权，请重新登录")
			return
		}
		next(w, r)
	}
}

// HandleProcessPageList serves the process reference list.
func (s *Server) HandleProcessPageList(w http.ResponseWriter, r *http.Request) {
	ok(w, page(s.processes))
}

// HandleDevicePageList serves devices, filtered by the type query parameter.
func (s *Server) HandleDevicePageList(w http.ResponseWriter, r *http.Request) {
	devType, _ := strconv.Atoi(r.URL.Query().Get("type"))
	var out []models.Device
	for _, d := range s.devices {
		if devType == 0 || d.Type == devType {
			out = append(out, d)
		}
	}
	ok(w, page(out))
}

// HandleProductSizeList serves the batch/product aggregate.
func (s *Server) HandleProductSizeList(w http.ResponseWriter, r *http.Request) {
	ok(w, s.batches)
}

// HandleTake accepts a scan submission.
func (s *Server) HandleTake(w http.ResponseWriter, r *http.Request) {
	var req models.TakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, "请求格式错误")
		return
	}
	if req.QrcodeID == 0 {
		fail(w, "二维码不存在")
		return
	}
	if req.ProductionProcessesID == 0 {
		fail(w, "缺少工序信息")
		return
	}
	s.mu.Lock()
	s.takes = append(s.takes, req)
	s.mu.Unlock()
	s.logger.Info("take accepted", "qrcodeId", req.QrcodeID, "processId", req.ProductionProcessesID)
	ok(w, nil)
}

// HandleProduceByQrcode serves the public detail record.
func (s *Server) HandleProduceByQrcode(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.URL.Query().Get("qrcodeId"), 10, 64)
	detail, exists := s.details[id]
	if !exists {
		fail(w, "产品不存在")
		return
	}
	ok(w, detail)
}

// HandleShowConfig serves the display-field configuration.
func (s *Server) HandleShowConfig(w http.ResponseWriter, r *http.Request) {
	ok(w, page(s.showConfig))
}

// HandleQrcodeInfo resolves a code identifier to its landing record.
func (s *Server) HandleQrcodeInfo(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.URL.Query().Get("infoId"), 10, 64)
	info, exists := s.qrcodes[id]
	if !exists {
		fail(w, "二维码不存在")
		return
	}
	ok(w, info)
}
