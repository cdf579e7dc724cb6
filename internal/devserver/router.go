package devserver

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter mounts the backend API surface under /api.
func NewRouter(s *Server) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods("GET")

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/login", s.HandleLogin).Methods("POST")

	// Operator endpoints: token required, 401 otherwise.
	apiRouter.HandleFunc("/daciProductionProcesses/pageList", s.requireAuth(s.HandleProcessPageList)).Methods("GET")
	apiRouter.HandleFunc("/daciDevice/pageList", s.requireAuth(s.HandleDevicePageList)).Methods("GET")
	apiRouter.HandleFunc("/daciProduct/getProductSizeList", s.requireAuth(s.HandleProductSizeList)).Methods("GET")
	apiRouter.HandleFunc("/daciProduce/take", s.requireAuth(s.HandleTake)).Methods("POST")

	// Public endpoints: the detail page is reachable from any scanned code.
	apiRouter.HandleFunc("/daciProduce/getByQrCode", s.HandleProduceByQrcode).Methods("GET")
	apiRouter.HandleFunc("/daciProduceShow/pageList", s.HandleShowConfig).Methods("GET")
	apiRouter.HandleFunc("/daciQrcode/getInfo", s.HandleQrcodeInfo).Methods("GET")

	return r
}
