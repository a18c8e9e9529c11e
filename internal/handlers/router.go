package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Upload *UploadHandler
	API    *APIHandler
	Hub    *Hub
	Auth   *AuthHandler
	// RequireAuth puts /upload and /predict behind a login.
	RequireAuth bool
	CORSOrigins string
	Logger      *zap.Logger
}

// NewRouter mounts every HTTP route served by the detector.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	mux := http.NewServeMux()

	if cfg.Auth == nil {
		cfg.Auth = NewAuthHandler(nil, cfg.Logger)
	}
	upload := http.Handler(http.HandlerFunc(cfg.Upload.HandleUpload))
	predict := http.Handler(http.HandlerFunc(cfg.Upload.HandlePredict))
	if cfg.RequireAuth {
		upload, predict = cfg.Auth.RequireAuth(upload), cfg.Auth.RequireAuth(predict)
	}
	mux.Handle("/upload", upload)
	mux.Handle("/predict", predict)

	mux.HandleFunc("/signup", cfg.Auth.HandleSignup)
	mux.HandleFunc("/login", cfg.Auth.HandleLogin)
	mux.HandleFunc("/logout", cfg.Auth.HandleLogout)
	mux.HandleFunc("/api/me", cfg.Auth.HandleMe)

	mux.HandleFunc("/api/health", cfg.API.HandleHealth)
	mux.HandleFunc("/api/metrics", cfg.API.HandleMetrics)
	mux.HandleFunc("/api/history", cfg.API.HandleHistory)
	mux.Handle("/metrics", promhttp.Handler())

	if cfg.Hub != nil {
		mux.HandleFunc("/ws", cfg.Hub.ServeWS)
	}

	return CORS(cfg.CORSOrigins, RequestLogger(cfg.Logger, mux))
}
