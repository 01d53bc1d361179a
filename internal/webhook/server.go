package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"time"

	"pagebot/internal/domain"
	"pagebot/internal/metrics"
)

// maxBodyBytes bounds how much of a webhook POST is read. Platform payloads
// are small; anything larger is not a legitimate envelope.
const maxBodyBytes = 1 << 20

// Server is the inbound webhook HTTP server. It verifies, decodes and
// schedules envelopes; it never waits on outbound sends.
type Server struct {
	appSecret       string
	validationToken string
	bus             domain.EventBus
	logger          *slog.Logger

	httpServer *http.Server
}

type ServerConfig struct {
	Host            string
	Port            int
	WebhookPath     string
	AppSecret       string
	ValidationToken string
	Bus             domain.EventBus
	MetricsEnabled  bool
	MetricsEndpoint string
	Logger          *slog.Logger
}

func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		appSecret:       cfg.AppSecret,
		validationToken: cfg.ValidationToken,
		bus:             cfg.Bus,
		logger:          cfg.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+cfg.WebhookPath, s.handleVerify)
	mux.HandleFunc("POST "+cfg.WebhookPath, s.handleEvent)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if cfg.MetricsEnabled {
		endpoint := cfg.MetricsEndpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		mux.HandleFunc("GET "+endpoint, metrics.Collector.Handler())
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("webhook server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// handleVerify answers the platform's subscription handshake: echo the
// challenge when the verify token matches, 403 otherwise.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == s.validationToken {
		s.logger.Info("webhook subscription validated")
		fmt.Fprint(w, html.EscapeString(q.Get("hub.challenge")))
		return
	}
	s.logger.Warn("webhook verification failed", "mode", q.Get("hub.mode"))
	http.Error(w, "verification failed", http.StatusForbidden)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	metrics.WebhookRequests.Inc()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.logger.Error("cannot read webhook body", "err", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	// Signature check runs on the raw bytes. A missing header is tolerated
	// and logged; a present but wrong one aborts the request.
	if header := r.Header.Get(SignatureHeader); header == "" {
		metrics.SignatureMissing.Inc()
		s.logger.Warn("webhook request without signature header")
	} else if err := VerifySignature(s.appSecret, body, header); err != nil {
		metrics.SignatureInvalid.Inc()
		s.logger.Error("webhook signature rejected", "err", err)
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	var envelope domain.InboundEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		s.logger.Error("cannot decode webhook envelope", "err", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if envelope.Object == "page" {
		s.scheduleEntries(envelope.Entry)
	} else {
		s.logger.Info("ignoring non-page envelope", "object", envelope.Object)
	}

	// Ack as soon as everything is scheduled. Outbound delivery never gates
	// this response.
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "EVENT_RECEIVED")
}

// scheduleEntries fans the envelope out onto the bus. Events carrying more
// than one variant payload are malformed and skipped.
func (s *Server) scheduleEntries(entries []domain.Entry) {
	now := time.Now()
	for _, entry := range entries {
		for _, evt := range entry.Messaging {
			if _, err := evt.Kind(); err != nil {
				metrics.EventsMalformed.Inc()
				s.logger.Warn("skipping malformed event", "page", entry.ID, "err", err)
				continue
			}
			s.bus.Publish(domain.PageEvent{
				PageID:   entry.ID,
				Time:     time.UnixMilli(entry.Time),
				Event:    evt,
				Received: now,
			})
		}
		for _, change := range entry.Changes {
			// Comment replies are a disabled extension point; observe only.
			if change.Value.Item == "comment" && change.Value.Message != "" {
				s.logger.Info("page comment observed",
					"page", entry.ID,
					"comment_id", change.Value.CommentID,
					"from", change.Value.SenderName)
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}
