package sheet

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"
)

// Config holds server configuration.
type Config struct {
	// Addr to listen on (default: 127.0.0.1:8787)
	Addr string

	// File is the workbook path; empty keeps data in memory only
	File string

	// Logger for server activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:   "127.0.0.1:8787",
		Logger: log.New(os.Stderr, "[sheet] ", log.LstdFlags),
	}
}

// Server hosts a Handler over HTTP.
type Server struct {
	addr     string
	handler  *Handler
	listener net.Listener
	server   *http.Server
	logger   *log.Logger
	wg       sync.WaitGroup
}

// NewServer opens the workbook and prepares the server.
func NewServer(config *Config) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Addr == "" {
		config.Addr = DefaultConfig().Addr
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}

	wb, err := OpenWorkbook(config.File)
	if err != nil {
		return nil, err
	}

	return &Server{
		addr:    config.Addr,
		handler: NewHandler(wb, config.Logger),
		logger:  config.Logger,
	}, nil
}

// Start begins serving in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.Handle("/", s.handler)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Backup endpoint listening on http://%s/", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.wg.Wait()
	s.logger.Println("Backup endpoint stopped")
	return nil
}

// URL returns the endpoint URL clients should use.
func (s *Server) URL() string {
	if s.listener != nil {
		return "http://" + s.listener.Addr().String() + "/"
	}
	return "http://" + s.addr + "/"
}
