// Command wsprobe connects to a WebSocket endpoint with the resilient
// client and reports what it observes: state transitions, heartbeat
// health, and echo round-trips under a paced message load.
//
// Configuration comes from a YAML file (see -config), with WSPROBE_URL
// from the environment or a .env file taking precedence.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/GaryOcean428/mcp-ws-go/mcpws"
)

type probeConfig struct {
	URL      string  `yaml:"url"`
	Messages int     `yaml:"messages"`
	Rate     float64 `yaml:"rate"` // messages per second

	Heartbeat struct {
		Enabled  bool          `yaml:"enabled"`
		Interval time.Duration `yaml:"interval"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"heartbeat"`

	Reconnect struct {
		Enabled     bool          `yaml:"enabled"`
		MaxAttempts int           `yaml:"max_attempts"`
		BaseDelay   time.Duration `yaml:"base_delay"`
		MaxDelay    time.Duration `yaml:"max_delay"`
	} `yaml:"reconnect"`
}

func defaultProbeConfig() probeConfig {
	var cfg probeConfig
	cfg.URL = "ws://localhost:8765/ws"
	cfg.Messages = 10
	cfg.Rate = 5
	cfg.Heartbeat.Enabled = true
	cfg.Heartbeat.Interval = 10 * time.Second
	cfg.Heartbeat.Timeout = 5 * time.Second
	cfg.Reconnect.Enabled = true
	cfg.Reconnect.MaxAttempts = 10
	cfg.Reconnect.BaseDelay = time.Second
	cfg.Reconnect.MaxDelay = 30 * time.Second
	return cfg
}

func loadConfig(path string) (probeConfig, error) {
	cfg := defaultProbeConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env and environment override the file.
	_ = godotenv.Load()
	if url := os.Getenv("WSPROBE_URL"); url != "" {
		cfg.URL = url
	}
	return cfg, nil
}

// zapLogger adapts zap to the client's Logger interface.
type zapLogger struct {
	s *zap.SugaredLogger
}

func (z zapLogger) Debug(msg string, fields map[string]any) { z.s.Debugw(msg, flatten(fields)...) }
func (z zapLogger) Info(msg string, fields map[string]any)  { z.s.Infow(msg, flatten(fields)...) }
func (z zapLogger) Warn(msg string, fields map[string]any)  { z.s.Warnw(msg, flatten(fields)...) }
func (z zapLogger) Error(msg string, fields map[string]any) { z.s.Errorw(msg, flatten(fields)...) }

func flatten(fields map[string]any) []any {
	out := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}

func main() {
	configPath := flag.String("config", "", "path to YAML config")
	urlFlag := flag.String("url", "", "endpoint override")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *urlFlag != "" {
		cfg.URL = *urlFlag
	}

	zl, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer zl.Sync()
	logger := zapLogger{s: zl.Sugar()}

	replies := make(chan mcpws.Message, cfg.Messages+1)

	clientCfg := mcpws.DefaultConfig()
	clientCfg.URL = cfg.URL
	clientCfg.Logger = logger
	clientCfg.AutoReconnect = cfg.Reconnect.Enabled
	clientCfg.MaxReconnectAttempts = cfg.Reconnect.MaxAttempts
	clientCfg.ReconnectBaseDelay = cfg.Reconnect.BaseDelay
	clientCfg.ReconnectMaxDelay = cfg.Reconnect.MaxDelay
	clientCfg.EnableHeartbeat = cfg.Heartbeat.Enabled
	clientCfg.HeartbeatInterval = cfg.Heartbeat.Interval
	clientCfg.HeartbeatTimeout = cfg.Heartbeat.Timeout
	clientCfg.OnStateChange = func(ev mcpws.StateEvent) {
		logger.Info("state", map[string]any{"old": ev.Old.String(), "new": ev.New.String()})
	}

	client := mcpws.NewClient(clientCfg)
	defer client.Close()

	client.Subscribe("echo", func(m mcpws.Message) { replies <- m })

	if err := client.Connect(); err != nil {
		logger.Error("initial connect failed", map[string]any{"error": err.Error()})
		if !cfg.Reconnect.Enabled {
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	limiter := rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	sent := 0
	for i := 0; i < cfg.Messages; i++ {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		err := client.SendJSON(map[string]any{
			"messageType": "echo",
			"seq":         i,
			"sentAt":      time.Now().UnixMilli(),
		})
		if err != nil && !errors.Is(err, mcpws.ErrNotConnected) {
			logger.Warn("send failed", map[string]any{"seq": i, "error": err.Error()})
			continue
		}
		sent++
	}

	got := 0
	deadline := time.After(10 * time.Second)
collect:
	for got < sent {
		select {
		case <-replies:
			got++
		case <-ctx.Done():
			break collect
		case <-deadline:
			break collect
		}
	}

	st := client.State()
	logger.Info("probe finished", map[string]any{
		"sent":      sent,
		"echoed":    got,
		"status":    st.Status.String(),
		"attempts":  st.ReconnectAttempt,
		"lastError": fmt.Sprint(st.LastError),
	})
}
