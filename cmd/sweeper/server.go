package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chatsweep/chatsweep/admission"
	"github.com/chatsweep/chatsweep/bypass"
	"github.com/chatsweep/chatsweep/content"
	"github.com/chatsweep/chatsweep/declare"
	"github.com/chatsweep/chatsweep/emoji"
	"github.com/chatsweep/chatsweep/engine"
	"github.com/chatsweep/chatsweep/message"
	"github.com/chatsweep/chatsweep/platform"
	"github.com/chatsweep/chatsweep/policy"
	"github.com/chatsweep/chatsweep/rulebank"
	"github.com/chatsweep/chatsweep/trust"
)

type Server struct {
	logger *slog.Logger
	engine *engine.Engine
}

type Config struct {
	Logger   *slog.Logger
	RedisURL string
	TmpDir   string
}

// NewServer wires the classification engine. With a redis URL the shared
// caches live in redis; otherwise everything is in-process.
func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	ids := trust.Identities{
		Self:           envInt64("SWEEPER_SELF_ID"),
		Siblings:       envInt64Set("SWEEPER_SIBLING_IDS"),
		RecheckSibling: envInt64("SWEEPER_RECHECK_ID"),
	}
	sets := trust.NewSets(ids, time.Hour, nil)
	bank := rulebank.New(nil)
	counter := emoji.New(nil, nil, emoji.Thresholds{
		AdSingle: 15, AdTotal: 30, Many: 15, WbSingle: 10, WbTotal: 15,
	})
	users := admission.NewStore(nil)
	ctrl := admission.NewController(users, sets, admission.Windows{
		New:        86400,
		Short:      3600,
		Track:      172800,
		TrackLimit: 3,
		Punish:     600,
	})

	var contents content.Cache
	var declared declare.Index
	if config.RedisURL != "" {
		csh, err := content.NewRedisCache(config.RedisURL, 30*time.Minute)
		if err != nil {
			return nil, err
		}
		contents = csh
		idx, err := declare.NewRedisIndex(config.RedisURL, 24*time.Hour)
		if err != nil {
			return nil, err
		}
		declared = idx
	} else {
		contents = content.NewMemCache(5_000, 30*time.Minute)
		declared = declare.NewMemIndex()
	}

	// With a file URL template the real downloader is wired; QR decoding
	// stays a no-op until the embedding process injects a decoder.
	images := platform.Images(platform.NopImages{})
	if tmpl := os.Getenv("SWEEPER_FILE_URL"); tmpl != "" {
		imgs, err := platform.NewHTTPImages(func(ref message.FileRef) string {
			return fmt.Sprintf(tmpl, ref.ID)
		}, nil, config.TmpDir, 10, 4, 10<<20)
		if err != nil {
			return nil, err
		}
		images = imgs
	}

	invalidHandles := []string{"joinchat", "socks", "proxy"}
	if env := os.Getenv("SWEEPER_INVALID_HANDLES"); env != "" {
		invalidHandles = strings.Split(env, ",")
	}

	dir := platform.Directory(platform.NopDirectory{})
	resolver := bypass.NewResolver(logger, dir, sets, bank, invalidHandles)

	eng := &engine.Engine{
		Logger:    logger,
		Configs:   policy.NewStore(nil),
		Bank:      bank,
		Emoji:     counter,
		Trust:     sets,
		Admission: ctrl,
		Bypass:    resolver,
		Declared:  declared,
		Contents:  contents,
		Directory: dir,
		Images:    images,
		Cleaner:   platform.NewAsyncCleaner(logger, 256),
		Persist:   platform.NopPersister{},
		Retention: engine.NewRetention(),
		KnownCommands: map[string]bool{
			"config": true, "version": true, "purge": true, "mention": true,
		},
		QRTimeout: 10 * time.Second,
	}

	return &Server{logger: logger, engine: eng}, nil
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	s.logger.Info("metrics server listening", "addr", listen)
	return http.ListenAndServe(listen, nil)
}

func envInt64(key string) int64 {
	v, _ := strconv.ParseInt(os.Getenv(key), 10, 64)
	return v
}

func envInt64Set(key string) map[int64]bool {
	out := make(map[int64]bool)
	for _, part := range strings.Split(os.Getenv(key), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if v, err := strconv.ParseInt(part, 10, 64); err == nil {
			out[v] = true
		}
	}
	return out
}
