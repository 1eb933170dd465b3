// Copyright 2024 The minilua Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/spf13/cobra"
	"zombiezen.com/go/log"
	"zombiezen.com/go/xcontext"

	"minilua.dev/interp/internal/cache"
	"minilua.dev/interp/internal/interp"
	"minilua.dev/interp/internal/lex"
	"minilua.dev/interp/internal/parser"
	"minilua.dev/interp/internal/preprocess"
)

func newServeCommand(g *globalFlags) *cobra.Command {
	addr := new(string)
	c := &cobra.Command{
		Use:                   "serve",
		Short:                 "run minilua programs submitted over HTTP",
		Args:                  cobra.NoArgs,
		DisableFlagsInUseLine: true,
		SilenceErrors:         true,
		SilenceUsage:          true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), g, *addr)
		},
	}
	c.Flags().StringVar(addr, "addr", "", "`address` to listen on (overrides config)")
	return c
}

func runServe(ctx context.Context, g *globalFlags, addr string) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.ServeAddr
	}

	var c *cache.Cache
	if cfg.CacheDB != "" {
		c, err = cache.Open(ctx, cfg.CacheDB)
		if err != nil {
			return fmt.Errorf("open cache: %v", err)
		}
		defer c.Close()
	}

	mux := http.NewServeMux()
	mux.Handle("/run", &runHandler{cache: c})
	logged := handlers.CombinedLoggingHandler(os.Stderr, mux)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("serve: %v", err)
	}
	log.Infof(ctx, "listening on %s", ln.Addr())

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Debugf(ctx, "systemd notify: %v", err)
	}
	stopWatchdog := startWatchdog(ctx)
	defer stopWatchdog()

	srv := &http.Server{Handler: logged}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		return err
	}
}

// startWatchdog replies to systemd watchdog pings when WATCHDOG_USEC is
// set, at half the requested interval. It returns a func that stops the
// background goroutine.
func startWatchdog(ctx context.Context) func() {
	usec, err := strconv.Atoi(os.Getenv("WATCHDOG_USEC"))
	if err != nil || usec <= 0 {
		return func() {}
	}
	interval := time.Duration(usec) * time.Microsecond / 2
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
					log.Debugf(ctx, "systemd watchdog: %v", err)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}

// runHandler implements POST /run: the request body is a minilua
// program, the optional `stdin` query parameter supplies the text
// read() consumes a line at a time, and the response body is the
// captured print output (or a 400 with the pipeline's error).
type runHandler struct {
	cache *cache.Cache
}

func (h *runHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// A slow client disconnect must not abort an evaluation already in
	// progress: ignore the request context's cancellation once we start.
	ctx := xcontext.IgnoreDone(req.Context())

	id := uuid.New()
	source, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	stdin := req.URL.Query().Get("stdin")

	log.Infof(ctx, "request %s: %d bytes of source", id, len(source))
	start := time.Now()
	cleaned := preprocess.Strip(string(source))

	var out strings.Builder
	runErr := func() error {
		p, err := parser.New(lex.NewScanner(strings.NewReader(cleaned)))
		if err != nil {
			return err
		}
		block, err := p.ParseProgram()
		if err != nil {
			return err
		}
		in := interp.New(&out, strings.NewReader(stdin))
		return in.Run(block)
	}()

	outcome := "ok"
	if runErr != nil {
		outcome = runErr.Error()
	}
	if h.cache != nil {
		recErr := h.cache.Record(cache.Entry{
			SourceHash:  cache.SourceHash(cleaned),
			DisplayName: id.String(),
			Source:      cleaned,
			Outcome:     outcome,
			DurationMS:  time.Since(start).Milliseconds(),
			CreatedAt:   start.Unix(),
		})
		if recErr != nil {
			log.Errorf(ctx, "request %s: record run: %v", id, recErr)
		}
	}

	if runErr != nil {
		log.Infof(ctx, "request %s: %v", id, runErr)
		http.Error(w, runErr.Error(), http.StatusBadRequest)
		return
	}
	w.Write([]byte(out.String()))
}
