// Copyright (C) 2026 The reflectd Authors.
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Command reflectd is the native core of a file-tree mirroring daemon:
// it watches a directory tree via inotify, normalizes kernel events into
// the canonical vocabulary of lib/notify, and drives a policy
// implementation through the master loop of lib/loop. This binary wires
// together configuration loading, logging, the reference mirror policy,
// and an optional debug HTTP surface under a suture supervisor tree.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/thejerf/suture/v4"

	"github.com/reflectd/reflectd/lib/config"
	"github.com/reflectd/reflectd/lib/core"
	"github.com/reflectd/reflectd/lib/debugsrv"
	"github.com/reflectd/reflectd/lib/logger"
	"github.com/reflectd/reflectd/lib/loop"
	"github.com/reflectd/reflectd/lib/notify"
	"github.com/reflectd/reflectd/lib/policy"
	"github.com/reflectd/reflectd/lib/policy/mirror"
	"github.com/reflectd/reflectd/lib/suturewrap"
)

type cli struct {
	Runner string `help:"Path to a runner file, passed through unopened and unparsed as CoreServices.RunnerPath; interpreting it is the policy layer's business." type:"existingfile" optional:""`
	Config string `arg:"" help:"Path to the reflectd YAML configuration file." type:"existingfile"`
}

func main() {
	var params cli
	kong.Parse(&params)

	cfg, err := config.Load(params.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.New()
	if err := logger.Install(log, logger.Config{
		MinLevel: cfg.LoggerLevel(),
		LogFile:  cfg.LogFile,
		Syslog:   cfg.Syslog,
	}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	norm, err := notify.NewNormalizer(log)
	if err != nil {
		log.Errorf("reflectd: %v", err)
		os.Exit(1)
	}
	defer norm.Close()

	services := policy.NewServices(log, norm, params.Runner)
	pol := mirror.New(cfg.Root, cfg.MirrorCommand, cfg.MirrorArgs...)

	if err := policy.CheckVersion(pol); err != nil {
		log.Errorf("reflectd: %v", err)
		os.Exit(1)
	}
	if err := pol.Initialize(services); err != nil {
		log.Errorf("reflectd: initialize policy: %v", err)
		os.Exit(1)
	}

	var debugServer *debugsrv.Server
	if cfg.DebugAddr != "" {
		debugServer = debugsrv.New(log, services.Snapshot)
	}

	masterLoop := loop.New(log, norm, &instrumentedPolicy{Policy: pol, debug: debugServer}, func(wd int32) {
		services.HandleIgnored(wd)
	})

	var loopFatal int32

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		core.SetReset()
		cancel()
	}()

	sup := suture.NewSimple("reflectd")
	sup.Add(suturewrap.AsService(func(sctx context.Context) {
		done := make(chan error, 1)
		go func() { done <- masterLoop.Run() }()
		select {
		case err := <-done:
			if err != nil {
				log.Errorf("reflectd: master loop: %v", err)
				// A fatal condition (§7: past-due alarm, event-source
				// failure) must exit non-zero even though it unwinds
				// through the same cancel() path as a clean Terminate.
				atomic.StoreInt32(&loopFatal, 1)
			}
			core.SetReset()
			// The loop may have returned because the policy called
			// Terminate, not because the parent context was cancelled;
			// propagate the stop to the rest of the supervisor tree.
			cancel()
		case <-sctx.Done():
			core.SetReset()
			<-done
		}
	}, "master-loop"))

	if debugServer != nil {
		addr := cfg.DebugAddr
		sup.Add(suturewrap.AsService(func(ctx context.Context) {
			srv := &http.Server{Addr: addr, Handler: debugServer}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				log.Errorf("reflectd: debug server listen on %s: %v", addr, err)
				return
			}
			go func() {
				<-ctx.Done()
				srv.Close()
			}()
			if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
				log.Errorf("reflectd: debug server: %v", err)
			}
		}, "debug-server"))
	}

	if err := sup.Serve(ctx); err != nil && ctx.Err() == nil {
		log.Errorf("reflectd: supervisor: %v", err)
		os.Exit(1)
	}

	if atomic.LoadInt32(&loopFatal) != 0 {
		os.Exit(1)
	}
	os.Exit(services.ExitCode())
}

// instrumentedPolicy wraps a policy.Policy so every dispatched event and
// overflow also reaches the debug surface, without requiring the policy
// implementation itself to know the debug surface exists.
type instrumentedPolicy struct {
	policy.Policy
	debug *debugsrv.Server
}

func (p *instrumentedPolicy) Event(e notify.Event) {
	if p.debug != nil {
		p.debug.Record(debugsrv.Entry{
			Kind:  e.Kind.String(),
			Watch: e.Watch,
			IsDir: e.IsDir,
			Name:  e.Name,
			Name2: e.Name2,
		})
		p.debug.RefreshWatchMetrics()
	}
	p.Policy.Event(e)
}

func (p *instrumentedPolicy) Overflow() {
	if p.debug != nil {
		p.debug.RecordOverflow()
	}
	p.Policy.Overflow()
}
