// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gogama/hopper"
	"github.com/gogama/hopper/config"
	"github.com/gogama/hopper/logging"
	"github.com/gogama/hopper/request"
	"github.com/gogama/hopper/timeout"
	"github.com/spf13/cobra"
)

type flags struct {
	method   string
	headers  []string
	data     string
	config   string
	logLevel string
	pretty   bool
	include  bool
	retries  int
	follow   int
	h2       bool
	manual   bool
	maxTime  time.Duration
}

func newRootCommand() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:          "hopper [flags] URL",
		Short:        "Send an HTTP request and print the response",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, args[0])
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&f.method, "request", "X", "", "HTTP method (default GET, or POST with --data)")
	fs.StringArrayVarP(&f.headers, "header", "H", nil, "request header as 'Name: value' (repeatable)")
	fs.StringVarP(&f.data, "data", "d", "", "request body")
	fs.StringVar(&f.config, "config", "", "YAML configuration file")
	fs.StringVar(&f.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	fs.BoolVar(&f.pretty, "pretty", false, "human readable logs")
	fs.BoolVarP(&f.include, "include", "i", false, "print the status line and response headers")
	fs.IntVar(&f.retries, "retries", -1, "retry attempts (default from configuration)")
	fs.IntVar(&f.follow, "follow", -1, "maximum hops (default from configuration)")
	fs.BoolVar(&f.h2, "h2", false, "use HTTP/2 for http URLs")
	fs.BoolVar(&f.manual, "no-follow", false, "do not follow redirects")
	fs.DurationVar(&f.maxTime, "max-time", 0, "upper bound on each attempt timeout")
	return cmd
}

func run(cmd *cobra.Command, f *flags, url string) error {
	cfg, err := config.Load(config.WithFile(f.config))
	if err != nil {
		return err
	}

	var opts []request.Option
	for _, h := range f.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return fmt.Errorf("invalid header %q: want 'Name: value'", h)
		}
		opts = append(opts, request.WithHeader(strings.TrimSpace(name), strings.TrimSpace(value)))
	}
	if f.retries >= 0 {
		opts = append(opts, request.WithAttempts(f.retries))
	}
	if f.follow >= 0 {
		opts = append(opts, request.WithFollow(f.follow))
	}
	if f.h2 {
		opts = append(opts, request.WithH2(true))
	}
	if f.manual {
		opts = append(opts, request.WithRedirect(request.RedirectManual))
	}
	opts = append(opts, request.WithThenable(true))

	method := f.method
	var body interface{}
	if f.data != "" {
		body = f.data
		if method == "" {
			method = http.MethodPost
		}
	}

	p, err := request.NewPlanWithConfig(cmd.Context(), cfg, method, url, body, opts...)
	if err != nil {
		return err
	}

	handlers := &hopper.HandlerGroup{}
	logging.Install(handlers, logging.NewWriter(cmd.ErrOrStderr(), f.logLevel, f.pretty))
	cl := &hopper.Client{Handlers: handlers}
	if f.maxTime > 0 {
		cl.TimeoutPolicy = timeout.Capped(timeout.DefaultPolicy, f.maxTime)
	}
	defer cl.CloseIdleConnections()

	e, err := cl.Do(p)
	if err != nil {
		return err
	}
	if e.Response != nil {
		if err := printResponse(cmd.OutOrStdout(), e.Response, f.include); err != nil {
			return err
		}
	}
	return e.Err
}

func printResponse(w io.Writer, r *request.Response, include bool) error {
	if include {
		fmt.Fprintf(w, "%s %s\n", r.Proto, r.Status)
		names := make([]string, 0, len(r.Header))
		for name := range r.Header {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			for _, v := range r.Header[name] {
				fmt.Fprintf(w, "%s: %s\n", name, v)
			}
		}
		fmt.Fprintln(w)
	}
	b, err := r.Bytes()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
