package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"golang.org/x/term"

	"remotefs/endpoint"
	"remotefs/fspath"
	"remotefs/router"
)

var _ router.Endpoint = (*endpoint.Session)(nil)

func main() {
	var (
		verbose  bool
		insecure bool
		keyPath  string
	)
	flag.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	flag.BoolVar(&insecure, "insecure", false, "Skip host key verification")
	flag.StringVar(&keyPath, "key", "", "Path to a private key file")
	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <src> <dst>\n\npaths are local, or ssh://user@host[:port]/path\n\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))

	r := router.New(logger)
	sessions := make(map[string]*endpoint.Session)
	defer func() {
		for _, s := range sessions {
			s.Close()
		}
	}()

	resolve := func(arg string) fspath.Path {
		if !strings.HasPrefix(arg, "ssh://") {
			return fspath.Local(arg)
		}
		cfg, remotePath, err := endpoint.ParseURI(arg)
		if err != nil {
			logger.Error("bad path", "arg", arg, "err", err)
			os.Exit(1)
		}
		cfg.KeyPath = keyPath
		cfg.IgnoreHostKey = insecure
		cfg.PasswordFunc = passwordPrompt(cfg.User, cfg.Host)

		if _, ok := sessions[cfg.URI()]; !ok {
			session, err := endpoint.Dial(cfg, logger)
			if err != nil {
				logger.Error("connect failed", "endpoint", cfg.URI(), "err", err)
				os.Exit(1)
			}
			sessions[cfg.URI()] = session
			r.Register(session)
		}
		return fspath.Remote(cfg.URI(), remotePath)
	}

	src := resolve(flag.Arg(0))
	dst := resolve(flag.Arg(1))

	if err := r.CopyRecursive(context.Background(), src, dst); err != nil {
		logger.Error("copy failed", "src", src.String(), "dst", dst.String(), "err", err)
		os.Exit(1)
	}
	logger.Info("copied", "src", src.String(), "dst", dst.String())
}

func passwordPrompt(user, host string) func() (string, error) {
	return func() (string, error) {
		fmt.Fprintf(os.Stderr, "Password for %s@%s: ", user, host)
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		return string(pw), err
	}
}
