// Command ngx-auth runs the forward-auth gateway.
package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	cloudspanner "cloud.google.com/go/spanner"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/errors/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	ngxauth "github.com/sloonz/ngx-auth"
	"github.com/sloonz/ngx-auth/bypass"
	"github.com/sloonz/ngx-auth/oidc"
	"github.com/sloonz/ngx-auth/postgres"
	"github.com/sloonz/ngx-auth/spanner"
	"github.com/sloonz/ngx-auth/statecodec"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}

func run(ctx context.Context) error {
	config, err := ngxauth.LoadConfig()
	if err != nil {
		return err
	}

	stateKey, err := statecodec.ParseKey(config.JWESecretKey)
	if err != nil {
		return errors.Wrap(err, "statecodec.ParseKey()")
	}
	stateCodec, err := statecodec.New(stateKey)
	if err != nil {
		return errors.Wrap(err, "statecodec.New()")
	}

	options := []ngxauth.Option{
		ngxauth.WithSessionLifetime(config.SessionLifetime),
		ngxauth.WithSecureCookie(config.CookieSecure),
	}
	if config.BypassPublicKey != "" {
		key, err := bypass.ParsePublicKey(config.BypassPublicKey)
		if err != nil {
			return errors.Wrap(err, "bypass.ParsePublicKey()")
		}
		options = append(options, ngxauth.WithBypassVerifier(bypass.NewVerifier(key)))
	}

	var storage ngxauth.SessionStorage
	if config.SpannerDatabase != "" {
		client, err := cloudspanner.NewClient(ctx, config.SpannerDatabase)
		if err != nil {
			return errors.Wrap(err, "spanner.NewClient()")
		}
		driver := spanner.NewSessionStorageDriver(client)
		defer driver.Close()
		storage = driver
	} else {
		pool, err := pgxpool.New(ctx, config.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "pgxpool.New()")
		}
		defer pool.Close()
		storage = postgres.NewSessionStorageDriver(pool)
	}

	app := ngxauth.New(oidc.NewRegistry(ctx, config.CallbackOrigin, config.Providers()), storage, stateCodec, config.CallbackOrigin, options...)

	r := chi.NewRouter()
	app.Routes(r)

	l, err := listen(config.Listen, config.SocketPerms)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(l)
	}()

	log.Printf("listening on %s", config.Listen)

	select {
	case err := <-serveErr:
		return errors.Wrap(err, "http.Server.Serve()")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "http.Server.Shutdown()")
	}

	return nil
}

// listen opens the listener described by addr: a bare integer is a TCP
// port, anything else is a unix socket path. A stale socket left behind
// by a previous run is removed before binding; perms, when given, are
// octal permission bits applied to the fresh socket.
func listen(addr, perms string) (net.Listener, error) {
	if port, err := strconv.Atoi(addr); err == nil {
		l, err := net.Listen("tcp", ":"+strconv.Itoa(port))
		if err != nil {
			return nil, errors.Wrap(err, "net.Listen()")
		}

		return l, nil
	}

	if info, err := os.Lstat(addr); err == nil && info.Mode()&os.ModeSocket != 0 {
		if err := os.Remove(addr); err != nil {
			return nil, errors.Wrap(err, "os.Remove()")
		}
	}

	l, err := net.Listen("unix", addr)
	if err != nil {
		return nil, errors.Wrap(err, "net.Listen()")
	}

	if perms != "" {
		mode, err := strconv.ParseUint(perms, 8, 32)
		if err != nil {
			l.Close()

			return nil, errors.Wrap(err, "strconv.ParseUint()")
		}
		if err := os.Chmod(addr, os.FileMode(mode)); err != nil {
			l.Close()

			return nil, errors.Wrap(err, "os.Chmod()")
		}
	}

	return l, nil
}
