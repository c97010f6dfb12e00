package alb

import (
	"context"
	"net/http"
	"time"
)

var (
	srv    *http.Server
	engine *Engine
)

// Serve builds an engine from the options and blocks serving it until the
// listener fails or Close is called.
func Serve(opts ...ServeOption) error {
	engine = NewEngine(opts...)
	engine.PrintRoutes()

	srv = &http.Server{
		Addr:    engine.Address,
		Handler: engine,
	}

	var err error
	if engine.CertFile != "" && engine.KeyFile != "" {
		err = srv.ListenAndServeTLS(engine.CertFile, engine.KeyFile)
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close drains the server and stops engine background work.
func Close() error {
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	if engine != nil {
		return engine.Close()
	}
	return nil
}
