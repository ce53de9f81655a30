// Package shutdown coordinates graceful process teardown: managers trigger a
// shutdown (e.g. on a POSIX signal), registered callbacks run the actual
// cleanup.
package shutdown

import (
	"sync"
)

// ShutdownCallback is called when a shutdown is requested.
type ShutdownCallback interface {
	OnShutdown(shutdownManager string) error
}

// Func is an adapter to use plain functions as shutdown callbacks.
type Func func(shutdownManager string) error

// OnShutdown defines the action needed to run when shutdown is triggered.
func (f Func) OnShutdown(shutdownManager string) error {
	return f(shutdownManager)
}

// ShutdownManager detects a shutdown condition and reports it to the
// GracefulShutdown instance it was started with.
type ShutdownManager interface {
	GetName() string
	Start(gs GSInterface) error
	ShutdownStart() error
	ShutdownFinish() error
}

// ErrorHandler receives asynchronous errors from callbacks and managers.
type ErrorHandler interface {
	OnError(err error)
}

// ErrorFunc is an adapter to use plain functions as error handlers.
type ErrorFunc func(err error)

// OnError defines the action needed to run when error occurred.
func (f ErrorFunc) OnError(err error) {
	f(err)
}

// GSInterface is the surface managers use to trigger a shutdown.
type GSInterface interface {
	StartShutdown(sm ShutdownManager)
	ReportError(err error)
	AddShutdownCallback(shutdownCallback ShutdownCallback)
}

// GracefulShutdown maintains the registered managers and callbacks.
type GracefulShutdown struct {
	callbacks    []ShutdownCallback
	managers     []ShutdownManager
	errorHandler ErrorHandler
}

// New initializes an empty GracefulShutdown.
func New() *GracefulShutdown {
	return &GracefulShutdown{
		callbacks: make([]ShutdownCallback, 0, 8),
		managers:  make([]ShutdownManager, 0, 2),
	}
}

// Start starts all added managers, which begin listening for shutdown
// conditions. Returns the first manager start error.
func (gs *GracefulShutdown) Start() error {
	for _, manager := range gs.managers {
		if err := manager.Start(gs); err != nil {
			return err
		}
	}

	return nil
}

// AddShutdownManager adds a manager that can trigger a shutdown.
func (gs *GracefulShutdown) AddShutdownManager(manager ShutdownManager) {
	gs.managers = append(gs.managers, manager)
}

// AddShutdownCallback adds a callback run on shutdown.
func (gs *GracefulShutdown) AddShutdownCallback(shutdownCallback ShutdownCallback) {
	gs.callbacks = append(gs.callbacks, shutdownCallback)
}

// SetErrorHandler sets the handler for callback and manager errors.
func (gs *GracefulShutdown) SetErrorHandler(errorHandler ErrorHandler) {
	gs.errorHandler = errorHandler
}

// StartShutdown is called by a ShutdownManager and runs all callbacks
// concurrently, then lets the manager finish.
func (gs *GracefulShutdown) StartShutdown(sm ShutdownManager) {
	gs.ReportError(sm.ShutdownStart())

	var wg sync.WaitGroup
	for _, shutdownCallback := range gs.callbacks {
		wg.Add(1)
		go func(shutdownCallback ShutdownCallback) {
			defer wg.Done()

			gs.ReportError(shutdownCallback.OnShutdown(sm.GetName()))
		}(shutdownCallback)
	}

	wg.Wait()

	gs.ReportError(sm.ShutdownFinish())
}

// ReportError forwards a non-nil error to the error handler, if any.
func (gs *GracefulShutdown) ReportError(err error) {
	if err != nil && gs.errorHandler != nil {
		gs.errorHandler.OnError(err)
	}
}
