// Package posixsignal implements a shutdown manager triggered by POSIX
// signals. After all shutdown callbacks finish it exits the process with
// status 130, the conventional code for a signalled stop.
package posixsignal

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/libreassistant/poco/pkg/http/shutdown"
)

// Name defines shutdown manager name.
const Name = "PosixSignalManager"

const signalledExitStatus = 130

// PosixSignalManager implements shutdown.ShutdownManager. It is initialized
// with NewPosixSignalManager.
type PosixSignalManager struct {
	signals []os.Signal
}

// NewPosixSignalManager initializes the PosixSignalManager. As arguments you
// can provide os.Signal-s to listen to; default are SIGINT and SIGTERM.
func NewPosixSignalManager(sig ...os.Signal) *PosixSignalManager {
	if len(sig) == 0 {
		sig = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}

	return &PosixSignalManager{
		signals: sig,
	}
}

// GetName returns the name of this shutdown manager.
func (posixSignalManager *PosixSignalManager) GetName() string {
	return Name
}

// Start starts listening for posix signals.
func (posixSignalManager *PosixSignalManager) Start(gs shutdown.GSInterface) error {
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, posixSignalManager.signals...)

		<-c

		gs.StartShutdown(posixSignalManager)
	}()

	return nil
}

// ShutdownStart does nothing.
func (posixSignalManager *PosixSignalManager) ShutdownStart() error {
	return nil
}

// ShutdownFinish exits the process.
func (posixSignalManager *PosixSignalManager) ShutdownFinish() error {
	os.Exit(signalledExitStatus)

	return nil
}
