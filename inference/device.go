// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package inference

import (
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/pkg/errors"
)

// Device owns the backend sessions execute on, together with the Config
// applied to every module placed on it.
//
// Backends register themselves on import: programs must blank-import
// github.com/gomlx/gomlx/backends/default (or a specific backend package)
// before calling NewDevice.
type Device struct {
	backend backends.Backend
	cfg     Config
}

// NewDevice opens the backend selected by cfg.Backend and returns a device
// ready to place modules on. An empty cfg.Backend selects the SDK default
// ($GOMLX_BACKEND or the first registered backend).
func NewDevice(cfg Config) (*Device, error) {
	var backend backends.Backend
	var err error
	if cfg.Backend == "" {
		backend, err = backends.New()
	} else {
		backend, err = backends.NewWithConfig(cfg.Backend)
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "opening backend (config=%q)", cfg.Backend)
	}
	return &Device{backend: backend, cfg: cfg}, nil
}

// newDeviceForBackend wraps an already-open backend. Tests use it with
// graphtest backends.
func newDeviceForBackend(backend backends.Backend, cfg Config) *Device {
	return &Device{backend: backend, cfg: cfg}
}

// Available lists the names of the registered backends.
func Available() []string {
	return backends.List()
}

// Name returns the short name of the open backend, e.g. "go" or "xla".
func (d *Device) Name() string { return d.backend.Name() }

// Description returns the backend's human readable description.
func (d *Device) Description() string { return d.backend.Description() }

// NumDevices returns how many accelerator devices the backend drives.
func (d *Device) NumDevices() int { return int(d.backend.NumDevices()) }

// Place uploads the module's weights into a fresh context on this device and
// returns a session ready to compile and execute. Placing the same module on
// several devices, or several modules on one device, creates independent
// sessions.
func (d *Device) Place(module *Module) (*Session, error) {
	if len(module.inputs) == 0 {
		return nil, errors.Errorf("module %q declares no inputs", module.Name())
	}
	ctx := context.New()
	if module.attach != nil {
		if err := module.attach(ctx); err != nil {
			return nil, errors.WithMessagef(err, "uploading %q variables to device", module.Name())
		}
	}
	sess := &Session{
		cfg:      d.cfg,
		module:   module,
		compiled: make(map[string]struct{}),
		doneCh:   make(chan struct{}),
	}
	var err error
	sess.exec, err = context.NewExec(d.backend, ctx, sess.buildGraph)
	if err != nil {
		return nil, errors.WithMessagef(err, "preparing executor for %q", module.Name())
	}
	return sess, nil
}

// Close finalizes the backend. Sessions placed on the device must not be
// used afterwards.
func (d *Device) Close() {
	d.backend.Finalize()
}
