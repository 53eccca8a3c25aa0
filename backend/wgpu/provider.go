// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuframe/gpucore"
)

// ErrNoHALAccess is returned when a provider's device does not expose its
// HAL objects.
var ErrNoHALAccess = errors.New("wgpu: provider device does not expose HAL access")

// halAccess is implemented by *wgpu.Device from github.com/gogpu/wgpu.
type halAccess interface {
	HalDevice() hal.Device
	HalQueue() hal.Queue
}

// FromProvider wraps the device of a host application, such as a gogpu
// window. The device stays owned by the provider: Close releases only what
// gpuframe created. Swapchains cannot be created on a borrowed device; the
// host presents.
func FromProvider(p gpucontext.DeviceProvider, log *slog.Logger) (*Device, *Queue, error) {
	if p == nil {
		return nil, nil, fmt.Errorf("%w: nil provider", ErrNoHALAccess)
	}
	acc, ok := p.Device().(halAccess)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %T", ErrNoHALAccess, p.Device())
	}
	dev, q := acc.HalDevice(), acc.HalQueue()
	if dev == nil || q == nil {
		return nil, nil, fmt.Errorf("%w: device is not open", ErrNoHALAccess)
	}
	d := newDevice(dev, q, gpucore.Caps{MaxTextureSize: 8192}, log)
	info := p.AdapterInfo()
	d.log.Info("wgpu: using provider device", "adapter", info.Name, "software", info.Type == gpucontext.AdapterTypeSoftware)
	return d, d.queue, nil
}
