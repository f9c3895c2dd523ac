// Package device picks the compute device the model is bound to: an
// accelerator when one is present, the CPU otherwise.
package device

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"predictd/pkg/types"
)

// Device kinds.
const (
	CPU   = "cpu"
	CUDA  = "cuda"
	Metal = "metal"
	Auto  = "auto"
)

// AllLayers asks llama.cpp to offload every layer to the accelerator.
const AllLayers = 999

// Probe reports what the host offers. Fields are swappable for tests.
type Probe struct {
	GOOS     string
	GOARCH   string
	Stat     func(path string) error
	LookPath func(file string) (string, error)
}

// HostProbe inspects the running machine.
func HostProbe() Probe {
	return Probe{
		GOOS:     runtime.GOOS,
		GOARCH:   runtime.GOARCH,
		Stat:     func(p string) error { _, err := os.Stat(p); return err },
		LookPath: exec.LookPath,
	}
}

// cuda reports whether an NVIDIA device is visible and why.
func (p Probe) cuda() (bool, string) {
	if p.Stat != nil && p.Stat("/dev/nvidia0") == nil {
		return true, "/dev/nvidia0 present"
	}
	if p.LookPath != nil {
		if path, err := p.LookPath("nvidia-smi"); err == nil {
			return true, path + " found"
		}
	}
	return false, ""
}

func (p Probe) metal() bool { return p.GOOS == "darwin" && p.GOARCH == "arm64" }

// Resolve turns a preference (auto, cpu, cuda, metal) into a concrete device.
// gpuLayers > 0 overrides the number of offloaded layers on an accelerator.
func Resolve(pref string, gpuLayers int) (types.Device, error) {
	return HostProbe().Resolve(pref, gpuLayers)
}

// Resolve is Resolve against this probe.
func (p Probe) Resolve(pref string, gpuLayers int) (types.Device, error) {
	layers := AllLayers
	if gpuLayers > 0 {
		layers = gpuLayers
	}
	switch pref {
	case "", Auto:
		if ok, why := p.cuda(); ok {
			return types.Device{Kind: CUDA, GPULayers: layers, Reason: "auto: " + why}, nil
		}
		if p.metal() {
			return types.Device{Kind: Metal, GPULayers: layers, Reason: "auto: apple silicon"}, nil
		}
		return types.Device{Kind: CPU, Reason: "auto: no accelerator found"}, nil
	case CPU:
		return types.Device{Kind: CPU, Reason: "configured"}, nil
	case CUDA:
		if ok, _ := p.cuda(); !ok {
			return types.Device{}, fmt.Errorf("device cuda requested but no NVIDIA device found")
		}
		return types.Device{Kind: CUDA, GPULayers: layers, Reason: "configured"}, nil
	case Metal:
		if !p.metal() {
			return types.Device{}, fmt.Errorf("device metal requested on %s/%s", p.GOOS, p.GOARCH)
		}
		return types.Device{Kind: Metal, GPULayers: layers, Reason: "configured"}, nil
	default:
		return types.Device{}, fmt.Errorf("unknown device %q", pref)
	}
}
