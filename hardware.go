package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// HardwareInfo describes the system a suite ran on.
type HardwareInfo struct {
	OS         string `json:"os" yaml:"os"`
	Arch       string `json:"arch" yaml:"arch"`
	CPUModel   string `json:"cpu_model" yaml:"cpu_model"`
	NumCPU     int    `json:"num_cpu" yaml:"num_cpu"`
	GOMAXPROCS int    `json:"gomaxprocs" yaml:"gomaxprocs"`
	GoVersion  string `json:"go_version" yaml:"go_version"`
}

// DetectHardware gathers information about the current system.
func DetectHardware() HardwareInfo {
	info := HardwareInfo{
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		NumCPU:     runtime.NumCPU(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
		GoVersion:  runtime.Version(),
		CPUModel:   "Unknown",
	}

	if runtime.GOOS == "linux" {
		if model := detectLinuxCPU("/proc/cpuinfo"); model != "" {
			info.CPUModel = model
		}
	}

	return info
}

// detectLinuxCPU reads the first model name from a cpuinfo file.
// ARM kernels often omit "model name", so "CPU part" is the fallback.
func detectLinuxCPU(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	var part string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, val, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "model name":
			return strings.TrimSpace(val)
		case "CPU part":
			if part == "" {
				part = "ARM part " + strings.TrimSpace(val)
			}
		}
	}
	return part
}

// PrintHardware writes a human-readable hardware report.
func PrintHardware(w io.Writer, hw HardwareInfo) {
	fmt.Fprintln(w, "=== Hardware Detection ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Operating System: %s\n", hw.OS)
	fmt.Fprintf(w, "Architecture:     %s\n", hw.Arch)
	fmt.Fprintf(w, "CPU Model:        %s\n", hw.CPUModel)
	fmt.Fprintf(w, "CPU Cores:        %d\n", hw.NumCPU)
	fmt.Fprintf(w, "GOMAXPROCS:       %d\n", hw.GOMAXPROCS)
	fmt.Fprintf(w, "Go Version:       %s\n", hw.GoVersion)
}
