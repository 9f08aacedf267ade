// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

//go:build linux

package prereq

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"syscall"
)

func defaultSampler() Sampler { return procSampler{} }

// procSampler reads /proc/meminfo, /proc/loadavg and statfs on the root
// filesystem.
type procSampler struct{}

func (procSampler) Sample() (ResourceSample, error) {
	s := ResourceSample{CPUs: runtime.NumCPU()}

	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return s, fmt.Errorf("failed to read meminfo: %w", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			s.MemTotalMB = kb / 1024
		case "MemAvailable:":
			s.MemAvailableMB = kb / 1024
		}
	}

	loadavg, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return s, fmt.Errorf("failed to read loadavg: %w", err)
	}
	fields := strings.Fields(string(loadavg))
	if len(fields) > 0 {
		if load, err := strconv.ParseFloat(fields[0], 64); err == nil {
			s.Load1 = load
		}
	}

	var st syscall.Statfs_t
	if err := syscall.Statfs("/", &st); err == nil {
		s.DiskTotalMB = st.Blocks * uint64(st.Bsize) / (1024 * 1024)
		s.DiskFreeMB = st.Bavail * uint64(st.Bsize) / (1024 * 1024)
	}
	return s, nil
}
