// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package cpuid detects the CPU cache geometry used to derive the default
// blocking parameters. Detection reads Linux sysfs (with a /proc/cpuinfo
// hint as second chance) and falls back to conservative modern-core
// constants everywhere else. It runs once per process.
package cpuid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"k8s.io/klog/v2"
)

// CacheInfo holds per-level data-cache sizes in bytes.
type CacheInfo struct {
	L1D, L2, L3 int
}

// Fallback geometry when nothing can be detected.
const (
	fallbackL1D = 32 * 1024
	fallbackL2  = 256 * 1024
	fallbackL3  = 8 * 1024 * 1024
)

const (
	sysfsCacheDir = "/sys/devices/system/cpu/cpu0/cache"
	procCPUInfo   = "/proc/cpuinfo"
)

// Caches returns the cache geometry of the current machine. Detection
// runs once; every caller shares the result.
var Caches = sync.OnceValue(detect)

func detect() CacheInfo {
	info := CacheInfo{L1D: fallbackL1D, L2: fallbackL2, L3: fallbackL3}
	detected, ok := readSysfsCaches(sysfsCacheDir)
	if ok {
		if detected.L1D > 0 {
			info.L1D = detected.L1D
		}
		if detected.L2 > 0 {
			info.L2 = detected.L2
		}
		if detected.L3 > 0 {
			info.L3 = detected.L3
		}
	} else if llc, err := readCPUInfoCacheSize(procCPUInfo); err == nil && llc > info.L3 {
		// x86 /proc/cpuinfo reports the last-level cache here.
		info.L3 = llc
	}
	klog.V(2).Infof("cpuid: caches L1d=%d L2=%d L3=%d (sysfs ok=%v)", info.L1D, info.L2, info.L3, ok)
	return info
}

// readSysfsCaches parses the index*/ entries of a sysfs cpu cache
// directory. It returns the sizes it found (zero for missing levels) and
// whether anything was found at all. The directory is a parameter so
// tests can point it at a synthetic tree.
func readSysfsCaches(dir string) (CacheInfo, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return CacheInfo{}, false
	}
	var info CacheInfo
	found := false
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "index") {
			continue
		}
		indexDir := filepath.Join(dir, entry.Name())
		level, err := readTrimmed(filepath.Join(indexDir, "level"))
		if err != nil {
			continue
		}
		cacheType, err := readTrimmed(filepath.Join(indexDir, "type"))
		if err != nil || cacheType == "Instruction" {
			continue
		}
		sizeText, err := readTrimmed(filepath.Join(indexDir, "size"))
		if err != nil {
			continue
		}
		size, err := ParseCacheSize(sizeText)
		if err != nil || size <= 0 {
			continue
		}
		switch level {
		case "1":
			info.L1D = size
			found = true
		case "2":
			info.L2 = size
			found = true
		case "3":
			info.L3 = size
			found = true
		}
	}
	return info, found
}

// readCPUInfoCacheSize extracts the first "cache size" line of a
// /proc/cpuinfo style file, e.g. "cache size	: 12288 KB".
func readCPUInfoCacheSize(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "cache size") {
			continue
		}
		_, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		return ParseCacheSize(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "B")))
	}
	return 0, os.ErrNotExist
}

// ParseCacheSize converts sysfs-style size strings ("32K", "1M", "8192K",
// plain bytes) to bytes.
func ParseCacheSize(s string) (int, error) {
	s = strings.TrimSpace(s)
	mult := 1
	switch {
	case strings.HasSuffix(s, "K"):
		mult, s = 1024, strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		mult, s = 1024*1024, strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "G"):
		mult, s = 1024*1024*1024, strings.TrimSuffix(s, "G")
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return n * mult, nil
}

func readTrimmed(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
