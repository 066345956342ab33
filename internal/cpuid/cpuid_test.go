// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package cpuid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeIndex creates one sysfs-style cache index directory.
func writeIndex(t *testing.T, dir, name, level, cacheType, size string) {
	t.Helper()
	indexDir := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(indexDir, 0o755))
	for file, content := range map[string]string{
		"level": level, "type": cacheType, "size": size,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(indexDir, file), []byte(content+"\n"), 0o644))
	}
}

func TestReadSysfsCaches(t *testing.T) {
	dir := t.TempDir()
	writeIndex(t, dir, "index0", "1", "Data", "32K")
	writeIndex(t, dir, "index1", "1", "Instruction", "99K") // must be skipped
	writeIndex(t, dir, "index2", "2", "Unified", "512K")
	writeIndex(t, dir, "index3", "3", "Unified", "16384K")

	info, ok := readSysfsCaches(dir)
	require.True(t, ok)
	assert.Equal(t, 32*1024, info.L1D)
	assert.Equal(t, 512*1024, info.L2)
	assert.Equal(t, 16*1024*1024, info.L3)
}

func TestReadSysfsCachesPartial(t *testing.T) {
	dir := t.TempDir()
	writeIndex(t, dir, "index0", "2", "Unified", "1M")

	info, ok := readSysfsCaches(dir)
	require.True(t, ok)
	assert.Zero(t, info.L1D, "undetected levels stay zero")
	assert.Equal(t, 1024*1024, info.L2)
	assert.Zero(t, info.L3)
}

func TestReadSysfsCachesMissing(t *testing.T) {
	_, ok := readSysfsCaches(filepath.Join(t.TempDir(), "no-such-dir"))
	assert.False(t, ok)

	// A directory without index entries detects nothing.
	_, ok = readSysfsCaches(t.TempDir())
	assert.False(t, ok)

	// Broken entries are skipped rather than failing detection.
	dir := t.TempDir()
	writeIndex(t, dir, "index0", "1", "Data", "not-a-size")
	_, ok = readSysfsCaches(dir)
	assert.False(t, ok)
}

func TestReadCPUInfoCacheSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpuinfo")
	content := "processor\t: 0\nvendor_id\t: GenuineIntel\ncache size\t: 12288 KB\nflags\t\t: fpu vme\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	size, err := readCPUInfoCacheSize(path)
	require.NoError(t, err)
	assert.Equal(t, 12288*1024, size)

	// No "cache size" line.
	require.NoError(t, os.WriteFile(path, []byte("processor\t: 0\n"), 0o644))
	_, err = readCPUInfoCacheSize(path)
	require.Error(t, err)

	_, err = readCPUInfoCacheSize(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}

func TestParseCacheSize(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"512", 512},
		{"32K", 32 * 1024},
		{"  48K ", 48 * 1024},
		{"8M", 8 * 1024 * 1024},
		{"1G", 1024 * 1024 * 1024},
		{"12288 K", 12288 * 1024},
	}
	for _, tc := range cases {
		got, err := ParseCacheSize(tc.in)
		require.NoErrorf(t, err, "ParseCacheSize(%q)", tc.in)
		assert.Equalf(t, tc.want, got, "ParseCacheSize(%q)", tc.in)
	}

	for _, in := range []string{"", "K", "big", "1.5M"} {
		_, err := ParseCacheSize(in)
		assert.Errorf(t, err, "ParseCacheSize(%q) should fail", in)
	}
}

// TestCaches only checks the invariant that holds everywhere: whether
// detected or fallback, all levels are positive.
func TestCaches(t *testing.T) {
	info := Caches()
	assert.Positive(t, info.L1D)
	assert.Positive(t, info.L2)
	assert.Positive(t, info.L3)
	assert.GreaterOrEqual(t, info.L2, info.L1D)
}
