package localproc

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ltuffery/Octopus/internal/domain"
)

// clockTicks is USER_HZ, fixed at 100 on every Linux architecture Go supports.
const clockTicks = 100

var procRoot = "/proc"

type procStat struct {
	pgrp      int
	cpuTicks  uint64
	startTick uint64
}

// groupUsage sums CPU and resident memory over every process of the group.
// CPU is the average over each process lifetime.
func groupUsage(pgid int) (domain.ResourceUsage, error) {
	uptime, err := readUptime()
	if err != nil {
		return domain.ResourceUsage{}, err
	}
	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return domain.ResourceUsage{}, err
	}

	var usage domain.ResourceUsage
	found := false
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		stat, err := readStat(pid)
		if err != nil || stat.pgrp != pgid {
			continue
		}
		found = true

		elapsed := uptime - float64(stat.startTick)/clockTicks
		if elapsed > 0 {
			usage.CPUPercent += float64(stat.cpuTicks) / clockTicks / elapsed * 100
		}
		if rss, err := readRSS(pid); err == nil {
			usage.MemoryBytes += rss
		}
	}
	if !found {
		return domain.ResourceUsage{}, fmt.Errorf("no process in group %d", pgid)
	}
	return usage, nil
}

func readUptime() (float64, error) {
	data, err := os.ReadFile(filepath.Join(procRoot, "uptime"))
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty uptime")
	}
	return strconv.ParseFloat(fields[0], 64)
}

func readStat(pid int) (procStat, error) {
	data, err := os.ReadFile(filepath.Join(procRoot, strconv.Itoa(pid), "stat"))
	if err != nil {
		return procStat{}, err
	}
	return parseStat(string(data))
}

// parseStat reads /proc/<pid>/stat. The command name may contain spaces and
// parentheses, so fields are counted from the last ')'.
func parseStat(s string) (procStat, error) {
	end := strings.LastIndexByte(s, ')')
	if end < 0 {
		return procStat{}, fmt.Errorf("malformed stat line")
	}
	// fields[0] is field 3 (state) of proc(5).
	fields := strings.Fields(s[end+1:])
	if len(fields) < 20 {
		return procStat{}, fmt.Errorf("short stat line: %d fields", len(fields))
	}
	pgrp, err := strconv.Atoi(fields[2])
	if err != nil {
		return procStat{}, fmt.Errorf("pgrp: %w", err)
	}
	utime, err := strconv.ParseUint(fields[11], 10, 64)
	if err != nil {
		return procStat{}, fmt.Errorf("utime: %w", err)
	}
	stime, err := strconv.ParseUint(fields[12], 10, 64)
	if err != nil {
		return procStat{}, fmt.Errorf("stime: %w", err)
	}
	start, err := strconv.ParseUint(fields[19], 10, 64)
	if err != nil {
		return procStat{}, fmt.Errorf("starttime: %w", err)
	}
	return procStat{pgrp: pgrp, cpuTicks: utime + stime, startTick: start}, nil
}

// readRSS returns VmRSS from /proc/<pid>/status in bytes.
func readRSS(pid int) (uint64, error) {
	f, err := os.Open(filepath.Join(procRoot, strconv.Itoa(pid), "status"))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "VmRSS:") {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(line, "VmRSS:"))
		if len(fields) == 0 {
			break
		}
		kb, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return 0, err
		}
		return kb * 1024, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	// Kernel threads and zombies have no VmRSS.
	return 0, nil
}
