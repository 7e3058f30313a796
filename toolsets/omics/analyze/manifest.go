package omicsanalyze

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	overProvisionedBelow  = 0.5
	underProvisionedAbove = 0.9
)

// Scatter shards share a name with a " (N)" suffix.
var shardSuffix = regexp.MustCompile(`\s*\(\d+\)$`)

// taskRecord is one task line of a run manifest.
type taskRecord struct {
	name           string
	instanceType   string
	cpusReserved   float64
	cpusAverage    float64
	cpusMaximum    float64
	memReservedGiB float64
	memAverageGiB  float64
	memMaximumGiB  float64
	runningSeconds float64
}

// manifest is the parsed content of a run's manifest log.
type manifest struct {
	workflow       string
	runName        string
	runningSeconds float64
	storageType    string
	tasks          []taskRecord
	unparsed       int
}

// parseManifest reads manifest lines. Each line is a JSON object; task lines
// carry "cpus", the run line carries "workflow" and "metrics".
func parseManifest(lines []string) manifest {
	var m manifest
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !gjson.Valid(line) {
			m.unparsed++
			continue
		}
		doc := gjson.Parse(line)
		if !doc.IsObject() {
			m.unparsed++
			continue
		}
		metrics := doc.Get("metrics")
		switch {
		case doc.Get("cpus").Exists():
			task := taskRecord{
				name:           doc.Get("name").String(),
				instanceType:   doc.Get("instanceType").String(),
				cpusReserved:   metrics.Get("cpusReserved").Float(),
				cpusAverage:    metrics.Get("cpusAverage").Float(),
				cpusMaximum:    metrics.Get("cpusMaximum").Float(),
				memReservedGiB: metrics.Get("memoryReservedGiB").Float(),
				memAverageGiB:  metrics.Get("memoryAverageGiB").Float(),
				memMaximumGiB:  metrics.Get("memoryMaximumGiB").Float(),
				runningSeconds: metrics.Get("runningSeconds").Float(),
			}
			if task.cpusReserved == 0 {
				task.cpusReserved = doc.Get("cpus").Float()
			}
			if task.memReservedGiB == 0 {
				task.memReservedGiB = doc.Get("memory").Float()
			}
			m.tasks = append(m.tasks, task)
		case doc.Get("workflow").Exists() || metrics.Exists():
			m.workflow = doc.Get("workflow").String()
			m.runName = doc.Get("name").String()
			m.storageType = doc.Get("storageType").String()
			m.runningSeconds = metrics.Get("runningSeconds").Float()
		}
	}
	return m
}

// taskGroup aggregates the tasks sharing a base name.
type taskGroup struct {
	Name                 string
	Count                int
	InstanceTypes        []string
	MeanRunningSeconds   float64
	MaxRunningSeconds    float64
	StdRunningSeconds    float64
	ReservedCpus         float64
	ReservedMemoryGiB    float64
	MeanCpuUtilization   float64
	MaxCpuUtilization    float64
	MeanMemUtilization   float64
	MaxMemUtilization    float64
	RecommendedCpus      int
	RecommendedMemoryGiB float64
	OverProvisioned      bool
	UnderProvisioned     bool
}

func (g taskGroup) Map() map[string]any {
	return map[string]any{
		"taskName":      g.Name,
		"count":         g.Count,
		"instanceTypes": g.InstanceTypes,
		"runningSeconds": map[string]any{
			"mean":   round(g.MeanRunningSeconds),
			"max":    round(g.MaxRunningSeconds),
			"stdDev": round(g.StdRunningSeconds),
		},
		"reservedCpus":      g.ReservedCpus,
		"reservedMemoryGiB": round(g.ReservedMemoryGiB),
		"cpuUtilization": map[string]any{
			"mean": round(g.MeanCpuUtilization),
			"max":  round(g.MaxCpuUtilization),
		},
		"memoryUtilization": map[string]any{
			"mean": round(g.MeanMemUtilization),
			"max":  round(g.MaxMemUtilization),
		},
		"recommendedCpus":      g.RecommendedCpus,
		"recommendedMemoryGiB": round(g.RecommendedMemoryGiB),
		"overProvisioned":      g.OverProvisioned,
		"underProvisioned":     g.UnderProvisioned,
	}
}

// summarize groups tasks by base name, sorted by name. Headroom is the
// fraction added on top of observed peak usage for recommendations.
func summarize(tasks []taskRecord, headroom float64) []taskGroup {
	byName := map[string][]taskRecord{}
	for _, task := range tasks {
		name := shardSuffix.ReplaceAllString(task.name, "")
		byName[name] = append(byName[name], task)
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	groups := make([]taskGroup, 0, len(names))
	for _, name := range names {
		groups = append(groups, summarizeGroup(name, byName[name], headroom))
	}
	return groups
}

func summarizeGroup(name string, tasks []taskRecord, headroom float64) taskGroup {
	g := taskGroup{Name: name, Count: len(tasks), InstanceTypes: []string{}}
	seenTypes := map[string]bool{}
	var sumRun, sumCPU, sumMem, peakCPU, peakMem float64
	var cpuSamples, memSamples int
	for _, task := range tasks {
		if task.instanceType != "" && !seenTypes[task.instanceType] {
			seenTypes[task.instanceType] = true
			g.InstanceTypes = append(g.InstanceTypes, task.instanceType)
		}
		sumRun += task.runningSeconds
		g.MaxRunningSeconds = math.Max(g.MaxRunningSeconds, task.runningSeconds)
		g.ReservedCpus = math.Max(g.ReservedCpus, task.cpusReserved)
		g.ReservedMemoryGiB = math.Max(g.ReservedMemoryGiB, task.memReservedGiB)
		peakCPU = math.Max(peakCPU, task.cpusMaximum)
		peakMem = math.Max(peakMem, task.memMaximumGiB)
		if task.cpusReserved > 0 {
			sumCPU += task.cpusAverage / task.cpusReserved
			g.MaxCpuUtilization = math.Max(g.MaxCpuUtilization, task.cpusMaximum/task.cpusReserved)
			cpuSamples++
		}
		if task.memReservedGiB > 0 {
			sumMem += task.memAverageGiB / task.memReservedGiB
			g.MaxMemUtilization = math.Max(g.MaxMemUtilization, task.memMaximumGiB/task.memReservedGiB)
			memSamples++
		}
	}
	sort.Strings(g.InstanceTypes)
	g.MeanRunningSeconds = sumRun / float64(len(tasks))
	var variance float64
	for _, task := range tasks {
		d := task.runningSeconds - g.MeanRunningSeconds
		variance += d * d
	}
	g.StdRunningSeconds = math.Sqrt(variance / float64(len(tasks)))
	if cpuSamples > 0 {
		g.MeanCpuUtilization = sumCPU / float64(cpuSamples)
	}
	if memSamples > 0 {
		g.MeanMemUtilization = sumMem / float64(memSamples)
	}

	// The epsilon keeps 10 * 1.1 from rounding up to 12.
	g.RecommendedCpus = int(math.Ceil(peakCPU*(1+headroom) - 1e-9))
	if g.RecommendedCpus < 1 {
		g.RecommendedCpus = 1
	}
	g.RecommendedMemoryGiB = peakMem * (1 + headroom)

	peak := math.Max(g.MaxCpuUtilization, g.MaxMemUtilization)
	if cpuSamples+memSamples > 0 {
		g.OverProvisioned = peak < overProvisionedBelow
		g.UnderProvisioned = peak > underProvisionedAbove
	}
	return g
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}
