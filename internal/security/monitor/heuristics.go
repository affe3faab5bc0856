package monitor

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/Ancillary-AGI/titan-sub001/internal/security/threat"
)

// Heuristic thresholds
const (
	MiningCPUThreshold      = 80.0
	MiningWorkerThreshold   = 2
	ExfilPostThreshold      = 3
	ExfilBytesThreshold     = 5 * 1024 * 1024
	AnomalyMinHistory       = 5
	AnomalyZScore           = 3.0
	AnomalyMinRate          = 60.0
	anomalyFlatHistoryRatio = 3.0
)

// Heuristic names a background detector
type Heuristic string

const (
	HeuristicCryptojacking  Heuristic = "cryptojacking"
	HeuristicExfiltration   Heuristic = "exfiltration"
	HeuristicNetworkAnomaly Heuristic = "network-anomaly"
)

// Finding is a heuristic that fired for a context
type Finding struct {
	Heuristic   Heuristic
	Type        threat.EventType
	Level       threat.Level
	Description string
}

// Evaluate runs every heuristic against s
func Evaluate(s Signals) []Finding {
	var out []Finding
	if detectMining(s) {
		out = append(out, Finding{
			Heuristic:   HeuristicCryptojacking,
			Type:        threat.Cryptojacking,
			Level:       threat.High,
			Description: "Sustained CPU load with worker or WebAssembly activity",
		})
	}
	if detectExfiltration(s) {
		out = append(out, Finding{
			Heuristic:   HeuristicExfiltration,
			Type:        threat.DataExfiltration,
			Level:       threat.Medium,
			Description: "Stored data read followed by bulk third-party uploads",
		})
	}
	if z, ok := networkAnomaly(s); ok {
		desc := "Request rate far above this page's baseline"
		if !math.IsInf(z, 1) {
			desc += " (z-score " + formatZ(z) + ")"
		}
		out = append(out, Finding{
			Heuristic:   HeuristicNetworkAnomaly,
			Type:        threat.DataExfiltration,
			Level:       threat.Low,
			Description: desc,
		})
	}
	return out
}

func detectMining(s Signals) bool {
	if s.CPUUsage < MiningCPUThreshold {
		return false
	}
	return s.ActiveWorkers >= MiningWorkerThreshold || s.WASMModules > 0
}

func detectExfiltration(s Signals) bool {
	if s.StorageReads == 0 {
		return false
	}
	return s.ThirdPartyPosts >= ExfilPostThreshold || s.OutboundBytes >= ExfilBytesThreshold
}

// networkAnomaly returns the z-score of the current request rate against
// its history. A flat history scores +Inf once the rate triples.
func networkAnomaly(s Signals) (float64, bool) {
	if len(s.RequestHistory) < AnomalyMinHistory || s.RequestRate < AnomalyMinRate {
		return 0, false
	}

	mean, std := stat.MeanStdDev(s.RequestHistory, nil)
	if std == 0 || math.IsNaN(std) {
		if s.RequestRate >= anomalyFlatHistoryRatio*math.Max(mean, 1) {
			return math.Inf(1), true
		}
		return 0, false
	}

	z := stat.StdScore(s.RequestRate, mean, std)
	return z, z >= AnomalyZScore
}

func formatZ(z float64) string {
	return strconv.FormatFloat(z, 'f', 1, 64)
}
