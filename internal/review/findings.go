package review

import "fmt"

// FindingsDiff classifies findings between two review rounds.
type FindingsDiff struct {
	Resolved  []Finding `json:"resolved,omitempty"`
	StillOpen []Finding `json:"still_open,omitempty"`
	New       []Finding `json:"new,omitempty"`
}

// DiffFindings compares a follow-up run's findings against the previous
// run's. Findings are matched by ID when present, otherwise by
// file/line/message. A nil previous result marks everything as new.
func DiffFindings(previous, current *Result) FindingsDiff {
	var diff FindingsDiff

	prevKeys := make(map[string]Finding)
	if previous != nil {
		for _, f := range previous.Findings {
			prevKeys[findingKey(f)] = f
		}
	}

	curKeys := make(map[string]bool)
	if current != nil {
		for _, f := range current.Findings {
			key := findingKey(f)
			curKeys[key] = true
			if _, ok := prevKeys[key]; ok {
				diff.StillOpen = append(diff.StillOpen, f)
			} else {
				diff.New = append(diff.New, f)
			}
		}
	}

	if previous != nil {
		for _, f := range previous.Findings {
			if !curKeys[findingKey(f)] {
				diff.Resolved = append(diff.Resolved, f)
			}
		}
	}

	return diff
}

func findingKey(f Finding) string {
	if f.ID != "" {
		return f.ID
	}
	return fmt.Sprintf("%s:%d:%s", f.File, f.Line, f.Message)
}
