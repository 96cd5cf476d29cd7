package fusion

import (
	"strings"
	"sync"

	"github.com/arogya-path/kernel/internal/domain"
)

// calculator is one session's fusion reducer. Every TraceEvent for that
// session folds into it through process; nothing outside the owning Hub
// touches a calculator directly, satisfying the single-writer invariant.
type calculator struct {
	mu sync.Mutex

	sessionID string
	scores    map[scoreKey]*float64

	agentsCompleted map[string]struct{}
	pipelinePhase   string
	haltReason      string
	lastEventAgent  string
	lastEventType   string
}

func newCalculator(sessionID string) *calculator {
	scores := make(map[scoreKey]*float64, len(scoreKeys))
	for _, k := range scoreKeys {
		scores[k] = nil
	}
	// Two scores start with a known default rather than "not yet collected".
	scores[scoreContraindicationClear] = ptr(1.0)
	scores[scorePipelineCompletion] = ptr(0.0)

	return &calculator{
		sessionID:       sessionID,
		scores:          scores,
		agentsCompleted: make(map[string]struct{}),
		pipelinePhase:   "intake",
		lastEventAgent:  "SYSTEM",
		lastEventType:   "init",
	}
}

// process folds one TraceEvent into the calculator's state, returning true
// if any scalar the emitted FusionState reports actually changed.
func (c *calculator) process(event domain.TraceEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := false
	agent := event.Agent
	details := event.Details

	c.lastEventAgent = agent
	c.lastEventType = string(event.Type)

	if event.Status == domain.StepCompleted {
		if _, done := c.agentsCompleted[agent]; !done {
			c.agentsCompleted[agent] = struct{}{}
			completion := float64(len(c.agentsCompleted)) / float64(totalAgentsExpected)
			if completion > 1 {
				completion = 1
			}
			if c.scores[scorePipelineCompletion] == nil || *c.scores[scorePipelineCompletion] != completion {
				c.scores[scorePipelineCompletion] = ptr(completion)
				changed = true
			}
		}
	}

	oldPhase := c.pipelinePhase
	switch agent {
	case "Risk Scoring Agent":
		c.pipelinePhase = "intake"
	case "Medical Validator":
		c.pipelinePhase = "validation"
	case "Inventory Agent":
		c.pipelinePhase = "inventory"
	case "Fulfillment Agent":
		c.pipelinePhase = "fulfillment"
	}
	if event.Status == domain.StepFailed || strings.Contains(string(event.Type), "failed") {
		c.pipelinePhase = "halted"
		c.haltReason = haltReasonFrom(details, agent)
	}
	if event.Status == domain.StepCompleted && agent == "Fulfillment Agent" {
		c.pipelinePhase = "complete"
	}
	if oldPhase != c.pipelinePhase {
		changed = true
	}

	if agent == "Risk Scoring Agent" {
		if v, ok := floatDetail(details, "confidence"); ok {
			c.set(scoreIdentityResolution, v)
			changed = true
		}
	}

	if agent == "Medical Validator" {
		if v, ok := floatDetail(details, "reconstruction_confidence"); ok {
			c.set(scoreOCRConfidence, v)
			changed = true
		}
	}

	if v, ok := floatDetail(details, "severity_score"); ok {
		inverted := 1.0 - v/10.0
		if inverted < 0 {
			inverted = 0
		}
		c.set(scoreSeverityInverted, inverted)
		changed = true
	}

	if agent == "Medical Validator" {
		if safe, ok := boolDetail(details, "safe_to_dispense"); ok {
			if safe {
				c.set(scoreContraindicationClear, 1.0)
			} else {
				c.set(scoreContraindicationClear, 0.0)
			}
			changed = true
		}
		if issues, ok := details["safety_issues"].([]string); ok && len(issues) > 0 {
			c.set(scoreContraindicationClear, 0.0)
			changed = true
		}
	}

	if agent == "Inventory Agent" {
		if v, ok := floatDetail(details, "match_score"); ok {
			c.set(scoreInventoryMatch, v)
			changed = true
		} else if status, ok := details["stock_status"].(string); ok {
			switch status {
			case "in_stock":
				c.set(scoreInventoryMatch, 1.0)
			case "substitute":
				c.set(scoreInventoryMatch, 0.6)
			case "out_of_stock":
				c.set(scoreInventoryMatch, 0.0)
			}
			changed = true
		}
	}

	return changed
}

func (c *calculator) set(k scoreKey, v float64) {
	c.scores[k] = ptr(v)
}

// state snapshots the calculator into the read-only FusionState the rest of
// the system consumes.
func (c *calculator) state() domain.FusionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	safety := weightedAverage([]weighted{
		{c.scores[scoreIntentClassification], 0.20},
		{c.scores[scoreOCRConfidence], 0.15},
		{c.scores[scoreSeverityInverted], 0.40},
		{c.scores[scoreContraindicationClear], 0.25},
	})
	fulfillment := weightedAverage([]weighted{
		{c.scores[scoreInventoryMatch], 0.45},
		{c.scores[scoreIdentityResolution], 0.20},
		{c.scores[scoreIntentExtraction], 0.20},
		{c.scores[scorePipelineCompletion], 0.15},
	})

	safe := c.scores[scoreContraindicationClear] != nil && *c.scores[scoreContraindicationClear] == 1.0
	var severityScore float64
	if c.scores[scoreSeverityInverted] != nil {
		severityScore = (1 - *c.scores[scoreSeverityInverted]) * 10
	}

	var alert domain.AlertLevel
	switch {
	case safety < 0.30 || !safe:
		alert = domain.AlertCritical
	case safety < 0.60 || severityScore > 7:
		alert = domain.AlertWarn
	default:
		alert = domain.AlertNominal
	}

	mode := domain.ModeFulfillment
	if c.pipelinePhase == "intake" || c.pipelinePhase == "validation" {
		mode = domain.ModeSafety
	}

	contributing := make(map[string]*float64, len(c.scores))
	for _, k := range scoreKeys {
		if v := c.scores[k]; v != nil {
			contributing[string(k)] = ptr(round2(*v))
		} else {
			contributing[string(k)] = nil
		}
	}

	return domain.FusionState{
		SessionID:             c.sessionID,
		SafetyConfidence:      round2(safety),
		FulfillmentConfidence: round2(fulfillment),
		DominantMode:          mode,
		PipelinePhase:         c.pipelinePhase,
		ContributingScores:    contributing,
		AlertLevel:            alert,
		HaltReason:            c.haltReason,
		LastEventAgent:        c.lastEventAgent,
		LastEventType:         c.lastEventType,
	}
}

func haltReasonFrom(details map[string]any, agent string) string {
	if details != nil {
		if reason, ok := details["reason"].(string); ok && reason != "" {
			return reason
		}
		if errStr, ok := details["error"].(string); ok && errStr != "" {
			return errStr
		}
	}
	return agent + " Failed"
}

func floatDetail(details map[string]any, key string) (float64, bool) {
	if details == nil {
		return 0, false
	}
	switch v := details[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func boolDetail(details map[string]any, key string) (bool, bool) {
	if details == nil {
		return false, false
	}
	v, ok := details[key].(bool)
	return v, ok
}
