package model

// Plan is a user's subscription tier. It gates daily quotas and the
// capability set available to a turn.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
	PlanMax  Plan = "max"
)

func ParsePlan(s string) Plan {
	switch Plan(s) {
	case PlanPro:
		return PlanPro
	case PlanMax:
		return PlanMax
	default:
		return PlanFree
	}
}

type Capability string

const (
	CapabilityWebSearch    Capability = "web_search"
	CapabilityStocks       Capability = "stocks"
	CapabilityWeather      Capability = "weather"
	CapabilityImage        Capability = "image"
	CapabilityFileAnalysis Capability = "file_analysis"
	CapabilityPreAnalysis  Capability = "pre_analysis"
)

var planCapabilities = map[Plan][]Capability{
	PlanFree: {CapabilityWeather, CapabilityImage},
	PlanPro: {
		CapabilityWebSearch, CapabilityStocks, CapabilityWeather,
		CapabilityImage, CapabilityFileAnalysis, CapabilityPreAnalysis,
	},
	PlanMax: {
		CapabilityWebSearch, CapabilityStocks, CapabilityWeather,
		CapabilityImage, CapabilityFileAnalysis, CapabilityPreAnalysis,
	},
}

// Capabilities returns the capability set for a plan. The returned
// slice is shared; callers must not mutate it.
func Capabilities(p Plan) []Capability {
	caps, ok := planCapabilities[p]
	if !ok {
		return planCapabilities[PlanFree]
	}
	return caps
}

func HasCapability(p Plan, c Capability) bool {
	for _, have := range Capabilities(p) {
		if have == c {
			return true
		}
	}
	return false
}

// QuotaOp is an operation with a daily per-plan quota. Counters are
// incremented only on successful completion, never optimistically.
type QuotaOp string

const (
	QuotaChat   QuotaOp = "chat"
	QuotaImage  QuotaOp = "image"
	QuotaVoice  QuotaOp = "voice"
	QuotaSpeech QuotaOp = "speech"
)

// Unlimited marks an op without a daily cap for a plan.
const Unlimited = -1

var dailyLimits = map[Plan]map[QuotaOp]int{
	PlanFree: {
		QuotaChat:   40,
		QuotaImage:  3,
		QuotaVoice:  10,
		QuotaSpeech: 10,
	},
	PlanPro: {
		QuotaChat:   500,
		QuotaImage:  40,
		QuotaVoice:  200,
		QuotaSpeech: 200,
	},
	PlanMax: {
		QuotaChat:   Unlimited,
		QuotaImage:  200,
		QuotaVoice:  Unlimited,
		QuotaSpeech: Unlimited,
	},
}

// DailyLimit returns the daily cap for op under plan, or Unlimited.
func DailyLimit(p Plan, op QuotaOp) int {
	limits, ok := dailyLimits[p]
	if !ok {
		limits = dailyLimits[PlanFree]
	}
	limit, ok := limits[op]
	if !ok {
		return 0
	}
	return limit
}
