package services

import "time"

// GraphParams gates prerequisite checks.
type GraphParams struct {
	// UnlockThreshold is the mastery a strict prerequisite must reach.
	UnlockThreshold float64 `koanf:"unlock_threshold" validate:"gt=0,lte=100"`
}

func DefaultGraphParams() GraphParams {
	return GraphParams{UnlockThreshold: 70}
}

func (p GraphParams) withDefaults() GraphParams {
	if p.UnlockThreshold <= 0 || p.UnlockThreshold > 100 {
		p.UnlockThreshold = DefaultGraphParams().UnlockThreshold
	}
	return p
}

type RecommendParams struct {
	// NearThresholdBand is the distance from the unlock threshold at which a
	// skill is worth probing in a diagnostic.
	NearThresholdBand float64 `koanf:"near_threshold_band" validate:"gte=0,lte=100"`
	// DiagnosticLimit caps the diagnostic set; zero means unlimited.
	DiagnosticLimit int `koanf:"diagnostic_limit" validate:"gte=0"`
}

func DefaultRecommendParams() RecommendParams {
	return RecommendParams{NearThresholdBand: 10, DiagnosticLimit: 20}
}

type SweepParams struct {
	PageSize    int           `koanf:"page_size" validate:"gte=1,lte=10000"`
	Concurrency int           `koanf:"concurrency" validate:"gte=1,lte=256"`
	RowTimeout  time.Duration `koanf:"row_timeout" validate:"gte=0"`
}

func DefaultSweepParams() SweepParams {
	return SweepParams{PageSize: 500, Concurrency: 8, RowTimeout: 5 * time.Second}
}

func (p SweepParams) withDefaults() SweepParams {
	def := DefaultSweepParams()
	if p.PageSize <= 0 {
		p.PageSize = def.PageSize
	}
	if p.Concurrency <= 0 {
		p.Concurrency = def.Concurrency
	}
	return p
}
