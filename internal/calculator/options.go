package calculator

import "github.com/mitchelldurbincs/wargame/internal/config"

// OptionsFromConfig maps the estimator settings onto service options.
func OptionsFromConfig(c config.EstimatorConfig) Options {
	return Options{
		RunCount:       c.RunCount,
		MaxRunCount:    c.MaxRunCount,
		Workers:        c.Workers,
		ProgressEvery:  c.ProgressEvery,
		Exponent:       c.AttritionExponent,
		ExactThreshold: c.ExactThreshold(),
		Timeout:        c.Timeout(),
	}
}
