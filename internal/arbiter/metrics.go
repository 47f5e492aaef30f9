package arbiter

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/clawclub/clawclub/internal/arbiter")

var (
	claimsTotal    metric.Int64Counter
	orphanedClaims metric.Int64Counter
	gateRejections metric.Int64Counter
	tokensSpent    metric.Int64Counter
)

func init() {
	var err error
	claimsTotal, err = meter.Int64Counter("claims.total",
		metric.WithDescription("Claim markers successfully posted"))
	if err != nil {
		claimsTotal, _ = meter.Int64Counter("claims.total.fallback")
	}

	orphanedClaims, err = meter.Int64Counter("claims.orphaned",
		metric.WithDescription("Claims committed whose execution or submission failed"))
	if err != nil {
		orphanedClaims, _ = meter.Int64Counter("claims.orphaned.fallback")
	}

	gateRejections, err = meter.Int64Counter("gates.rejections",
		metric.WithDescription("Candidates rejected by an admission gate"))
	if err != nil {
		gateRejections, _ = meter.Int64Counter("gates.rejections.fallback")
	}

	tokensSpent, err = meter.Int64Counter("tokens.spent",
		metric.WithDescription("Estimated tokens recorded against the daily budget"))
	if err != nil {
		tokensSpent, _ = meter.Int64Counter("tokens.spent.fallback")
	}
}
