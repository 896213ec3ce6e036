package handlers

import (
	"bytes"
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/valyala/fasthttp"

	"eventping/internal/auth"
)

// TenantMetrics handles GET /v1/metrics?api-key=...: Prometheus text
// exposition filtered to the calling tenant. Families carrying a
// "user" label are narrowed to the tenant's series; unlabeled families
// pass through.
func TenantMetrics(resolver auth.CredentialResolver) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		apiKey := string(ctx.QueryArgs().Peek("api-key"))
		if apiKey == "" {
			respondError(ctx, fasthttp.StatusUnauthorized, "missing api-key query parameter")
			return
		}

		user, err := resolver.Resolve(apiKey)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredential) {
				respondError(ctx, fasthttp.StatusUnauthorized, "invalid API key")
				return
			}
			respondError(ctx, fasthttp.StatusInternalServerError, "credential lookup failed")
			return
		}
		userLabel := strconv.Itoa(int(user.ID))

		metricFamilies, err := prometheus.DefaultGatherer.Gather()
		if err != nil {
			respondError(ctx, fasthttp.StatusInternalServerError, "failed to gather metrics")
			return
		}

		filtered := make([]*dto.MetricFamily, 0, len(metricFamilies))
		for _, mf := range metricFamilies {
			hasUserLabel := false
			for _, m := range mf.GetMetric() {
				for _, l := range m.GetLabel() {
					if l.GetName() == "user" {
						hasUserLabel = true
						break
					}
				}
				if hasUserLabel {
					break
				}
			}

			if !hasUserLabel {
				filtered = append(filtered, mf)
				continue
			}

			var kept []*dto.Metric
			for _, m := range mf.GetMetric() {
				for _, l := range m.GetLabel() {
					if l.GetName() == "user" && l.GetValue() == userLabel {
						kept = append(kept, m)
						break
					}
				}
			}

			if len(kept) == 0 {
				continue
			}

			filtered = append(filtered, &dto.MetricFamily{
				Name:   mf.Name,
				Help:   mf.Help,
				Type:   mf.Type,
				Metric: kept,
			})
		}

		var buf bytes.Buffer
		encoder := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
		for _, mf := range filtered {
			if err := encoder.Encode(mf); err != nil {
				respondError(ctx, fasthttp.StatusInternalServerError, "failed to encode metrics")
				return
			}
		}

		ctx.SetContentType(string(expfmt.NewFormat(expfmt.TypeTextPlain)))
		ctx.Response.Header.Set("Cache-Control", "no-store")
		ctx.SetBody(buf.Bytes())
	}
}
