// Package prometheus exports adminauth metrics through
// github.com/prometheus/client_golang.
//
// [NewCollector] adapts any [Source] (normally *adminauth.Engine) to a
// prometheus.Collector. [NewExporter] wraps it in a private registry and
// serves it with promhttp. Counter names are adminauth_*_total; the single
// histogram is adminauth_login_latency_seconds.
//
// Nothing is registered on the global default registry.
package prometheus
