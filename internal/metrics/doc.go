// Package metrics records build, render and request metrics.
//
// Components receive a Recorder through injection and default to NoopRecorder,
// so callers never check for nil:
//
//	cache := post.NewRenderCache(renderer)
//	cache.SetRecorder(metrics.NewPrometheusRecorder(reg))
//
// PrometheusRecorder exports everything under the "postbuilder" namespace and
// HTTPHandler serves a registry for scraping. Batch builds have no endpoint
// and dump their registry with WriteTextfile instead.
package metrics
