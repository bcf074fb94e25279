package tracing

import (
	"fmt"
	"io"

	"github.com/opentracing/opentracing-go"
	"github.com/uber/jaeger-client-go"
	jCfg "github.com/uber/jaeger-client-go/config"
	"github.com/uber/jaeger-lib/metrics"
)

type Config struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Host    string `yaml:"host" mapstructure:"host" default:"localhost"`
	Port    int    `yaml:"port" mapstructure:"port" default:"6831" validate:"gt=0,lt=65536"`
}

// InitTracer ставит Jaeger глобальным трейсером. Выключенный конфиг оставляет
// noop-трейсер opentracing, closer тогда пустой.
func InitTracer(conf Config, serviceName string) (io.Closer, error) {
	if !conf.Enabled {
		return io.NopCloser(nil), nil
	}

	cfg := &jCfg.Configuration{
		ServiceName: serviceName,
		Sampler: &jCfg.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 1,
		},
		Reporter: &jCfg.ReporterConfig{
			LocalAgentHostPort: fmt.Sprintf("%s:%d", conf.Host, conf.Port),
		},
	}

	tracer, closer, err := cfg.NewTracer(jCfg.Metrics(metrics.NullFactory))
	if err != nil {
		return nil, fmt.Errorf("init jaeger tracer: %w", err)
	}

	opentracing.SetGlobalTracer(tracer)
	return closer, nil
}

// TraceID — id трейса спана для логов; пусто, если спан не от Jaeger.
func TraceID(span opentracing.Span) string {
	if span == nil {
		return ""
	}
	if sc, ok := span.Context().(jaeger.SpanContext); ok {
		return sc.TraceID().String()
	}
	return ""
}
