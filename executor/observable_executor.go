package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/hatlonely/schemax/log"
	"github.com/hatlonely/schemax/ref"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ObservableExecutorOptions struct {
	// Executor 被包装的执行器配置
	Executor *ref.TypeOptions `cfg:"executor" validate:"required"`

	Logger *ref.TypeOptions `cfg:"logger"`

	EnableMetrics bool `cfg:"enableMetrics" def:"true"`
	EnableLogging bool `cfg:"enableLogging" def:"true"`
	EnableTracing bool `cfg:"enableTracing" def:"false"`

	// Name 指标名前缀，同时作为日志和 span 的 component
	Name string `cfg:"name" def:"executor"`
}

// ObservableMetrics 执行器的 prometheus 指标
type ObservableMetrics struct {
	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	activeOperations  *prometheus.GaugeVec
	affectedRows      *prometheus.CounterVec
}

// NewObservableMetrics 创建并注册指标，同名指标已存在时复用
func NewObservableMetrics(name string) *ObservableMetrics {
	return &ObservableMetrics{
		operationCounter: register(prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: name + "_operations_total",
				Help: "Total number of executor operations",
			},
			[]string{"operation", "status"},
		)),
		operationDuration: register(prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_operation_duration_seconds",
				Help:    "Duration of executor operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"operation"},
		)),
		activeOperations: register(prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: name + "_active_operations",
				Help: "Number of active executor operations",
			},
			[]string{"operation"},
		)),
		affectedRows: register(prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: name + "_affected_rows_total",
				Help: "Total number of rows affected by exec operations",
			},
			[]string{"operation"},
		)),
	}
}

func register[C prometheus.Collector](c C) C {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

// ObservableExecutor 装饰器，为任何 Executor 添加指标、日志和追踪
type ObservableExecutor struct {
	executor Executor

	logger  log.Logger
	metrics *ObservableMetrics
	tracer  trace.Tracer
	name    string
}

func NewObservableExecutorWithOptions(options *ObservableExecutorOptions) (*ObservableExecutor, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	exec, err := NewExecutorWithOptions(options.Executor)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create underlying executor")
	}

	obs := NewObservableExecutor(exec, options.Name)

	if options.EnableLogging {
		l, err := log.NewLoggerWithOptions(options.Logger)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to create logger")
		}
		obs.logger = l.WithGroup("observableExecutor")
	}
	if options.EnableMetrics {
		obs.metrics = NewObservableMetrics(obs.name)
	}
	if options.EnableTracing {
		obs.tracer = otel.Tracer(fmt.Sprintf("executor.%s", obs.name))
	}

	return obs, nil
}

// NewObservableExecutor 包装已有的执行器，观测能力通过 With* 方法开启
func NewObservableExecutor(exec Executor, name string) *ObservableExecutor {
	if name == "" {
		name = "executor"
	}
	return &ObservableExecutor{executor: exec, name: name}
}

func (obs *ObservableExecutor) WithLogger(l log.Logger) *ObservableExecutor {
	obs.logger = l.WithGroup("observableExecutor")
	return obs
}

func (obs *ObservableExecutor) WithMetrics(metrics *ObservableMetrics) *ObservableExecutor {
	obs.metrics = metrics
	return obs
}

func (obs *ObservableExecutor) WithTracer(tracer trace.Tracer) *ObservableExecutor {
	obs.tracer = tracer
	return obs
}

func (obs *ObservableExecutor) observe(ctx context.Context, operation string, query string, fn func(context.Context) error) error {
	start := time.Now()

	var span trace.Span
	if obs.tracer != nil {
		ctx, span = obs.tracer.Start(ctx, fmt.Sprintf("executor.%s", operation),
			trace.WithAttributes(
				attribute.String("component", obs.name),
				attribute.String("operation", operation),
				attribute.String("db.system", obs.executor.Engine()),
				attribute.String("db.statement", query),
			),
		)
		defer span.End()
	}

	if obs.metrics != nil {
		obs.metrics.activeOperations.WithLabelValues(operation).Inc()
		defer obs.metrics.activeOperations.WithLabelValues(operation).Dec()
	}

	err := fn(ctx)
	duration := time.Since(start)

	if span != nil {
		span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if obs.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		obs.metrics.operationCounter.WithLabelValues(operation, status).Inc()
		obs.metrics.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	}

	if obs.logger != nil {
		if err != nil {
			obs.logger.ErrorContext(ctx, "executor operation failed",
				"component", obs.name,
				"operation", operation,
				"query", query,
				"duration_ms", duration.Milliseconds(),
				"error", err.Error(),
			)
		} else {
			obs.logger.DebugContext(ctx, "executor operation completed",
				"component", obs.name,
				"operation", operation,
				"query", query,
				"duration_ms", duration.Milliseconds(),
			)
		}
	}

	return err
}

func (obs *ObservableExecutor) Engine() string {
	return obs.executor.Engine()
}

func (obs *ObservableExecutor) Exec(ctx context.Context, query string) (Result, error) {
	var result Result
	err := obs.observe(ctx, "Exec", query, func(ctx context.Context) error {
		var err error
		result, err = obs.executor.Exec(ctx, query)
		return err
	})
	if err == nil && obs.metrics != nil {
		obs.metrics.affectedRows.WithLabelValues("Exec").Add(float64(result.AffectedRows))
	}
	return result, err
}

func (obs *ObservableExecutor) Query(ctx context.Context, query string) (*Rows, error) {
	var rows *Rows
	err := obs.observe(ctx, "Query", query, func(ctx context.Context) error {
		var err error
		rows, err = obs.executor.Query(ctx, query)
		return err
	})
	return rows, err
}

func (obs *ObservableExecutor) DescribeColumns(ctx context.Context, table string) ([]Column, error) {
	var columns []Column
	err := obs.observe(ctx, "DescribeColumns", table, func(ctx context.Context) error {
		var err error
		columns, err = obs.executor.DescribeColumns(ctx, table)
		return err
	})
	return columns, err
}

func (obs *ObservableExecutor) TableExists(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := obs.observe(ctx, "TableExists", table, func(ctx context.Context) error {
		var err error
		exists, err = obs.executor.TableExists(ctx, table)
		return err
	})
	return exists, err
}

func (obs *ObservableExecutor) Escape(raw string) string {
	return obs.executor.Escape(raw)
}

func (obs *ObservableExecutor) Begin(ctx context.Context) error {
	return obs.observe(ctx, "Begin", "", obs.executor.Begin)
}

func (obs *ObservableExecutor) Commit() error {
	return obs.observe(context.Background(), "Commit", "", func(context.Context) error {
		return obs.executor.Commit()
	})
}

func (obs *ObservableExecutor) Rollback() error {
	return obs.observe(context.Background(), "Rollback", "", func(context.Context) error {
		return obs.executor.Rollback()
	})
}

func (obs *ObservableExecutor) Close() error {
	return obs.executor.Close()
}
