// Package observe 暴露 Prometheus 指标
package observe

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 指标定义
var (
	pluginInvocations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plugshell_plugin_invocations_total",
		Help: "插件动作调用次数",
	}, []string{"action", "outcome"})

	pluginInvocationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "plugshell_plugin_invocation_duration_seconds",
		Help:    "插件动作调用耗时",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})

	lifecycleOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plugshell_plugin_lifecycle_total",
		Help: "插件生命周期操作次数",
	}, []string{"operation", "result"})

	activePlugins = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "plugshell_active_plugins",
		Help: "当前激活注册表中的插件数",
	})
)

var registerOnce sync.Once

// Register 把指标注册到默认 Registerer，重复调用是安全的
func Register() {
	registerOnce.Do(func() { RegisterTo(prometheus.DefaultRegisterer) })
}

// RegisterTo 把指标注册到指定的 Registerer，测试中用于隔离
func RegisterTo(reg prometheus.Registerer) {
	reg.MustRegister(pluginInvocations, pluginInvocationDuration, lifecycleOps, activePlugins)
}

// ObserveInvocation 记录一次插件动作调用
func ObserveInvocation(action, outcome string, elapsed time.Duration) {
	pluginInvocations.WithLabelValues(action, outcome).Inc()
	pluginInvocationDuration.WithLabelValues(action).Observe(elapsed.Seconds())
}

// ObserveLifecycle 记录一次生命周期操作，err 为 nil 视为成功
func ObserveLifecycle(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	lifecycleOps.WithLabelValues(operation, result).Inc()
}

// SetActivePlugins 更新激活插件数
func SetActivePlugins(n int) { activePlugins.Set(float64(n)) }

// Handler 返回 HTTP 处理器
func Handler() http.Handler { return promhttp.Handler() }

// HandlerFor 返回基于指定 Gatherer 的 HTTP 处理器
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
