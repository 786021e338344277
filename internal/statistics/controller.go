package statistics

import (
	"github.com/gpufanctl/gpufanctl/internal/control"
	"github.com/prometheus/client_golang/prometheus"
)

const controllerSubsystem = "controller"

type ControllerCollector struct {
	temperature    *prometheus.Desc
	avgTemperature *prometheus.Desc
	fanSpeed       *prometheus.Desc
	target         *prometheus.Desc
	errorTotal     *prometheus.Desc
	smoothedError  *prometheus.Desc
}

func NewControllerCollector() *ControllerCollector {
	return &ControllerCollector{
		temperature: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "temperature"),
			"Last measured GPU temperature in degrees celsius",
			[]string{"gpu"}, nil,
		),
		avgTemperature: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "avg_temperature"),
			"Rolling average of the GPU temperature in degrees celsius",
			[]string{"gpu"}, nil,
		),
		fanSpeed: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "fan_speed"),
			"Last fan speed command in percent",
			[]string{"gpu"}, nil,
		),
		target: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "target_temperature"),
			"Target GPU temperature in degrees celsius",
			[]string{"gpu"}, nil,
		),
		errorTotal: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "error_total"),
			"Discounted accumulated error of the controller",
			[]string{"gpu"}, nil,
		),
		smoothedError: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "smoothed_error"),
			"Smoothed error of the last committed controller update",
			[]string{"gpu"}, nil,
		),
	}
}

func (collector *ControllerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.temperature
	ch <- collector.avgTemperature
	ch <- collector.fanSpeed
	ch <- collector.target
	ch <- collector.errorTotal
	ch <- collector.smoothedError
}

// Collect implements required collect function for all prometheus collectors
func (collector *ControllerCollector) Collect(ch chan<- prometheus.Metric) {
	for gpuId, snapshot := range control.SnapshotMap.Items() {
		ch <- prometheus.MustNewConstMetric(collector.temperature, prometheus.GaugeValue, float64(snapshot.Temperature), gpuId)
		ch <- prometheus.MustNewConstMetric(collector.avgTemperature, prometheus.GaugeValue, snapshot.AvgTemperature, gpuId)
		ch <- prometheus.MustNewConstMetric(collector.fanSpeed, prometheus.GaugeValue, float64(snapshot.FanSpeed), gpuId)
		ch <- prometheus.MustNewConstMetric(collector.target, prometheus.GaugeValue, snapshot.Controller.Target, gpuId)
		ch <- prometheus.MustNewConstMetric(collector.errorTotal, prometheus.GaugeValue, snapshot.Controller.ErrorTotal, gpuId)
		ch <- prometheus.MustNewConstMetric(collector.smoothedError, prometheus.GaugeValue, snapshot.Controller.SmoothedError, gpuId)
	}
}
