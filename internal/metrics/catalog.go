// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	catalogChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tunewatch_catalog_channels",
		Help: "Number of channel records held in the catalog",
	})

	catalogPersistTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunewatch_catalog_persist_total",
		Help: "Catalog persist attempts by outcome",
	}, []string{"outcome"}) // outcome=success|empty|error

	scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunewatch_scans_total",
		Help: "Channel scans by outcome",
	}, []string{"outcome"}) // outcome=completed|failed_start

	hintMappings = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tunewatch_hint_mappings",
		Help: "Program id mappings loaded from the playlist hint file",
	})
)

func RecordCatalogChannels(n int)      { catalogChannels.Set(float64(n)) }
func IncCatalogPersist(outcome string) { catalogPersistTotal.WithLabelValues(outcome).Inc() }
func IncScan(outcome string)           { scansTotal.WithLabelValues(outcome).Inc() }
func RecordHintMappings(n int)         { hintMappings.Set(float64(n)) }
