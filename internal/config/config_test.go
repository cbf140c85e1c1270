package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/nmgenxys/starcalc/internal/config"
	"github.com/nmgenxys/starcalc/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.PlanType, convey.ShouldEqual, "MA-PD")
			convey.So(cfg.Uplift, convey.ShouldEqual, 0.05)
			convey.So(cfg.Workers, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.Output, convey.ShouldEqual, config.OutputText)
			convey.So(cfg.Precision, convey.ShouldEqual, 2)
			convey.So(cfg.MeasuresOfInterest, convey.ShouldHaveLength, 8)
			convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "starcalc")
			convey.So(cfg.MetricsSubsystem, convey.ShouldEqual, "rating")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the default list is not shared", func() {
			cfg.MeasuresOfInterest[0] = "changed"
			convey.So(config.DefaultMeasuresOfInterest[0], convey.ShouldEqual, "C14: Medication Reconciliation Post-Discharge")
		})

		convey.Convey("Then helpers expose typed values", func() {
			convey.So(cfg.Plan(), convey.ShouldEqual, model.PlanMAPD)
			convey.So(cfg.Measures()[7], convey.ShouldEqual, model.MeasureCode("D11: MTM Program Completion Rate for CMR"))
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with out-of-range fields", t, func() {
		cases := []struct {
			field  string
			mutate func(*config.Config)
		}{
			{"addr", func(c *config.Config) { c.Addr = " " }},
			{"thresholds", func(c *config.Config) { c.PartDThresholds = "" }},
			{"contracts", func(c *config.Config) { c.ContractScores = "" }},
			{"uplift", func(c *config.Config) { c.Uplift = 1.5 }},
			{"workers", func(c *config.Config) { c.Workers = 0 }},
			{"limit", func(c *config.Config) { c.MaxLeaderboardLimit = 0 }},
			{"precision", func(c *config.Config) { c.Precision = 9 }},
			{"output", func(c *config.Config) { c.Output = "xml" }},
			{"log format", func(c *config.Config) { c.LogFormat = "logfmt" }},
			{"metrics namespace", func(c *config.Config) { c.MetricsNamespace = "star-calc" }},
			{"metrics prefix", func(c *config.Config) { c.MetricsPrefix = "9x" }},
			{"metrics buckets", func(c *config.Config) { c.MetricsBuckets = []float64{1, 5, 5} }},
			{"metrics labels", func(c *config.Config) { c.MetricsLabels = map[string]string{"__env": "prod"} }},
		}

		for _, tc := range cases {
			convey.Convey("When "+tc.field+" is invalid", func() {
				cfg := config.New()
				tc.mutate(cfg)
				err := cfg.Validate()

				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}

		convey.Convey("When the plan type is unknown", func() {
			cfg := config.New()
			cfg.PlanType = "HMO"
			err := cfg.Validate()

			convey.Convey("Then the model error is preserved", func() {
				convey.So(errors.Is(err, model.ErrUnknownPlanType), convey.ShouldBeTrue)
				convey.So(cfg.Plan(), convey.ShouldEqual, model.DefaultPlanType)
			})
		})
	})
}
